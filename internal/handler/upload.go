package handler

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/storage"
)

// UploadHandler accepts table images from admins and stores them under a
// generated name.
type UploadHandler struct {
	Store    storage.ImageStore
	MaxBytes int64
	Log      *logrus.Logger
}

func NewUploadHandler(store storage.ImageStore, maxBytes int64, log *logrus.Logger) *UploadHandler {
	if store == nil {
		panic("nil image store passed to NewUploadHandler")
	}
	return &UploadHandler{Store: store, MaxBytes: maxBytes, Log: log}
}

// multipartSlack is allowed on top of MaxBytes for the multipart envelope
// (boundaries, part headers, other fields).
const multipartSlack = 64 << 10

// Upload handles POST /api/upload/image with a multipart "file" field.
//
// The router exempts this route from the global body limit; the request body
// is capped here instead so an oversized image is reported as a 400 with the
// size message rather than a bare 413.  Checks run in order: presence,
// extension, size, then the sniffed content type.
func (h *UploadHandler) Upload(c echo.Context) error {
	req := c.Request()
	limit := h.MaxBytes + multipartSlack
	if req.ContentLength > limit {
		return h.tooLarge()
	}
	req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return h.tooLarge()
		}
		return apperr.New(apperr.InvalidInput, "No file uploaded")
	}
	if fh.Size == 0 {
		return apperr.New(apperr.InvalidInput, "No file uploaded")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !storage.AllowedExtension(ext) {
		return apperr.New(apperr.InvalidInput, "Invalid file type. Only JPG, PNG, GIF, and WebP are allowed.")
	}
	if fh.Size > h.MaxBytes {
		return h.tooLarge()
	}

	f, err := fh.Open()
	if err != nil {
		return apperr.InternalErr(err)
	}
	defer f.Close()

	// The extension alone is not trusted; the content must sniff as an image.
	br := bufio.NewReaderSize(f, 512)
	head, _ := br.Peek(512)
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return apperr.New(apperr.InvalidInput, "Invalid file type. Only JPG, PNG, GIF, and WebP are allowed.")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	name := uuid.NewString() + ext
	url, err := h.Store.Save(ctx, name, br, contentType)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "An error occurred while uploading the image", err)
	}
	h.Log.WithFields(logrus.Fields{"name": name, "bytes": fh.Size}).Info("table image uploaded")
	return c.JSON(http.StatusOK, echo.Map{"imageUrl": url})
}

func (h *UploadHandler) tooLarge() error {
	return apperr.New(apperr.InvalidInput, fmt.Sprintf("File size exceeds %dMB limit", h.MaxBytes>>20))
}

// Delete handles DELETE /api/upload/image/:name.
func (h *UploadHandler) Delete(c echo.Context) error {
	name := c.Param("name")
	if !storage.ValidName(name) {
		return apperr.New(apperr.InvalidInput, "Invalid file name")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Store.Delete(ctx, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.New(apperr.NotFound, "Image not found")
		}
		return apperr.Wrap(apperr.Internal, "An error occurred while deleting the image", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Image deleted successfully"})
}
