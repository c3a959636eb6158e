// Package storage keeps uploaded table images, either on local disk or in an
// S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrNotFound is returned by Delete when no image has the given name.
var ErrNotFound = errors.New("image not found")

// ImageStore saves and removes images by file name.  Save returns the public
// URL clients use to fetch the image.
type ImageStore interface {
	Save(ctx context.Context, name string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
}

// Folder is the key prefix (S3) or subdirectory (local) for table images.
const Folder = "tables"

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// AllowedExtension reports whether ext (with dot, any case) is an accepted image type.
func AllowedExtension(ext string) bool { return allowedExt[strings.ToLower(ext)] }

// Generated names are a UUID plus an allowed extension.  Anything else is
// refused before it reaches the filesystem or the bucket.
var namePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z]+$`)

// ValidName reports whether name could have been produced by an upload.
func ValidName(name string) bool {
	return namePattern.MatchString(name) && AllowedExtension(filepath.Ext(name))
}
