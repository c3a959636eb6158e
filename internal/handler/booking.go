package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
)

// BookingService is the part of service.BookingService the handlers use.
type BookingService interface {
	Create(ctx context.Context, userID uint64, in service.CreateBookingInput) (*model.Booking, error)
	ListForUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ListAll(ctx context.Context, date, status string) ([]model.BookingDetail, error)
	Get(ctx context.Context, bookingID, userID uint64) (*model.BookingDetail, error)
	Cancel(ctx context.Context, bookingID, userID uint64) error
}

// BookingHandler serves the customer and admin booking endpoints.  All
// methods assume JWTAuth already ran.
type BookingHandler struct {
	Bookings BookingService
}

func NewBookingHandler(bookings BookingService) *BookingHandler {
	if bookings == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings}
}

type createBookingReq struct {
	TableID        uint64 `json:"tableId" validate:"required"`
	NumberOfGuests int    `json:"numberOfGuests"`
	BookingDate    string `json:"bookingDate" validate:"required"`
	TimeSlot       string `json:"timeSlot" validate:"required"`
}

type createBookingResp struct {
	ID        uint64 `json:"id"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// BookingResponse is the wire form of a booking.
type BookingResponse struct {
	ID             uint64    `json:"id"`
	Reference      string    `json:"reference"`
	UserID         uint64    `json:"userId"`
	UserName       string    `json:"userName"`
	TableID        uint64    `json:"tableId"`
	TableNumber    string    `json:"tableNumber"`
	NumberOfGuests int       `json:"numberOfGuests"`
	BookingDate    string    `json:"bookingDate"`
	TimeSlot       string    `json:"timeSlot"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toBookingResponse(d model.BookingDetail) BookingResponse {
	return BookingResponse{
		ID:             d.ID,
		Reference:      d.Reference,
		UserID:         d.UserID,
		UserName:       d.UserName,
		TableID:        d.TableID,
		TableNumber:    d.TableNumber,
		NumberOfGuests: d.NumberOfGuests,
		BookingDate:    d.Date(),
		TimeSlot:       d.TimeSlot,
		Status:         d.Status,
		CreatedAt:      d.CreatedAt,
	}
}

func toBookingResponses(ds []model.BookingDetail) []BookingResponse {
	out := make([]BookingResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, toBookingResponse(d))
	}
	return out
}

// Create handles POST /api/bookings.  The body names the table, party size,
// date (YYYY-MM-DD) and time slot, either a catalogue label such as
// "19:00-21:00" or its start time.  On success it returns 201 with the new
// booking id and reference.  Invalid input, an unknown table or a party larger
// than the table yields 400; a slot already held by a confirmed booking
// yields 409.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	var req createBookingReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Bookings.Create(ctx, userID, service.CreateBookingInput{
		TableID:        req.TableID,
		NumberOfGuests: req.NumberOfGuests,
		BookingDate:    req.BookingDate,
		TimeSlot:       req.TimeSlot,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createBookingResp{ID: b.ID, Reference: b.Reference, Message: service.BookingCreatedMessage})
}

// Mine handles GET /api/bookings/my.
func (h *BookingHandler) Mine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Bookings.ListForUser(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponses(list))
}

// Get handles GET /api/bookings/:id for the booking's owner.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "booking")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	d, err := h.Bookings.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(*d))
}

// Cancel handles DELETE /api/bookings/:id and returns 204.  Only the owner
// may cancel: another user's booking is 403, an unknown id 404, and a booking
// that is already cancelled 409.  The freed slot can be booked again
// immediately.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "booking")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Bookings.Cancel(ctx, id, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /api/bookings?date=&status= for admins.  Both filters are
// optional.  An unknown status is rejected with 400; a malformed date is
// ignored by the service and the unfiltered list is returned.
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Bookings.ListAll(ctx, c.QueryParam("date"), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponses(list))
}
