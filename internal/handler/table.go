package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
)

// TableService is the part of service.TableService the handlers use.
type TableService interface {
	List(ctx context.Context) ([]model.Table, error)
	Get(ctx context.Context, id uint64) (*model.Table, error)
	Slots() []string
	AvailableFor(ctx context.Context, date, slot string) ([]model.Table, error)
	Create(ctx context.Context, in service.TableInput) (*model.Table, error)
	Update(ctx context.Context, id uint64, in service.TableUpdate) error
	Delete(ctx context.Context, id uint64) error
}

// TableHandler serves public table browsing and admin table management.
type TableHandler struct {
	Tables TableService
}

func NewTableHandler(tables TableService) *TableHandler {
	if tables == nil {
		panic("nil table service passed to NewTableHandler")
	}
	return &TableHandler{Tables: tables}
}

type createTableReq struct {
	TableNumber string  `json:"tableNumber" validate:"required,max=10"`
	Capacity    int     `json:"capacity" validate:"required,gte=1,lte=100"`
	Description *string `json:"description" validate:"omitempty,max=200"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,max=500"`
}

// updateTableReq fields are all optional; absent keys keep their value.
type updateTableReq struct {
	TableNumber *string `json:"tableNumber" validate:"omitempty,max=10"`
	Capacity    *int    `json:"capacity" validate:"omitempty,gte=1,lte=100"`
	Description *string `json:"description" validate:"omitempty,max=200"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"isActive"`
}

// List handles GET /api/tables.
func (h *TableHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Tables.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /api/tables/:id.
func (h *TableHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id", "table")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.Tables.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Available handles GET /api/tables/available?date=&timeSlot=.  It lists the
// live tables with no confirmed booking for that date and slot.  Both
// parameters are required and follow the booking rules, so a past date or a
// slot outside opening hours is a 400.
func (h *TableHandler) Available(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Tables.AvailableFor(ctx, c.QueryParam("date"), c.QueryParam("timeSlot"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Slots handles GET /api/tables/slots.
func (h *TableHandler) Slots(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Tables.Slots())
}

// Create handles POST /api/tables.
func (h *TableHandler) Create(c echo.Context) error {
	var req createTableReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.Tables.Create(ctx, service.TableInput{
		TableNumber: req.TableNumber,
		Capacity:    req.Capacity,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

// Update handles PUT /api/tables/:id.  Every field is optional and omitted
// fields keep their current value.  Returns 204, 404 for an unknown table and
// 409 when the new number belongs to another live table.
func (h *TableHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id", "table")
	if err != nil {
		return err
	}
	var req updateTableReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Tables.Update(ctx, id, service.TableUpdate{
		TableNumber: req.TableNumber,
		Capacity:    req.Capacity,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /api/tables/:id.  Tables with confirmed bookings
// cannot be removed (409); otherwise the table is soft deleted and its number
// becomes free for reuse.
func (h *TableHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id", "table")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Tables.Delete(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
