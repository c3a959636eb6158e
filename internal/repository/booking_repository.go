package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

// BookingRepo is the reservation ledger.  Rows are never deleted; cancelling
// flips status, which also releases the slot's unique key.
type BookingRepo struct{ db *sqlx.DB }

func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingDetailSelect = `SELECT b.id, b.reference, b.user_id, b.table_id, b.number_of_guests,
       b.booking_date, b.time_slot, b.status, b.created_at,
       u.full_name AS user_name, t.table_number
  FROM bookings b
  JOIN users u ON u.id = b.user_id
  JOIN restaurant_tables t ON t.id = b.table_id`

const bookingOrder = ` ORDER BY b.booking_date DESC, b.time_slot ASC, b.id ASC`

// SlotTaken reports whether a confirmed booking holds (table, date, slot).
func (r *BookingRepo) SlotTaken(ctx context.Context, tableID uint64, date, slot string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE table_id = ? AND booking_date = ? AND time_slot = ? AND status = 'confirmed')`,
		tableID, date, slot)
	return ok, err
}

func (r *BookingRepo) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM bookings WHERE reference = ?)`, ref)
	return ok, err
}

// Insert stores b as a confirmed booking.  The row is only written while the
// table is live and seats b.NumberOfGuests; otherwise ErrTableUnavailable.
// Violations of the active-slot and reference keys come back as ErrSlotTaken
// and ErrDuplicateReference; any other error is returned unchanged.
func (r *BookingRepo) Insert(ctx context.Context, b *model.Booking) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (reference, user_id, table_id, number_of_guests, booking_date, time_slot, status)
		 SELECT ?, ?, t.id, ?, ?, ?, 'confirmed'
		   FROM restaurant_tables t
		  WHERE t.id = ? AND t.deleted_at IS NULL AND t.capacity >= ?`,
		b.Reference, b.UserID, b.NumberOfGuests, b.Date(), b.TimeSlot, b.TableID, b.NumberOfGuests)
	if err != nil {
		if key, dup := duplicateKey(err); dup {
			switch key {
			case keyReference:
				return ErrDuplicateReference
			case keyActiveSlot:
				return ErrSlotTaken
			}
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTableUnavailable
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.StatusConfirmed
	b.CreatedAt = time.Now().UTC()
	return nil
}

func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	var d model.BookingDetail
	if err := r.db.GetContext(ctx, &d, bookingDetailSelect+` WHERE b.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Cancel flips a confirmed booking to cancelled in one conditional update.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled' WHERE id = ? AND status = 'confirmed'`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = ?)`, id); err != nil {
		return err
	}
	if !exists {
		return ErrBookingNotFound
	}
	return ErrNotConfirmed
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	out := []model.BookingDetail{}
	err := r.db.SelectContext(ctx, &out, bookingDetailSelect+` WHERE b.user_id = ?`+bookingOrder, userID)
	return out, err
}

// List returns every booking matching f.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.BookingDetail, error) {
	var (
		where []string
		args  []any
	)
	if f.Date != "" {
		where = append(where, "b.booking_date = ?")
		args = append(args, f.Date)
	}
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, f.Status)
	}
	q := bookingDetailSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	out := []model.BookingDetail{}
	err := r.db.SelectContext(ctx, &out, q+bookingOrder, args...)
	return out, err
}
