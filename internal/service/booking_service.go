package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/metrics"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// BookingCreatedMessage is returned alongside the reference on success.
const BookingCreatedMessage = "Booking created successfully"

// CreateBookingInput is what a customer submits to reserve a table.
type CreateBookingInput struct {
	TableID        uint64
	NumberOfGuests int
	BookingDate    string // YYYY-MM-DD
	TimeSlot       string // catalogue label or its start time
}

// BookingService implements booking creation, cancellation and listings.
//
// The no-double-booking rule is enforced by the store (a unique key over
// table, date, slot for confirmed rows); the SlotTaken pre-check only gives
// the common case a fast, friendly answer.
type BookingService struct {
	bookings BookingStore
	tables   TableStore
	slots    *timeslot.Catalog
	loc      *time.Location
	events   EventPublisher
	log      *logrus.Logger

	now          func() time.Time
	newReference func(time.Time) string
}

func NewBookingService(bookings BookingStore, tables TableStore, slots *timeslot.Catalog,
	loc *time.Location, events EventPublisher, log *logrus.Logger) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		bookings:     bookings,
		tables:       tables,
		slots:        slots,
		loc:          loc,
		events:       events,
		log:          log,
		now:          time.Now,
		newReference: NewReference,
	}
}

// Create validates the request in a fixed order and stores a confirmed
// booking:
//  1. time slot format, service window and catalogue membership
//  2. date format, not in the past
//  3. table exists
//  4. party size fits the table
//  5. slot still free
func (s *BookingService) Create(ctx context.Context, userID uint64, in CreateBookingInput) (*model.Booking, error) {
	slot, date, err := s.validateWhen(in.TimeSlot, in.BookingDate)
	if err != nil {
		metrics.Booking(metrics.OutcomeRejected)
		return nil, err
	}

	table, err := s.tableFor(ctx, in.TableID, in.NumberOfGuests)
	if err != nil {
		if apperr.KindOf(err) == apperr.InvalidInput {
			metrics.Booking(metrics.OutcomeRejected)
		}
		return nil, err
	}

	taken, err := s.bookings.SlotTaken(ctx, table.ID, date.Format(model.DateLayout), slot.Label)
	if err != nil {
		return nil, apperr.InternalErr(err)
	}
	if taken {
		metrics.Booking(metrics.OutcomeConflict)
		return nil, errSlotUnavailable()
	}

	b := &model.Booking{
		UserID:         userID,
		TableID:        table.ID,
		NumberOfGuests: in.NumberOfGuests,
		BookingDate:    date,
		TimeSlot:       slot.Label,
	}
	if err := s.insertWithReference(ctx, b); err != nil {
		return nil, err
	}

	metrics.Booking(metrics.OutcomeCreated)
	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID, "reference": b.Reference, "user_id": userID,
		"table_id": b.TableID, "date": b.Date(), "slot": b.TimeSlot,
	}).Info("booking created")
	s.publish(ctx, queue.NewBookingEvent(queue.QueueBookingConfirmed, *b, table.TableNumber))
	return b, nil
}

// insertWithReference generates references until one is free and the insert
// succeeds.  Collisions detected by the pre-check or by the unique key both
// consume an attempt.
func (s *BookingService) insertWithReference(ctx context.Context, b *model.Booking) error {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		ref := s.newReference(b.BookingDate)
		exists, err := s.bookings.ReferenceExists(ctx, ref)
		if err != nil {
			return apperr.InternalErr(err)
		}
		if exists {
			continue
		}
		b.Reference = ref
		err = s.bookings.Insert(ctx, b)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrDuplicateReference):
			continue
		case errors.Is(err, repository.ErrSlotTaken):
			metrics.Booking(metrics.OutcomeConflict)
			return errSlotUnavailable()
		case errors.Is(err, repository.ErrTableUnavailable):
			// The table was deleted or shrunk after validation.
			if _, verr := s.tableFor(ctx, b.TableID, b.NumberOfGuests); verr != nil {
				return verr
			}
			return errSlotUnavailable()
		default:
			return apperr.InternalErr(err)
		}
	}
	return apperr.InternalErr(fmt.Errorf("no free booking reference after %d attempts", maxReferenceAttempts))
}

// validateWhen runs steps 1 and 2 of Create.  Table availability queries
// share it.
func (s *BookingService) validateWhen(rawSlot, rawDate string) (timeslot.Slot, time.Time, error) {
	return validateWhen(s.slots, s.loc, s.now(), rawSlot, rawDate)
}

func validateWhen(slots *timeslot.Catalog, loc *time.Location, now time.Time, rawSlot, rawDate string) (timeslot.Slot, time.Time, error) {
	slot, err := slots.Resolve(rawSlot)
	if err != nil {
		switch {
		case errors.Is(err, timeslot.ErrFormat):
			return timeslot.Slot{}, time.Time{}, apperr.New(apperr.InvalidInput, "Invalid time slot format")
		case errors.Is(err, timeslot.ErrOutsideHours):
			return timeslot.Slot{}, time.Time{}, apperr.New(apperr.InvalidInput, "Booking time must be between 10:00 and 21:00")
		default:
			return timeslot.Slot{}, time.Time{}, apperr.New(apperr.InvalidInput,
				fmt.Sprintf("Time slot must be one of: %s", strings.Join(slots.Labels(), ", ")))
		}
	}
	date, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(rawDate), time.UTC)
	if err != nil {
		return timeslot.Slot{}, time.Time{}, apperr.New(apperr.InvalidInput, "Invalid date format, expected YYYY-MM-DD")
	}
	today := now.In(loc).Format(model.DateLayout)
	if date.Format(model.DateLayout) < today {
		return timeslot.Slot{}, time.Time{}, apperr.New(apperr.InvalidInput, "Cannot book for past dates")
	}
	return slot, date, nil
}

// tableFor runs steps 3 and 4 of Create.
func (s *BookingService) tableFor(ctx context.Context, tableID uint64, guests int) (*model.Table, error) {
	table, err := s.tables.GetByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return nil, apperr.New(apperr.InvalidInput, "Table not found")
		}
		return nil, apperr.InternalErr(err)
	}
	if guests < 1 {
		return nil, apperr.New(apperr.InvalidInput, "Number of guests must be at least 1")
	}
	if guests > table.Capacity {
		return nil, apperr.New(apperr.InvalidInput,
			fmt.Sprintf("Number of guests (%d) exceeds table capacity (%d)", guests, table.Capacity))
	}
	return table, nil
}

func errSlotUnavailable() error {
	return apperr.New(apperr.Conflict, "Table is not available for the selected date and time")
}

// ListForUser returns every booking of userID, newest date first.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	out, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.InternalErr(err)
	}
	return out, nil
}

// ParseStatus normalises a status filter.  Empty means no filter.
func ParseStatus(raw string) (string, error) {
	switch st := strings.ToLower(strings.TrimSpace(raw)); st {
	case "", model.StatusConfirmed, model.StatusCancelled:
		return st, nil
	default:
		return "", apperr.New(apperr.InvalidInput, "Invalid status. Use 'confirmed' or 'cancelled'")
	}
}

// ListAll is the admin view.  An unparseable date is ignored rather than
// rejected; an unknown status is rejected.
func (s *BookingService) ListAll(ctx context.Context, date, status string) ([]model.BookingDetail, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	f := model.BookingFilter{Status: st}
	if date = strings.TrimSpace(date); date != "" {
		if d, err := time.Parse(model.DateLayout, date); err == nil {
			f.Date = d.Format(model.DateLayout)
		} else {
			s.log.WithField("date", date).Warn("ignoring malformed booking date filter")
		}
	}
	out, err := s.bookings.List(ctx, f)
	if err != nil {
		return nil, apperr.InternalErr(err)
	}
	return out, nil
}

// Get returns one of the caller's bookings.  Other users' bookings are
// reported as not found.
func (s *BookingService) Get(ctx context.Context, bookingID, userID uint64) (*model.BookingDetail, error) {
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperr.New(apperr.NotFound, "Booking not found")
		}
		return nil, apperr.InternalErr(err)
	}
	if d.UserID != userID {
		return nil, apperr.New(apperr.NotFound, "Booking not found")
	}
	return d, nil
}

// Cancel cancels a confirmed booking owned by userID.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID uint64) error {
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return apperr.New(apperr.NotFound, "Booking not found")
		}
		return apperr.InternalErr(err)
	}
	if d.UserID != userID {
		return apperr.New(apperr.Forbidden, "You can only cancel your own bookings")
	}
	if !d.IsConfirmed() {
		return apperr.New(apperr.Conflict, "Booking is already cancelled")
	}
	if err := s.bookings.Cancel(ctx, bookingID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotConfirmed):
			return apperr.New(apperr.Conflict, "Booking is already cancelled")
		case errors.Is(err, repository.ErrBookingNotFound):
			return apperr.New(apperr.NotFound, "Booking not found")
		}
		return apperr.InternalErr(err)
	}

	d.Status = model.StatusCancelled
	metrics.Booking(metrics.OutcomeCancelled)
	s.log.WithFields(logrus.Fields{"booking_id": d.ID, "reference": d.Reference, "user_id": userID}).Info("booking cancelled")
	s.publish(ctx, queue.NewBookingEvent(queue.QueueBookingCancelled, d.Booking, d.TableNumber))
	return nil
}

func (s *BookingService) publish(ctx context.Context, ev queue.BookingEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithField("reference", ev.Reference).Warn("booking event not published")
	}
}
