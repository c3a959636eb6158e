package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/logger"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/repository/memrepo"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

var (
	testSlots = timeslot.MustCatalog("10:00-12:00", "12:00-14:00", "14:00-16:00", "17:00-19:00", "19:00-21:00", "21:00-23:00")
	testNow   = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type bookingFixture struct {
	store  *memrepo.Store
	svc    *BookingService
	events *recordingPublisher
	t1, t2 *model.Table
	alice  *model.User
	bob    *model.User
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	ctx := context.Background()
	f := &bookingFixture{store: memrepo.New(), events: &recordingPublisher{}}

	f.t1 = &model.Table{TableNumber: "T1", Capacity: 2, IsActive: true}
	f.t2 = &model.Table{TableNumber: "T2", Capacity: 4, IsActive: true}
	require.NoError(t, f.store.Tables().Create(ctx, f.t1))
	require.NoError(t, f.store.Tables().Create(ctx, f.t2))

	f.alice = &model.User{Username: "alice", Email: "alice@example.com", FullName: "Alice", Role: model.RoleCustomer}
	f.bob = &model.User{Username: "bob", Email: "bob@example.com", FullName: "Bob", Role: model.RoleCustomer}
	require.NoError(t, f.store.Users().Create(ctx, f.alice))
	require.NoError(t, f.store.Users().Create(ctx, f.bob))

	f.svc = NewBookingService(f.store.Bookings(), f.store.Tables(), testSlots, time.UTC, f.events, logger.Discard())
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *bookingFixture) book(userID, tableID uint64, guests int, date, slot string) (*model.Booking, error) {
	return f.svc.Create(context.Background(), userID, CreateBookingInput{
		TableID: tableID, NumberOfGuests: guests, BookingDate: date, TimeSlot: slot,
	})
}

func requireKind(t *testing.T, err error, kind *apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "got %v", err)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	if msg != "" {
		assert.Equal(t, msg, ae.Message)
	}
}

func TestCreateBooking_Success(t *testing.T) {
	f := newBookingFixture(t)

	b, err := f.book(f.alice.ID, f.t1.ID, 2, "2026-10-25", "19:00-21:00")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.Equal(t, "19:00-21:00", b.TimeSlot)
	assert.Regexp(t, ReferencePattern, b.Reference)
	assert.Equal(t, "BK20261025", b.Reference[:10])

	require.Len(t, f.events.events, 1)
	assert.Equal(t, queue.QueueBookingConfirmed, f.events.events[0].Type)
	assert.Equal(t, "T1", f.events.events[0].TableNumber)
}

func TestCreateBooking_StartTimeResolvesToLabel(t *testing.T) {
	f := newBookingFixture(t)

	b, err := f.book(f.alice.ID, f.t2.ID, 3, "2026-10-25", "19:00")
	require.NoError(t, err)
	assert.Equal(t, "19:00-21:00", b.TimeSlot)

	_, err = f.book(f.bob.ID, f.t2.ID, 3, "2026-10-25", "19:00-21:00")
	requireKind(t, err, apperr.Conflict, "Table is not available for the selected date and time")
}

func TestCreateBooking_Validation(t *testing.T) {
	cases := []struct {
		name    string
		tableID uint64
		guests  int
		date    string
		slot    string
		msg     string
	}{
		{"bad slot format", 1, 2, "2026-10-25", "seven", "Invalid time slot format"},
		{"before opening", 1, 2, "2026-10-25", "09:00", "Booking time must be between 10:00 and 21:00"},
		{"after last start", 1, 2, "2026-10-25", "21:30", "Booking time must be between 10:00 and 21:00"},
		{"not in catalogue", 1, 2, "2026-10-25", "10:30",
			"Time slot must be one of: 10:00-12:00, 12:00-14:00, 14:00-16:00, 17:00-19:00, 19:00-21:00, 21:00-23:00"},
		{"bad date", 1, 2, "25/10/2026", "19:00", "Invalid date format, expected YYYY-MM-DD"},
		{"past date", 1, 2, "2026-10-18", "19:00", "Cannot book for past dates"},
		{"unknown table", 99, 2, "2026-10-25", "19:00", "Table not found"},
		{"zero guests", 1, 0, "2026-10-25", "19:00", "Number of guests must be at least 1"},
		{"over capacity", 1, 5, "2026-10-25", "19:00", "Number of guests (5) exceeds table capacity (2)"},
		// slot errors are reported before date errors
		{"slot checked first", 1, 2, "nope", "09:00", "Booking time must be between 10:00 and 21:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookingFixture(t)
			_, err := f.book(f.alice.ID, tc.tableID, tc.guests, tc.date, tc.slot)
			requireKind(t, err, apperr.InvalidInput, tc.msg)
		})
	}
}

func TestCreateBooking_TodayIsAllowed(t *testing.T) {
	f := newBookingFixture(t)
	_, err := f.book(f.alice.ID, f.t1.ID, 1, "2026-10-19", "21:00")
	require.NoError(t, err)
}

func TestCreateBooking_SlotFreedByCancel(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	b, err := f.book(f.alice.ID, f.t1.ID, 2, "2026-10-25", "19:00-21:00")
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, b.ID, f.alice.ID))

	again, err := f.book(f.bob.ID, f.t1.ID, 2, "2026-10-25", "19:00-21:00")
	require.NoError(t, err)
	assert.NotEqual(t, b.Reference, again.Reference)
}

func TestCreateBooking_ConcurrentRequestsOneWins(t *testing.T) {
	f := newBookingFixture(t)
	const n = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.book(f.alice.ID, f.t2.ID, 2, "2026-10-25", "12:00")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.Conflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
	list, err := f.store.Bookings().List(context.Background(), model.BookingFilter{Status: model.StatusConfirmed})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateBooking_RetriesReferenceCollision(t *testing.T) {
	f := newBookingFixture(t)
	first, err := f.book(f.alice.ID, f.t1.ID, 2, "2026-10-25", "10:00")
	require.NoError(t, err)

	refs := []string{first.Reference, first.Reference, "BK20261025ZZZZ"}
	calls := 0
	f.svc.newReference = func(time.Time) string {
		r := refs[calls]
		calls++
		return r
	}

	b, err := f.book(f.bob.ID, f.t2.ID, 2, "2026-10-25", "10:00")
	require.NoError(t, err)
	assert.Equal(t, "BK20261025ZZZZ", b.Reference)
	assert.Equal(t, 3, calls)
}

func TestCreateBooking_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newBookingFixture(t)
	first, err := f.book(f.alice.ID, f.t1.ID, 2, "2026-10-25", "10:00")
	require.NoError(t, err)

	calls := 0
	f.svc.newReference = func(time.Time) string {
		calls++
		return first.Reference
	}

	_, err = f.book(f.bob.ID, f.t2.ID, 2, "2026-10-25", "10:00")
	requireKind(t, err, apperr.Internal, "")
	assert.Equal(t, maxReferenceAttempts, calls)
}

// racingBookings reports the slot as free but loses the insert race.
type racingBookings struct {
	BookingStore
	insertErr error
}

func (r racingBookings) SlotTaken(context.Context, uint64, string, string) (bool, error) {
	return false, nil
}

func (r racingBookings) Insert(context.Context, *model.Booking) error { return r.insertErr }

func TestCreateBooking_InsertRaceMapsToConflict(t *testing.T) {
	f := newBookingFixture(t)
	f.svc.bookings = racingBookings{BookingStore: f.store.Bookings(), insertErr: repository.ErrSlotTaken}

	_, err := f.book(f.alice.ID, f.t1.ID, 2, "2026-10-25", "10:00")
	requireKind(t, err, apperr.Conflict, "Table is not available for the selected date and time")
}

func TestCreateBooking_TableShrunkDuringInsert(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	// The insert guard fails because the table changed between validation and
	// insert; re-validation then reports the new capacity.
	shrinking := racingBookings{BookingStore: f.store.Bookings(), insertErr: repository.ErrTableUnavailable}
	f.svc.bookings = shrinking
	shrunk := *f.t2
	shrunk.Capacity = 2
	tables := &shrinkOnSecondGet{TableStore: f.store.Tables(), after: &shrunk}
	f.svc.tables = tables

	_, err := f.svc.Create(ctx, f.alice.ID, CreateBookingInput{TableID: f.t2.ID, NumberOfGuests: 4, BookingDate: "2026-10-25", TimeSlot: "10:00"})
	requireKind(t, err, apperr.InvalidInput, "Number of guests (4) exceeds table capacity (2)")
}

type shrinkOnSecondGet struct {
	TableStore
	after *model.Table
	gets  int
}

func (s *shrinkOnSecondGet) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	s.gets++
	if s.gets > 1 {
		t := *s.after
		return &t, nil
	}
	return s.TableStore.GetByID(ctx, id)
}

func TestCreateBooking_PublishFailureIsIgnored(t *testing.T) {
	f := newBookingFixture(t)
	f.events.err = errors.New("broker down")

	_, err := f.book(f.alice.ID, f.t1.ID, 2, "2026-10-25", "10:00")
	require.NoError(t, err)
}

func TestCancelBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b, err := f.book(f.alice.ID, f.t1.ID, 2, "2026-10-25", "19:00")
	require.NoError(t, err)

	err = f.svc.Cancel(ctx, b.ID, f.bob.ID)
	requireKind(t, err, apperr.Forbidden, "You can only cancel your own bookings")

	err = f.svc.Cancel(ctx, 999, f.alice.ID)
	requireKind(t, err, apperr.NotFound, "Booking not found")

	require.NoError(t, f.svc.Cancel(ctx, b.ID, f.alice.ID))
	got, err := f.svc.Get(ctx, b.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	err = f.svc.Cancel(ctx, b.ID, f.alice.ID)
	requireKind(t, err, apperr.Conflict, "Booking is already cancelled")

	require.Len(t, f.events.events, 2)
	assert.Equal(t, queue.QueueBookingCancelled, f.events.events[1].Type)
}

func TestGetBooking_HidesOtherUsers(t *testing.T) {
	f := newBookingFixture(t)
	b, err := f.book(f.alice.ID, f.t1.ID, 2, "2026-10-25", "19:00")
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), b.ID, f.bob.ID)
	requireKind(t, err, apperr.NotFound, "Booking not found")

	d, err := f.svc.Get(context.Background(), b.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", d.UserName)
	assert.Equal(t, "T1", d.TableNumber)
}

func TestListBookings(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	a1, err := f.book(f.alice.ID, f.t1.ID, 2, "2026-10-25", "19:00")
	require.NoError(t, err)
	_, err = f.book(f.alice.ID, f.t2.ID, 2, "2026-10-26", "10:00")
	require.NoError(t, err)
	_, err = f.book(f.bob.ID, f.t2.ID, 2, "2026-10-25", "12:00")
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, a1.ID, f.alice.ID))

	mine, err := f.svc.ListForUser(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "2026-10-26", mine[0].Date())

	all, err := f.svc.ListAll(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byDate, err := f.svc.ListAll(ctx, "2026-10-25", "")
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, "12:00-14:00", byDate[0].TimeSlot)

	confirmed, err := f.svc.ListAll(ctx, "2026-10-25", "CONFIRMED")
	require.NoError(t, err)
	assert.Len(t, confirmed, 1)

	ignored, err := f.svc.ListAll(ctx, "not-a-date", "cancelled")
	require.NoError(t, err)
	assert.Len(t, ignored, 1)

	_, err = f.svc.ListAll(ctx, "", "pending")
	requireKind(t, err, apperr.InvalidInput, "Invalid status. Use 'confirmed' or 'cancelled'")
}

func TestNewReference_Format(t *testing.T) {
	d := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		ref := NewReference(d)
		require.Regexp(t, ReferencePattern, ref)
		assert.Equal(t, "BK20260105", ref[:10])
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 150)
}
