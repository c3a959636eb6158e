// Package memrepo is an in-memory implementation of the user, table and
// booking repositories.  It enforces the same uniqueness rules as the MySQL
// schema under a single mutex and returns the same sentinel errors, which
// makes it suitable for service, concurrency and end-to-end tests.
package memrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// Store holds all rows.  Use Users, Tables and Bookings to get the
// repository views.
type Store struct {
	mu       sync.Mutex
	users    []model.User
	tables   []model.Table
	bookings []model.Booking
}

func New() *Store { return &Store{} }

func (s *Store) Users() *UserRepo       { return &UserRepo{s} }
func (s *Store) Tables() *TableRepo     { return &TableRepo{s} }
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{s} }

// ---- users ----

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, x := range r.s.users {
		if x.Username == u.Username {
			return repository.ErrUsernameExists
		}
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.ID = uint64(len(r.s.users) + 1)
	u.CreatedAt = time.Now().UTC()
	r.s.users = append(r.s.users, *u)
	return nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *UserRepo) GetByID(_ context.Context, id uint64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.user(id); ok {
		return &u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *UserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) CountByRole(_ context.Context, role string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, u := range r.s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// ---- tables ----

type TableRepo struct{ s *Store }

func (r *TableRepo) List(_ context.Context) ([]model.Table, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.liveTables(func(model.Table) bool { return true }), nil
}

func (r *TableRepo) GetByID(_ context.Context, id uint64) (*model.Table, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.tableIndex(id)
	if i < 0 {
		return nil, repository.ErrTableNotFound
	}
	t := r.s.tables[i]
	return &t, nil
}

func (r *TableRepo) ExistsByNumber(_ context.Context, number string, excludeID uint64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.numberTaken(number, excludeID), nil
}

func (r *TableRepo) Create(_ context.Context, t *model.Table) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.numberTaken(t.TableNumber, 0) {
		return repository.ErrTableNumberExists
	}
	now := time.Now().UTC()
	t.ID = uint64(len(r.s.tables) + 1)
	t.CreatedAt, t.UpdatedAt = now, now
	r.s.tables = append(r.s.tables, *t)
	return nil
}

func (r *TableRepo) Update(_ context.Context, t *model.Table) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.tableIndex(t.ID)
	if i < 0 {
		return repository.ErrTableNotFound
	}
	if r.s.numberTaken(t.TableNumber, t.ID) {
		return repository.ErrTableNumberExists
	}
	cur := &r.s.tables[i]
	cur.TableNumber, cur.Capacity = t.TableNumber, t.Capacity
	cur.Description, cur.ImageURL, cur.IsActive = t.Description, t.ImageURL, t.IsActive
	cur.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *TableRepo) SoftDelete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.tableIndex(id)
	if i < 0 {
		return repository.ErrTableNotFound
	}
	for _, b := range r.s.bookings {
		if b.TableID == id && b.IsConfirmed() {
			return repository.ErrTableInUse
		}
	}
	now := time.Now().UTC()
	r.s.tables[i].DeletedAt = &now
	return nil
}

func (r *TableRepo) ListAvailable(_ context.Context, date, slot string) ([]model.Table, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.liveTables(func(t model.Table) bool { return !r.s.slotTaken(t.ID, date, slot) }), nil
}

// ---- bookings ----

type BookingRepo struct{ s *Store }

func (r *BookingRepo) SlotTaken(_ context.Context, tableID uint64, date, slot string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.slotTaken(tableID, date, slot), nil
}

func (r *BookingRepo) ReferenceExists(_ context.Context, ref string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.referenceTaken(ref), nil
}

// Insert applies the same guards as the SQL statement: live table with
// enough capacity, unique reference, one confirmed booking per slot.
func (r *BookingRepo) Insert(_ context.Context, b *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.tableIndex(b.TableID)
	if i < 0 || r.s.tables[i].Capacity < b.NumberOfGuests {
		return repository.ErrTableUnavailable
	}
	if r.s.referenceTaken(b.Reference) {
		return repository.ErrDuplicateReference
	}
	if r.s.slotTaken(b.TableID, b.Date(), b.TimeSlot) {
		return repository.ErrSlotTaken
	}
	b.ID = uint64(len(r.s.bookings) + 1)
	b.Status = model.StatusConfirmed
	b.CreatedAt = time.Now().UTC()
	r.s.bookings = append(r.s.bookings, *b)
	return nil
}

func (r *BookingRepo) GetDetail(_ context.Context, id uint64) (*model.BookingDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.ID == id {
			d := r.s.detail(b)
			return &d, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (r *BookingRepo) Cancel(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.bookings {
		if r.s.bookings[i].ID != id {
			continue
		}
		if !r.s.bookings[i].IsConfirmed() {
			return repository.ErrNotConfirmed
		}
		r.s.bookings[i].Status = model.StatusCancelled
		return nil
	}
	return repository.ErrBookingNotFound
}

func (r *BookingRepo) ListByUser(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.details(func(b model.Booking) bool { return b.UserID == userID }), nil
}

func (r *BookingRepo) List(_ context.Context, f model.BookingFilter) ([]model.BookingDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.details(func(b model.Booking) bool {
		return (f.Date == "" || b.Date() == f.Date) && (f.Status == "" || b.Status == f.Status)
	}), nil
}

// ---- helpers, called with mu held ----

func (s *Store) user(id uint64) (model.User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

func (s *Store) tableIndex(id uint64) int {
	for i, t := range s.tables {
		if t.ID == id && t.DeletedAt == nil {
			return i
		}
	}
	return -1
}

func (s *Store) numberTaken(number string, excludeID uint64) bool {
	for _, t := range s.tables {
		if t.DeletedAt == nil && t.ID != excludeID && t.TableNumber == number {
			return true
		}
	}
	return false
}

func (s *Store) liveTables(keep func(model.Table) bool) []model.Table {
	out := []model.Table{}
	for _, t := range s.tables {
		if t.DeletedAt == nil && keep(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out
}

func (s *Store) slotTaken(tableID uint64, date, slot string) bool {
	for _, b := range s.bookings {
		if b.TableID == tableID && b.Date() == date && b.TimeSlot == slot && b.IsConfirmed() {
			return true
		}
	}
	return false
}

func (s *Store) referenceTaken(ref string) bool {
	for _, b := range s.bookings {
		if b.Reference == ref {
			return true
		}
	}
	return false
}

func (s *Store) detail(b model.Booking) model.BookingDetail {
	d := model.BookingDetail{Booking: b}
	if u, ok := s.user(b.UserID); ok {
		d.UserName = u.FullName
	}
	for _, t := range s.tables {
		if t.ID == b.TableID {
			d.TableNumber = t.TableNumber
		}
	}
	return d
}

func (s *Store) details(keep func(model.Booking) bool) []model.BookingDetail {
	out := []model.BookingDetail{}
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, s.detail(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.BookingDate.Equal(b.BookingDate) {
			return a.BookingDate.After(b.BookingDate)
		}
		if a.TimeSlot != b.TimeSlot {
			return a.TimeSlot < b.TimeSlot
		}
		return a.ID < b.ID
	})
	return out
}
