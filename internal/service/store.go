// Package service holds the reservation, table and auth use cases.  Services
// depend on the store interfaces below; repository.*Repo (MySQL) and memrepo
// both satisfy them and report outcomes with the repository sentinel errors.
package service

import (
	"context"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context, role string) (int, error)
}

type TableStore interface {
	List(ctx context.Context) ([]model.Table, error)
	GetByID(ctx context.Context, id uint64) (*model.Table, error)
	ExistsByNumber(ctx context.Context, number string, excludeID uint64) (bool, error)
	Create(ctx context.Context, t *model.Table) error
	Update(ctx context.Context, t *model.Table) error
	SoftDelete(ctx context.Context, id uint64) error
	ListAvailable(ctx context.Context, date, slot string) ([]model.Table, error)
}

type BookingStore interface {
	SlotTaken(ctx context.Context, tableID uint64, date, slot string) (bool, error)
	ReferenceExists(ctx context.Context, ref string) (bool, error)
	Insert(ctx context.Context, b *model.Booking) error
	GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error)
	Cancel(ctx context.Context, id uint64) error
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.BookingDetail, error)
}

// EventPublisher receives booking lifecycle events.  Implementations must be
// safe for concurrent use; errors are logged, never returned to clients.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}
