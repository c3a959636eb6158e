package model

import "time"

// Table is a physical restaurant table as stored in `restaurant_tables`.
// Deleted tables keep their row (DeletedAt set) so past bookings still
// reference them; they are invisible to listings and new bookings.
type Table struct {
	ID          uint64     `db:"id" json:"id"`
	TableNumber string     `db:"table_number" json:"tableNumber"`
	Capacity    int        `db:"capacity" json:"capacity"`
	Description *string    `db:"description" json:"description"`
	ImageURL    *string    `db:"image_url" json:"imageUrl"`
	IsActive    bool       `db:"is_active" json:"isActive"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"-"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
}

// Limits shared by validation and the schema.
const (
	TableNumberMaxLen = 10
	MinCapacity       = 1
	MaxCapacity       = 100
	DescriptionMaxLen = 200
	ImageURLMaxLen    = 500
)
