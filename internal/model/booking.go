package model

import "time"

// Booking statuses.  The only transition is confirmed -> cancelled.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// DateLayout is the wire and storage format of booking dates.
const DateLayout = "2006-01-02"

// Booking records one reservation of a table for a date and time slot.
//
// Fields:
//  ID             – primary key identifier.
//  Reference      – human readable code, BK<YYYYMMDD><4 chars>, unique.
//  UserID         – user who made the booking.
//  TableID        – reserved table.
//  NumberOfGuests – party size, at most the table capacity.
//  BookingDate    – calendar date of the sitting (DATE column).
//  TimeSlot       – canonical slot label, e.g. "19:00-21:00".
//  Status         – confirmed or cancelled.
//  CreatedAt      – creation timestamp.
type Booking struct {
	ID             uint64    `db:"id"`
	Reference      string    `db:"reference"`
	UserID         uint64    `db:"user_id"`
	TableID        uint64    `db:"table_id"`
	NumberOfGuests int       `db:"number_of_guests"`
	BookingDate    time.Time `db:"booking_date"`
	TimeSlot       string    `db:"time_slot"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
}

// Date returns the booking date in DateLayout.
func (b Booking) Date() string { return b.BookingDate.Format(DateLayout) }

// IsConfirmed reports whether the booking still holds its slot.
func (b Booking) IsConfirmed() bool { return b.Status == StatusConfirmed }

// BookingDetail is a booking enriched with the owner's full name and the
// table number, as returned by listings.
type BookingDetail struct {
	Booking
	UserName    string `db:"user_name"`
	TableNumber string `db:"table_number"`
}

// BookingFilter narrows the admin listing.  Zero values mean no filter.
type BookingFilter struct {
	Date   string // YYYY-MM-DD
	Status string
}
