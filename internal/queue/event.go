// Package queue defines booking lifecycle events and moves them over RabbitMQ.
package queue

import (
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Queue names double as event types.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

// BookingEvent is published when a booking is created or cancelled.  It is
// self-contained so consumers never need to read the database.
type BookingEvent struct {
	Type           string `json:"type"`
	BookingID      uint64 `json:"booking_id"`
	Reference      string `json:"reference"`
	UserID         uint64 `json:"user_id"`
	TableID        uint64 `json:"table_id"`
	TableNumber    string `json:"table_number"`
	NumberOfGuests int    `json:"number_of_guests"`
	BookingDate    string `json:"booking_date"`
	TimeSlot       string `json:"time_slot"`
	Status         string `json:"status"`
	OccurredAt     string `json:"occurred_at"`
}

// NewBookingEvent builds an event of the given type from a booking.
func NewBookingEvent(typ string, b model.Booking, tableNumber string) BookingEvent {
	return BookingEvent{
		Type:           typ,
		BookingID:      b.ID,
		Reference:      b.Reference,
		UserID:         b.UserID,
		TableID:        b.TableID,
		TableNumber:    tableNumber,
		NumberOfGuests: b.NumberOfGuests,
		BookingDate:    b.Date(),
		TimeSlot:       b.TimeSlot,
		Status:         b.Status,
		OccurredAt:     time.Now().UTC().Format(time.RFC3339),
	}
}
