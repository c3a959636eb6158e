// Package repository implements MySQL persistence for users, tables and
// bookings.  The sentinel errors below let the service layer tell storage
// outcomes apart without inspecting driver errors; services translate them
// into client-facing error kinds.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrTableNotFound   = errors.New("table not found")
	ErrBookingNotFound = errors.New("booking not found")

	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrTableNumberExists = errors.New("table number already exists")

	// ErrSlotTaken means a confirmed booking already holds the
	// (table, date, slot) key.
	ErrSlotTaken = errors.New("slot already booked")
	// ErrDuplicateReference means the generated reference collided.
	ErrDuplicateReference = errors.New("booking reference already used")
	// ErrTableUnavailable is returned by a booking insert when the table was
	// deleted or no longer seats the party.
	ErrTableUnavailable = errors.New("table unavailable")
	// ErrNotConfirmed is returned when cancelling a booking that is no
	// longer confirmed.
	ErrNotConfirmed = errors.New("booking is not confirmed")
	// ErrTableInUse blocks deleting a table with confirmed bookings.
	ErrTableInUse = errors.New("table has confirmed bookings")
)

// Unique key names from the schema, matched against duplicate-key errors.
const (
	keyUsername    = "uq_users_username"
	keyEmail       = "uq_users_email"
	keyTableNumber = "uq_tables_live_number"
	keyReference   = "uq_bookings_reference"
	keyActiveSlot  = "uq_bookings_active_slot"
)

// duplicateKey reports whether err is MySQL error 1062 and returns the name
// of the violated key.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return "", false
	}
	// Message: Duplicate entry '...' for key 'bookings.uq_bookings_reference'
	msg := me.Message
	i := strings.LastIndex(msg, "for key '")
	if i < 0 {
		return "", true
	}
	key := strings.TrimSuffix(msg[i+len("for key '"):], "'")
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	return key, true
}
