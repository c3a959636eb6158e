package model

import "time"

// Roles stored in users.role.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents an account as stored in the `users` table.  Users are
// created by registration (always as customers) or by the admin seed, and
// are never deleted.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name, 3 to 50 characters.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash; never serialised.
//  FullName     – display name shown on bookings.
//  PhoneNumber  – contact number.
//  Role         – customer or admin.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"fullName"`
	PhoneNumber  string    `db:"phone_number" json:"phoneNumber"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// IsAdmin reports whether the user may manage tables and see all bookings.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
