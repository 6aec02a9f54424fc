// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// WHY int64 IDs?
// IDs come from SQLite's INTEGER PRIMARY KEY AUTOINCREMENT, which is a 64-bit
// rowid. Using int64 end-to-end avoids conversions at the repository boundary.
//
// PasswordHash holds the bcrypt hash of the user's password and is NEVER
// serialized — note the `json:"-"` tag. The plaintext password exists only
// transiently inside the auth service during register/login.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
