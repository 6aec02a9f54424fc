// Package model defines the data structures used throughout the application.
package model

import "time"

// Bookmark represents a saved URL owned by a user.
//
// Invariants enforced by the bookmarks table:
//   - ShortURL is globally unique (UNIQUE constraint on short_url)
//   - URL is globally unique across all users (UNIQUE constraint on url)
//
// ShortURL, Visits and UserID are immutable through the authenticated API:
// edits overwrite only URL and Body, and Visits is bumped solely by the
// redirect path via an atomic increment in the repository.
type Bookmark struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Body      string    `json:"body"`
	ShortURL  string    `json:"short_url"`
	Visits    int64     `json:"visits"`
	UserID    int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
