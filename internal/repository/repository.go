// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage provides the implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"errors"

	"github.com/sakif/bookmarks/internal/model"
)

// ErrShortURLTaken is returned by BookmarkRepository.Create when the insert
// lost the short-code race: another bookmark claimed the same code between
// the generator's existence check and this insert. The service treats it as
// "draw a new code and retry", never as a caller-visible conflict.
var ErrShortURLTaken = errors.New("short url already taken")

// ListOptions carries LIMIT/OFFSET pagination for owner-scoped listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// BookmarkRepository is the persistence contract for bookmarks.
//
// OWNERSHIP SCOPING LIVES IN THE QUERY:
// GetByOwnerAndID and Delete take the owner's id and match it in the WHERE
// clause, so a bookmark owned by someone else is indistinguishable from one
// that doesn't exist. GetByShortURL is the deliberate exception — the
// redirect path is public.
type BookmarkRepository interface {
	// Create inserts a new bookmark. The UNIQUE constraints on url and
	// short_url are the final authority for the uniqueness invariants.
	// A url conflict surfaces as apperror.ErrConflict; a short_url conflict
	// surfaces as ErrShortURLTaken so the caller can retry generation.
	Create(ctx context.Context, b *model.Bookmark) error
	GetByShortURL(ctx context.Context, code string) (*model.Bookmark, error)
	GetByURL(ctx context.Context, url string) (*model.Bookmark, error)
	GetByOwnerAndID(ctx context.Context, ownerID, id int64) (*model.Bookmark, error)
	ListByOwner(ctx context.Context, ownerID int64, opts ListOptions) ([]model.Bookmark, error)
	// AllByOwner returns every bookmark the owner has, in insertion order.
	// Backs the stats view, which is unpaginated.
	AllByOwner(ctx context.Context, ownerID int64) ([]model.Bookmark, error)
	CountByOwner(ctx context.Context, ownerID int64) (int64, error)
	Update(ctx context.Context, b *model.Bookmark) error
	Delete(ctx context.Context, ownerID, id int64) error
	// IncrementVisits bumps the visit counter by one as a single atomic
	// read-modify-write at the store. Concurrent redirects must never lose
	// an increment, so this is NOT load-add-store in the caller.
	IncrementVisits(ctx context.Context, id int64) error
}

// UserRepository is the persistence contract for accounts. Method names
// carry the User infix so one store can satisfy both repositories.
type UserRepository interface {
	// CreateUser inserts a new user. Username/email uniqueness is enforced
	// by UNIQUE constraints; conflicts surface as apperror.ErrConflict.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}
