package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/bookmarks/internal/apperror"
	"github.com/sakif/bookmarks/internal/model"
	"github.com/sakif/bookmarks/internal/repository"
)

// Compile-time check that *DB implements repository.BookmarkRepository.
var _ repository.BookmarkRepository = (*DB)(nil)

// Create inserts a new bookmark and fills in its ID and timestamps.
//
// The two UNIQUE constraints are disambiguated here because the caller
// reacts differently to each:
//   - short_url conflict → repository.ErrShortURLTaken (service redraws a code)
//   - url conflict       → apperror.ErrConflict (caller-visible 409)
//
// The column order in the error check matters only in the pathological case
// where both fire; SQLite reports the first violated constraint, and either
// mapping is acceptable then.
func (db *DB) Create(ctx context.Context, b *model.Bookmark) error {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO bookmarks (url, body, short_url, visits, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.URL,
		b.Body,
		b.ShortURL,
		b.Visits,
		b.UserID,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "bookmarks", "short_url") {
			return fmt.Errorf("sqlite: inserting bookmark: %w", repository.ErrShortURLTaken)
		}
		if isUniqueViolation(err, "bookmarks", "url") {
			return apperror.Conflict("URL already exists.")
		}
		return fmt.Errorf("sqlite: inserting bookmark: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading bookmark id: %w", err)
	}
	b.ID = id

	return nil
}

const bookmarkColumns = `id, url, body, short_url, visits, user_id, created_at, updated_at`

// scanBookmark reads one row's columns (in bookmarkColumns order) into a model.
func scanBookmark(row *sql.Row) (*model.Bookmark, error) {
	var b model.Bookmark
	err := row.Scan(
		&b.ID,
		&b.URL,
		&b.Body,
		&b.ShortURL,
		&b.Visits,
		&b.UserID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByShortURL resolves a public short code to its bookmark.
// This is the one lookup with no owner in the WHERE clause — short codes
// are public.
func (db *DB) GetByShortURL(ctx context.Context, code string) (*model.Bookmark, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE short_url = ?`, code)

	b, err := scanBookmark(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("Item not found")
		}
		return nil, fmt.Errorf("sqlite: getting bookmark by short url %q: %w", code, err)
	}
	return b, nil
}

// GetByURL finds the bookmark storing the exact url, regardless of owner.
// Used for the global url-uniqueness checks on create and edit.
func (db *DB) GetByURL(ctx context.Context, url string) (*model.Bookmark, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE url = ?`, url)

	b, err := scanBookmark(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("Item not found")
		}
		return nil, fmt.Errorf("sqlite: getting bookmark by url: %w", err)
	}
	return b, nil
}

// GetByOwnerAndID fetches one bookmark scoped to its owner. A bookmark owned
// by someone else produces the same NotFound as a nonexistent id.
func (db *DB) GetByOwnerAndID(ctx context.Context, ownerID, id int64) (*model.Bookmark, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE user_id = ? AND id = ?`,
		ownerID, id)

	b, err := scanBookmark(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("Item not found")
		}
		return nil, fmt.Errorf("sqlite: getting bookmark %d: %w", id, err)
	}
	return b, nil
}

// ListByOwner returns a page of the owner's bookmarks in insertion order.
// ORDER BY id keeps pagination stable across requests.
func (db *DB) ListByOwner(ctx context.Context, ownerID int64, opts repository.ListOptions) ([]model.Bookmark, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+bookmarkColumns+`
		 FROM bookmarks
		 WHERE user_id = ?
		 ORDER BY id
		 LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := make([]model.Bookmark, 0, limit)
	for rows.Next() {
		var b model.Bookmark
		if err := rows.Scan(
			&b.ID, &b.URL, &b.Body, &b.ShortURL, &b.Visits,
			&b.UserID, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bookmark row: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bookmarks: %w", err)
	}

	return bookmarks, nil
}

// AllByOwner returns every bookmark the owner has, in insertion order.
func (db *DB) AllByOwner(ctx context.Context, ownerID int64) ([]model.Bookmark, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+bookmarkColumns+`
		 FROM bookmarks
		 WHERE user_id = ?
		 ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing all bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []model.Bookmark
	for rows.Next() {
		var b model.Bookmark
		if err := rows.Scan(
			&b.ID, &b.URL, &b.Body, &b.ShortURL, &b.Visits,
			&b.UserID, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bookmark row: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bookmarks: %w", err)
	}

	return bookmarks, nil
}

// CountByOwner returns the owner's total bookmark count, for pagination meta.
func (db *DB) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookmarks WHERE user_id = ?`, ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting bookmarks: %w", err)
	}
	return count, nil
}

// Update overwrites url and body for an existing bookmark. short_url, visits
// and user_id are immutable, so they never appear in the SET clause.
func (db *DB) Update(ctx context.Context, b *model.Bookmark) error {
	b.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE bookmarks
		 SET url = ?, body = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		b.URL,
		b.Body,
		b.UpdatedAt,
		b.UserID,
		b.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "bookmarks", "url") {
			return apperror.Conflict("URL already exists.")
		}
		return fmt.Errorf("sqlite: updating bookmark %d: %w", b.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Item not found")
	}

	return nil
}

// Delete permanently removes the owner's bookmark. No soft delete.
func (db *DB) Delete(ctx context.Context, ownerID, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = ? AND id = ?`,
		ownerID, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting bookmark %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Item not found")
	}

	return nil
}

// IncrementVisits bumps the visit counter in a single UPDATE.
//
// visits = visits + 1 is evaluated inside the database, so two concurrent
// redirects to the same code serialize there and neither increment is lost.
// Reading the counter into Go and writing it back would drop updates under
// concurrency.
func (db *DB) IncrementVisits(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE bookmarks SET visits = visits + 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing visits for bookmark %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Item not found")
	}

	return nil
}
