// Package service contains the business logic layer: it validates input,
// enforces ownership and uniqueness rules, and orchestrates the repositories.
// Handlers above it know only HTTP; repositories below it know only SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/sakif/bookmarks/internal/apperror"
	"github.com/sakif/bookmarks/internal/model"
	"github.com/sakif/bookmarks/internal/repository"
	"github.com/sakif/bookmarks/internal/shortcode"
)

const (
	// DefaultPage and DefaultPerPage apply when the caller omits pagination
	// parameters — and also when it sends garbage. Unparseable or
	// non-positive values fall back here instead of erroring.
	DefaultPage    = 1
	DefaultPerPage = 5

	// maxInsertAttempts bounds how often Create re-generates a code after
	// LOSING the insert race (the generator's own pre-check passed, but a
	// concurrent create claimed the code first). Repeatedly losing this race
	// means the keyspace is nearly full, which is a capacity condition.
	maxInsertAttempts = 8
)

// BookmarkService handles all bookmark business logic. Every operation takes
// the authenticated owner's id explicitly — there is no ambient "current
// user"; identity flows in as a parameter.
type BookmarkService struct {
	repo   repository.BookmarkRepository
	codes  *shortcode.Generator
	logger *slog.Logger
}

// NewBookmarkService creates a BookmarkService. The short-code generator is
// wired to the repository's short-url lookup here, so callers inject just
// the repository.
func NewBookmarkService(repo repository.BookmarkRepository, logger *slog.Logger) *BookmarkService {
	gen := shortcode.New(func(ctx context.Context, code string) (bool, error) {
		_, err := repo.GetByShortURL(ctx, code)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	})

	return &BookmarkService{
		repo:   repo,
		codes:  gen,
		logger: logger,
	}
}

// validateURL accepts absolute http(s) URLs and nothing else.
// url.ParseRequestURI alone is too lenient — it happily parses "not-a-url"
// as a relative path — so the scheme and host checks do the real work.
func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperror.ValidationFailed("url", "Enter a valid URL.")
	}
	return nil
}

// Create validates and saves a new bookmark for ownerID.
//
// Two uniqueness rules apply:
//   - the url must not already be bookmarked (by ANYONE — global uniqueness),
//     surfaced as a conflict;
//   - the generated short code must be unused, which is retried silently.
//
// Both pre-checks race with concurrent creates; the UNIQUE constraints are
// authoritative and the insert errors are handled accordingly: a short-code
// collision triggers a fresh code, a url collision becomes the same conflict
// the pre-check would have reported.
func (s *BookmarkService) Create(ctx context.Context, ownerID int64, rawURL, body string) (*model.Bookmark, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	// Advisory pre-check so the common duplicate case fails before we spend
	// draws on a short code.
	_, err := s.repo.GetByURL(ctx, rawURL)
	if err == nil {
		return nil, apperror.Conflict("URL already exists.")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking url uniqueness: %w", err)
	}

	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		code, err := s.codes.Generate(ctx)
		if err != nil {
			return nil, fmt.Errorf("allocating short code: %w", err)
		}

		b := &model.Bookmark{
			URL:      rawURL,
			Body:     body,
			ShortURL: code,
			UserID:   ownerID,
		}

		err = s.repo.Create(ctx, b)
		if err == nil {
			s.logger.Info("bookmark created",
				slog.Int64("id", b.ID),
				slog.Int64("userID", ownerID),
				slog.String("shortURL", b.ShortURL),
			)
			return b, nil
		}
		if errors.Is(err, repository.ErrShortURLTaken) {
			// Lost the code race — draw again.
			s.logger.Debug("short code collided on insert, retrying",
				slog.String("code", code),
				slog.Int("attempt", attempt+1),
			)
			continue
		}
		if errors.Is(err, apperror.ErrConflict) {
			// Lost the url race to a concurrent create.
			return nil, err
		}
		s.logger.Error("failed to create bookmark",
			slog.Int64("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating bookmark: %w", err)
	}

	return nil, apperror.Capacity("short code space exhausted")
}

// PageMeta describes one page of a listing. PrevPage/NextPage are pointers
// so the edges serialize as null rather than 0.
type PageMeta struct {
	Page       int   `json:"page"`
	Pages      int   `json:"pages"`
	TotalCount int64 `json:"total_count"`
	PrevPage   *int  `json:"prev_page"`
	NextPage   *int  `json:"next_page"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

// BookmarkPage is one page of an owner's bookmarks plus pagination meta.
type BookmarkPage struct {
	Items []model.Bookmark
	Meta  PageMeta
}

// List returns ownerID's bookmarks, paginated. page and perPage are 1-based;
// non-positive values mean "use the default". A page past the end returns an
// empty item list with truthful meta, not an error.
func (s *BookmarkService) List(ctx context.Context, ownerID int64, page, perPage int) (*BookmarkPage, error) {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	total, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("counting bookmarks: %w", err)
	}

	items, err := s.repo.ListByOwner(ctx, ownerID, repository.ListOptions{
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		s.logger.Error("failed to list bookmarks",
			slog.Int64("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}

	pages := int((total + int64(perPage) - 1) / int64(perPage))

	meta := PageMeta{
		Page:       page,
		Pages:      pages,
		TotalCount: total,
		HasPrev:    page > 1,
		HasNext:    page < pages,
	}
	if meta.HasPrev {
		prev := page - 1
		meta.PrevPage = &prev
	}
	if meta.HasNext {
		next := page + 1
		meta.NextPage = &next
	}

	return &BookmarkPage{Items: items, Meta: meta}, nil
}

// Get returns the bookmark if ownerID owns it. A bookmark owned by someone
// else and a nonexistent id produce the same NotFound.
func (s *BookmarkService) Get(ctx context.Context, ownerID, id int64) (*model.Bookmark, error) {
	return s.repo.GetByOwnerAndID(ctx, ownerID, id)
}

// Edit overwrites url and body on an owned bookmark. short_url, visits and
// the owner are immutable across edits.
//
// Unlike the create path, the url-uniqueness check excludes the bookmark
// itself — re-saving a bookmark with its own unchanged url is not a
// conflict.
func (s *BookmarkService) Edit(ctx context.Context, ownerID, id int64, rawURL, body string) (*model.Bookmark, error) {
	b, err := s.repo.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByURL(ctx, rawURL)
	if err == nil && existing.ID != b.ID {
		return nil, apperror.Conflict("URL already exists.")
	}
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking url uniqueness: %w", err)
	}

	b.URL = rawURL
	b.Body = body

	if err := s.repo.Update(ctx, b); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update bookmark",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating bookmark: %w", err)
	}

	s.logger.Info("bookmark updated",
		slog.Int64("id", b.ID),
		slog.Int64("userID", ownerID),
	)

	return b, nil
}

// Delete permanently removes an owned bookmark.
func (s *BookmarkService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.logger.Info("bookmark deleted",
		slog.Int64("id", id),
		slog.Int64("userID", ownerID),
	)
	return nil
}

// StatsItem is one row of the per-bookmark visit statistics.
type StatsItem struct {
	Visits   int64  `json:"visits"`
	URL      string `json:"url"`
	ShortURL string `json:"short_url"`
}

// Stats returns visit counts for every bookmark ownerID has. Unpaginated.
func (s *BookmarkService) Stats(ctx context.Context, ownerID int64) ([]StatsItem, error) {
	bookmarks, err := s.repo.AllByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading bookmarks for stats: %w", err)
	}

	items := make([]StatsItem, 0, len(bookmarks))
	for _, b := range bookmarks {
		items = append(items, StatsItem{
			Visits:   b.Visits,
			URL:      b.URL,
			ShortURL: b.ShortURL,
		})
	}

	return items, nil
}

// Resolve looks up a public short code, counts the visit, and returns the
// target url for the handler to redirect to. No ownership check — short
// codes are the one deliberately public surface.
func (s *BookmarkService) Resolve(ctx context.Context, code string) (string, error) {
	b, err := s.repo.GetByShortURL(ctx, code)
	if err != nil {
		return "", err
	}

	// Atomic at the store: concurrent redirects must not lose increments.
	if err := s.repo.IncrementVisits(ctx, b.ID); err != nil {
		return "", fmt.Errorf("counting visit for %q: %w", code, err)
	}

	s.logger.Debug("short url resolved",
		slog.String("code", code),
		slog.Int64("bookmarkID", b.ID),
	)

	return b.URL, nil
}
