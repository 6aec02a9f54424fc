package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/sakif/bookmarks/internal/apperror"
	"github.com/sakif/bookmarks/internal/model"
	"github.com/sakif/bookmarks/internal/repository"
	"github.com/sakif/bookmarks/internal/shortcode"
)

// fakeBookmarkRepo is an in-memory repository.BookmarkRepository. A slice
// (not a map) keeps insertion order, which the listing contract relies on.
type fakeBookmarkRepo struct {
	bookmarks []*model.Bookmark
	nextID    int64

	// failShortURLTimes makes the next N Creates fail as if a concurrent
	// create had claimed the generated code first.
	failShortURLTimes int
}

func newFakeBookmarkRepo() *fakeBookmarkRepo {
	return &fakeBookmarkRepo{nextID: 1}
}

func (f *fakeBookmarkRepo) Create(_ context.Context, b *model.Bookmark) error {
	if f.failShortURLTimes > 0 {
		f.failShortURLTimes--
		return fmt.Errorf("fake insert: %w", repository.ErrShortURLTaken)
	}
	for _, existing := range f.bookmarks {
		if existing.ShortURL == b.ShortURL {
			return fmt.Errorf("fake insert: %w", repository.ErrShortURLTaken)
		}
		if existing.URL == b.URL {
			return apperror.Conflict("URL already exists.")
		}
	}
	b.ID = f.nextID
	f.nextID++
	stored := *b
	f.bookmarks = append(f.bookmarks, &stored)
	return nil
}

func (f *fakeBookmarkRepo) GetByShortURL(_ context.Context, code string) (*model.Bookmark, error) {
	for _, b := range f.bookmarks {
		if b.ShortURL == code {
			result := *b
			return &result, nil
		}
	}
	return nil, apperror.NotFound("Item not found")
}

func (f *fakeBookmarkRepo) GetByURL(_ context.Context, url string) (*model.Bookmark, error) {
	for _, b := range f.bookmarks {
		if b.URL == url {
			result := *b
			return &result, nil
		}
	}
	return nil, apperror.NotFound("Item not found")
}

func (f *fakeBookmarkRepo) GetByOwnerAndID(_ context.Context, ownerID, id int64) (*model.Bookmark, error) {
	for _, b := range f.bookmarks {
		if b.ID == id && b.UserID == ownerID {
			result := *b
			return &result, nil
		}
	}
	return nil, apperror.NotFound("Item not found")
}

func (f *fakeBookmarkRepo) ListByOwner(_ context.Context, ownerID int64, opts repository.ListOptions) ([]model.Bookmark, error) {
	var owned []model.Bookmark
	for _, b := range f.bookmarks {
		if b.UserID == ownerID {
			owned = append(owned, *b)
		}
	}
	if opts.Offset >= len(owned) {
		return []model.Bookmark{}, nil
	}
	owned = owned[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(owned) {
		owned = owned[:opts.Limit]
	}
	return owned, nil
}

func (f *fakeBookmarkRepo) AllByOwner(_ context.Context, ownerID int64) ([]model.Bookmark, error) {
	var owned []model.Bookmark
	for _, b := range f.bookmarks {
		if b.UserID == ownerID {
			owned = append(owned, *b)
		}
	}
	return owned, nil
}

func (f *fakeBookmarkRepo) CountByOwner(_ context.Context, ownerID int64) (int64, error) {
	var count int64
	for _, b := range f.bookmarks {
		if b.UserID == ownerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeBookmarkRepo) Update(_ context.Context, b *model.Bookmark) error {
	for _, existing := range f.bookmarks {
		if existing.ID == b.ID && existing.UserID == b.UserID {
			existing.URL = b.URL
			existing.Body = b.Body
			return nil
		}
	}
	return apperror.NotFound("Item not found")
}

func (f *fakeBookmarkRepo) Delete(_ context.Context, ownerID, id int64) error {
	for i, b := range f.bookmarks {
		if b.ID == id && b.UserID == ownerID {
			f.bookmarks = append(f.bookmarks[:i], f.bookmarks[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("Item not found")
}

func (f *fakeBookmarkRepo) IncrementVisits(_ context.Context, id int64) error {
	for _, b := range f.bookmarks {
		if b.ID == id {
			b.Visits++
			return nil
		}
	}
	return apperror.NotFound("Item not found")
}

func newTestBookmarkService(t *testing.T) (*BookmarkService, *fakeBookmarkRepo) {
	t.Helper()
	repo := newFakeBookmarkRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBookmarkService(repo, logger), repo
}

func TestBookmarkCreate_Success(t *testing.T) {
	svc, _ := newTestBookmarkService(t)

	b, err := svc.Create(context.Background(), 1, "https://example.com/article", "read later")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if b.ID == 0 {
		t.Error("Create() did not assign an id")
	}
	if b.UserID != 1 {
		t.Errorf("Create() owner = %d, want 1", b.UserID)
	}
	if b.Visits != 0 {
		t.Errorf("Create() visits = %d, want 0", b.Visits)
	}
	if len(b.ShortURL) != shortcode.Length {
		t.Fatalf("Create() short url %q, want length %d", b.ShortURL, shortcode.Length)
	}
	for _, r := range b.ShortURL {
		if !strings.ContainsRune(shortcode.Alphabet, r) {
			t.Errorf("short url %q contains %q, not in alphabet", b.ShortURL, r)
		}
	}
}

func TestBookmarkCreate_InvalidURL(t *testing.T) {
	svc, repo := newTestBookmarkService(t)

	for _, bad := range []string{"not-a-url", "", "ftp://example.com/file", "http://", "//no-scheme.com"} {
		_, err := svc.Create(context.Background(), 1, bad, "")
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Create(%q) error = %v, want ErrValidation", bad, err)
		}
	}
	if len(repo.bookmarks) != 0 {
		t.Errorf("invalid creates persisted %d bookmarks, want 0", len(repo.bookmarks))
	}
}

func TestBookmarkCreate_DuplicateURL(t *testing.T) {
	svc, repo := newTestBookmarkService(t)

	if _, err := svc.Create(context.Background(), 1, "https://example.com/a", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Global uniqueness: a DIFFERENT user bookmarking the same url conflicts.
	_, err := svc.Create(context.Background(), 2, "https://example.com/a", "")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create(duplicate) error = %v, want ErrConflict", err)
	}
	if len(repo.bookmarks) != 1 {
		t.Errorf("conflicting create persisted a record: %d bookmarks", len(repo.bookmarks))
	}
}

func TestBookmarkCreate_ShortCodesUnique(t *testing.T) {
	svc, _ := newTestBookmarkService(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		b, err := svc.Create(context.Background(), 1, fmt.Sprintf("https://example.com/p/%d", i), "")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if seen[b.ShortURL] {
			t.Fatalf("duplicate short url %q", b.ShortURL)
		}
		seen[b.ShortURL] = true
	}
}

func TestBookmarkCreate_RetriesLostInsertRace(t *testing.T) {
	svc, repo := newTestBookmarkService(t)

	// The first two inserts fail as if a concurrent create had just claimed
	// the code. The service must redraw and succeed, not surface an error.
	repo.failShortURLTimes = 2

	b, err := svc.Create(context.Background(), 1, "https://example.com/a", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.ShortURL == "" {
		t.Error("Create() returned empty short url after retries")
	}
}

func TestBookmarkCreate_CapacityWhenRaceNeverResolves(t *testing.T) {
	svc, repo := newTestBookmarkService(t)

	// Every insert loses the race — the bounded retry must give up with a
	// capacity error rather than loop forever.
	repo.failShortURLTimes = 1 << 30

	_, err := svc.Create(context.Background(), 1, "https://example.com/a", "")
	if !errors.Is(err, apperror.ErrCapacity) {
		t.Fatalf("Create() error = %v, want ErrCapacity", err)
	}
}

func seedBookmarks(t *testing.T, svc *BookmarkService, ownerID int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := svc.Create(context.Background(),
			ownerID, fmt.Sprintf("https://example.com/u%d/p/%d", ownerID, i), ""); err != nil {
			t.Fatalf("seeding bookmark %d: %v", i, err)
		}
	}
}

func TestList_Pagination(t *testing.T) {
	svc, _ := newTestBookmarkService(t)
	seedBookmarks(t, svc, 1, 12)

	// 12 items at 5 per page → pages of 5, 5, 2.
	wantSizes := []int{5, 5, 2}
	for i, want := range wantSizes {
		page, err := svc.List(context.Background(), 1, i+1, 5)
		if err != nil {
			t.Fatalf("List(page=%d) error = %v", i+1, err)
		}
		if len(page.Items) != want {
			t.Errorf("page %d size = %d, want %d", i+1, len(page.Items), want)
		}
		if page.Meta.Pages != 3 {
			t.Errorf("page %d meta.Pages = %d, want 3", i+1, page.Meta.Pages)
		}
		if page.Meta.TotalCount != 12 {
			t.Errorf("page %d meta.TotalCount = %d, want 12", i+1, page.Meta.TotalCount)
		}
	}

	last, _ := svc.List(context.Background(), 1, 3, 5)
	if last.Meta.HasNext {
		t.Error("page 3 HasNext = true, want false")
	}
	if !last.Meta.HasPrev {
		t.Error("page 3 HasPrev = false, want true")
	}
	if last.Meta.NextPage != nil {
		t.Errorf("page 3 NextPage = %v, want nil", *last.Meta.NextPage)
	}
	if last.Meta.PrevPage == nil || *last.Meta.PrevPage != 2 {
		t.Errorf("page 3 PrevPage = %v, want 2", last.Meta.PrevPage)
	}

	first, _ := svc.List(context.Background(), 1, 1, 5)
	if first.Meta.HasPrev {
		t.Error("page 1 HasPrev = true, want false")
	}
	if first.Meta.PrevPage != nil {
		t.Error("page 1 PrevPage should be nil")
	}
	if first.Meta.NextPage == nil || *first.Meta.NextPage != 2 {
		t.Errorf("page 1 NextPage = %v, want 2", first.Meta.NextPage)
	}
}

func TestList_InvalidParamsFallBackToDefaults(t *testing.T) {
	svc, _ := newTestBookmarkService(t)
	seedBookmarks(t, svc, 1, 7)

	// page/perPage <= 0 mean "use the defaults" (1 and 5), never an error.
	page, err := svc.List(context.Background(), 1, 0, -3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Meta.Page != DefaultPage {
		t.Errorf("meta.Page = %d, want %d", page.Meta.Page, DefaultPage)
	}
	if len(page.Items) != DefaultPerPage {
		t.Errorf("page size = %d, want %d", len(page.Items), DefaultPerPage)
	}
}

func TestList_NeverLeaksOtherOwners(t *testing.T) {
	svc, _ := newTestBookmarkService(t)
	seedBookmarks(t, svc, 1, 3)
	seedBookmarks(t, svc, 2, 3)

	page, err := svc.List(context.Background(), 1, 1, 50)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Meta.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", page.Meta.TotalCount)
	}
	for _, b := range page.Items {
		if b.UserID != 1 {
			t.Errorf("listing for owner 1 leaked bookmark of owner %d", b.UserID)
		}
	}
}

func TestGet_ScopedToOwner(t *testing.T) {
	svc, _ := newTestBookmarkService(t)

	b, err := svc.Create(context.Background(), 1, "https://example.com/a", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Get(context.Background(), 1, b.ID); err != nil {
		t.Fatalf("Get(owner) error = %v", err)
	}

	// Another user fetching by the exact id gets NotFound, indistinguishable
	// from a missing record.
	_, err = svc.Get(context.Background(), 2, b.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Get(stranger) error = %v, want ErrNotFound", err)
	}
}

func TestEdit_PreservesShortURLAndVisits(t *testing.T) {
	svc, repo := newTestBookmarkService(t)

	b, err := svc.Create(context.Background(), 1, "https://example.com/a", "old note")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.IncrementVisits(context.Background(), b.ID); err != nil {
		t.Fatalf("IncrementVisits() error = %v", err)
	}

	updated, err := svc.Edit(context.Background(), 1, b.ID, "https://example.com/b", "new note")
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if updated.URL != "https://example.com/b" || updated.Body != "new note" {
		t.Errorf("Edit() did not apply changes: %+v", updated)
	}
	if updated.ShortURL != b.ShortURL {
		t.Errorf("Edit() changed ShortURL: %q → %q", b.ShortURL, updated.ShortURL)
	}
	if updated.Visits != 1 {
		t.Errorf("Edit() visits = %d, want 1 (must survive the edit)", updated.Visits)
	}
}

func TestEdit_InvalidURL(t *testing.T) {
	svc, _ := newTestBookmarkService(t)

	b, _ := svc.Create(context.Background(), 1, "https://example.com/a", "")
	_, err := svc.Edit(context.Background(), 1, b.ID, "not-a-url", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Edit(bad url) error = %v, want ErrValidation", err)
	}
}

func TestEdit_URLUniqueness(t *testing.T) {
	svc, _ := newTestBookmarkService(t)

	a, _ := svc.Create(context.Background(), 1, "https://example.com/a", "")
	svcCreateMust(t, svc, 1, "https://example.com/b")

	// Stealing another bookmark's url is a conflict...
	_, err := svc.Edit(context.Background(), 1, a.ID, "https://example.com/b", "")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Edit(taken url) error = %v, want ErrConflict", err)
	}

	// ...but re-saving with the bookmark's own url is not.
	if _, err := svc.Edit(context.Background(), 1, a.ID, "https://example.com/a", "still mine"); err != nil {
		t.Fatalf("Edit(own url) error = %v", err)
	}
}

func svcCreateMust(t *testing.T, svc *BookmarkService, ownerID int64, url string) *model.Bookmark {
	t.Helper()
	b, err := svc.Create(context.Background(), ownerID, url, "")
	if err != nil {
		t.Fatalf("Create(%s) error = %v", url, err)
	}
	return b
}

func TestEdit_NotOwned(t *testing.T) {
	svc, _ := newTestBookmarkService(t)

	b, _ := svc.Create(context.Background(), 1, "https://example.com/a", "")
	_, err := svc.Edit(context.Background(), 2, b.ID, "https://example.com/c", "")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Edit(stranger) error = %v, want ErrNotFound", err)
	}
}

func TestDelete_ThenGetNotFound(t *testing.T) {
	svc, _ := newTestBookmarkService(t)

	b, _ := svc.Create(context.Background(), 1, "https://example.com/a", "")
	if err := svc.Delete(context.Background(), 1, b.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := svc.Get(context.Background(), 1, b.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Get(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestDelete_NotOwned(t *testing.T) {
	svc, _ := newTestBookmarkService(t)

	b, _ := svc.Create(context.Background(), 1, "https://example.com/a", "")
	err := svc.Delete(context.Background(), 2, b.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Delete(stranger) error = %v, want ErrNotFound", err)
	}
}

func TestStats(t *testing.T) {
	svc, repo := newTestBookmarkService(t)

	a, _ := svc.Create(context.Background(), 1, "https://example.com/a", "")
	svcCreateMust(t, svc, 1, "https://example.com/b")
	svcCreateMust(t, svc, 2, "https://example.com/other")

	for i := 0; i < 3; i++ {
		if err := repo.IncrementVisits(context.Background(), a.ID); err != nil {
			t.Fatalf("IncrementVisits() error = %v", err)
		}
	}

	stats, err := svc.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Stats() returned %d items, want 2", len(stats))
	}
	if stats[0].URL != "https://example.com/a" || stats[0].Visits != 3 {
		t.Errorf("stats[0] = %+v, want url=https://example.com/a visits=3", stats[0])
	}
	if stats[1].Visits != 0 {
		t.Errorf("stats[1].Visits = %d, want 0", stats[1].Visits)
	}
}

func TestResolve_IncrementsVisits(t *testing.T) {
	svc, _ := newTestBookmarkService(t)

	b, _ := svc.Create(context.Background(), 1, "https://example.com/a", "")

	target, err := svc.Resolve(context.Background(), b.ShortURL)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if target != "https://example.com/a" {
		t.Errorf("Resolve() = %q, want the bookmark's url", target)
	}

	// Resolve twice → visits is exactly 2.
	if _, err := svc.Resolve(context.Background(), b.ShortURL); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	got, _ := svc.Get(context.Background(), 1, b.ID)
	if got.Visits != 2 {
		t.Errorf("visits after two resolves = %d, want 2", got.Visits)
	}
}

func TestResolve_UnknownCode(t *testing.T) {
	svc, _ := newTestBookmarkService(t)

	_, err := svc.Resolve(context.Background(), "zzz")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Resolve(unknown) error = %v, want ErrNotFound", err)
	}
}
