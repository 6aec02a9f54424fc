// Package handler contains the HTTP layer: request parsing, response
// shaping, and nothing else. Business rules live in the service package.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/bookmarks/internal/apperror"
	"github.com/sakif/bookmarks/internal/auth"
	"github.com/sakif/bookmarks/internal/model"
	"github.com/sakif/bookmarks/internal/service"
)

// BookmarkHandler serves the authenticated /api/v1/bookmarks endpoints.
// Every method reads the owner's id from the request context — the auth
// middleware put it there, so a missing id is a wiring bug, not a client
// error, and is treated as unauthorized.
type BookmarkHandler struct {
	svc    *service.BookmarkService
	logger *slog.Logger
}

func NewBookmarkHandler(svc *service.BookmarkService, logger *slog.Logger) *BookmarkHandler {
	return &BookmarkHandler{svc: svc, logger: logger}
}

// bookmarkRequest is the body for create and edit.
type bookmarkRequest struct {
	URL  string `json:"url"`
	Body string `json:"body"`
}

// listResponse mirrors the original API: items under "data", pagination
// under "meta".
type listResponse struct {
	Data []model.Bookmark `json:"data"`
	Meta service.PageMeta `json:"meta"`
}

// statsResponse wraps the visit counts under "data" like listResponse does.
type statsResponse struct {
	Data []service.StatsItem `json:"data"`
}

// ownerID extracts the authenticated user's id. ok is false only when the
// middleware wasn't applied to the route.
func ownerID(r *http.Request) (int64, bool) {
	return auth.UserIDFromContext(r.Context())
}

// queryInt parses a query parameter as an int, falling back to def on
// anything unparseable. Matching the permissive behavior of "coerce with a
// fallback": ?page=banana lists page 1, it does not 400.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// HandleList returns one page of the caller's bookmarks.
//
// HTTP: GET /api/v1/bookmarks?page=1&per_page=5
func (h *BookmarkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	page := queryInt(r, "page", service.DefaultPage)
	perPage := queryInt(r, "per_page", service.DefaultPerPage)

	result, err := h.svc.List(r.Context(), userID, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Data: result.Items, Meta: result.Meta})
}

// HandleCreate saves a new bookmark.
//
// HTTP: POST /api/v1/bookmarks
// BODY: {"url": "https://...", "body": "optional note"}
func (h *BookmarkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	bookmark, err := h.svc.Create(r.Context(), userID, req.URL, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookmark)
}

// pathID parses the {id} route parameter. Non-numeric ids map to NotFound —
// "/bookmarks/abc" names a resource that cannot exist.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperror.NotFound("Item not found")
	}
	return id, nil
}

// HandleGet fetches one bookmark, scoped to the caller.
//
// HTTP: GET /api/v1/bookmarks/{id}
func (h *BookmarkHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bookmark, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookmark)
}

// HandleEdit overwrites url and body on an owned bookmark.
//
// HTTP: PUT/PATCH /api/v1/bookmarks/{id}
func (h *BookmarkHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	bookmark, err := h.svc.Edit(r.Context(), userID, id, req.URL, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	// 200, not 201: nothing was created here.
	writeJSON(w, http.StatusOK, bookmark)
}

// HandleDelete removes an owned bookmark.
//
// HTTP: DELETE /api/v1/bookmarks/{id}
func (h *BookmarkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleStats returns per-bookmark visit counts for the caller.
//
// HTTP: GET /api/v1/bookmarks/stats
func (h *BookmarkHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(r)
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{Data: stats})
}
