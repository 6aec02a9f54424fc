package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/bookmarks/internal/service"
)

// RedirectHandler serves the public short-url path. No auth — a short code
// in hand IS the capability to follow it.
type RedirectHandler struct {
	svc    *service.BookmarkService
	logger *slog.Logger
}

func NewRedirectHandler(svc *service.BookmarkService, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{svc: svc, logger: logger}
}

// HandleRedirect resolves a short code, counts the visit, and redirects.
//
// HTTP: GET /{shortURL}
//
// 302 (Found), not 301: a permanent redirect would let browsers and proxies
// cache the hop and the visit counter would stop counting.
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shortURL")

	target, err := h.svc.Resolve(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}
