package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/bookmarks/internal/apperror"
	"github.com/sakif/bookmarks/internal/auth"
	"github.com/sakif/bookmarks/internal/service"
)

// AuthHandler serves the /api/v1/auth endpoints: register, login, me, and
// token refresh. Tokens travel in the Authorization header; there is no
// cookie or server-side session.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userSummary is the public view of an account — never the hash, never the id.
type userSummary struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/v1/auth/register
// BODY: {"username": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created",
		"user": userSummary{
			Username: user.Username,
			Email:    user.Email,
		},
	})
}

// loginResponse nests tokens and profile under "user", matching the shape
// clients of this API expect.
type loginResponse struct {
	User struct {
		Access   string `json:"access"`
		Refresh  string `json:"refresh"`
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
}

// HandleLogin verifies credentials and issues the token pair.
//
// HTTP: POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	var resp loginResponse
	resp.User.Access = result.Access
	resp.User.Refresh = result.Refresh
	resp.User.Username = result.User.Username
	resp.User.Email = result.User.Email

	writeJSON(w, http.StatusOK, resp)
}

// HandleMe returns the caller's profile.
//
// HTTP: GET /api/v1/auth/me  (access token required)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.svc.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userSummary{
		Username: user.Username,
		Email:    user.Email,
	})
}

// HandleRefresh issues a new access token.
//
// HTTP: GET /api/v1/auth/token/refresh  (REFRESH token required — the
// route is wired with auth.RequireRefresh, not RequireAuth)
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	access, err := h.svc.RefreshAccess(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}
