package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package.
// A package-private key type means no other package can read or shadow the
// user id we stash in the request context.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth enforces a valid ACCESS token on protected routes.
//
// The token travels in the standard header:
//
//	Authorization: Bearer <jwt>
//
// On success the user id is stored in the request context for handlers to
// read via UserIDFromContext. On failure the chain stops with a 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return requireKind(tokens, KindAccess)
}

// RequireRefresh enforces a valid REFRESH token. Used only by the
// token-refresh endpoint; an access token is rejected here just as a
// refresh token is rejected by RequireAuth.
func RequireRefresh(tokens *TokenService) func(http.Handler) http.Handler {
	return requireKind(tokens, KindRefresh)
}

func requireKind(tokens *TokenService, kind TokenKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens, kind)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's id from the request
// context. Returns (0, false) when the request carried no valid token —
// which behind RequireAuth only happens if the middleware was not applied.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// extractUserID pulls the Bearer token from the Authorization header and
// validates it for the required kind.
func extractUserID(r *http.Request, tokens *TokenService, kind TokenKind) (int64, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return 0, errors.New("auth: missing Authorization header")
	}

	// "Bearer" is case-insensitive per RFC 6750.
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return 0, errors.New("auth: Authorization header is not a Bearer token")
	}

	return tokens.Validate(strings.TrimSpace(header[len(prefix):]), kind)
}
