// Package auth provides JWT issuance/validation, password hashing, and the
// HTTP middleware that turns a Bearer token into a user identity.
//
// TOKEN MODEL:
// Login issues TWO tokens — a short-lived ACCESS token that authenticates
// API calls, and a long-lived REFRESH token whose only power is minting new
// access tokens. Both are HS256 JWTs carrying the user id in the "sub"
// claim, so no session state lives on the server.
//
// Each token also carries a "kind" claim ("access" or "refresh"). Without
// it, a stolen refresh token — valid for a month — could be presented
// straight to the API as if it were an access token. Validate checks the
// kind, so each token only works where it is supposed to.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// TokenKind discriminates access tokens from refresh tokens.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour

	issuer = "bookmarks"
)

// TokenService signs and verifies JWTs with a shared HMAC secret.
// The same secret is used for both kinds; the "kind" claim keeps them apart.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Use at least 32 bytes of randomness in production:
// JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload: the standard registered claims plus our token
// kind. The user id goes in Subject, as a decimal string (JWT subjects are
// strings by spec).
type claims struct {
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// GenerateAccess issues a 15-minute access token for the user.
func (s *TokenService) GenerateAccess(userID int64) (string, error) {
	return s.generate(userID, KindAccess, accessTokenTTL)
}

// GenerateRefresh issues a 30-day refresh token for the user.
func (s *TokenService) GenerateRefresh(userID int64) (string, error) {
	return s.generate(userID, KindRefresh, refreshTokenTTL)
}

func (s *TokenService) generate(userID int64, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
			// A unique token id (jti). Access and refresh tokens minted in
			// the same second would otherwise be byte-identical apart from
			// the kind claim; the jti also gives logs a stable handle on a
			// specific token.
			ID: xid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT and returns the user id it encodes.
// The token must be of the expected kind — a refresh token fails access
// validation and vice versa.
//
// jwt.WithValidMethods pins the algorithm to HS256: without it, a forged
// token declaring alg "none" (or an RS256 confusion) might slip through.
func (s *TokenService) Validate(tokenStr string, kind TokenKind) (int64, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("auth: token expired")
		}
		return 0, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("auth: invalid token claims")
	}
	if c.Kind != kind {
		return 0, fmt.Errorf("auth: token kind %q where %q required", c.Kind, kind)
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("auth: token has invalid subject %q", c.Subject)
	}

	return userID, nil
}
