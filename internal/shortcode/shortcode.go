// Package shortcode generates the 3-character codes that identify bookmarks
// on the public redirect path.
//
// THE ALGORITHM:
// Draw 3 symbols uniformly at random from a 62-symbol alphabet (digits +
// lowercase + uppercase), ask the store whether a bookmark already uses that
// code, and retry with a fresh draw on collision. This is a collision-RETRY
// scheme, not a collision-free construction: with only 62^3 = 238,328 codes
// the keyspace genuinely fills up, so the loop is bounded and exhaustion is
// reported as a capacity error instead of spinning forever.
//
// The existence check here is advisory only. Two concurrent generations can
// both see a code as free; the UNIQUE constraint on short_url is the final
// authority, and the bookmark service retries generation when an insert is
// rejected on that constraint.
package shortcode

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/sakif/bookmarks/internal/apperror"
)

// Alphabet is the 62-symbol code alphabet: 10 digits, 26 lowercase and
// 26 uppercase ASCII letters.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	// Length is the fixed code length. 62^3 codes total.
	Length = 3

	// maxAttempts bounds the collision-retry loop. Generous relative to the
	// expected collision rate at sane fill levels, but finite — near keyspace
	// exhaustion we fail fast rather than loop.
	maxAttempts = 512
)

// ExistsFunc reports whether a bookmark already uses the given code.
// The generator takes a func (not a repository interface) so it depends on
// exactly one capability and tests can supply a closure.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator allocates unused short codes against a bookmark store.
type Generator struct {
	exists ExistsFunc
}

func New(exists ExistsFunc) *Generator {
	return &Generator{exists: exists}
}

// Generate returns a code that was unused at the moment of the check.
//
// Returns apperror.ErrCapacity if maxAttempts draws all collided, which in
// practice means the keyspace is at or near exhaustion.
//
// ITERATIVE, NOT RECURSIVE:
// A recursive retry would grow the stack by one frame per collision — under
// adversarial fill rates that is unbounded. The explicit loop keeps the
// retry count observable and the stack flat.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := draw()
		if err != nil {
			return "", fmt.Errorf("shortcode: drawing code: %w", err)
		}

		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("shortcode: checking code %q: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}

	return "", apperror.Capacity("short code space exhausted")
}

// draw picks Length symbols independently and uniformly from Alphabet.
//
// UNIFORMITY:
// len(Alphabet) is 62, which does not divide 256, so `byte % 62` would skew
// toward low symbols. Rejection sampling discards bytes >= 248 (the largest
// multiple of 62 below 256) to keep the distribution exactly uniform.
func draw() (string, error) {
	const limit = byte(256 - 256%len(Alphabet)) // 248

	code := make([]byte, 0, Length)
	buf := make([]byte, 1)
	for len(code) < Length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		if buf[0] >= limit {
			continue // reject to avoid modulo bias
		}
		code = append(code, Alphabet[int(buf[0])%len(Alphabet)])
	}

	return string(code), nil
}
