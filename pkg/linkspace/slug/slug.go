// Package slug allocates collision-free short tokens against a
// caller-supplied existence check.
package slug

import (
	"crypto/rand"
	"fmt"
)

// Alphabet is the set of symbols slugs are drawn from: alphanumerics
// minus the visually ambiguous 0, 1, l, I and O.
const Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const (
	// DefaultLength is the starting slug length.
	DefaultLength = 4
	maxLength     = 8
	// escalation kicks in once this many attempts have collided
	escalateAfter  = 5
	maxAttempts    = 15
	fallbackLength = 10
)

// ExistsFunc reports whether a candidate token is already taken within
// the scoping domain. An error means the check could not be performed
// and must never be read as "available".
type ExistsFunc func(candidate string) (bool, error)

// Allocate returns a short token that exists did not report as taken,
// starting from DefaultLength.
func Allocate(exists ExistsFunc) (string, error) {
	return AllocateFrom(exists, DefaultLength)
}

// AllocateFrom draws candidates of initialLength symbols, retrying on
// collision. After escalateAfter failed attempts the length grows by
// one per further collision, capped at maxLength. After maxAttempts
// total attempts it gives up and returns a single unchecked draw of
// fallbackLength symbols; at that length a collision is vanishingly
// unlikely, which is an accepted trade-off rather than a guarantee.
func AllocateFrom(exists ExistsFunc, initialLength int) (string, error) {
	length := initialLength
	for attempts := 0; attempts < maxAttempts; attempts++ {
		candidate, err := draw(length)
		if err != nil {
			return "", err
		}
		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("slug existence check: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		if attempts+1 > escalateAfter && length < maxLength {
			length++
		}
	}
	return draw(fallbackLength)
}

// draw returns n random symbols from Alphabet.
func draw(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("slug random source: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(out), nil
}
