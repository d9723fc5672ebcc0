// Package token validates owner identity tokens and owner-supplied
// custom suffixes, and mints fresh identity tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// MaxLength is the longest accepted token.
const MaxLength = 128

// ownerTokenBytes yields 16 characters of raw-URL base64.
const ownerTokenBytes = 12

// BadChar describes one offending character inside an invalid token.
type BadChar struct {
	Pos  int
	Char rune
}

// InvalidTokenError reports why a candidate token was rejected,
// enumerating offending characters with positions and code points.
type InvalidTokenError struct {
	Token    string
	Length   int
	BadChars []BadChar
}

func (e *InvalidTokenError) Error() string {
	if e.Length < 1 || e.Length > MaxLength {
		return fmt.Sprintf("token must be 1-%d characters long, got %d", MaxLength, e.Length)
	}
	parts := make([]string, len(e.BadChars))
	for i, bc := range e.BadChars {
		parts[i] = fmt.Sprintf("%q (U+%04X) at position %d", bc.Char, bc.Char, bc.Pos)
	}
	return "token contains characters outside [A-Za-z0-9._~@-]: " + strings.Join(parts, ", ")
}

func isTokenChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '~' || r == '@' || r == '-':
		return true
	}
	return false
}

// Validate checks a candidate token and returns a diagnostic
// *InvalidTokenError when it is malformed.
func Validate(tok string) error {
	n := len([]rune(tok))
	if n < 1 || n > MaxLength {
		return &InvalidTokenError{Token: tok, Length: n}
	}
	var bad []BadChar
	for i, r := range []rune(tok) {
		if !isTokenChar(r) {
			bad = append(bad, BadChar{Pos: i, Char: r})
		}
	}
	if len(bad) > 0 {
		return &InvalidTokenError{Token: tok, Length: n, BadChars: bad}
	}
	return nil
}

// IsValid reports whether tok is a well-formed identity/suffix token:
// 1-128 characters, all in the URL-safe class [A-Za-z0-9._~@-].
func IsValid(tok string) bool {
	return Validate(tok) == nil
}

// NewOwnerToken mints a fresh random identity token: 16 URL-safe
// characters, a strict subset of the valid token class.
func NewOwnerToken() string {
	buf := make([]byte, ownerTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
