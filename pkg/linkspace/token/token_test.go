package token

import (
	"errors"
	"strings"
	"testing"
)

func TestIsValidAcceptsWellFormedTokens(t *testing.T) {
	valid := []string{
		"a",
		"A",
		"0",
		"abc123",
		"user@example.com",
		"a.b-c_d~e",
		strings.Repeat("x", 128),
	}
	for _, tok := range valid {
		if !IsValid(tok) {
			t.Errorf("Expected %q to be valid", tok)
		}
	}
}

func TestIsValidRejectsMalformedTokens(t *testing.T) {
	invalid := []string{
		"",
		strings.Repeat("x", 129),
		"has space",
		"slash/token",
		"percent%20",
		"quote\"inside",
		"tab\there",
		"emojié́",
		"plus+sign",
	}
	for _, tok := range invalid {
		if IsValid(tok) {
			t.Errorf("Expected %q to be invalid", tok)
		}
	}
}

func TestValidateReportsOffendingCharacters(t *testing.T) {
	err := Validate("ab cd/e")
	if err == nil {
		t.Fatal("Expected validation error")
	}
	var invalidErr *InvalidTokenError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("Expected *InvalidTokenError, got %T", err)
	}
	if len(invalidErr.BadChars) != 2 {
		t.Fatalf("Expected 2 bad characters, got %d", len(invalidErr.BadChars))
	}
	if invalidErr.BadChars[0].Pos != 2 || invalidErr.BadChars[0].Char != ' ' {
		t.Errorf("Expected space at position 2, got %q at %d", invalidErr.BadChars[0].Char, invalidErr.BadChars[0].Pos)
	}
	if invalidErr.BadChars[1].Pos != 5 || invalidErr.BadChars[1].Char != '/' {
		t.Errorf("Expected slash at position 5, got %q at %d", invalidErr.BadChars[1].Char, invalidErr.BadChars[1].Pos)
	}
	if !strings.Contains(err.Error(), "position 2") {
		t.Errorf("Expected error message to name position 2, got %q", err.Error())
	}
}

func TestValidateReportsLength(t *testing.T) {
	err := Validate("")
	if err == nil {
		t.Fatal("Expected validation error for empty token")
	}
	if !strings.Contains(err.Error(), "1-128") {
		t.Errorf("Expected length bounds in message, got %q", err.Error())
	}

	if err := Validate(strings.Repeat("a", 129)); err == nil {
		t.Error("Expected validation error for 129-char token")
	}
}

func TestNewOwnerTokenIsValidAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := NewOwnerToken()
		if len(tok) != 16 {
			t.Fatalf("Expected 16-char token, got %d: %q", len(tok), tok)
		}
		if !IsValid(tok) {
			t.Fatalf("Minted token %q is not valid", tok)
		}
		if seen[tok] {
			t.Fatalf("Minted token %q twice", tok)
		}
		seen[tok] = true
	}
}
