package validator

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	for _, email := range []string{"ana@example.com", "a.b+c@d.io"} {
		if err := ValidateEmail(email); err != nil {
			t.Fatalf("%q: unexpected error %v", email, err)
		}
	}
	for _, email := range []string{"", "ana", "ana@", "ana@example", "a b@c.d"} {
		if err := ValidateEmail(email); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("%q: expected ErrInvalidEmail, got %v", email, err)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ana@Example.COM "); got != "ana@example.com" {
		t.Fatalf("unexpected normalized email %q", got)
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Jo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"", " J ", strings.Repeat("x", maxNameLength+1)} {
		if err := ValidateName(name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("%q: expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if err := ValidatePassword("long-enough"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
