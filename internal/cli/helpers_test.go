package cli

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/domain"
)

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"12.5":   "12.5",
		"8%":     "8",
		" 0.10 ": "0.1",
	}
	for in, want := range tests {
		got, err := parseAmount(in)
		if err != nil {
			t.Fatalf("parseAmount(%q): unexpected error: %v", in, err)
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("parseAmount(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := parseAmount("ten"); err == nil {
		t.Fatalf("expected error for non-numeric input")
	}
}

func TestParseOptionalID(t *testing.T) {
	if id, err := parseOptionalID("none", "project"); err != nil || id != nil {
		t.Fatalf("expected nil ID for none, got %v %v", id, err)
	}
	id, err := parseOptionalID("12", "project")
	if err != nil || id == nil || *id != 12 {
		t.Fatalf("expected 12, got %v %v", id, err)
	}
	if _, err := parseOptionalID("-3", "project"); err == nil {
		t.Fatalf("expected error for negative ID")
	}
}

func TestMatchPrefix(t *testing.T) {
	ids := []string{"3f2a9c10-aaaa", "3f2b0000-bbbb", "77aa0000-cccc"}

	got, err := matchPrefix(ids, "77", domain.ErrItemNotFound)
	if err != nil || got != "77aa0000-cccc" {
		t.Fatalf("expected unique match, got %q %v", got, err)
	}
	if _, err := matchPrefix(ids, "3f2", domain.ErrItemNotFound); err == nil {
		t.Fatalf("expected ambiguity error")
	}
	if _, err := matchPrefix(ids, "zz", domain.ErrItemNotFound); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestMoney(t *testing.T) {
	if got := money(decimal.RequireFromString("203.4")); got != "203.40" {
		t.Fatalf("expected 203.40, got %s", got)
	}
}
