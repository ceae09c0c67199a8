package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default %d, got %d", DefaultLimit, got)
	}
	if got := NormalizeLimit(-5); got != DefaultLimit {
		t.Fatalf("expected default %d, got %d", DefaultLimit, got)
	}
	if got := NormalizeLimit(40); got != 40 {
		t.Fatalf("expected 40, got %d", got)
	}
	if got := NormalizeLimit(500); got != MaxLimit {
		t.Fatalf("expected cap %d, got %d", MaxLimit, got)
	}
	if got := LimitWithBuffer(40); got != 41 {
		t.Fatalf("expected 41, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC),
		ID:        uuid.New(),
	}

	encoded := EncodeCursor(original)
	parsed, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !parsed.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("expected %s, got %s", original.CreatedAt, parsed.CreatedAt)
	}
	if parsed.ID != original.ID {
		t.Fatalf("expected %s, got %s", original.ID, parsed.ID)
	}
}

func TestParseCursorEmptyMeansFirstPage(t *testing.T) {
	parsed, err := ParseCursor("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != nil {
		t.Fatalf("expected nil cursor, got %+v", parsed)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if _, err := ParseCursor("not-base64!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
	if _, err := ParseCursor("bm8tc2VwYXJhdG9y"); err == nil {
		t.Fatalf("expected error for missing separator")
	}
}
