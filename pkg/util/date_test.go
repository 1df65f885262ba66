package util

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-01-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected date %v", got)
	}
	if FormatDate(got) != "2026-01-30" {
		t.Fatalf("unexpected format %s", FormatDate(got))
	}
}

func TestParseDateInvalid(t *testing.T) {
	if _, err := ParseDate("30/01/2026"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWindowStart(t *testing.T) {
	today := time.Date(2026, 3, 1, 17, 45, 0, 0, time.UTC)
	got := WindowStart(today, 60)
	want := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSortedUniqueDays(t *testing.T) {
	d1 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := SortedUniqueDays([]time.Time{d1, d2, d1.Add(3 * time.Hour)})
	if len(got) != 2 {
		t.Fatalf("expected 2 days, got %d", len(got))
	}
	if !got[0].Equal(d2) || !got[1].Equal(d1) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestParseFloatDefault(t *testing.T) {
	if got := ParseFloatDefault("", 1.5); got != 1.5 {
		t.Fatalf("expected default, got %v", got)
	}
	if got := ParseFloatDefault("0.25", 1.5); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
	if got := ParseFloatDefault("x", 2); got != 2 {
		t.Fatalf("expected default on invalid, got %v", got)
	}
}
