package ingest

import (
	"testing"
	"time"
)

func TestStoredName(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)
	got := StoredName("sales_data.csv", now)
	want := "20240315_093045_sales_data.csv"
	if got != want {
		t.Fatalf("StoredName = %q, want %q", got, want)
	}
}

func TestStoredNameStripsDirectories(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)
	got := StoredName("../some/dir/report.xlsx", now)
	want := "20240315_093045_report.xlsx"
	if got != want {
		t.Fatalf("StoredName = %q, want %q", got, want)
	}
}

func TestStoredNameSameSecondCollides(t *testing.T) {
	// Same name within one second yields the same stored name. Documented
	// behavior, not a bug.
	now := time.Date(2024, 3, 15, 9, 30, 45, 123, time.UTC)
	a := StoredName("a.csv", now)
	b := StoredName("a.csv", now.Add(500*time.Millisecond))
	if a != b {
		t.Fatalf("expected collision within one second, got %q vs %q", a, b)
	}
}
