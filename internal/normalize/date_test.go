package normalize

import (
	"testing"
	"time"
)

func TestParseDateISOBeforeDeclared(t *testing.T) {
	// An ISO date must parse correctly even when the declared pattern
	// disagrees with the actual data.
	got, err := ParseDate("2024-03-15", "dd/MM/yyyy")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 15 {
		t.Errorf("got %v, want 2024-03-15", got)
	}
}

func TestParseDateDeclaredPattern(t *testing.T) {
	got, err := ParseDate("15/03/2024", "dd/MM/yyyy")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 15 {
		t.Errorf("got %v, want 2024-03-15", got)
	}
}

func TestParseDateLocalNoon(t *testing.T) {
	got, err := ParseDate("2024-03-15", "")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if got.Hour() != 12 || got.Minute() != 0 {
		t.Errorf("expected local noon, got %v", got)
	}
	if got.Location() != time.Local {
		t.Errorf("expected local timezone, got %v", got.Location())
	}
}

func TestParseDateRFC3339(t *testing.T) {
	got, err := ParseDate("2024-03-15T09:30:00Z", "dd/MM/yyyy")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if got.Day() != 15 || got.Month() != time.March {
		t.Errorf("got %v, want March 15", got)
	}
}

func TestParseDateCompact(t *testing.T) {
	got, err := ParseDate("20240315", "")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 15 {
		t.Errorf("got %v, want 2024-03-15", got)
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, in := range []string{"", "not a date", "99/99/9999"} {
		if _, err := ParseDate(in, "dd/MM/yyyy"); err == nil {
			t.Errorf("ParseDate(%q) expected error, got nil", in)
		}
	}
}

func TestLayoutFromPattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"dd/MM/yyyy", "02/01/2006"},
		{"yyyy-MM-dd", "2006-01-02"},
		{"MM/dd/yyyy", "01/02/2006"},
		{"dd.MM.yy", "02.01.06"},
	}
	for _, tt := range tests {
		if got := LayoutFromPattern(tt.pattern); got != tt.want {
			t.Errorf("LayoutFromPattern(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}
