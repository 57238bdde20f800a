package app

import (
	"errors"
	"testing"
	"time"
)

func TestFormatClock12h(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"0000", "12:00 AM"},
		{"0030", "12:30 AM"},
		{"0905", "09:05 AM"},
		{"1200", "12:00 PM"},
		{"1330", "01:30 PM"},
		{"2359", "11:59 PM"},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := FormatClock12h(tc.raw)
			if err != nil {
				t.Fatalf("FormatClock12h(%q) error = %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("FormatClock12h(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestFormatClock12h_AllValidClocks(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			raw := string([]byte{byte('0' + h/10), byte('0' + h%10), byte('0' + m/10), byte('0' + m%10)})
			got, err := FormatClock12h(raw)
			if err != nil {
				t.Fatalf("FormatClock12h(%q) error = %v", raw, err)
			}
			back, err := time.Parse("03:04 PM", got)
			if err != nil {
				t.Fatalf("%q does not parse back as 12h time: %v", got, err)
			}
			if back.Hour() != h || back.Minute() != m {
				t.Fatalf("%q -> %q -> %02d%02d", raw, got, back.Hour(), back.Minute())
			}
		}
	}
}

func TestParseClock_Rejects(t *testing.T) {
	for _, raw := range []string{"", "600", "06000", "06:0", "2400", "0060", "12a0", " 600", "-100"} {
		if _, _, err := ParseClock(raw); !errors.Is(err, ErrInvalidClock) {
			t.Errorf("ParseClock(%q) error = %v, want ErrInvalidClock", raw, err)
		}
	}
}

func TestNewTimeWindow_UsesDateInZone(t *testing.T) {
	zone := FixedZone(6)
	// 20:30 UTC on Jul 31 is already Aug 1 in UTC+6.
	day := time.Date(2024, 7, 31, 20, 30, 0, 0, time.UTC)

	w, err := NewTimeWindow(day, zone, "0000", "2359")
	if err != nil {
		t.Fatalf("NewTimeWindow() error = %v", err)
	}
	if got := w.Start.UTC(); !got.Equal(time.Date(2024, 7, 31, 18, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", got)
	}
	if got := w.End.UTC(); !got.Equal(time.Date(2024, 8, 1, 17, 59, 0, 0, time.UTC)) {
		t.Errorf("end = %v", got)
	}
	if !w.Contains(w.Start) || !w.Contains(w.End) {
		t.Error("window must contain its bounds")
	}
	if w.Contains(w.End.Add(time.Second)) || w.Contains(w.Start.Add(-time.Second)) {
		t.Error("window contains instants outside its bounds")
	}
}

func TestFixedZoneName(t *testing.T) {
	if got := FixedZone(6).String(); got != "UTC+6" {
		t.Errorf("FixedZone(6) = %q, want UTC+6", got)
	}
	if got := FixedZone(-3).String(); got != "UTC-3" {
		t.Errorf("FixedZone(-3) = %q, want UTC-3", got)
	}
}
