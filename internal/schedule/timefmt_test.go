package schedule

import (
	"fmt"
	"testing"
	"time"
)

func TestStandardize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    string
		minutes int
	}{
		{raw: "6:00", want: "6:00 AM", minutes: 360},
		{raw: "14:30", want: "2:30 PM", minutes: 870},
		{raw: "00:00", want: "12:00 AM", minutes: 0},
		{raw: "12:00", want: "12:00 PM", minutes: 720},
		{raw: "23:59", want: "11:59 PM", minutes: 1439},
		{raw: " 8:45 am ", want: "8:45 AM", minutes: 525},
		{raw: "6.15PM", want: "6:15 PM", minutes: 1095},
		{raw: "12:30 AM", want: "12:30 AM", minutes: 30},
		{raw: "12:05 pm", want: "12:05 PM", minutes: 725},
		{raw: "0:30 AM", want: "12:30 AM", minutes: 30},
		{raw: "14:30 PM", want: "2:30 PM", minutes: 870},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			c, err := Standardize(tt.raw)
			if err != nil {
				t.Fatalf("Standardize(%q) error: %v", tt.raw, err)
			}
			if got := c.String(); got != tt.want {
				t.Fatalf("Standardize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
			if got := c.Minutes(); got != tt.minutes {
				t.Fatalf("Minutes = %d, want %d", got, tt.minutes)
			}
		})
	}
}

func TestStandardizeInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"25:00", "24:00", "6:60", "noon", "", "6", "6:5", "14:30 AM", "123:00"} {
		_, err := Standardize(raw)
		if err == nil {
			t.Fatalf("Standardize(%q): expected error", raw)
		}
		if !IsValidation(err) {
			t.Fatalf("Standardize(%q): expected ValidationError, got %T", raw, err)
		}
	}
}

func TestMinutesOfCanonicalRoundTrip(t *testing.T) {
	t.Parallel()
	for m := 0; m < MinutesPerDay; m++ {
		c, err := Standardize(fmt.Sprintf("%d:%02d", m/60, m%60))
		if err != nil {
			t.Fatalf("Standardize(%d): %v", m, err)
		}
		got, err := Minutes(c.String())
		if err != nil {
			t.Fatalf("Minutes(%q): %v", c, err)
		}
		if got != m {
			t.Fatalf("Minutes(%q) = %d, want %d", c, got, m)
		}
	}
}

func TestMinuteOfDayAndWallClock(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 10, 18, 15, 4, 59, 0, time.Local)
	if got := MinuteOfDay(at); got != 15*60+4 {
		t.Fatalf("MinuteOfDay = %d", got)
	}
	if got := FormatWallClock(at, true); got != "15:04" {
		t.Fatalf("24h = %q", got)
	}
	if got := FormatWallClock(at, false); got != "3:04 PM" {
		t.Fatalf("12h = %q", got)
	}
	if got := MustStandardize("7:05 PM").Format24(); got != "19:05" {
		t.Fatalf("Format24 = %q", got)
	}
}
