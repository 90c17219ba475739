package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	PeriodAM = "AM"
	PeriodPM = "PM"

	MinutesPerDay = 24 * 60
)

// Clock is a normalized wall-clock time in 12-hour form.
type Clock struct {
	Hour   int // 1..12
	Minute int // 0..59
	Period string
}

var reClock = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})\s*(AM|PM)?$`)

// Standardize parses a raw time expression ("6:00", "14.30", "8:45 pm") into its
// canonical form.
//
// Without an AM/PM marker the hour is read as a 24-hour value. That inference is
// applied per expression, so "1:00 - 2:00 PM" yields a 1:00 AM start.
func Standardize(raw string) (Clock, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	m := reClock.FindStringSubmatch(s)
	if m == nil {
		return Clock{}, invalid("", raw, "invalid time format")
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 {
		return Clock{}, invalid("", raw, "minute out of range")
	}
	if hour > 23 {
		return Clock{}, invalid("", raw, "hour out of range")
	}

	period := m[3]
	switch {
	case period == "":
		period = PeriodAM
		if hour >= 12 {
			period = PeriodPM
		}
	case hour > 12 && period == PeriodAM:
		return Clock{}, invalid("", raw, "hour %d contradicts AM", hour)
	}
	if hour > 12 {
		hour -= 12
	} else if hour == 0 {
		hour = 12
	}
	return Clock{Hour: hour, Minute: minute, Period: period}, nil
}

// MustStandardize is Standardize for literals known to be valid.
func MustStandardize(raw string) Clock {
	c, err := Standardize(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the canonical "H:MM AM|PM" form.
func (c Clock) String() string {
	return fmt.Sprintf("%d:%02d %s", c.Hour, c.Minute, c.Period)
}

// Minutes returns the minute of day in [0,1439].
func (c Clock) Minutes() int {
	h := c.Hour
	if c.Period == PeriodPM && h < 12 {
		h += 12
	} else if c.Period == PeriodAM && h == 12 {
		h = 0
	}
	return h*60 + c.Minute
}

// Format24 renders the clock as zero-padded "HH:MM".
func (c Clock) Format24() string {
	m := c.Minutes()
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Minutes converts a time string to minute of day. It is the single conversion
// shared by sorting, resolution and the reminder tick.
func Minutes(s string) (int, error) {
	c, err := Standardize(s)
	if err != nil {
		return 0, err
	}
	return c.Minutes(), nil
}

// MinuteOfDay maps a local wall-clock instant to [0,1439].
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatWallClock renders t the way the user asked for: "15:04" or "3:04 PM".
func FormatWallClock(t time.Time, use24Hour bool) string {
	if use24Hour {
		return t.Format("15:04")
	}
	return t.Format("3:04 PM")
}
