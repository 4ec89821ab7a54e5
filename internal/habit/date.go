package habit

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in the user's local zone, formatted YYYY-MM-DD.
type Date string

// DateOf returns the calendar day of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return Date(t.In(loc).Format(dateLayout))
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", NewValidationError("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", s))
	}
	return Date(s), nil
}

// At returns the instant of clock on day d in loc.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, loc)
}

func (d Date) String() string { return string(d) }

// Clock is a wall-clock time of day parsed from "HH:MM".
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a 24h "HH:MM" string. field names the input for error reporting.
func ParseClock(field, s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, NewValidationError(field, fmt.Sprintf("%q is not a valid HH:MM time", s))
	}
	h, okH := twoDigits(s[0:2])
	m, okM := twoDigits(s[3:5])
	if !okH || !okM || h > 23 || m > 59 {
		return Clock{}, NewValidationError(field, fmt.Sprintf("%q is not a valid HH:MM time", s))
	}
	return Clock{Hour: h, Minute: m}, nil
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }
