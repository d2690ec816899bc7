package numerology

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned for input that is not a real MM/DD/YYYY calendar date.
var ErrInvalidDate = errors.New("invalid date")

// CalendarDate is a Gregorian civil date without a time zone.
type CalendarDate struct {
	Year  int
	Month int
	Day   int
}

// NewCalendarDate validates year/month/day. Year 1..9999.
func NewCalendarDate(year, month, day int) (CalendarDate, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return CalendarDate{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return CalendarDate{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return CalendarDate{Year: year, Month: month, Day: day}, nil
}

// DateOf returns the civil date of t in t's own location.
// Callers convert to the configured zone first.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: int(m), Day: d}
}

// ParseDate parses "MM/DD/YYYY". Single-digit month/day are accepted.
func ParseDate(s string) (CalendarDate, error) {
	t, err := time.Parse("1/2/2006", strings.TrimSpace(s))
	if err != nil {
		return CalendarDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	// time.Parse takes year 0000
	return NewCalendarDate(t.Year(), int(t.Month()), t.Day())
}

// String formats the date as MM/DD/YYYY.
func (d CalendarDate) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Month, d.Day, d.Year)
}

// Time returns midnight of the date in loc.
func (d CalendarDate) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

// Long formats the date as "January 02, 2006".
func (d CalendarDate) Long() string {
	return d.Time(time.UTC).Format("January 02, 2006")
}

func (d CalendarDate) IsZero() bool { return d == CalendarDate{} }
