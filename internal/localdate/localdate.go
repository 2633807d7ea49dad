// Package localdate provides a civil calendar date that is independent of
// any time zone. Converting between a Date and an instant always takes an
// explicit *time.Location, so local-day arithmetic never goes through UTC
// string formatting.
package localdate

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Layout is the wire and storage format of a Date (yyyy-MM-dd).
const Layout = "2006-01-02"

// Date is a calendar day without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the normalized date for the given components, so New(2024, 1, 32)
// is 2024-02-01.
func New(year int, month time.Month, day int) Date {
	return fromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Of returns the civil date of instant t as observed in loc.
// A nil loc is treated as UTC.
func Of(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return fromTime(t.In(loc))
}

// Today returns the current date in loc.
func Today(loc *time.Location) Date {
	return Of(time.Now(), loc)
}

// Parse parses a yyyy-MM-dd string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("localdate: invalid date %q: %w", s, err)
	}
	return fromTime(t), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats d as yyyy-MM-dd.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Midnight returns the first instant of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return d.At(0, 0, loc)
}

// At combines d with a wall-clock time in loc. Seconds and nanoseconds are
// zero. Wall-clock times skipped by a DST transition are normalized by
// time.Date.
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.utc().Weekday()
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return fromTime(d.utc().AddDate(0, 0, n))
}

// DaysUntil returns the number of calendar days from d to other
// (negative if other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.utc().Sub(d.utc()).Hours() / 24)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

// Within reports whether start <= d <= end.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

func (d Date) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Range returns every date in [start, end] inclusive, in order. It returns
// nil when end is before start.
func Range(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start.utc(),
		Until:   end.utc(),
	})
	if err != nil {
		return nil
	}
	occ := r.All()
	out := make([]Date, 0, len(occ))
	for _, t := range occ {
		out = append(out, fromTime(t))
	}
	return out
}

// MarshalJSON encodes d as "yyyy-MM-dd".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "yyyy-MM-dd" and, for compatibility with clients
// that send full timestamps, RFC 3339 (the date part is taken verbatim).
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if len(s) > len(Layout) && s[len(Layout)] == 'T' {
		s = s[:len(Layout)]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner. Drivers return DATE columns either as text or
// as a time.Time at UTC midnight; both are accepted.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = fromTime(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("localdate: cannot scan %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) < len(Layout) {
		return errors.New("localdate: short date value " + s)
	}
	parsed, err := Parse(s[:len(Layout)])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// GormDataType tells gorm to store Date in a DATE column.
func (Date) GormDataType() string {
	return "date"
}
