package localdate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidClock is returned for time-of-day strings that are neither
// HH:mm[:ss] nor an RFC 3339 timestamp, or whose components are out of range.
var ErrInvalidClock = errors.New("invalid time of day")

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On combines c with date d in loc.
func (c Clock) On(d Date, loc *time.Location) time.Time {
	return d.At(c.Hour, c.Minute, loc)
}

// ParseClock parses "HH:mm" (seconds in "HH:mm:ss" are accepted and dropped).
// An RFC 3339 timestamp is also accepted; its wall clock is read in loc.
func ParseClock(s string, loc *time.Location) (Clock, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Clock{}, fmt.Errorf("%w: empty", ErrInvalidClock)
	}

	if strings.Contains(s, "T") {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		if loc != nil {
			t = t.In(loc)
		}
		return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	for _, p := range parts {
		if !digits(p) {
			return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) > 2 || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("%w: hour out of range in %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("%w: minute out of range in %q", ErrInvalidClock, s)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || len(parts[2]) != 2 || sec < 0 || sec > 59 {
			return Clock{}, fmt.Errorf("%w: second out of range in %q", ErrInvalidClock, s)
		}
	}
	return Clock{Hour: h, Minute: m}, nil
}

// digits reports whether s is a non-empty run of ASCII digits.
func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
