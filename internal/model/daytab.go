package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"feastsched/internal/localdate"
)

// DayTab names one of the seven per-weekday buckets of a template or week.
type DayTab int

const (
	Monday DayTab = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Tabs lists every tab in processing order, Monday first.
var Tabs = [7]DayTab{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var tabNames = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// TabOf maps a weekday (time.Sunday == 0) to its tab.
func TabOf(wd time.Weekday) DayTab {
	if wd == time.Sunday {
		return Sunday
	}
	return DayTab(wd - 1)
}

// TabOfDate is TabOf(d.Weekday()).
func TabOfDate(d localdate.Date) DayTab {
	return TabOf(d.Weekday())
}

// Weekday is the inverse of TabOf.
func (t DayTab) Weekday() time.Weekday {
	if t == Sunday {
		return time.Sunday
	}
	return time.Weekday(t + 1)
}

func (t DayTab) Valid() bool {
	return t >= Monday && t <= Sunday
}

func (t DayTab) String() string {
	if !t.Valid() {
		return fmt.Sprintf("DayTab(%d)", int(t))
	}
	return tabNames[t]
}

// ParseDayTab accepts a tab name, case-insensitively.
func ParseDayTab(s string) (DayTab, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range tabNames {
		if name == s {
			return DayTab(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day tab %q", s)
}

// Week holds one value per day tab. It serializes as an object keyed by tab
// name, Monday first.
type Week[T any] [7]T

func (w *Week[T]) Get(tab DayTab) T {
	return w[tab]
}

func (w *Week[T]) Set(tab DayTab, v T) {
	w[tab] = v
}

func (w Week[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tab := range Tabs {
		if i > 0 {
			buf.WriteByte(',')
		}
		val, err := json.Marshal(w[tab])
		if err != nil {
			return nil, fmt.Errorf("week %s: %w", tab, err)
		}
		buf.WriteString(`"` + tab.String() + `":`)
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts any subset of tabs; missing tabs keep their zero
// value and unknown keys are rejected.
func (w *Week[T]) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Week[T]
	for key, msg := range raw {
		tab, err := ParseDayTab(key)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(msg, &out[tab]); err != nil {
			return fmt.Errorf("week %s: %w", tab, err)
		}
	}
	*w = out
	return nil
}
