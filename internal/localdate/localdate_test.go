package localdate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func warsaw(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	return loc
}

func TestOf_LocalMidnightAcrossDST(t *testing.T) {
	loc := warsaw(t)

	cases := []struct {
		instant string
		want    string
	}{
		{"2024-01-14T23:00:00Z", "2024-01-15"}, // winter midnight, UTC+1
		{"2024-07-14T22:00:00Z", "2024-07-15"}, // summer midnight, UTC+2
		{"2024-01-15T22:59:00Z", "2024-01-15"},
		{"2024-01-14T23:01:00Z", "2024-01-15"},
	}
	for _, tc := range cases {
		t.Run(tc.instant, func(t *testing.T) {
			instant, err := time.Parse(time.RFC3339, tc.instant)
			require.NoError(t, err)
			assert.Equal(t, tc.want, Of(instant, loc).String())
		})
	}
}

func TestOf_NilLocationIsUTC(t *testing.T) {
	instant := time.Date(2024, 1, 14, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, MustParse("2024-01-14"), Of(instant, nil))
}

func TestAt_KeepsCalendarDay(t *testing.T) {
	loc := warsaw(t)
	d := MustParse("2024-03-31") // DST starts at 02:00 local

	got := d.At(9, 0, loc)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 31, got.Day())
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 0, got.Second())
	assert.Equal(t, "2024-03-31T07:00:00Z", got.UTC().Format(time.RFC3339))

	winter := MustParse("2024-01-15").At(9, 0, loc)
	assert.Equal(t, "2024-01-15T08:00:00Z", winter.UTC().Format(time.RFC3339))
}

func TestMidnight_RoundTripsThroughOf(t *testing.T) {
	loc := warsaw(t)
	for _, s := range []string{"2024-01-15", "2024-03-31", "2024-07-15", "2024-10-27"} {
		d := MustParse(s)
		assert.Equal(t, d, Of(d.Midnight(loc), loc), s)
	}
}

func TestNew_Normalizes(t *testing.T) {
	assert.Equal(t, MustParse("2024-02-01"), New(2024, time.January, 32))
}

func TestWeekdayAndAddDays(t *testing.T) {
	d := MustParse("2024-01-15")
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, MustParse("2024-01-21"), d.AddDays(6))
	assert.Equal(t, MustParse("2023-12-31"), MustParse("2024-01-01").AddDays(-1))
	assert.Equal(t, 6, d.DaysUntil(d.AddDays(6)))
	assert.Equal(t, -1, d.DaysUntil(d.AddDays(-1)))
}

func TestCompareAndWithin(t *testing.T) {
	a := MustParse("2024-01-15")
	b := MustParse("2024-02-01")

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(MustParse("2024-01-15")))
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.Within(a, b))
	assert.True(t, b.Within(a, b))
	assert.False(t, b.AddDays(1).Within(a, b))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("15.01.2024")
	assert.Error(t, err)
	_, err = Parse("2024-02-30")
	assert.Error(t, err)
}

func TestRange(t *testing.T) {
	days := Range(MustParse("2024-12-29"), MustParse("2025-01-04"))
	require.Len(t, days, 7)
	assert.Equal(t, "2024-12-29", days[0].String())
	assert.Equal(t, "2025-01-01", days[3].String())
	assert.Equal(t, "2025-01-04", days[6].String())

	assert.Nil(t, Range(MustParse("2024-01-02"), MustParse("2024-01-01")))
	assert.Len(t, Range(MustParse("2024-01-01"), MustParse("2024-01-01")), 1)
}

func TestJSON(t *testing.T) {
	type payload struct {
		Start Date  `json:"start"`
		End   *Date `json:"end,omitempty"`
	}
	b, err := json.Marshal(payload{Start: MustParse("2024-01-15")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-01-15"}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2024-07-15T00:00:00+02:00","end":"2024-07-21"}`), &p))
	assert.Equal(t, MustParse("2024-07-15"), p.Start)
	require.NotNil(t, p.End)
	assert.Equal(t, MustParse("2024-07-21"), *p.End)

	assert.Error(t, json.Unmarshal([]byte(`{"start":"nope"}`), &p))
}

func TestScanAndValue(t *testing.T) {
	d := MustParse("2024-01-15")
	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", v)

	var got Date
	require.NoError(t, got.Scan("2024-01-15"))
	assert.Equal(t, d, got)
	require.NoError(t, got.Scan([]byte("2024-01-15 00:00:00+00:00")))
	assert.Equal(t, d, got)
	require.NoError(t, got.Scan(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, d, got)
	require.NoError(t, got.Scan(nil))
	assert.True(t, got.IsZero())
	assert.Error(t, got.Scan(42))
}
