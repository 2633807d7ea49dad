package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feastsched/internal/model"
)

func warsaw(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	return loc
}

var tenantID = uuid.MustParse("00000000-0000-0000-0000-000000000900")

func sampleServices(loc *time.Location) []model.Service {
	return []model.Service{
		{
			ID:       uuid.MustParse("00000000-0000-0000-0000-000000000001"),
			TenantID: tenantID,
			Date:     time.Date(2024, 1, 15, 9, 0, 0, 0, loc),
			Category: model.CategoryMass,
			MassType: model.MassSung,
			Notes:    "choir",
		},
		{
			ID:          uuid.MustParse("00000000-0000-0000-0000-000000000002"),
			TenantID:    tenantID,
			Date:        time.Date(2024, 1, 15, 18, 0, 0, 0, loc),
			Category:    model.CategoryOther,
			CustomTitle: "Vespers",
		},
		{
			ID:       uuid.MustParse("00000000-0000-0000-0000-000000000003"),
			TenantID: tenantID,
			Date:     time.Date(2024, 7, 15, 17, 30, 0, 0, loc),
			Category: model.CategoryRosary,
		},
	}
}

func TestExport_OneEventPerService(t *testing.T) {
	loc := warsaw(t)
	out := Export(sampleServices(loc), ExportOptions{Name: "St. Anne", Timezone: "Europe/Warsaw", Stamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})

	assert.Contains(t, out, "X-WR-CALNAME:St. Anne")
	assert.Contains(t, out, "METHOD:PUBLISH")

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	first := events[0]
	assert.Equal(t, "00000000-0000-0000-0000-000000000001@feastsched", first.GetProperty(ical.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "20240115T080000Z", first.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240115T090000Z", first.GetProperty(ical.ComponentPropertyDtEnd).Value)
	assert.Equal(t, "Mass (sung)", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "mass", first.GetProperty(ical.ComponentPropertyCategories).Value)
	assert.Equal(t, "sung", first.GetProperty(PropertyMassType).Value)
	assert.Equal(t, "choir", first.GetProperty(ical.ComponentPropertyDescription).Value)

	assert.Equal(t, "Vespers", events[1].GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "20240715T153000Z", events[2].GetProperty(ical.ComponentPropertyDtStart).Value, "summer offset")
}

func TestExportImport_RoundTrip(t *testing.T) {
	loc := warsaw(t)
	services := sampleServices(loc)
	body := Export(services, ExportOptions{})

	got, err := Import([]byte(body), ImportOptions{
		TenantID: tenantID,
		Location: loc,
		From:     time.Date(2024, 1, 1, 0, 0, 0, 0, loc),
		To:       time.Date(2025, 1, 1, 0, 0, 0, 0, loc),
	})
	require.NoError(t, err)
	require.Len(t, got, len(services))

	for i, want := range services {
		assert.True(t, want.Date.Equal(got[i].Date), "date %d", i)
		assert.Equal(t, want.Category, got[i].Category)
		assert.Equal(t, want.MassType, got[i].MassType)
		assert.Equal(t, want.CustomTitle, got[i].CustomTitle)
		assert.Equal(t, want.Notes, got[i].Notes)
		assert.Equal(t, tenantID, got[i].TenantID)
		assert.False(t, got[i].Synthetic)
	}
}

const recurringFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:weekday-mass
DTSTAMP:20240101T000000Z
DTSTART;TZID=Europe/Warsaw:20240101T070000
DTEND;TZID=Europe/Warsaw:20240101T073000
RRULE:FREQ=WEEKLY;BYDAY=MO,WE
EXDATE;TZID=Europe/Warsaw:20240117T070000
SUMMARY:Morning Mass
CATEGORIES:mass
END:VEVENT
BEGIN:VEVENT
UID:weekday-mass
DTSTAMP:20240101T000000Z
RECURRENCE-ID;TZID=Europe/Warsaw:20240122T070000
DTSTART;TZID=Europe/Warsaw:20240122T080000
DTEND;TZID=Europe/Warsaw:20240122T083000
SUMMARY:Morning Mass (moved)
CATEGORIES:mass
X-FEASTSCHED-MASS-TYPE:solemn
END:VEVENT
BEGIN:VEVENT
UID:parish-feast
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20240120
SUMMARY:Parish feast
END:VEVENT
BEGIN:VEVENT
UID:concert
DTSTAMP:20240101T000000Z
DTSTART:20240119T190000
SUMMARY:Organ concert
END:VEVENT
END:VCALENDAR
`

func TestImport_ExpandsRecurrence(t *testing.T) {
	loc := warsaw(t)
	feed := strings.ReplaceAll(recurringFeed, "\n", "\r\n")

	got, err := Import([]byte(feed), ImportOptions{
		TenantID: tenantID,
		Location: loc,
		From:     time.Date(2024, 1, 15, 0, 0, 0, 0, loc),
		To:       time.Date(2024, 1, 25, 0, 0, 0, 0, loc),
	})
	require.NoError(t, err)

	var lines []string
	for _, s := range got {
		lines = append(lines, s.Date.In(loc).Format("Mon 01-02 15:04")+" "+s.Title())
	}
	assert.Equal(t, []string{
		"Mon 01-15 07:00 Mass (read)",
		"Fri 01-19 19:00 Organ concert",
		"Mon 01-22 08:00 Mass (solemn)",
		"Wed 01-24 07:00 Mass (read)",
	}, lines)
}

func TestImport_Errors(t *testing.T) {
	_, err := Import(nil, ImportOptions{From: time.Unix(0, 0), To: time.Unix(10, 0)})
	assert.Error(t, err)

	_, err = Import([]byte(recurringFeed), ImportOptions{From: time.Unix(10, 0), To: time.Unix(10, 0)})
	assert.Error(t, err)
}

func TestImport_OccurrenceCap(t *testing.T) {
	feed := bytes.ReplaceAll([]byte(recurringFeed), []byte("FREQ=WEEKLY;BYDAY=MO,WE"), []byte("FREQ=DAILY"))
	feed = bytes.ReplaceAll(feed, []byte("\n"), []byte("\r\n"))
	got, err := Import(feed, ImportOptions{
		Location:               time.UTC,
		From:                   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:                     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 5,
	})
	require.NoError(t, err)
	// Five capped daily instances plus the one-off concert.
	assert.Len(t, got, 6)
}
