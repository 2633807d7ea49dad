package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feastsched/internal/localdate"
	"feastsched/internal/model"
	"feastsched/internal/schedule"
)

func TestNextWeekStart(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	cases := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 1, 17, 12, 0, 0, 0, loc), "2024-01-22"},       // Wednesday
		{time.Date(2024, 1, 21, 3, 0, 0, 0, loc), "2024-01-22"},        // Sunday
		{time.Date(2024, 1, 22, 9, 0, 0, 0, loc), "2024-01-29"},        // Monday: the following one
		{time.Date(2024, 1, 21, 23, 30, 0, 0, time.UTC), "2024-01-29"}, // already Monday in Warsaw
		{time.Date(2024, 12, 28, 10, 0, 0, 0, loc), "2024-12-30"},      // year boundary
		{time.Date(2024, 3, 30, 10, 0, 0, 0, loc), "2024-04-01"},       // across the DST change
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NextWeekStart(c.now, loc).String(), c.now.String())
	}
}

type fakeTenants struct {
	tenants  []model.Tenant
	existing map[uuid.UUID]localdate.Date
	listErr  error
}

func (f *fakeTenants) ListTenants(_ context.Context, autoOnly bool) ([]model.Tenant, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Tenant
	for _, t := range f.tenants {
		if !autoOnly || t.AutoGenerate {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTenants) WeekExists(_ context.Context, id uuid.UUID, start localdate.Date) (bool, error) {
	d, ok := f.existing[id]
	return ok && d == start, nil
}

type fakeWeeks struct {
	drafts []model.ServiceWeek
	failOn uuid.UUID
}

func (f *fakeWeeks) CreateWeek(_ context.Context, draft model.ServiceWeek) (model.ServiceWeek, schedule.Report, error) {
	if draft.TenantID == f.failOn {
		return draft, schedule.Report{}, errors.New("boom")
	}
	f.drafts = append(f.drafts, draft)
	draft.ID = uuid.New()
	draft.End = draft.Start.AddDays(6)
	return draft, schedule.Report{Created: 3}, nil
}

func TestAutoWeeks(t *testing.T) {
	a := model.Tenant{ID: uuid.New(), Name: "a", Timezone: "Europe/Warsaw", AutoGenerate: true}
	b := model.Tenant{ID: uuid.New(), Name: "b", Timezone: "Europe/Warsaw", AutoGenerate: true}
	c := model.Tenant{ID: uuid.New(), Name: "c", AutoGenerate: false}
	d := model.Tenant{ID: uuid.New(), Name: "d", Timezone: "America/New_York", AutoGenerate: true}
	e := model.Tenant{ID: uuid.New(), Name: "e", AutoGenerate: true}

	tenants := &fakeTenants{
		tenants:  []model.Tenant{a, b, c, d, e},
		existing: map[uuid.UUID]localdate.Date{b.ID: localdate.MustParse("2024-01-22")},
	}
	weeks := &fakeWeeks{failOn: e.ID}
	r := &Runner{
		Tenants: tenants,
		Weeks:   weeks,
		Now:     func() time.Time { return time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC) },
	}

	created, err := r.AutoWeeks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	require.Len(t, weeks.drafts, 2)
	assert.Equal(t, a.ID, weeks.drafts[0].TenantID)
	assert.Equal(t, "2024-01-22", weeks.drafts[0].Start.String())
	assert.Equal(t, d.ID, weeks.drafts[1].TenantID)
}

func TestAutoWeeks_ListFailure(t *testing.T) {
	r := &Runner{Tenants: &fakeTenants{listErr: errors.New("db down")}, Weeks: &fakeWeeks{}}
	_, err := r.AutoWeeks(context.Background())
	assert.Error(t, err)
}

type fakeYears struct {
	years []int
	err   error
}

func (f *fakeYears) Year(_ context.Context, y int) ([]model.Feast, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.years = append(f.years, y)
	return []model.Feast{{ID: "x"}}, nil
}

func TestPrefetch(t *testing.T) {
	years := &fakeYears{}
	r := &Runner{Calendar: years, Now: func() time.Time { return time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC) }}
	require.NoError(t, r.Prefetch(context.Background()))
	assert.Equal(t, []int{2024, 2025}, years.years)

	r.Calendar = &fakeYears{err: errors.New("offline")}
	assert.Error(t, r.Prefetch(context.Background()))
}

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler(&Runner{}, "0 3 * * 0", "0 4 1 * *", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Jobs())

	s, err = NewScheduler(&Runner{}, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Jobs())
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	_, err = NewScheduler(&Runner{}, "not a spec", "", nil)
	assert.Error(t, err)
}
