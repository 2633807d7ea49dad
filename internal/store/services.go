package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"feastsched/internal/localdate"
	"feastsched/internal/model"
)

// CreateService inserts a service and returns its id. Instants are stored
// in UTC.
func (s *Store) CreateService(ctx context.Context, svc model.Service) (uuid.UUID, error) {
	row := serviceFromModel(svc)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("create service: %w", err)
	}
	return row.ServiceID, nil
}

func (s *Store) GetService(ctx context.Context, id uuid.UUID) (model.Service, error) {
	var row serviceRow
	err := s.db.WithContext(ctx).
		Where("service_id = ?", id).
		First(&row).Error
	if err != nil {
		return model.Service{}, notFound(err, fmt.Sprintf("service %s", id))
	}
	return row.toModel(), nil
}

// ListServices returns a tenant's services with from <= date < to, ordered
// by instant.
func (s *Store) ListServices(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]model.Service, error) {
	var rows []serviceRow
	err := s.db.WithContext(ctx).
		Where("service_tenant_id = ?", tenantID).
		Where("service_date >= ? AND service_date < ?", from.UTC(), to.UTC()).
		Order("service_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	out := make([]model.Service, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// CreateServiceWeek inserts a week and returns its id.
func (s *Store) CreateServiceWeek(ctx context.Context, w model.ServiceWeek) (uuid.UUID, error) {
	row := weekFromModel(w)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("create service week: %w", err)
	}
	return row.ServiceWeekID, nil
}

func (s *Store) GetServiceWeek(ctx context.Context, id uuid.UUID) (model.ServiceWeek, error) {
	var row weekRow
	err := s.db.WithContext(ctx).
		Where("service_week_id = ?", id).
		First(&row).Error
	if err != nil {
		return model.ServiceWeek{}, notFound(err, fmt.Sprintf("service week %s", id))
	}
	return row.toModel(), nil
}

// WeekExists reports whether the tenant already has a week starting on start.
func (s *Store) WeekExists(ctx context.Context, tenantID uuid.UUID, start localdate.Date) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&weekRow{}).
		Where("service_week_tenant_id = ? AND service_week_start = ?", tenantID, start).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("week exists: %w", err)
	}
	return n > 0, nil
}

// DeleteServiceWeek soft-deletes a week. Its services are kept.
func (s *Store) DeleteServiceWeek(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("service_week_id = ?", id).
		Delete(&weekRow{})
	if res.Error != nil {
		return fmt.Errorf("delete service week %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("service week %s: %w", id, ErrNotFound)
	}
	return nil
}
