package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"feastsched/internal/model"
)

// CreateTenant inserts a tenant and returns it with its assigned id.
func (s *Store) CreateTenant(ctx context.Context, t model.Tenant) (model.Tenant, error) {
	if t.Timezone != "" {
		if _, err := time.LoadLocation(t.Timezone); err != nil {
			return model.Tenant{}, fmt.Errorf("create tenant: timezone %q: %w", t.Timezone, err)
		}
	}
	row := tenantFromModel(t)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Tenant{}, fmt.Errorf("create tenant: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (model.Tenant, error) {
	var row tenantRow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", id).
		First(&row).Error
	if err != nil {
		return model.Tenant{}, notFound(err, fmt.Sprintf("tenant %s", id))
	}
	return row.toModel(), nil
}

// ListTenants returns all tenants ordered by name. With autoOnly set only
// tenants that opted into automatic week generation are returned.
func (s *Store) ListTenants(ctx context.Context, autoOnly bool) ([]model.Tenant, error) {
	q := s.db.WithContext(ctx).Model(&tenantRow{})
	if autoOnly {
		q = q.Where("tenant_auto_generate = ?", true)
	}
	var rows []tenantRow
	if err := q.Order("tenant_name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	out := make([]model.Tenant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
