package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"feastsched/internal/model"
)

// CreateTemplate validates and inserts a feast template. The owning tenant
// must exist.
func (s *Store) CreateTemplate(ctx context.Context, t model.FeastTemplate) (model.FeastTemplate, error) {
	if err := model.ValidateTemplate(t); err != nil {
		return model.FeastTemplate{}, err
	}
	if _, err := s.GetTenant(ctx, t.TenantID); err != nil {
		return model.FeastTemplate{}, fmt.Errorf("create template: %w", err)
	}

	row := templateFromModel(t)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.FeastTemplate{}, fmt.Errorf("create template: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (model.FeastTemplate, error) {
	var row templateRow
	err := s.db.WithContext(ctx).
		Where("feast_template_id = ?", id).
		First(&row).Error
	if err != nil {
		return model.FeastTemplate{}, notFound(err, fmt.Sprintf("template %s", id))
	}
	return row.toModel(), nil
}

// ListTemplates returns up to limit templates of a tenant, ordered by id.
func (s *Store) ListTemplates(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.FeastTemplate, error) {
	q := s.db.WithContext(ctx).
		Where("feast_template_tenant_id = ?", tenantID).
		Order("feast_template_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []templateRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]model.FeastTemplate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("feast_template_id = ?", id).
		Delete(&templateRow{})
	if res.Error != nil {
		return fmt.Errorf("delete template %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}
