package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"feastsched/internal/localdate"
	"feastsched/internal/model"
)

func newID() (uuid.UUID, error) {
	return uuid.NewV7()
}

/* =========================
   Tenants
========================= */

type tenantRow struct {
	TenantID           uuid.UUID      `gorm:"type:uuid;primaryKey;column:tenant_id"`
	TenantName         string         `gorm:"column:tenant_name;size:200;not null"`
	TenantTimezone     string         `gorm:"column:tenant_timezone;size:64"`
	TenantAutoGenerate bool           `gorm:"column:tenant_auto_generate;not null;default:false"`
	TenantCreatedAt    time.Time      `gorm:"column:tenant_created_at;autoCreateTime"`
	TenantUpdatedAt    time.Time      `gorm:"column:tenant_updated_at;autoUpdateTime"`
	TenantDeletedAt    gorm.DeletedAt `gorm:"column:tenant_deleted_at;index"`
}

func (tenantRow) TableName() string { return "tenants" }

func (r *tenantRow) BeforeCreate(tx *gorm.DB) (err error) {
	if r.TenantID == uuid.Nil {
		r.TenantID, err = newID()
	}
	return err
}

func tenantFromModel(t model.Tenant) tenantRow {
	return tenantRow{
		TenantID:           t.ID,
		TenantName:         t.Name,
		TenantTimezone:     t.Timezone,
		TenantAutoGenerate: t.AutoGenerate,
	}
}

func (r tenantRow) toModel() model.Tenant {
	return model.Tenant{
		ID:           r.TenantID,
		Name:         r.TenantName,
		Timezone:     r.TenantTimezone,
		AutoGenerate: r.TenantAutoGenerate,
	}
}

/* =========================
   Feast templates
========================= */

type templateRow struct {
	FeastTemplateID          uuid.UUID                                         `gorm:"type:uuid;primaryKey;column:feast_template_id"`
	FeastTemplateTenantID    uuid.UUID                                         `gorm:"type:uuid;not null;index;column:feast_template_tenant_id"`
	FeastTemplateTitle       string                                            `gorm:"column:feast_template_title;size:200;not null"`
	FeastTemplateIsGeneric   bool                                              `gorm:"column:feast_template_is_generic;not null;default:false"`
	FeastTemplatePeriodStart *localdate.Date                                   `gorm:"column:feast_template_period_start"`
	FeastTemplatePeriodEnd   *localdate.Date                                   `gorm:"column:feast_template_period_end"`
	FeastTemplateDays        datatypes.JSONType[model.Week[model.DayServices]] `gorm:"column:feast_template_days;not null"`
	FeastTemplateCreatedAt   time.Time                                         `gorm:"column:feast_template_created_at;autoCreateTime"`
	FeastTemplateUpdatedAt   time.Time                                         `gorm:"column:feast_template_updated_at;autoUpdateTime"`
	FeastTemplateDeletedAt   gorm.DeletedAt                                    `gorm:"column:feast_template_deleted_at;index"`
}

func (templateRow) TableName() string { return "feast_templates" }

func (r *templateRow) BeforeCreate(tx *gorm.DB) (err error) {
	if r.FeastTemplateID == uuid.Nil {
		r.FeastTemplateID, err = newID()
	}
	return err
}

func templateFromModel(t model.FeastTemplate) templateRow {
	return templateRow{
		FeastTemplateID:          t.ID,
		FeastTemplateTenantID:    t.TenantID,
		FeastTemplateTitle:       t.Title,
		FeastTemplateIsGeneric:   t.IsGeneric,
		FeastTemplatePeriodStart: t.PeriodStart,
		FeastTemplatePeriodEnd:   t.PeriodEnd,
		FeastTemplateDays:        datatypes.NewJSONType(t.Days),
	}
}

func (r templateRow) toModel() model.FeastTemplate {
	return model.FeastTemplate{
		ID:          r.FeastTemplateID,
		TenantID:    r.FeastTemplateTenantID,
		Title:       r.FeastTemplateTitle,
		IsGeneric:   r.FeastTemplateIsGeneric,
		PeriodStart: r.FeastTemplatePeriodStart,
		PeriodEnd:   r.FeastTemplatePeriodEnd,
		Days:        r.FeastTemplateDays.Data(),
	}
}

/* =========================
   Services
========================= */

type serviceRow struct {
	ServiceID          uuid.UUID      `gorm:"type:uuid;primaryKey;column:service_id"`
	ServiceTenantID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_services_tenant_date,priority:1;column:service_tenant_id"`
	ServiceDate        time.Time      `gorm:"not null;index:idx_services_tenant_date,priority:2;column:service_date"`
	ServiceCategory    string         `gorm:"column:service_category;size:32;not null"`
	ServiceMassType    string         `gorm:"column:service_mass_type;size:32"`
	ServiceCustomTitle string         `gorm:"column:service_custom_title;size:200"`
	ServiceNotes       string         `gorm:"column:service_notes"`
	ServiceSynthetic   bool           `gorm:"column:service_synthetic;not null;default:false"`
	ServiceCreatedAt   time.Time      `gorm:"column:service_created_at;autoCreateTime"`
	ServiceUpdatedAt   time.Time      `gorm:"column:service_updated_at;autoUpdateTime"`
	ServiceDeletedAt   gorm.DeletedAt `gorm:"column:service_deleted_at;index"`
}

func (serviceRow) TableName() string { return "services" }

func (r *serviceRow) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ServiceID == uuid.Nil {
		r.ServiceID, err = newID()
	}
	return err
}

func serviceFromModel(s model.Service) serviceRow {
	return serviceRow{
		ServiceID:          s.ID,
		ServiceTenantID:    s.TenantID,
		ServiceDate:        s.Date.UTC(),
		ServiceCategory:    string(s.Category),
		ServiceMassType:    string(s.MassType),
		ServiceCustomTitle: s.CustomTitle,
		ServiceNotes:       s.Notes,
		ServiceSynthetic:   s.Synthetic,
	}
}

func (r serviceRow) toModel() model.Service {
	return model.Service{
		ID:          r.ServiceID,
		TenantID:    r.ServiceTenantID,
		Date:        r.ServiceDate.UTC(),
		Category:    model.Category(r.ServiceCategory),
		MassType:    model.MassType(r.ServiceMassType),
		CustomTitle: r.ServiceCustomTitle,
		Notes:       r.ServiceNotes,
		Synthetic:   r.ServiceSynthetic,
	}
}

/* =========================
   Service weeks
========================= */

// Week rows reference services by id only; deleting a week leaves its
// services in place.
type weekRow struct {
	ServiceWeekID        uuid.UUID                                     `gorm:"type:uuid;primaryKey;column:service_week_id"`
	ServiceWeekTenantID  uuid.UUID                                     `gorm:"type:uuid;not null;index:idx_service_weeks_tenant_start,priority:1;column:service_week_tenant_id"`
	ServiceWeekStart     localdate.Date                                `gorm:"not null;index:idx_service_weeks_tenant_start,priority:2;column:service_week_start"`
	ServiceWeekEnd       localdate.Date                                `gorm:"not null;column:service_week_end"`
	ServiceWeekDays      datatypes.JSONType[model.Week[model.DayRefs]] `gorm:"column:service_week_days;not null"`
	ServiceWeekCreatedAt time.Time                                     `gorm:"column:service_week_created_at;autoCreateTime"`
	ServiceWeekUpdatedAt time.Time                                     `gorm:"column:service_week_updated_at;autoUpdateTime"`
	ServiceWeekDeletedAt gorm.DeletedAt                                `gorm:"column:service_week_deleted_at;index"`
}

func (weekRow) TableName() string { return "service_weeks" }

func (r *weekRow) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ServiceWeekID == uuid.Nil {
		r.ServiceWeekID, err = newID()
	}
	return err
}

func weekFromModel(w model.ServiceWeek) weekRow {
	return weekRow{
		ServiceWeekID:       w.ID,
		ServiceWeekTenantID: w.TenantID,
		ServiceWeekStart:    w.Start,
		ServiceWeekEnd:      w.End,
		ServiceWeekDays:     datatypes.NewJSONType(w.Days),
	}
}

func (r weekRow) toModel() model.ServiceWeek {
	return model.ServiceWeek{
		ID:       r.ServiceWeekID,
		TenantID: r.ServiceWeekTenantID,
		Start:    r.ServiceWeekStart,
		End:      r.ServiceWeekEnd,
		Days:     r.ServiceWeekDays.Data(),
	}
}
