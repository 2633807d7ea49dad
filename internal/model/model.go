package model

import (
	"time"

	"github.com/google/uuid"

	"feastsched/internal/localdate"
)

// Category is the kind of a liturgical service.
type Category string

const (
	CategoryMass         Category = "mass"
	CategoryRosary       Category = "rosary"
	CategoryLamentations Category = "lamentations"
	CategoryOther        Category = "other"
)

// MassType qualifies a service of CategoryMass.
type MassType string

const (
	MassSung   MassType = "sung"
	MassRead   MassType = "read"
	MassSilent MassType = "silent"
	MassSolemn MassType = "solemn"
)

// Tenant is a parish or chapel. Timezone is an IANA zone name.
type Tenant struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Timezone     string    `json:"timezone"`
	AutoGenerate bool      `json:"autoGenerate"`
}

// Location resolves the tenant's zone, falling back when it is empty or
// unknown.
func (t Tenant) Location(fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	if t.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// Feast is one entry of the external liturgical calendar. Lower Rank means
// higher precedence.
type Feast struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Rank   float64        `json:"rank"`
	Colors []string       `json:"colors"`
	Tags   []string       `json:"tags,omitempty"`
	Date   localdate.Date `json:"date"`
}

// Instant is the start of the feast day in loc.
func (f Feast) Instant(loc *time.Location) time.Time {
	return f.Date.Midnight(loc)
}

// TemplateService is one recurring service definition inside a day tab.
type TemplateService struct {
	Time        string   `json:"time" validate:"required"`
	Category    Category `json:"category" validate:"required,oneof=mass rosary lamentations other"`
	MassType    MassType `json:"massType,omitempty"`
	CustomTitle string   `json:"customTitle,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// DayServices is the content of one template day tab.
type DayServices struct {
	Services []TemplateService `json:"services" validate:"dive"`
}

// FeastTemplate is a tenant's recurring weekly service plan. With both
// period bounds set it overrides generic templates inside that inclusive
// range.
type FeastTemplate struct {
	ID          uuid.UUID         `json:"id"`
	TenantID    uuid.UUID         `json:"tenant" validate:"required"`
	Title       string            `json:"title" validate:"required,max=200"`
	IsGeneric   bool              `json:"isGeneric"`
	PeriodStart *localdate.Date   `json:"periodStart,omitempty"`
	PeriodEnd   *localdate.Date   `json:"periodEnd,omitempty"`
	Days        Week[DayServices] `json:"days" validate:"dive"`
}

// ServicesFor returns the services of the given tab (nil when none).
func (t FeastTemplate) ServicesFor(tab DayTab) []TemplateService {
	return t.Days[tab].Services
}

// Period returns the inclusive period when both bounds are set.
func (t FeastTemplate) Period() (start, end localdate.Date, ok bool) {
	if t.PeriodStart == nil || t.PeriodEnd == nil {
		return localdate.Date{}, localdate.Date{}, false
	}
	return *t.PeriodStart, *t.PeriodEnd, true
}

// DayRefs lists the services assigned to one day of a ServiceWeek.
type DayRefs struct {
	Services []uuid.UUID `json:"services"`
}

// ServiceWeek is a scheduling period whose days reference Services. It does
// not own them.
type ServiceWeek struct {
	ID       uuid.UUID      `json:"id"`
	TenantID uuid.UUID      `json:"tenant" validate:"required"`
	Start    localdate.Date `json:"start"`
	End      localdate.Date `json:"end"`
	Days     Week[DayRefs]  `json:"days"`
}

// Prefilled reports whether the tab already carries services.
func (w ServiceWeek) Prefilled(tab DayTab) bool {
	return len(w.Days[tab].Services) > 0
}

// Service is a concrete dated service. Synthetic marks drafts produced by
// template generation.
type Service struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant"`
	Date        time.Time `json:"date"`
	Category    Category  `json:"category"`
	MassType    MassType  `json:"massType,omitempty"`
	CustomTitle string    `json:"customTitle,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Synthetic   bool      `json:"synthetic,omitempty"`
}

// Title is the display title of the service.
func (s Service) Title() string {
	switch s.Category {
	case CategoryOther:
		if s.CustomTitle != "" {
			return s.CustomTitle
		}
		return "Service"
	case CategoryMass:
		if s.MassType != "" {
			return "Mass (" + string(s.MassType) + ")"
		}
		return "Mass"
	case CategoryRosary:
		return "Rosary"
	case CategoryLamentations:
		return "Lamentations"
	default:
		return string(s.Category)
	}
}
