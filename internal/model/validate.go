package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"feastsched/internal/localdate"
)

// ErrInvalidTemplate wraps every authoring-time rejection of a FeastTemplate.
var ErrInvalidTemplate = errors.New("invalid feast template")

// ErrInvalidWeek wraps rejections of a ServiceWeek draft.
var ErrInvalidWeek = errors.New("invalid service week")

// MaxWeekDays bounds the length of a single ServiceWeek.
const MaxWeekDays = 31

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(templateServiceRules, TemplateService{})
		validate.RegisterStructValidation(feastTemplateRules, FeastTemplate{})
		validate.RegisterStructValidation(serviceWeekRules, ServiceWeek{})
	})
	return validate
}

func templateServiceRules(sl validator.StructLevel) {
	ts := sl.Current().Interface().(TemplateService)

	if _, err := localdate.ParseClock(ts.Time, nil); err != nil {
		sl.ReportError(ts.Time, "time", "Time", "clock", "")
	}

	switch ts.Category {
	case CategoryMass:
		switch ts.MassType {
		case MassSung, MassRead, MassSilent, MassSolemn:
		default:
			sl.ReportError(ts.MassType, "massType", "MassType", "mass_type", string(ts.MassType))
		}
	default:
		if ts.MassType != "" {
			sl.ReportError(ts.MassType, "massType", "MassType", "excluded_unless_mass", "")
		}
	}

	if ts.Category == CategoryOther && strings.TrimSpace(ts.CustomTitle) == "" {
		sl.ReportError(ts.CustomTitle, "customTitle", "CustomTitle", "required_if_other", "")
	}
}

func feastTemplateRules(sl validator.StructLevel) {
	t := sl.Current().Interface().(FeastTemplate)

	if (t.PeriodStart == nil) != (t.PeriodEnd == nil) {
		sl.ReportError(t.PeriodEnd, "periodEnd", "PeriodEnd", "period_pair", "")
		return
	}
	if start, end, ok := t.Period(); ok && start.After(end) {
		sl.ReportError(t.PeriodEnd, "periodEnd", "PeriodEnd", "gtefield", "PeriodStart")
	}
}

func serviceWeekRules(sl validator.StructLevel) {
	w := sl.Current().Interface().(ServiceWeek)

	if w.Start.IsZero() {
		sl.ReportError(w.Start, "start", "Start", "required", "")
		return
	}
	if w.End.IsZero() {
		sl.ReportError(w.End, "end", "End", "required", "")
		return
	}
	if w.Start.After(w.End) {
		sl.ReportError(w.End, "end", "End", "gtefield", "Start")
		return
	}
	if w.Start.DaysUntil(w.End)+1 > MaxWeekDays {
		sl.ReportError(w.End, "end", "End", "max_days", fmt.Sprint(MaxWeekDays))
	}
}

// ValidateTemplate checks a template at authoring time.
func ValidateTemplate(t FeastTemplate) error {
	if err := validatorInstance().Struct(t); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTemplate, describe(err))
	}
	return nil
}

// ValidateWeek checks a ServiceWeek draft before generation.
func ValidateWeek(w ServiceWeek) error {
	if err := validatorInstance().Struct(w); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidWeek, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Namespace() + " failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}
