package schedule

import (
	"context"
	"fmt"

	"feastsched/internal/model"
)

// CreateWeek validates a ServiceWeek draft, runs generation over it and
// persists the result. A zero End defaults to Start plus six days.
// Generation problems are carried in the Report; only validation and the
// final week insert return an error.
func (g *Generator) CreateWeek(ctx context.Context, draft model.ServiceWeek) (model.ServiceWeek, Report, error) {
	if draft.End.IsZero() && !draft.Start.IsZero() {
		draft.End = draft.Start.AddDays(6)
	}
	if err := model.ValidateWeek(draft); err != nil {
		return draft, Report{}, err
	}

	week, report := g.Generate(ctx, draft)

	id, err := g.store.CreateServiceWeek(ctx, week)
	if err != nil {
		return week, report, fmt.Errorf("create service week: %w", err)
	}
	week.ID = id
	return week, report, nil
}
