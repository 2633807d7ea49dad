package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"feastsched/internal/localdate"
	"feastsched/internal/model"
	"feastsched/internal/schedule"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.store.Migrate(commandContext(cmd)); err != nil {
				return err
			}
			newPrinter(rootOpts, cmd.OutOrStdout()).linef("✓ Schema up to date (%s)", a.cfg.Database.Driver)
			return nil
		},
	}
}

// NewFeastsCommand creates the feasts command.
func NewFeastsCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "feasts",
		Short: "Print the liturgical calendar for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			start, end, err := parseRange(from, to, localdate.Today(a.cfg.Location()), 7)
			if err != nil {
				return err
			}
			feasts, err := a.fetcher.FetchFeasts(commandContext(cmd), start, end)
			if err != nil {
				return err
			}
			p := newPrinter(rootOpts, cmd.OutOrStdout())
			return p.emit(feasts, func(w io.Writer) {
				for _, f := range feasts {
					p.linef("%s  %-9s  rank %-4g  %-20s  %s", f.Date, model.TabOfDate(f.Date), f.Rank, strings.Join(f.Colors, ","), f.Title)
				}
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date (yyyy-mm-dd, default today)")
	cmd.Flags().StringVar(&to, "to", "", "last date (yyyy-mm-dd, default from+6)")
	return cmd
}

// NewTenantsCommand creates the tenants command group.
func NewTenantsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Manage tenants",
	}

	var autoOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()
			tenants, err := a.store.ListTenants(commandContext(cmd), autoOnly)
			if err != nil {
				return err
			}
			p := newPrinter(rootOpts, cmd.OutOrStdout())
			return p.emit(tenants, func(w io.Writer) {
				for _, t := range tenants {
					p.linef("%s  %-20s  auto=%t  %s", t.ID, t.Timezone, t.AutoGenerate, t.Name)
				}
			})
		},
	}
	list.Flags().BoolVar(&autoOnly, "auto", false, "only tenants with automatic weekly generation")

	var in model.Tenant
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()
			in.Name = args[0]
			t, err := a.store.CreateTenant(commandContext(cmd), in)
			if err != nil {
				return err
			}
			p := newPrinter(rootOpts, cmd.OutOrStdout())
			return p.emit(t, func(w io.Writer) { p.linef("✓ Created tenant %s", t.ID) })
		},
	}
	add.Flags().StringVar(&in.Timezone, "timezone", "", "IANA zone (default: config timezone)")
	add.Flags().BoolVar(&in.AutoGenerate, "auto", false, "create next week's services automatically")

	cmd.AddCommand(list, add)
	return cmd
}

// NewTemplatesCommand creates the templates command group.
func NewTemplatesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage feast templates",
	}

	var tenant string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()
			templates, err := a.store.ListTemplates(commandContext(cmd), tenantID, a.cfg.Generation.TemplateLimit)
			if err != nil {
				return err
			}
			p := newPrinter(rootOpts, cmd.OutOrStdout())
			return p.emit(templates, func(w io.Writer) {
				for _, t := range templates {
					scope := "generic"
					if start, end, ok := t.Period(); ok {
						scope = start.String() + ".." + end.String()
					} else if !t.IsGeneric {
						scope = "inactive"
					}
					p.linef("%s  %-22s  %s", t.ID, scope, t.Title)
				}
			})
		},
	}

	add := &cobra.Command{
		Use:   "add <file.json>",
		Short: "Create a template from a JSON file (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			body, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var tpl model.FeastTemplate
			if err := json.Unmarshal(body, &tpl); err != nil {
				return fmt.Errorf("decode template: %w", err)
			}
			tpl.ID = uuid.Nil
			tpl.TenantID = tenantID

			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()
			created, err := a.store.CreateTemplate(commandContext(cmd), tpl)
			if err != nil {
				return err
			}
			p := newPrinter(rootOpts, cmd.OutOrStdout())
			return p.emit(created, func(w io.Writer) { p.linef("✓ Created template %s", created.ID) })
		},
	}

	for _, c := range []*cobra.Command{list, add} {
		c.Flags().StringVar(&tenant, "tenant", "", "tenant id")
		_ = c.MarkFlagRequired("tenant")
	}
	cmd.AddCommand(list, add)
	return cmd
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	var tenant, start, end string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a service week and fill it from the tenant's templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			draft := model.ServiceWeek{TenantID: tenantID}
			if draft.Start, err = localdate.Parse(start); err != nil {
				return err
			}
			if end != "" {
				if draft.End, err = localdate.Parse(end); err != nil {
					return err
				}
			}

			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()
			week, report, err := a.generator.CreateWeek(commandContext(cmd), draft)
			if err != nil {
				return err
			}
			return printWeek(newPrinter(rootOpts, cmd.OutOrStdout()), week, report)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&start, "start", "", "first day of the week (yyyy-mm-dd)")
	cmd.Flags().StringVar(&end, "end", "", "last day (default start+6)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func printWeek(p printer, week model.ServiceWeek, report schedule.Report) error {
	out := struct {
		Week   model.ServiceWeek `json:"week"`
		Report schedule.Report   `json:"report"`
	}{week, report}

	return p.emit(out, func(w io.Writer) {
		if report.Aborted {
			p.linef("✗ Generation aborted: %s", report.Reason)
		}
		p.linef("✓ Week %s  %s..%s  created=%d entry_errors=%d store_errors=%d",
			week.ID, week.Start, week.End, report.Created, report.EntryErrors, report.StoreErrors)
		for _, d := range report.Days {
			p.linef("  %s %-9s  %d service(s)  feasts=%s", d.Date, d.Tab, d.Created, strings.Join(d.Feasts, ","))
		}
		if len(report.Prefilled) > 0 {
			p.linef("  pre-filled: %s", strings.Join(report.Prefilled, ","))
		}
	})
}

// parseRange resolves --from/--to with from defaulting to today and to to
// from+days-1.
func parseRange(from, to string, today localdate.Date, days int) (localdate.Date, localdate.Date, error) {
	start := today
	if from != "" {
		d, err := localdate.Parse(from)
		if err != nil {
			return start, start, err
		}
		start = d
	}
	end := start.AddDays(days - 1)
	if to != "" {
		d, err := localdate.Parse(to)
		if err != nil {
			return start, end, err
		}
		end = d
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("--to %s is before --from %s", end, start)
	}
	return start, end, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
