package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"feastsched/internal/ics"
	"feastsched/internal/localdate"
	appLog "feastsched/internal/log"
)

// NewExportICSCommand creates the export-ics command.
func NewExportICSCommand(rootOpts *RootOptions) *cobra.Command {
	var tenant, from, to, output string

	cmd := &cobra.Command{
		Use:   "export-ics",
		Short: "Write a tenant's services as an iCalendar feed",
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

			ctx := commandContext(cmd)
			t, err := a.store.GetTenant(ctx, tenantID)
			if err != nil {
				return err
			}
			loc := t.Location(a.cfg.Location())
			start, end, err := parseRange(from, to, localdate.Today(loc), 7)
			if err != nil {
				return err
			}
			services, err := a.store.ListServices(ctx, t.ID, start.Midnight(loc), end.AddDays(1).Midnight(loc))
			if err != nil {
				return err
			}
			body := ics.Export(services, ics.ExportOptions{Name: t.Name, Timezone: loc.String()})

			if output == "" || output == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
				return err
			}
			appLog.Info("ics exported", "tenant", t.ID, "services", len(services), "path", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&from, "from", "", "first date (yyyy-mm-dd, default today)")
	cmd.Flags().StringVar(&to, "to", "", "last date (yyyy-mm-dd, default from+6)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

// NewImportICSCommand creates the import-ics command.
func NewImportICSCommand(rootOpts *RootOptions) *cobra.Command {
	var tenant, from, to string

	cmd := &cobra.Command{
		Use:   "import-ics <file.ics>",
		Short: "Create manual services from an iCalendar feed (\"-\" reads stdin)",
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
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := commandContext(cmd)
			t, err := a.store.GetTenant(ctx, tenantID)
			if err != nil {
				return err
			}
			loc := t.Location(a.cfg.Location())
			start, end, err := parseRange(from, to, localdate.Today(loc), 7)
			if err != nil {
				return err
			}
			services, err := ics.Import(body, ics.ImportOptions{
				TenantID: t.ID,
				Location: loc,
				From:     start.Midnight(loc),
				To:       end.AddDays(1).Midnight(loc),
			})
			if err != nil {
				return err
			}

			var created, failed int
			for _, svc := range services {
				if _, err := a.store.CreateService(ctx, svc); err != nil {
					appLog.Error("imported service not persisted", err, "tenant", t.ID, "date", svc.Date)
					failed++
					continue
				}
				created++
			}

			p := newPrinter(rootOpts, cmd.OutOrStdout())
			out := map[string]int{"imported": created, "failed": failed}
			return p.emit(out, func(w io.Writer) {
				p.linef("✓ Imported %d service(s), %d failed", created, failed)
			})
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&from, "from", "", "first date (yyyy-mm-dd, default today)")
	cmd.Flags().StringVar(&to, "to", "", "last date (yyyy-mm-dd, default from+6)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
