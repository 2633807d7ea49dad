package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"feastsched/internal/jobs"
	appLog "feastsched/internal/log"
	"feastsched/internal/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string
	var noJobs bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts, listen, noJobs)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	cmd.Flags().BoolVar(&noJobs, "no-jobs", false, "do not start the cron jobs")

	return cmd
}

func runServe(parent context.Context, opts *RootOptions, listen string, noJobs bool) error {
	if parent == nil {
		parent = context.Background()
	}
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	// CLI --listen overrides config file listen if provided.
	if listen != "" {
		a.cfg.Listen = listen
	}

	appLog.Info("effective config",
		"listen", a.cfg.Listen,
		"timezone", a.cfg.Timezone,
		"db_driver", a.cfg.Database.Driver,
		"calendar", a.cfg.Calendar.BaseURL,
		"template_limit", a.cfg.Generation.TemplateLimit,
		"concurrency", a.cfg.Generation.Concurrency,
		"auto_week_cron", a.cfg.Generation.AutoWeekCron,
		"prefetch_cron", a.cfg.Generation.PrefetchCron,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if !noJobs {
		runner := &jobs.Runner{
			Tenants:  a.store,
			Weeks:    a.generator,
			Calendar: a.fetcher,
			Fallback: a.cfg.Location(),
		}
		sched, err := jobs.NewScheduler(runner, a.cfg.Generation.AutoWeekCron, a.cfg.Generation.PrefetchCron, a.cfg.Location())
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	srv := web.NewServer(a.cfg, a.store, a.generator, a.fetcher)
	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		return err
	}
	appLog.Info("feastsched exiting")
	return nil
}
