package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/pulseboard/pulseboard/internal/config"
	"github.com/pulseboard/pulseboard/internal/observability"
)

// NewServeCommand creates the scheduled-service command. It runs
// ingestion invocations on the configured cron schedule and exposes
// diagnostics endpoints until interrupted.
func NewServeCommand() *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled ingestion service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			return serve(ctx, app, runOnStart)
		},
	}

	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run one invocation immediately before scheduling")

	return cmd
}

func serve(ctx context.Context, app *app, runOnStart bool) error {
	if app.cfg.Ingest.Schedule == "" {
		return config.ErrMissingSchedule
	}

	diagnostics, err := observability.NewDiagnosticsServer(app.cfg.Server.MetricsAddr, app.prom, app.readyCheck)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := diagnostics.Close()
		if closeErr != nil {
			app.logger.Warn("close diagnostics server", "error", closeErr)
		}
	}()

	app.logger.Info("diagnostics listening", "addr", diagnostics.Addr())

	invoke := func() {
		result, runErr := app.engine.Run(ctx)
		if runErr != nil {
			app.logger.Error("invocation failed", "error", runErr)

			return
		}

		app.logger.Info("invocation finished",
			"processed", result.ProcessedAccounts,
			"failed", len(result.FailedAccounts),
			"timelines", result.TimelinesGenerated)
	}

	if runOnStart {
		invoke()
	}

	scheduler := cron.New()

	_, err = scheduler.AddFunc(app.cfg.Ingest.Schedule, invoke)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", app.cfg.Ingest.Schedule, err)
	}

	scheduler.Start()

	app.logger.Info("scheduler started", "schedule", app.cfg.Ingest.Schedule)

	<-ctx.Done()

	stopCtx := scheduler.Stop()
	// Wait for an in-flight invocation to finish before returning.
	<-stopCtx.Done()

	app.logger.Info("scheduler stopped")

	return nil
}
