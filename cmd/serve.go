package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/abhisek/learntrack/internal/api"
	"github.com/abhisek/learntrack/internal/progress"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the progress API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		accessLog, _ := cmd.Flags().GetBool("access-log")

		d, err := openDeps(true)
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.ReconcileSchedule != "" {
			sweeper, err := startSweep(ctx, d.service, cfg.ReconcileSchedule)
			if err != nil {
				return err
			}
			defer func() { <-sweeper.Stop().Done() }()
		}

		app := api.New(d.service, d.store.ProgressRepo(), api.Options{
			RequestTimeout: cfg.HTTP.RequestTimeout,
			Logger:         slog.Default(),
			AccessLog:      accessLog,
		})

		errCh := make(chan error, 1)
		go func() {
			slog.Info("listening", "addr", cfg.HTTP.Addr, "driver", cfg.DB.Driver, "publisher", d.publisher.Enabled())
			errCh <- app.Listen(cfg.HTTP.Addr)
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("listen: %w", err)
		case <-ctx.Done():
		}

		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

// startSweep schedules ReconcileAll on spec. Overlapping runs are skipped.
func startSweep(ctx context.Context, svc *progress.Service, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		results, err := svc.ReconcileAll(ctx)
		transitions := 0
		for _, r := range results {
			transitions += r.Transitions
		}
		if err != nil {
			slog.Error("reconcile sweep finished with errors", "enrollments", len(results), "err", err)
			return
		}
		slog.Info("reconcile sweep finished",
			"enrollments", len(results),
			"transitions", transitions,
			"duration", time.Since(start))
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reconcile sweep: %w", err)
	}
	c.Start()
	slog.Info("reconcile sweep scheduled", "schedule", spec)
	return c, nil
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides LEARNTRACK_HTTP_ADDR env var)")
	serveCmd.Flags().Bool("access-log", true, "Log every request")
}
