package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sophia-systems/csbot/internal/app"
	"github.com/sophia-systems/csbot/internal/worker"
)

// NewRunCmd constructs the `csbot-worker run` command: the long-lived
// ingestion consumer loop.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the ingestion worker loop until terminated",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context())
		},
	}
}

func runWorker(ctx context.Context) error {
	a, err := app.Build(ctx)
	if err != nil {
		return fmt.Errorf("csbot-worker: %w", err)
	}
	defer a.Pool.Close()

	tuning := a.Tuning.Get()
	w := worker.New(a.Queue, a.Orchestrator, tuning.MaxIngestionJobs, time.Duration(tuning.IngestionJobTimeoutSecs)*time.Second, a.Metrics)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		w.Run(runCtx)
		close(done)
	}()

	slog.Info("csbot-worker started", "max_jobs", tuning.MaxIngestionJobs, "job_timeout_seconds", tuning.IngestionJobTimeoutSecs)

	sig := <-quit
	slog.Info("received signal, shutting down gracefully", "signal", sig.String())
	cancel()
	<-done
	slog.Info("csbot-worker stopped")
	return nil
}
