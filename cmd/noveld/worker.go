package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/config"
	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/database"
	"github.com/d60-Lab/novel-engine/pkg/logger"
	"github.com/d60-Lab/novel-engine/pkg/metrics"
)

func newWorkerCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the outbox fan-out worker (notify.mode=outbox)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if a.cfg.Notify.Mode != config.NotifyModeOutbox {
				return fmt.Errorf("worker requires notify.mode=outbox, got %q", a.cfg.Notify.Mode)
			}
			if err := database.Migrate(a.db); err != nil {
				return err
			}
			w := a.fanoutWorker()

			if once {
				n, err := w.ProcessOnce(ctx)
				if err != nil {
					return err
				}
				logger.Info("outbox drained once", zap.Int("processed", n))
				return nil
			}

			stopWorker := w.Start(ctx)
			logger.Info("outbox worker started",
				zap.Int("workers", a.cfg.Notify.Workers),
				zap.Duration("poll_interval", a.cfg.Notify.PollInterval))

			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case <-ticker.C:
					counts, err := a.outbox.CountByStatus(ctx)
					if err != nil {
						logger.Warn("outbox backlog query failed", zap.Error(err))
						continue
					}
					metrics.SetQueueLength(int(counts[model.OutboxPending]))
					logger.Debug("outbox backlog", zap.Any("counts", counts))
				}
			}

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return stopWorker(stopCtx)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "process one batch and exit")
	return cmd
}
