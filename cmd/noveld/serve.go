package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/config"
	"github.com/d60-Lab/novel-engine/internal/api"
	"github.com/d60-Lab/novel-engine/internal/api/handler"
	"github.com/d60-Lab/novel-engine/pkg/database"
	"github.com/d60-Lab/novel-engine/pkg/logger"
)

func newServeCmd() *cobra.Command {
	var (
		migrate    bool
		withWorker bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if migrate {
				if err := database.Migrate(a.db); err != nil {
					return err
				}
			}

			var stops []func(context.Context) error
			switch a.cfg.Notify.Mode {
			case config.NotifyModeAsync:
				stops = append(stops, a.dispatcher.Start(a.cfg.Notify.Workers))
			case config.NotifyModeOutbox:
				if withWorker {
					stops = append(stops, a.fanoutWorker().Start(ctx))
				}
			}

			h := handler.New(a.services)
			srv := &http.Server{
				Addr:         ":" + a.cfg.Server.Port,
				Handler:      api.NewRouter(a.cfg, h, a.services.Auth, a.db),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening",
					zap.String("addr", srv.Addr),
					zap.String("notify_mode", a.cfg.Notify.Mode))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http shutdown failed", zap.Error(err))
			}
			// 先停 HTTP 再排空通知队列，保证已提交章节的通知尽量发出
			for _, s := range stops {
				if err := s(shutdownCtx); err != nil {
					logger.Warn("notifier stop incomplete", zap.Error(err))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "auto-migrate schema before serving")
	cmd.Flags().BoolVar(&withWorker, "with-worker", true, "run the outbox fan-out worker in-process (notify.mode=outbox)")
	return cmd
}
