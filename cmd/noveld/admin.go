package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/pkg/database"
	"github.com/d60-Lab/novel-engine/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			if err := database.Migrate(a.db); err != nil {
				return err
			}
			logger.Info("migration finished", zap.String("driver", a.cfg.Database.Driver))
			return nil
		},
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute novel counters from live records and print the drift",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			drifts, err := repository.NewNovelRepository(a.db).ReconcileCounters(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("counters reconciled", zap.Int("repaired", len(drifts)))
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(drifts)
		},
	}
}
