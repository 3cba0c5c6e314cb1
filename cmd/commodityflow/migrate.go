package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sourcewise/commodityflow/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the local database schema to the latest version.

This command ensures the database has all the tables and indexes the
pipeline needs: batches, inventory rows, the reference catalog, and the
persisted embedding cache.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer func() { _ = store.Close() }()

			slog.Info("Database migrations completed",
				"schema_version", storage.ExpectedSchemaVersion)
			return nil
		},
	}
}
