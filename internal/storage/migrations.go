package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS batches (
					id TEXT PRIMARY KEY,
					filename TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					column_mapping TEXT,
					demand_lookup INTEGER NOT NULL DEFAULT 1,
					component_grade TEXT NOT NULL DEFAULT 'commercial',
					volume_multiplier REAL NOT NULL DEFAULT 1.0,
					artifact_path TEXT,
					failure_reason TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS inventory_rows (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					batch_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					item_code TEXT NOT NULL,
					part_number TEXT,
					manufacturer TEXT,
					description TEXT NOT NULL,
					site TEXT,
					standard_cost REAL,
					last_purchase_price REAL,
					last_po_price REAL,
					usage_quantity INTEGER,
					commodity TEXT,
					scope TEXT,
					embedding BLOB,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_inventory_rows_batch ON inventory_rows(batch_id, position)`,
				`CREATE INDEX idx_inventory_rows_item ON inventory_rows(item_code)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Reference commodity catalog",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS reference_commodities (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					level1 TEXT,
					level2 TEXT,
					level3 TEXT NOT NULL,
					global_code TEXT,
					keywords TEXT,
					manufacturers TEXT,
					sample_part_numbers TEXT,
					in_scope INTEGER NOT NULL DEFAULT 0,
					embedding BLOB
				)`,
				`CREATE INDEX idx_reference_commodities_level3 ON reference_commodities(level3)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Persisted embedding cache keyed by normalized text",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS embedding_cache (
					text TEXT PRIMARY KEY,
					embedding BLOB NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)
			`)
			return err
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
