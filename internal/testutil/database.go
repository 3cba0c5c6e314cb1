// Package testutil provides shared test helpers for commodityflow packages.
package testutil

import (
	"context"
	"testing"

	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite storage with automatic
// cleanup.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	db, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// SeedCatalog loads the given reference commodities and returns them with
// their assigned IDs.
func SeedCatalog(t *testing.T, db *storage.SQLiteStorage, catalog []model.ReferenceCommodity) []model.ReferenceCommodity {
	t.Helper()

	ctx := context.Background()
	if err := db.SaveCommodities(ctx, catalog); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}

	loaded, err := db.GetCommodities(ctx)
	if err != nil {
		t.Fatalf("failed to reload catalog: %v", err)
	}
	return loaded
}

// SeedBatch creates a batch with the given rows and returns the stored rows
// in processing order.
func SeedBatch(t *testing.T, db *storage.SQLiteStorage, batch *model.ProcessingBatch, rows []model.InventoryRow) []model.InventoryRow {
	t.Helper()

	ctx := context.Background()
	// Tests seed ready-to-process batches unless they say otherwise.
	if batch.Status == "" {
		batch.Status = model.BatchQueued
	}
	if err := db.CreateBatch(ctx, batch); err != nil {
		t.Fatalf("failed to create batch: %v", err)
	}
	if len(rows) > 0 {
		if err := db.SaveRows(ctx, batch.ID, rows); err != nil {
			t.Fatalf("failed to save rows: %v", err)
		}
	}

	stored, err := db.GetRows(ctx, batch.ID)
	if err != nil {
		t.Fatalf("failed to reload rows: %v", err)
	}
	return stored
}

// FloatPtr returns a pointer to v, for optional numeric row fields.
func FloatPtr(v float64) *float64 {
	return &v
}

// IntPtr returns a pointer to v, for optional usage quantities.
func IntPtr(v int64) *int64 {
	return &v
}
