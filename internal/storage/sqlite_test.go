package storage

import (
	"context"
	"testing"

	"github.com/sourcewise/commodityflow/internal/common"
	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBatchLifecycle(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	batch := &model.ProcessingBatch{
		ID:       "batch-1",
		Filename: "inventory.xlsx",
		Options:  model.DefaultBatchOptions(),
		Mapping:  model.ColumnMapping{"Part #": "part_number"},
	}
	require.NoError(t, s.CreateBatch(ctx, batch))

	loaded, err := s.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchPending, loaded.Status)
	assert.Equal(t, "inventory.xlsx", loaded.Filename)
	assert.Equal(t, "part_number", loaded.Mapping["Part #"])
	assert.True(t, loaded.Options.DemandLookup)
	assert.Empty(t, loaded.ArtifactPath)

	require.NoError(t, s.UpdateBatchStatus(ctx, "batch-1", model.BatchProcessing, ""))
	loaded, err = s.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchProcessing, loaded.Status)

	require.NoError(t, s.SetBatchArtifact(ctx, "batch-1", "/tmp/report.xlsx"))
	loaded, err = s.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, loaded.Status)
	assert.Equal(t, "/tmp/report.xlsx", loaded.ArtifactPath)
}

func TestBatchFailureReason(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBatch(ctx, &model.ProcessingBatch{ID: "b", Filename: "f.xlsx"}))
	require.NoError(t, s.UpdateBatchStatus(ctx, "b", model.BatchFailed, "embedding provider unreachable"))

	loaded, err := s.GetBatch(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, model.BatchFailed, loaded.Status)
	assert.Equal(t, "embedding provider unreachable", loaded.FailureReason)
}

func TestGetBatchNotFound(t *testing.T) {
	s := setupStorage(t)

	_, err := s.GetBatch(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrBatchNotFound)
}

func TestRowsRoundTrip(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBatch(ctx, &model.ProcessingBatch{ID: "b", Filename: "f.xlsx"}))

	cost := 12.5
	usage := int64(100)
	rows := []model.InventoryRow{
		{ItemCode: "ITEM001", Description: "packaging box", StandardCost: &cost, UsageQuantity: &usage},
		{ItemCode: "ITEM002", Description: "labels", PartNumber: "PN-2", Manufacturer: "Acme"},
	}
	require.NoError(t, s.SaveRows(ctx, "b", rows))

	stored, err := s.GetRows(ctx, "b")
	require.NoError(t, err)
	require.Len(t, stored, 2)

	assert.Equal(t, 0, stored[0].Position)
	assert.Equal(t, "ITEM001", stored[0].ItemCode)
	require.NotNil(t, stored[0].StandardCost)
	assert.InDelta(t, 12.5, *stored[0].StandardCost, 0.001)
	require.NotNil(t, stored[0].UsageQuantity)
	assert.Equal(t, int64(100), *stored[0].UsageQuantity)

	assert.Equal(t, 1, stored[1].Position)
	assert.Equal(t, "Acme", stored[1].Manufacturer)
	assert.Nil(t, stored[1].StandardCost)
}

func TestUpdateRowClassification(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBatch(ctx, &model.ProcessingBatch{ID: "b", Filename: "f.xlsx"}))
	require.NoError(t, s.SaveRows(ctx, "b", []model.InventoryRow{
		{ItemCode: "X", Description: "widget"},
	}))

	stored, err := s.GetRows(ctx, "b")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	require.NoError(t, s.UpdateRowClassification(ctx, stored[0].ID, "HARDWARE", model.ScopeOut))

	row, err := s.GetRowByID(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "HARDWARE", row.Commodity)
	assert.Equal(t, model.ScopeOut, row.Scope)
}

func TestRowValidation(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBatch(ctx, &model.ProcessingBatch{ID: "b", Filename: "f.xlsx"}))

	err := s.SaveRows(ctx, "b", []model.InventoryRow{{Description: "no item code"}})
	assert.ErrorIs(t, err, ErrInvalidRow)

	neg := int64(-1)
	err = s.SaveRows(ctx, "b", []model.InventoryRow{
		{ItemCode: "X", Description: "widget", UsageQuantity: &neg},
	})
	assert.ErrorIs(t, err, ErrInvalidRow)
}

func TestCommodityCatalog(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	catalog := []model.ReferenceCommodity{
		{Level2: "Packaging", Level3: "PACK BROWN BOX", InScope: true, Embedding: []float32{1, 0, 0}},
		{Level2: "Hardware", Level3: "HARDWARE"},
	}
	require.NoError(t, s.SaveCommodities(ctx, catalog))

	loaded, err := s.GetCommodities(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "PACK BROWN BOX", loaded[0].Level3)
	assert.Equal(t, []float32{1, 0, 0}, loaded[0].Embedding)
	assert.True(t, loaded[0].InScope)
	assert.False(t, loaded[1].HasEmbedding())

	missing, err := s.GetCommoditiesWithoutEmbedding(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "HARDWARE", missing[0].Level3)

	require.NoError(t, s.SaveCommodityEmbedding(ctx, missing[0].ID, []float32{0, 1, 0}))
	missing, err = s.GetCommoditiesWithoutEmbedding(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestCatalogRequiresLevel3(t *testing.T) {
	s := setupStorage(t)

	err := s.SaveCommodities(context.Background(), []model.ReferenceCommodity{{Level2: "Packaging"}})
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestEmbeddingCache(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	_, err := s.GetCachedEmbedding(ctx, "never seen")
	assert.ErrorIs(t, err, common.ErrNotFound)

	vec := []float32{0.1, 0.2, 0.3}
	require.NoError(t, s.UpsertCachedEmbedding(ctx, "packaging box", vec))

	got, err := s.GetCachedEmbedding(ctx, "packaging box")
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	// Upserting the same key twice is idempotent
	require.NoError(t, s.UpsertCachedEmbedding(ctx, "packaging box", vec))
	got, err = s.GetCachedEmbedding(ctx, "packaging box")
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, 3.14159}

	decoded, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	decoded, err = decodeVector(nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
