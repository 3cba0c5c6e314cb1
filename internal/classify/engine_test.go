package classify

import (
	"context"
	"testing"

	"github.com/sourcewise/commodityflow/internal/index"
	"github.com/sourcewise/commodityflow/internal/llm"
	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/storage"
	"github.com/sourcewise/commodityflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCatalog builds an embedded reference catalog whose vectors come from
// the same fixture embedder the engine uses, so description overlap drives
// the ranking.
func testCatalog(t *testing.T, embedder *llm.FixtureEmbedder) []model.ReferenceCommodity {
	t.Helper()

	catalog := []model.ReferenceCommodity{
		{Level1: "Packaging", Level2: "PACK BROWN BOX", Level3: "Corrugated shipping box", InScope: true},
		{Level1: "Packaging", Level2: "PACK LABELS", Level3: "Adhesive shipping labels", InScope: true},
		{Level1: "Mechanical", Level2: "HARDWARE", Level3: "General hardware", InScope: false},
	}
	for i := range catalog {
		vectors, err := embedder.Embed(context.Background(), []string{catalog[i].EmbeddingText()})
		require.NoError(t, err)
		catalog[i].Embedding = vectors[0]
	}
	return catalog
}

func TestClassifyAssignsBestMatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)
	catalog := testCatalog(t, embedder)

	engine, err := New(index.New(catalog), embedder, llm.NewFixtureCompleter(""), db)
	require.NoError(t, err)

	row := &model.InventoryRow{ItemCode: "ITEM001", Description: "packaging box"}
	got, err := engine.Classify(context.Background(), row)
	require.NoError(t, err)

	assert.Equal(t, "PACK BROWN BOX", got.Commodity)
	assert.Equal(t, model.ScopeIn, got.Scope)
	assert.NotEmpty(t, got.Embedding)
}

func TestClassifyOutOfScopeMatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)
	catalog := testCatalog(t, embedder)

	engine, err := New(index.New(catalog), embedder, llm.NewFixtureCompleter(""), db)
	require.NoError(t, err)

	row := &model.InventoryRow{ItemCode: "ITEM003", Description: "hardware"}
	got, err := engine.Classify(context.Background(), row)
	require.NoError(t, err)

	assert.Equal(t, "HARDWARE", got.Commodity)
	assert.Equal(t, model.ScopeOut, got.Scope)
}

func TestClassifyEmptyCatalogFallsBackToUnknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)

	engine, err := New(index.New(nil), embedder, llm.NewFixtureCompleter(""), db)
	require.NoError(t, err)

	row := &model.InventoryRow{ItemCode: "ITEM001", Description: "packaging box"}
	got, err := engine.Classify(context.Background(), row)
	require.NoError(t, err)

	assert.Equal(t, UnknownCommodity, got.Commodity)
	assert.Equal(t, model.ScopeOut, got.Scope)
}

func TestClassifyBlankRowFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)

	engine, err := New(index.New(nil), embedder, llm.NewFixtureCompleter(""), db)
	require.NoError(t, err)

	row := &model.InventoryRow{ItemCode: "ITEM001", Description: "   "}
	_, err = engine.Classify(context.Background(), row)
	assert.Error(t, err)
}

func TestClassifyUsesPersistedEmbeddingCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)
	catalog := testCatalog(t, embedder)
	callsAfterSeeding := embedder.Calls()

	engine, err := New(index.New(catalog), embedder, llm.NewFixtureCompleter(""), db)
	require.NoError(t, err)

	row := &model.InventoryRow{ItemCode: "ITEM001", Description: "packaging box"}
	ctx := context.Background()

	_, err = engine.Classify(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, callsAfterSeeding+1, embedder.Calls())

	// Second pass over the same text must be served from the cache.
	_, err = engine.Classify(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, callsAfterSeeding+1, embedder.Calls())
}

func TestEmbeddingTextOrderAndNormalization(t *testing.T) {
	row := &model.InventoryRow{
		Description:  "MTG BRKT",
		Manufacturer: "Acme",
		PartNumber:   "A-100",
	}
	assert.Equal(t, "mounting bracket Acme A-100", EmbeddingText(row))

	// Blank components are dropped, not joined as empty tokens.
	row = &model.InventoryRow{Description: "packaging box"}
	assert.Equal(t, "packaging box", EmbeddingText(row))
}

func seedClassifiedRow(t *testing.T, db *storage.SQLiteStorage) model.InventoryRow {
	t.Helper()

	ctx := context.Background()
	batch := &model.ProcessingBatch{ID: "batch-1", Filename: "upload.xlsx", Options: model.DefaultBatchOptions()}
	require.NoError(t, db.CreateBatch(ctx, batch))

	rows := []model.InventoryRow{{
		ItemCode:    "ITEM001",
		PartNumber:  "PN-1",
		Description: "packaging box",
		Commodity:   "PACK LABELS",
		Scope:       model.ScopeIn,
	}}
	require.NoError(t, db.SaveRows(ctx, batch.ID, rows))

	stored, err := db.GetRows(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	return stored[0]
}

func TestAnalyzeForCorrectionApplies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)
	catalog := testCatalog(t, embedder)
	stored := seedClassifiedRow(t, db)

	completer := llm.NewFixtureCompleter(
		`{"commodity": "PACK BROWN BOX", "confidence": 0.92, "reasoning": "box, not labels"}`)
	engine, err := New(index.New(catalog), embedder, completer, db)
	require.NoError(t, err)

	result := engine.AnalyzeForCorrection(context.Background(), stored.ID)

	assert.True(t, result.Applied)
	assert.False(t, result.Failed)
	assert.Equal(t, "PACK LABELS", result.OldCommodity)
	assert.Equal(t, "PACK BROWN BOX", result.NewCommodity)
	assert.InDelta(t, 0.92, result.Confidence, 0.001)

	updated, err := db.GetRowByID(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "PACK BROWN BOX", updated.Commodity)

	prompts := completer.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "packaging box")
	assert.Contains(t, prompts[0], "PACK LABELS")
}

func TestAnalyzeForCorrectionBelowThreshold(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)
	catalog := testCatalog(t, embedder)
	stored := seedClassifiedRow(t, db)

	completer := llm.NewFixtureCompleter(
		`{"commodity": "PACK BROWN BOX", "confidence": 0.5, "reasoning": "uncertain"}`)
	engine, err := New(index.New(catalog), embedder, completer, db)
	require.NoError(t, err)

	result := engine.AnalyzeForCorrection(context.Background(), stored.ID)

	assert.False(t, result.Applied)
	assert.Equal(t, "PACK BROWN BOX", result.NewCommodity)

	unchanged, err := db.GetRowByID(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "PACK LABELS", unchanged.Commodity)
}

func TestAnalyzeForCorrectionSameAssignment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)
	catalog := testCatalog(t, embedder)
	stored := seedClassifiedRow(t, db)

	completer := llm.NewFixtureCompleter(
		`{"commodity": "pack labels", "confidence": 0.99, "reasoning": "already correct"}`)
	engine, err := New(index.New(catalog), embedder, completer, db)
	require.NoError(t, err)

	result := engine.AnalyzeForCorrection(context.Background(), stored.ID)
	assert.False(t, result.Applied)
	assert.False(t, result.Failed)
}

func TestAnalyzeForCorrectionUnparseableResponse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)
	catalog := testCatalog(t, embedder)
	stored := seedClassifiedRow(t, db)

	engine, err := New(index.New(catalog), embedder, llm.NewFixtureCompleter("not json at all"), db)
	require.NoError(t, err)

	result := engine.AnalyzeForCorrection(context.Background(), stored.ID)
	assert.False(t, result.Applied)
	assert.True(t, result.Failed)
}

func TestAnalyzeForCorrectionUnclassifiedRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)
	catalog := testCatalog(t, embedder)

	ctx := context.Background()
	batch := &model.ProcessingBatch{ID: "batch-1", Filename: "upload.xlsx", Options: model.DefaultBatchOptions()}
	require.NoError(t, db.CreateBatch(ctx, batch))
	require.NoError(t, db.SaveRows(ctx, batch.ID, []model.InventoryRow{{
		ItemCode:    "ITEM001",
		PartNumber:  "PN-1",
		Description: "packaging box",
	}}))
	stored, err := db.GetRows(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	completer := llm.NewFixtureCompleter(
		`{"commodity": "PACK BROWN BOX", "confidence": 0.92, "reasoning": "box"}`)
	engine, err := New(index.New(catalog), embedder, completer, db)
	require.NoError(t, err)

	// An empty stored commodity is an unclassified row, not a failed
	// analysis.
	result := engine.AnalyzeForCorrection(ctx, stored[0].ID)
	assert.False(t, result.Failed)
	assert.True(t, result.Applied)
	assert.Empty(t, result.OldCommodity)
	assert.Equal(t, "PACK BROWN BOX", result.NewCommodity)
}

func TestAnalyzeForCorrectionMissingRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)

	engine, err := New(index.New(nil), embedder, llm.NewFixtureCompleter(""), db)
	require.NoError(t, err)

	result := engine.AnalyzeForCorrection(context.Background(), 9999)
	assert.False(t, result.Applied)
	assert.True(t, result.Failed)
	assert.Empty(t, result.NewCommodity)
}

func TestConfigDefaultsApplied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	embedder := llm.NewFixtureEmbedder(nil)

	engine, err := NewWithConfig(index.New(nil), embedder, llm.NewFixtureCompleter(""), db, Config{})
	require.NoError(t, err)

	assert.InDelta(t, DefaultCorrectionThreshold, engine.config.CorrectionThreshold, 0.001)
	assert.Equal(t, index.ReviewK, engine.config.CandidateCount)
}
