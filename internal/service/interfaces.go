// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/sourcewise/commodityflow/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Batch operations
	CreateBatch(ctx context.Context, batch *model.ProcessingBatch) error
	GetBatch(ctx context.Context, id string) (*model.ProcessingBatch, error)
	UpdateBatchStatus(ctx context.Context, id string, status model.BatchStatus, failureReason string) error
	SetBatchArtifact(ctx context.Context, id string, artifactPath string) error
	SaveColumnMapping(ctx context.Context, id string, mapping model.ColumnMapping) error

	// Inventory row operations
	SaveRows(ctx context.Context, batchID string, rows []model.InventoryRow) error
	GetRows(ctx context.Context, batchID string) ([]model.InventoryRow, error)
	GetRowByID(ctx context.Context, id int64) (*model.InventoryRow, error)
	UpdateRowClassification(ctx context.Context, id int64, commodity string, scope model.Scope) error
	SaveRowEmbedding(ctx context.Context, id int64, embedding []float32) error

	// Reference catalog operations
	SaveCommodities(ctx context.Context, commodities []model.ReferenceCommodity) error
	GetCommodities(ctx context.Context) ([]model.ReferenceCommodity, error)
	GetCommoditiesWithoutEmbedding(ctx context.Context) ([]model.ReferenceCommodity, error)
	SaveCommodityEmbedding(ctx context.Context, id int64, embedding []float32) error

	// Persisted embedding cache, keyed by exact normalized text. Upserts are
	// idempotent so concurrent batches need no extra locking.
	GetCachedEmbedding(ctx context.Context, text string) ([]float32, error)
	UpsertCachedEmbedding(ctx context.Context, text string, embedding []float32) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// EmbeddingProvider turns text into fixed-dimension vectors. Implementations
// must return one vector per input, in input order, and unit-normalize every
// vector before returning it.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionClient is the reasoning service behind the secondary analysis.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// QuoteRecord is one historical proposal/quote line for an item.
type QuoteRecord struct {
	ItemCode   string
	PartNumber string
	LogDate    time.Time
	UnitPrice  float64
	ID         int64
}

// AuxiliaryDataSource performs the batched enrichment lookups. Implementations
// must chunk identifier lists to a bounded size and escape identifiers safely.
type AuxiliaryDataSource interface {
	QuoteHistory(ctx context.Context, itemCodes []string) ([]QuoteRecord, error)
	CrossReferences(ctx context.Context, partNumbers []string, grade model.ComponentGrade) (map[string]string, error)
	Demand(ctx context.Context, itemCodes []string) (map[string]int64, error)
	MinimumPrices(ctx context.Context, itemCodes []string) (map[string]float64, error)
}

// ReportWriter renders computed output rows. Headers are split into primary
// and auxiliary groups so writers can style them differently.
type ReportWriter interface {
	Write(ctx context.Context, path string, rows []model.OutputRow) error
}

// BatchStats summarizes one completed processing run.
type BatchStats struct {
	TotalRows      int
	SkippedRows    int
	InScope        int
	OutOfScope     int
	TotalEAR       float64
	AboveThreshold int
	Duration       time.Duration
}

// CorrectionOutcome is the result of one auto-correction attempt.
type CorrectionOutcome struct {
	RowID        int64
	ItemCode     string
	OldCommodity string
	NewCommodity string
	Applied      bool
	Err          error
	Duration     time.Duration
}

// CorrectionStats aggregates an auto-correction run.
type CorrectionStats struct {
	Outcomes     []CorrectionOutcome
	Applied      int
	Failed       int
	Duration     time.Duration
	SlowestRowID int64
	Slowest      time.Duration
	Regenerated  bool
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
