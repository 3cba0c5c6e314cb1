package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcewise/commodityflow/internal/classify"
	"github.com/sourcewise/commodityflow/internal/common"
	"github.com/sourcewise/commodityflow/internal/enrich"
	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/service"
)

// Processor runs one batch end to end: classification, enrichment, row
// computation, and artifact generation. One Processor instance may serve
// many batches, but each Process call is a single sequential worker.
type Processor struct {
	storage  service.Storage
	engine   *classify.Engine
	enricher *enrich.Builder
	writer   service.ReportWriter
	progress func(done, total int)
}

// NewProcessor creates a batch processor.
func NewProcessor(storage service.Storage, engine *classify.Engine, enricher *enrich.Builder, writer service.ReportWriter) *Processor {
	return &Processor{
		storage:  storage,
		engine:   engine,
		enricher: enricher,
		writer:   writer,
	}
}

// OnProgress registers a per-row progress callback for the classification
// pass. Used by the CLI to drive a progress bar.
func (p *Processor) OnProgress(fn func(done, total int)) {
	p.progress = fn
}

// Process runs the full pipeline for a batch and writes the output artifact
// to outPath. Fatal errors transition the batch to failed with a retained
// message; a batch canceled mid-run aborts cleanly without overwriting its
// state.
func (p *Processor) Process(ctx context.Context, batchID, outPath string) (service.BatchStats, error) {
	start := time.Now()
	var stats service.BatchStats

	batch, err := p.storage.GetBatch(ctx, batchID)
	if err != nil {
		return stats, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	if batch.Terminal() {
		return stats, fmt.Errorf("batch %s already %s: %w", batchID, batch.Status, common.ErrBatchTerminal)
	}
	// Processing is reached from queued only; earlier states still await
	// their column mapping.
	if batch.Status != model.BatchQueued {
		return stats, fmt.Errorf("batch %s is %s: %w", batchID, batch.Status, common.ErrBatchNotQueued)
	}

	if err := p.storage.UpdateBatchStatus(ctx, batchID, model.BatchProcessing, ""); err != nil {
		return stats, fmt.Errorf("failed to mark batch processing: %w", err)
	}

	rows, err := p.storage.GetRows(ctx, batchID)
	if err != nil {
		return p.fail(ctx, batchID, "failed to load rows", err)
	}
	if len(rows) == 0 {
		return p.fail(ctx, batchID, "batch contains no rows", common.ErrEmptyBatch)
	}

	slog.Info("Processing batch", "batch_id", batchID, "rows", len(rows))
	stats.TotalRows = len(rows)

	for i := range rows {
		row := &rows[i]
		if !row.Valid() {
			slog.Warn("Skipping row with missing required fields",
				"batch_id", batchID, "position", row.Position, "item_code", row.ItemCode)
			stats.SkippedRows++
			continue
		}

		// Observe cancellation before every external call.
		if err := p.stillActive(ctx, batchID); err != nil {
			return stats, err
		}

		cls, err := p.engine.Classify(ctx, row)
		if err != nil {
			slog.Warn("Classification failed, skipping row",
				"batch_id", batchID, "item_code", row.ItemCode, "error", err)
			stats.SkippedRows++
			continue
		}

		if err := p.storage.UpdateRowClassification(ctx, row.ID, cls.Commodity, cls.Scope); err != nil {
			return p.fail(ctx, batchID, "failed to persist classification", err)
		}
		if err := p.storage.SaveRowEmbedding(ctx, row.ID, cls.Embedding); err != nil {
			return p.fail(ctx, batchID, "failed to persist row embedding", err)
		}

		row.Commodity = cls.Commodity
		row.Scope = cls.Scope
		row.Embedding = cls.Embedding

		if p.progress != nil {
			p.progress(i+1, len(rows))
		}
	}

	if err := p.stillActive(ctx, batchID); err != nil {
		return stats, err
	}

	outputs := p.computeOutputs(ctx, rows, batch.Options, &stats)

	if err := p.writer.Write(ctx, outPath, outputs); err != nil {
		return p.fail(ctx, batchID, "failed to write output artifact", err)
	}
	if err := p.storage.SetBatchArtifact(ctx, batchID, outPath); err != nil {
		return p.fail(ctx, batchID, "failed to record output artifact", err)
	}

	stats.Duration = time.Since(start)
	slog.Info("Batch completed",
		"batch_id", batchID,
		"rows", stats.TotalRows,
		"skipped", stats.SkippedRows,
		"in_scope", stats.InScope,
		"duration", stats.Duration)
	return stats, nil
}

// Regenerate rebuilds a completed batch's output artifact from the persisted
// rows, picking up any corrected classifications. The enrichment cache is
// rebuilt from scratch; it is never reused across generations.
func (p *Processor) Regenerate(ctx context.Context, batchID string) error {
	batch, err := p.storage.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	if batch.ArtifactPath == "" {
		return fmt.Errorf("batch %s has no artifact to regenerate: %w", batchID, common.ErrInvalidConfig)
	}

	rows, err := p.storage.GetRows(ctx, batchID)
	if err != nil {
		return fmt.Errorf("failed to load rows: %w", err)
	}

	var stats service.BatchStats
	outputs := p.computeOutputs(ctx, rows, batch.Options, &stats)

	if err := p.writer.Write(ctx, batch.ArtifactPath, outputs); err != nil {
		return fmt.Errorf("failed to rewrite output artifact: %w", err)
	}

	slog.Info("Regenerated batch artifact", "batch_id", batchID, "rows", len(outputs))
	return nil
}

// computeOutputs builds the enrichment cache and derives output rows in
// processing order. Invalid rows are excluded, matching the classification
// pass.
func (p *Processor) computeOutputs(ctx context.Context, rows []model.InventoryRow, opts model.BatchOptions, stats *service.BatchStats) []model.OutputRow {
	valid := make([]model.InventoryRow, 0, len(rows))
	for _, row := range rows {
		if row.Valid() {
			valid = append(valid, row)
		}
	}

	cache := p.enricher.Build(ctx, valid, opts)
	computer := NewRowComputer(opts)
	tracker := NewDuplicationTracker()

	outputs := make([]model.OutputRow, 0, len(valid))
	for i := range valid {
		row := &valid[i]
		cls := model.Classification{Commodity: row.Commodity, Scope: row.Scope, Embedding: row.Embedding}
		out := computer.ComputeRow(row, cls, cache, tracker)
		outputs = append(outputs, out)

		switch out.Scope {
		case model.ScopeIn:
			stats.InScope++
		case model.ScopeOut:
			stats.OutOfScope++
		}
		if out.EAR != nil {
			stats.TotalEAR += *out.EAR
			if *out.EAR >= EARThreshold {
				stats.AboveThreshold++
			}
		}
	}
	return outputs
}

// stillActive re-reads the batch before an external call so a batch deleted
// or failed mid-run aborts before the next round-trip.
func (p *Processor) stillActive(ctx context.Context, batchID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	batch, err := p.storage.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("batch %s disappeared mid-run: %w", batchID, common.ErrBatchCanceled)
	}
	if batch.Status == model.BatchFailed {
		return fmt.Errorf("batch %s failed mid-run: %w", batchID, common.ErrBatchCanceled)
	}
	return nil
}

func (p *Processor) fail(ctx context.Context, batchID, msg string, cause error) (service.BatchStats, error) {
	reason := fmt.Sprintf("%s: %v", msg, cause)
	if err := p.storage.UpdateBatchStatus(ctx, batchID, model.BatchFailed, reason); err != nil {
		slog.Error("Failed to mark batch failed", "batch_id", batchID, "error", err)
	}
	return service.BatchStats{}, fmt.Errorf("%s: %w", msg, cause)
}
