package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/sourcewise/commodityflow/internal/classify"
	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/service"
)

// DefaultCorrectionCount is how many high-value rows the auto-correction job
// re-examines per batch.
const DefaultCorrectionCount = 10

// AutoCorrectionJob re-examines a completed batch's highest-value rows with
// the reasoning service and regenerates the output artifact when any
// classification changed.
type AutoCorrectionJob struct {
	storage   service.Storage
	engine    *classify.Engine
	processor *Processor
	topN      int
}

// NewAutoCorrectionJob creates a correction job over the given collaborators.
func NewAutoCorrectionJob(storage service.Storage, engine *classify.Engine, processor *Processor) *AutoCorrectionJob {
	return &AutoCorrectionJob{
		storage:   storage,
		engine:    engine,
		processor: processor,
		topN:      DefaultCorrectionCount,
	}
}

// Run analyzes the batch's top rows by value and applies confident
// corrections. Single-row failures are recorded as outcomes, never fatal;
// only the inability to load the batch or its rows is.
func (j *AutoCorrectionJob) Run(ctx context.Context, batchID string) (service.CorrectionStats, error) {
	start := time.Now()
	var stats service.CorrectionStats

	batch, err := j.storage.GetBatch(ctx, batchID)
	if err != nil {
		return stats, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}

	rows, err := j.storage.GetRows(ctx, batchID)
	if err != nil {
		return stats, fmt.Errorf("failed to load rows: %w", err)
	}

	targets := selectTopByValue(rows, j.topN)
	if len(targets) == 0 {
		slog.Info("Auto-correction: no rows qualify", "batch_id", batchID)
		stats.Duration = time.Since(start)
		return stats, nil
	}

	slog.Info("Auto-correction starting", "batch_id", batchID, "rows", len(targets))

	for _, row := range targets {
		select {
		case <-ctx.Done():
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		default:
		}

		result := j.engine.AnalyzeForCorrection(ctx, row.ID)
		outcome := service.CorrectionOutcome{
			RowID:        row.ID,
			ItemCode:     row.ItemCode,
			OldCommodity: result.OldCommodity,
			NewCommodity: result.NewCommodity,
			Applied:      result.Applied,
			Duration:     result.Duration,
		}
		if result.Failed {
			outcome.Err = fmt.Errorf("analysis failed for row %d", row.ID)
			stats.Failed++
		}
		if result.Applied {
			stats.Applied++
		}
		if result.Duration > stats.Slowest {
			stats.Slowest = result.Duration
			stats.SlowestRowID = row.ID
		}
		stats.Outcomes = append(stats.Outcomes, outcome)
	}

	if stats.Applied > 0 {
		if err := j.regenerate(ctx, batch); err != nil {
			slog.Error("Auto-correction: artifact regeneration failed",
				"batch_id", batchID, "error", err)
		} else {
			stats.Regenerated = true
		}
	}

	stats.Duration = time.Since(start)
	slog.Info("Auto-correction finished",
		"batch_id", batchID,
		"applied", stats.Applied,
		"failed", stats.Failed,
		"regenerated", stats.Regenerated,
		"slowest_row", stats.SlowestRowID,
		"duration", stats.Duration)
	return stats, nil
}

// regenerate discards the stale artifact and rebuilds it over all rows,
// picking up the corrected classifications.
func (j *AutoCorrectionJob) regenerate(ctx context.Context, batch *model.ProcessingBatch) error {
	if batch.ArtifactPath != "" {
		if err := os.Remove(batch.ArtifactPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("Could not remove stale artifact",
				"batch_id", batch.ID, "path", batch.ArtifactPath, "error", err)
		}
	}
	return j.processor.Regenerate(ctx, batch.ID)
}

// rowValue is a row's usage x min-positive-price metric used for ranking.
func rowValue(row *model.InventoryRow) float64 {
	usage := row.Usage()
	if usage <= 0 {
		return 0
	}
	price := minPositive(
		derefOrZero(row.StandardCost),
		derefOrZero(row.LastPurchasePrice),
		derefOrZero(row.LastPOPrice),
	)
	if price <= 0 {
		return 0
	}
	return float64(usage) * price
}

// selectTopByValue returns the topN rows with a positive value metric,
// ordered descending, ties broken by ascending row id so reruns are
// deterministic.
func selectTopByValue(rows []model.InventoryRow, topN int) []model.InventoryRow {
	candidates := make([]model.InventoryRow, 0, len(rows))
	for _, row := range rows {
		if rowValue(&row) > 0 {
			candidates = append(candidates, row)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		vi, vj := rowValue(&candidates[i]), rowValue(&candidates[j])
		if vi != vj {
			return vi > vj
		}
		return candidates[i].ID < candidates[j].ID
	})

	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}
