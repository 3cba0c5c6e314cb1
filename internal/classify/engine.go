// Package classify assigns commodity labels to inventory rows using
// embedding similarity against the reference catalog, with an AI-assisted
// secondary analysis for high-value outliers.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcewise/commodityflow/internal/common"
	"github.com/sourcewise/commodityflow/internal/index"
	"github.com/sourcewise/commodityflow/internal/llm"
	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/normalize"
	"github.com/sourcewise/commodityflow/internal/service"
)

// UnknownCommodity is assigned when the catalog yields no match at all.
const UnknownCommodity = "Unknown"

// DefaultCorrectionThreshold is the minimum analyst-model confidence needed
// before a correction overwrites the similarity-based assignment.
const DefaultCorrectionThreshold = 0.8

// Config holds engine tuning knobs.
type Config struct {
	CorrectionThreshold float64
	CandidateCount      int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		CorrectionThreshold: DefaultCorrectionThreshold,
		CandidateCount:      index.ReviewK,
	}
}

// Engine classifies inventory rows against an embedding index.
type Engine struct {
	index     *index.EmbeddingIndex
	embedder  service.EmbeddingProvider
	completer service.CompletionClient
	storage   service.Storage
	prompts   *PromptBuilder
	config    Config
}

// New creates a classification engine with default configuration.
func New(ix *index.EmbeddingIndex, embedder service.EmbeddingProvider, completer service.CompletionClient, storage service.Storage) (*Engine, error) {
	return NewWithConfig(ix, embedder, completer, storage, DefaultConfig())
}

// NewWithConfig creates a classification engine with custom configuration.
func NewWithConfig(ix *index.EmbeddingIndex, embedder service.EmbeddingProvider, completer service.CompletionClient, storage service.Storage, config Config) (*Engine, error) {
	if config.CorrectionThreshold <= 0 {
		config.CorrectionThreshold = DefaultCorrectionThreshold
	}
	if config.CandidateCount <= 0 {
		config.CandidateCount = index.ReviewK
	}

	prompts, err := NewPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	return &Engine{
		index:     ix,
		embedder:  embedder,
		completer: completer,
		storage:   storage,
		prompts:   prompts,
		config:    config,
	}, nil
}

// EmbeddingText builds the normalized embedding input for a row. The
// description, manufacturer, part-number order is the persisted cache key;
// changing it invalidates every stored embedding.
func EmbeddingText(row *model.InventoryRow) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{row.Description, row.Manufacturer, row.PartNumber} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return normalize.Normalize(strings.Join(parts, " "))
}

// Classify assigns a commodity label and scope to the row.
func (e *Engine) Classify(ctx context.Context, row *model.InventoryRow) (model.Classification, error) {
	text := EmbeddingText(row)
	if text == "" {
		return model.Classification{}, fmt.Errorf("row %s: %w", row.ItemCode, common.ErrClassificationFailed)
	}

	embedding, err := e.resolveEmbedding(ctx, text)
	if err != nil {
		return model.Classification{}, err
	}

	matches := e.index.FindMostSimilar(embedding, index.DefaultK)
	if len(matches) == 0 || !matches[0].Commodity.HasEmbedding() {
		slog.Debug("No catalog match for row", "item_code", row.ItemCode)
		return model.Classification{
			Commodity: UnknownCommodity,
			Scope:     model.ScopeOut,
			Embedding: embedding,
		}, nil
	}

	best := matches[0].Commodity
	return model.Classification{
		Commodity: best.Level2,
		Scope:     best.ScopeLabel(),
		Embedding: embedding,
	}, nil
}

// resolveEmbedding checks the persisted cache before calling the provider.
// Provider results are upserted back so concurrent batches can share them.
func (e *Engine) resolveEmbedding(ctx context.Context, text string) ([]float32, error) {
	cached, err := e.storage.GetCachedEmbedding(ctx, text)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		slog.Warn("Embedding cache read failed", "error", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	var vectors [][]float32
	retryErr := common.WithRetry(ctx, func() error {
		var embedErr error
		vectors, embedErr = e.embedder.Embed(ctx, []string{text})
		if embedErr != nil {
			return &common.RetryableError{Err: embedErr, Retryable: true}
		}
		return nil
	}, service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	})
	if retryErr != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEmbeddingUnavailable, retryErr)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", common.ErrEmbeddingUnavailable, len(vectors))
	}

	if upsertErr := e.storage.UpsertCachedEmbedding(ctx, text, vectors[0]); upsertErr != nil {
		slog.Warn("Embedding cache write failed", "error", upsertErr)
	}

	return vectors[0], nil
}

// CorrectionResult reports the outcome of a secondary analysis. Failed is
// set when the analysis never produced a recommendation; an empty stored
// commodity on the row is not a failure.
type CorrectionResult struct {
	OldCommodity string
	NewCommodity string
	Reasoning    string
	Confidence   float64
	Applied      bool
	Failed       bool
	Duration     time.Duration
}

// AnalyzeForCorrection re-examines a row with the reasoning service and
// applies a correction when the recommendation differs from the current
// assignment with sufficient confidence. This path is best-effort: every
// failure degrades to "no correction applied" and is never returned as an
// error that could abort a batch.
func (e *Engine) AnalyzeForCorrection(ctx context.Context, rowID int64) CorrectionResult {
	start := time.Now()

	row, err := e.storage.GetRowByID(ctx, rowID)
	if err != nil {
		slog.Warn("Auto-correction: row lookup failed", "row_id", rowID, "error", err)
		return CorrectionResult{Failed: true, Duration: time.Since(start)}
	}
	result := CorrectionResult{OldCommodity: row.Commodity}

	text := EmbeddingText(row)
	embedding, err := e.resolveEmbedding(ctx, text)
	if err != nil {
		slog.Warn("Auto-correction: embedding unavailable", "row_id", rowID, "error", err)
		result.Failed = true
		result.Duration = time.Since(start)
		return result
	}

	candidates := e.index.FindMostSimilar(embedding, e.config.CandidateCount)
	if len(candidates) == 0 {
		result.Failed = true
		result.Duration = time.Since(start)
		return result
	}

	prompt, err := e.prompts.CorrectionPrompt(row, text, candidates)
	if err != nil {
		slog.Warn("Auto-correction: prompt build failed", "row_id", rowID, "error", err)
		result.Failed = true
		result.Duration = time.Since(start)
		return result
	}

	var response string
	retryErr := common.WithRetry(ctx, func() error {
		var completeErr error
		response, completeErr = e.completer.Complete(ctx, prompt, 500)
		if completeErr != nil {
			return &common.RetryableError{Err: completeErr, Retryable: true}
		}
		return nil
	}, service.RetryOptions{MaxAttempts: 2, InitialDelay: time.Second})
	if retryErr != nil {
		slog.Warn("Auto-correction: completion failed", "row_id", rowID, "error", retryErr)
		result.Failed = true
		result.Duration = time.Since(start)
		return result
	}

	correction, err := llm.ParseCorrection(response)
	if err != nil {
		slog.Warn("Auto-correction: unparseable response", "row_id", rowID, "error", err)
		result.Failed = true
		result.Duration = time.Since(start)
		return result
	}

	result.NewCommodity = correction.Commodity
	result.Confidence = correction.Confidence
	result.Reasoning = correction.Reasoning

	// An empty recommendation is a successful "keep the current
	// assignment" analysis, not a failure.
	if correction.Commodity == "" ||
		strings.EqualFold(correction.Commodity, row.Commodity) ||
		correction.Confidence < e.config.CorrectionThreshold {
		result.Duration = time.Since(start)
		return result
	}

	scope := row.Scope
	if ref := e.index.FindByLabelExact(correction.Commodity); ref != nil {
		scope = ref.ScopeLabel()
	}

	if err := e.storage.UpdateRowClassification(ctx, rowID, correction.Commodity, scope); err != nil {
		slog.Warn("Auto-correction: update failed", "row_id", rowID, "error", err)
		result.Failed = true
		result.Duration = time.Since(start)
		return result
	}

	slog.Info("Auto-correction applied",
		"row_id", rowID,
		"item_code", row.ItemCode,
		"old", row.Commodity,
		"new", correction.Commodity,
		"confidence", correction.Confidence)

	result.Applied = true
	result.Duration = time.Since(start)
	return result
}
