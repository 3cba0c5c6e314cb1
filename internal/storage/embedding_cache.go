package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sourcewise/commodityflow/internal/common"
)

// GetCachedEmbedding looks up a persisted embedding by exact normalized
// text. Returns common.ErrNotFound when the text was never embedded.
func (s *SQLiteStorage) GetCachedEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(text, "text"); err != nil {
		return nil, err
	}

	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding FROM embedding_cache WHERE text = ?`, text).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding cache: %w", err)
	}

	vec, err := decodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached embedding: %w", err)
	}
	return vec, nil
}

// UpsertCachedEmbedding stores an embedding keyed by its exact normalized
// text. Writing the same text twice is a no-op in effect, so concurrent
// batches need no coordination beyond this statement.
func (s *SQLiteStorage) UpsertCachedEmbedding(ctx context.Context, text string, embedding []float32) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(text, "text"); err != nil {
		return err
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding", ErrEmptySlice)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (text, embedding) VALUES (?, ?)
		ON CONFLICT(text) DO UPDATE SET embedding = excluded.embedding`,
		text, encodeVector(embedding))
	if err != nil {
		return fmt.Errorf("failed to upsert embedding cache: %w", err)
	}

	return nil
}
