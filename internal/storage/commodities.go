package storage

import (
	"context"
	"fmt"

	"database/sql"

	"github.com/sourcewise/commodityflow/internal/common"
	"github.com/sourcewise/commodityflow/internal/model"
)

// SaveCommodities bulk-loads reference catalog entries.
func (s *SQLiteStorage) SaveCommodities(ctx context.Context, commodities []model.ReferenceCommodity) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCommodities(commodities); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reference_commodities (level1, level2, level3, global_code, keywords,
			manufacturers, sample_part_numbers, in_scope, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, c := range commodities {
		_, err := stmt.ExecContext(ctx, c.Level1, c.Level2, c.Level3, c.GlobalCode,
			c.Keywords, c.Manufacturers, c.SamplePartNumbers, c.InScope, encodeVector(c.Embedding))
		if err != nil {
			return fmt.Errorf("failed to insert commodity %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit commodities: %w", err)
	}

	return nil
}

const commodityColumns = `id, level1, level2, level3, global_code, keywords, manufacturers,
	sample_part_numbers, in_scope, embedding`

// GetCommodities returns the full catalog in insertion order, which is the
// tie-break order the embedding index relies on.
func (s *SQLiteStorage) GetCommodities(ctx context.Context) ([]model.ReferenceCommodity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryCommodities(ctx,
		`SELECT `+commodityColumns+` FROM reference_commodities ORDER BY id`)
}

// GetCommoditiesWithoutEmbedding returns entries still awaiting a vector.
func (s *SQLiteStorage) GetCommoditiesWithoutEmbedding(ctx context.Context) ([]model.ReferenceCommodity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryCommodities(ctx,
		`SELECT `+commodityColumns+` FROM reference_commodities WHERE embedding IS NULL OR length(embedding) = 0 ORDER BY id`)
}

func (s *SQLiteStorage) queryCommodities(ctx context.Context, query string) ([]model.ReferenceCommodity, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query commodities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.ReferenceCommodity
	for rows.Next() {
		var (
			c     model.ReferenceCommodity
			l1    sql.NullString
			l2    sql.NullString
			gc    sql.NullString
			kw    sql.NullString
			mfrs  sql.NullString
			parts sql.NullString
			blob  []byte
		)
		if err := rows.Scan(&c.ID, &l1, &l2, &c.Level3, &gc, &kw, &mfrs, &parts, &c.InScope, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan commodity: %w", err)
		}
		c.Level1 = l1.String
		c.Level2 = l2.String
		c.GlobalCode = gc.String
		c.Keywords = kw.String
		c.Manufacturers = mfrs.String
		c.SamplePartNumbers = parts.String
		c.Embedding, err = decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("failed to decode commodity embedding: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("commodity iteration failed: %w", err)
	}

	return result, nil
}

// SaveCommodityEmbedding stores a full-length vector for a catalog entry.
// Entries are never partially embedded; an empty vector is rejected.
func (s *SQLiteStorage) SaveCommodityEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding", ErrEmptySlice)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE reference_commodities SET embedding = ? WHERE id = ?`, encodeVector(embedding), id)
	if err != nil {
		return fmt.Errorf("failed to save commodity embedding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: commodity %d", common.ErrNotFound, id)
	}
	return nil
}
