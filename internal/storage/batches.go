package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sourcewise/commodityflow/internal/common"
	"github.com/sourcewise/commodityflow/internal/model"
)

// CreateBatch persists a new processing batch.
func (s *SQLiteStorage) CreateBatch(ctx context.Context, batch *model.ProcessingBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBatch(batch); err != nil {
		return err
	}

	if batch.Status == "" {
		batch.Status = model.BatchPending
	}

	mapping, err := json.Marshal(batch.Mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal column mapping: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batches (id, filename, status, column_mapping, demand_lookup, component_grade, volume_multiplier)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.Filename, string(batch.Status), string(mapping),
		batch.Options.DemandLookup, string(batch.Options.ComponentGrade), batch.Options.VolumeMultiplier)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// GetBatch retrieves a batch by its identifier.
func (s *SQLiteStorage) GetBatch(ctx context.Context, id string) (*model.ProcessingBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var (
		batch    model.ProcessingBatch
		status   string
		mapping  sql.NullString
		grade    string
		artifact sql.NullString
		failure  sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, status, column_mapping, demand_lookup, component_grade,
		       volume_multiplier, artifact_path, failure_reason, created_at, updated_at
		FROM batches WHERE id = ?`, id).Scan(
		&batch.ID, &batch.Filename, &status, &mapping,
		&batch.Options.DemandLookup, &grade, &batch.Options.VolumeMultiplier,
		&artifact, &failure, &batch.CreatedAt, &batch.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: batch %s", common.ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	batch.Status = model.BatchStatus(status)
	batch.Options.ComponentGrade = model.ComponentGrade(grade)
	batch.ArtifactPath = artifact.String
	batch.FailureReason = failure.String

	if mapping.Valid && mapping.String != "" && mapping.String != "null" {
		if err := json.Unmarshal([]byte(mapping.String), &batch.Mapping); err != nil {
			return nil, fmt.Errorf("failed to unmarshal column mapping: %w", err)
		}
	}

	return &batch, nil
}

// UpdateBatchStatus transitions a batch to the given status. The failure
// reason is only stored for failed batches.
func (s *SQLiteStorage) UpdateBatchStatus(ctx context.Context, id string, status model.BatchStatus, failureReason string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if status != model.BatchFailed {
		failureReason = ""
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE batches SET status = ?, failure_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, string(status), failureReason, id)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	return requireRowAffected(result, id)
}

// SetBatchArtifact records the generated output artifact and marks the batch
// completed in one step, preserving the invariant that only completed
// batches carry an artifact path.
func (s *SQLiteStorage) SetBatchArtifact(ctx context.Context, id string, artifactPath string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE batches SET artifact_path = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, artifactPath, string(model.BatchCompleted), id)
	if err != nil {
		return fmt.Errorf("failed to set batch artifact: %w", err)
	}

	return requireRowAffected(result, id)
}

// SaveColumnMapping stores the committed header-to-field mapping.
func (s *SQLiteStorage) SaveColumnMapping(ctx context.Context, id string, mapping model.ColumnMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	encoded, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal column mapping: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE batches SET column_mapping = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, string(encoded), id)
	if err != nil {
		return fmt.Errorf("failed to save column mapping: %w", err)
	}

	return requireRowAffected(result, id)
}

func requireRowAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: batch %s", common.ErrBatchNotFound, id)
	}
	return nil
}
