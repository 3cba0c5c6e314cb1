package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sourcewise/commodityflow/internal/common"
	"github.com/sourcewise/commodityflow/internal/model"
)

// SaveRows persists the parsed inventory rows of a batch in input order.
// Position is assigned from slice order; it is the processing order every
// later pass depends on.
func (s *SQLiteStorage) SaveRows(ctx context.Context, batchID string, rows []model.InventoryRow) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return err
	}
	if err := validateRows(rows); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO inventory_rows (batch_id, position, item_code, part_number, manufacturer,
			description, site, standard_cost, last_purchase_price, last_po_price, usage_quantity,
			commodity, scope, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range rows {
		_, err := stmt.ExecContext(ctx, batchID, i, row.ItemCode, row.PartNumber, row.Manufacturer,
			row.Description, row.Site, row.StandardCost, row.LastPurchasePrice, row.LastPOPrice,
			row.UsageQuantity, row.Commodity, string(row.Scope), encodeVector(row.Embedding))
		if err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rows: %w", err)
	}

	return nil
}

const rowColumns = `id, batch_id, position, item_code, part_number, manufacturer, description,
	site, standard_cost, last_purchase_price, last_po_price, usage_quantity, commodity, scope,
	embedding, created_at`

// GetRows returns all rows of a batch in processing order.
func (s *SQLiteStorage) GetRows(ctx context.Context, batchID string) ([]model.InventoryRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rowColumns+` FROM inventory_rows WHERE batch_id = ? ORDER BY position`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.InventoryRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return result, nil
}

// GetRowByID retrieves a single inventory row.
func (s *SQLiteStorage) GetRowByID(ctx context.Context, id int64) (*model.InventoryRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+rowColumns+` FROM inventory_rows WHERE id = ?`, id)

	result, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: row %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateRowClassification overwrites the assigned commodity and scope.
func (s *SQLiteStorage) UpdateRowClassification(ctx context.Context, id int64, commodity string, scope model.Scope) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(commodity, "commodity"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE inventory_rows SET commodity = ?, scope = ? WHERE id = ?`,
		commodity, string(scope), id)
	if err != nil {
		return fmt.Errorf("failed to update row classification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: row %d", common.ErrNotFound, id)
	}
	return nil
}

// SaveRowEmbedding stores the computed description embedding on the row.
func (s *SQLiteStorage) SaveRowEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE inventory_rows SET embedding = ? WHERE id = ?`, encodeVector(embedding), id)
	if err != nil {
		return fmt.Errorf("failed to save row embedding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: row %d", common.ErrNotFound, id)
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (*model.InventoryRow, error) {
	var (
		row       model.InventoryRow
		part      sql.NullString
		mfr       sql.NullString
		site      sql.NullString
		commodity sql.NullString
		scope     sql.NullString
		blob      []byte
	)

	err := sc.Scan(&row.ID, &row.BatchID, &row.Position, &row.ItemCode, &part, &mfr,
		&row.Description, &site, &row.StandardCost, &row.LastPurchasePrice, &row.LastPOPrice,
		&row.UsageQuantity, &commodity, &scope, &blob, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	row.PartNumber = part.String
	row.Manufacturer = mfr.String
	row.Site = site.String
	row.Commodity = commodity.String
	row.Scope = model.Scope(scope.String)

	row.Embedding, err = decodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode row embedding: %w", err)
	}

	return &row, nil
}
