// Package auxdata implements the auxiliary relational data source behind
// batch enrichment: quote history, cross-references, demand, and minimum
// prices. The live implementation reads a PostgreSQL reporting database;
// the fixture implementation backs tests and offline runs.
package auxdata

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/service"
)

// PostgresSource reads enrichment data from the reporting database. All
// lookups are single batched queries with parameterized identifier lists;
// identifiers never reach the SQL text, so special characters are safe.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource connects to the reporting database at dsn.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to reporting database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reporting database unreachable: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}

// QuoteHistory returns every historical quote line for the given item codes.
// Deduplication to the most recent line per item is the caller's concern.
func (s *PostgresSource) QuoteHistory(ctx context.Context, itemCodes []string) ([]service.QuoteRecord, error) {
	if len(itemCodes) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, item_code, part_number, log_date, unit_price
		FROM quote_history
		WHERE item_code = ANY($1)`, itemCodes)
	if err != nil {
		return nil, fmt.Errorf("quote history query failed: %w", err)
	}
	defer rows.Close()

	var records []service.QuoteRecord
	for rows.Next() {
		var rec service.QuoteRecord
		if err := rows.Scan(&rec.ID, &rec.ItemCode, &rec.PartNumber, &rec.LogDate, &rec.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan quote record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("quote history iteration failed: %w", err)
	}
	return records, nil
}

// CrossReferences maps manufacturer part numbers to internal equivalents.
// GradeCommercial restricts the mapping to commercial-grade components;
// GradeAll also admits automotive and medical grades.
func (s *PostgresSource) CrossReferences(ctx context.Context, partNumbers []string, grade model.ComponentGrade) (map[string]string, error) {
	if len(partNumbers) == 0 {
		return map[string]string{}, nil
	}

	query := `
		SELECT mfr_part_number, internal_part_number
		FROM cross_reference
		WHERE mfr_part_number = ANY($1)`
	args := []any{partNumbers}
	if grade != model.GradeAll {
		query += ` AND component_grade = $2`
		args = append(args, string(model.GradeCommercial))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cross-reference query failed: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]string)
	for rows.Next() {
		var part, internal string
		if err := rows.Scan(&part, &internal); err != nil {
			return nil, fmt.Errorf("failed to scan cross-reference: %w", err)
		}
		refs[part] = internal
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cross-reference iteration failed: %w", err)
	}
	return refs, nil
}

// Demand returns the total demand quantity per item code.
func (s *PostgresSource) Demand(ctx context.Context, itemCodes []string) (map[string]int64, error) {
	if len(itemCodes) == 0 {
		return map[string]int64{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT item_code, SUM(quantity)
		FROM demand_lines
		WHERE item_code = ANY($1)
		GROUP BY item_code`, itemCodes)
	if err != nil {
		return nil, fmt.Errorf("demand query failed: %w", err)
	}
	defer rows.Close()

	demand := make(map[string]int64)
	for rows.Next() {
		var code string
		var qty int64
		if err := rows.Scan(&code, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan demand line: %w", err)
		}
		demand[code] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("demand iteration failed: %w", err)
	}
	return demand, nil
}

// MinimumPrices returns the lowest strictly-positive catalog price per item
// code. Items with no positive price are omitted.
func (s *PostgresSource) MinimumPrices(ctx context.Context, itemCodes []string) (map[string]float64, error) {
	if len(itemCodes) == 0 {
		return map[string]float64{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT item_code, MIN(unit_price)
		FROM price_catalog
		WHERE item_code = ANY($1) AND unit_price > 0
		GROUP BY item_code`, itemCodes)
	if err != nil {
		return nil, fmt.Errorf("minimum price query failed: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var code string
		var price float64
		if err := rows.Scan(&code, &price); err != nil {
			return nil, fmt.Errorf("failed to scan minimum price: %w", err)
		}
		prices[code] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("minimum price iteration failed: %w", err)
	}
	return prices, nil
}
