package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcewise/commodityflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrEmptySlice     = errors.New("slice cannot be empty")
	ErrInvalidRow     = errors.New("invalid inventory row")
	ErrInvalidBatch   = errors.New("invalid batch")
	ErrInvalidCatalog = errors.New("invalid reference commodity")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateBatch validates a processing batch.
func validateBatch(batch *model.ProcessingBatch) error {
	if batch == nil {
		return fmt.Errorf("%w: batch", ErrNilParameter)
	}
	if batch.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidBatch)
	}
	if batch.Filename == "" {
		return fmt.Errorf("%w: missing filename", ErrInvalidBatch)
	}
	return nil
}

// validateRows validates a slice of inventory rows.
func validateRows(rows []model.InventoryRow) error {
	if rows == nil {
		return fmt.Errorf("%w: rows", ErrNilParameter)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: rows", ErrEmptySlice)
	}

	for i, row := range rows {
		if err := validateRow(&row); err != nil {
			return fmt.Errorf("row at index %d: %w", i, err)
		}
	}
	return nil
}

// validateRow validates a single inventory row.
func validateRow(row *model.InventoryRow) error {
	if row == nil {
		return fmt.Errorf("%w: row", ErrNilParameter)
	}
	if row.ItemCode == "" {
		return fmt.Errorf("%w: missing item code", ErrInvalidRow)
	}
	if row.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidRow)
	}
	if row.UsageQuantity != nil && *row.UsageQuantity < 0 {
		return fmt.Errorf("%w: negative usage quantity", ErrInvalidRow)
	}
	return nil
}

// validateCommodities validates catalog entries before a bulk load.
func validateCommodities(commodities []model.ReferenceCommodity) error {
	if len(commodities) == 0 {
		return fmt.Errorf("%w: commodities", ErrEmptySlice)
	}
	for i, c := range commodities {
		if strings.TrimSpace(c.Level3) == "" {
			return fmt.Errorf("%w: entry %d missing level3 description", ErrInvalidCatalog, i)
		}
	}
	return nil
}
