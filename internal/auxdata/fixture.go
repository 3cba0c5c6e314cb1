package auxdata

import (
	"context"

	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/service"
)

// FixtureSource is an in-memory service.AuxiliaryDataSource for tests and
// offline runs. Zero value is usable and returns empty results everywhere.
type FixtureSource struct {
	Quotes    []service.QuoteRecord
	CrossRefs map[string]string
	Demands   map[string]int64
	MinPrices map[string]float64

	// Per-lookup error injection.
	QuoteErr  error
	CrossErr  error
	DemandErr error
	PriceErr  error
}

// QuoteHistory returns the fixture quotes matching the requested item codes.
func (f *FixtureSource) QuoteHistory(_ context.Context, itemCodes []string) ([]service.QuoteRecord, error) {
	if f.QuoteErr != nil {
		return nil, f.QuoteErr
	}
	wanted := make(map[string]bool, len(itemCodes))
	for _, code := range itemCodes {
		wanted[code] = true
	}
	var out []service.QuoteRecord
	for _, q := range f.Quotes {
		if wanted[q.ItemCode] {
			out = append(out, q)
		}
	}
	return out, nil
}

// CrossReferences returns the fixture mapping for the requested parts.
func (f *FixtureSource) CrossReferences(_ context.Context, partNumbers []string, _ model.ComponentGrade) (map[string]string, error) {
	if f.CrossErr != nil {
		return nil, f.CrossErr
	}
	out := make(map[string]string)
	for _, part := range partNumbers {
		if internal, ok := f.CrossRefs[part]; ok {
			out[part] = internal
		}
	}
	return out, nil
}

// Demand returns fixture demand for the requested item codes.
func (f *FixtureSource) Demand(_ context.Context, itemCodes []string) (map[string]int64, error) {
	if f.DemandErr != nil {
		return nil, f.DemandErr
	}
	out := make(map[string]int64)
	for _, code := range itemCodes {
		if qty, ok := f.Demands[code]; ok {
			out[code] = qty
		}
	}
	return out, nil
}

// MinimumPrices returns fixture prices for the requested item codes.
func (f *FixtureSource) MinimumPrices(_ context.Context, itemCodes []string) (map[string]float64, error) {
	if f.PriceErr != nil {
		return nil, f.PriceErr
	}
	out := make(map[string]float64)
	for _, code := range itemCodes {
		if price, ok := f.MinPrices[code]; ok {
			out[code] = price
		}
	}
	return out, nil
}
