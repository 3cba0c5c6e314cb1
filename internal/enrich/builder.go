package enrich

import (
	"context"
	"log/slog"

	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/service"
)

// LookupBatchSize bounds the identifier count per external round-trip.
const LookupBatchSize = 200

// Builder constructs enrichment caches from the auxiliary data source.
type Builder struct {
	source    service.AuxiliaryDataSource
	batchSize int
}

// NewBuilder creates a cache builder over the given data source.
func NewBuilder(source service.AuxiliaryDataSource) *Builder {
	return &Builder{source: source, batchSize: LookupBatchSize}
}

// Build runs the batched lookups for the full row set and returns the
// populated cache. A failed lookup logs and leaves that sub-cache empty; a
// partial external outage never fails the pipeline.
func (b *Builder) Build(ctx context.Context, rows []model.InventoryRow, opts model.BatchOptions) *Cache {
	cache := NewCache()

	itemCodes := make([]string, 0, len(rows))
	quoteCodes := make([]string, 0, len(rows))
	partNumbers := make([]string, 0, len(rows))
	seenItem := make(map[string]bool, len(rows))
	seenQuote := make(map[string]bool, len(rows))
	seenPart := make(map[string]bool, len(rows))

	for _, row := range rows {
		if row.ItemCode == "" {
			continue
		}
		if !seenItem[row.ItemCode] {
			seenItem[row.ItemCode] = true
			itemCodes = append(itemCodes, row.ItemCode)
		}
		// Part number equal to the item code is the "no real part number"
		// sentinel; such rows have no quote history to find. Duplicate item
		// codes mix sentinel and real-part rows, so any row carrying a real
		// part number qualifies its item code for the lookup.
		if row.PartNumber != row.ItemCode && !seenQuote[row.ItemCode] {
			seenQuote[row.ItemCode] = true
			quoteCodes = append(quoteCodes, row.ItemCode)
		}
		if row.PartNumber != "" && row.PartNumber != row.ItemCode && !seenPart[row.PartNumber] {
			seenPart[row.PartNumber] = true
			partNumbers = append(partNumbers, row.PartNumber)
		}
	}

	b.buildQuotes(ctx, cache, quoteCodes)
	b.buildCrossRefs(ctx, cache, partNumbers, opts.ComponentGrade)
	if opts.DemandLookup {
		b.buildDemand(ctx, cache, itemCodes)
	}
	b.buildMinPrices(ctx, cache, itemCodes)

	return cache
}

func (b *Builder) buildQuotes(ctx context.Context, cache *Cache, itemCodes []string) {
	for _, chunk := range chunks(itemCodes, b.batchSize) {
		records, err := b.source.QuoteHistory(ctx, chunk)
		if err != nil {
			slog.Warn("Quote history lookup failed, sub-cache left empty",
				"sub_cache", "quotes", "items", len(chunk), "error", err)
			cache.quotes = make(map[string]service.QuoteRecord)
			return
		}
		for _, rec := range records {
			existing, ok := cache.quotes[rec.ItemCode]
			if !ok || moreRecent(rec, existing) {
				cache.quotes[rec.ItemCode] = rec
			}
		}
	}
}

// moreRecent prefers the later log date; equal dates break ties on the
// lowest internal id so rebuilds are deterministic.
func moreRecent(a, b service.QuoteRecord) bool {
	if !a.LogDate.Equal(b.LogDate) {
		return a.LogDate.After(b.LogDate)
	}
	return a.ID < b.ID
}

func (b *Builder) buildCrossRefs(ctx context.Context, cache *Cache, partNumbers []string, grade model.ComponentGrade) {
	for _, chunk := range chunks(partNumbers, b.batchSize) {
		refs, err := b.source.CrossReferences(ctx, chunk, grade)
		if err != nil {
			slog.Warn("Cross-reference lookup failed, sub-cache left empty",
				"sub_cache", "cross_reference", "parts", len(chunk), "error", err)
			cache.crossRefs = make(map[string]string)
			return
		}
		for part, internal := range refs {
			cache.crossRefs[part] = internal
		}
	}
}

func (b *Builder) buildDemand(ctx context.Context, cache *Cache, itemCodes []string) {
	for _, chunk := range chunks(itemCodes, b.batchSize) {
		demand, err := b.source.Demand(ctx, chunk)
		if err != nil {
			slog.Warn("Demand lookup failed, sub-cache left empty",
				"sub_cache", "demand", "items", len(chunk), "error", err)
			cache.demand = make(map[string]int64)
			return
		}
		for item, total := range demand {
			cache.demand[item] = total
		}
	}
}

func (b *Builder) buildMinPrices(ctx context.Context, cache *Cache, itemCodes []string) {
	for _, chunk := range chunks(itemCodes, b.batchSize) {
		prices, err := b.source.MinimumPrices(ctx, chunk)
		if err != nil {
			slog.Warn("Minimum price lookup failed, sub-cache left empty",
				"sub_cache", "min_price", "items", len(chunk), "error", err)
			cache.minPrices = make(map[string]float64)
			return
		}
		for item, price := range prices {
			cache.minPrices[item] = price
		}
	}
}

// chunks splits ids into slices of at most size elements.
func chunks(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
