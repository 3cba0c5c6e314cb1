// Package enrich builds the batch-scoped lookup caches that feed row
// computation. A cache is built once per batch generation from batched
// external lookups and discarded afterwards; it is never shared across
// batches because its contents depend on per-batch toggles.
package enrich

import "github.com/sourcewise/commodityflow/internal/service"

// Cache holds the enrichment facts for one batch, keyed by item code or
// manufacturer part number. It is a plain value object: built once, then
// read-only during row computation.
type Cache struct {
	quotes    map[string]service.QuoteRecord
	crossRefs map[string]string
	demand    map[string]int64
	minPrices map[string]float64
}

// NewCache creates an empty cache. Builder fills it; tests may populate it
// through the With helpers.
func NewCache() *Cache {
	return &Cache{
		quotes:    make(map[string]service.QuoteRecord),
		crossRefs: make(map[string]string),
		demand:    make(map[string]int64),
		minPrices: make(map[string]float64),
	}
}

// PreviouslyQuoted reports whether the item has real quote history. Rows
// whose part number equals the item code carry a fallback sentinel instead
// of a real part number and are never treated as quoted.
func (c *Cache) PreviouslyQuoted(itemCode, partNumber string) bool {
	if partNumber != "" && partNumber == itemCode {
		return false
	}
	_, ok := c.quotes[itemCode]
	return ok
}

// QuotedPrice returns the unit price of the most recent quote for the item.
func (c *Cache) QuotedPrice(itemCode, partNumber string) (float64, bool) {
	if partNumber != "" && partNumber == itemCode {
		return 0, false
	}
	q, ok := c.quotes[itemCode]
	if !ok {
		return 0, false
	}
	return q.UnitPrice, true
}

// CrossReference returns the internal equivalent part number, if any.
func (c *Cache) CrossReference(partNumber string) (string, bool) {
	ref, ok := c.crossRefs[partNumber]
	return ref, ok
}

// Demand returns the total demand recorded for the item.
func (c *Cache) Demand(itemCode string) (int64, bool) {
	d, ok := c.demand[itemCode]
	return d, ok
}

// MinPrice returns the minimum catalog price recorded for the item.
func (c *Cache) MinPrice(itemCode string) (float64, bool) {
	p, ok := c.minPrices[itemCode]
	return p, ok
}

// WithQuote seeds quote history, for tests.
func (c *Cache) WithQuote(record service.QuoteRecord) *Cache {
	c.quotes[record.ItemCode] = record
	return c
}

// WithCrossReference seeds a cross-reference entry, for tests.
func (c *Cache) WithCrossReference(partNumber, internal string) *Cache {
	c.crossRefs[partNumber] = internal
	return c
}

// WithDemand seeds a demand entry, for tests.
func (c *Cache) WithDemand(itemCode string, demand int64) *Cache {
	c.demand[itemCode] = demand
	return c
}

// WithMinPrice seeds a minimum-price entry, for tests.
func (c *Cache) WithMinPrice(itemCode string, price float64) *Cache {
	c.minPrices[itemCode] = price
	return c
}
