// Package engine orchestrates batch processing: per-row output computation,
// the sequential batch worker, and the post-completion auto-correction job.
package engine

import (
	"fmt"
	"math"

	"github.com/sourcewise/commodityflow/internal/enrich"
	"github.com/sourcewise/commodityflow/internal/model"
)

// EARThreshold is the estimated-annual-revenue value separating high-value
// items from the rest, in currency units.
const EARThreshold = 100000.0

// DuplicationTracker records which item codes a batch has already seen. Its
// lifetime is exactly one batch run; it is never shared across batches.
type DuplicationTracker struct {
	seen map[string]bool
}

// NewDuplicationTracker creates an empty tracker.
func NewDuplicationTracker() *DuplicationTracker {
	return &DuplicationTracker{seen: make(map[string]bool)}
}

// Flag returns Unique for the first occurrence of an item code and AML for
// every later one, mutating the tracker.
func (t *DuplicationTracker) Flag(itemCode string) model.DuplicationFlag {
	if t.seen[itemCode] {
		return model.FlagAML
	}
	t.seen[itemCode] = true
	return model.FlagUnique
}

// RowComputer derives final output rows from classified rows and the batch
// enrichment cache.
type RowComputer struct {
	opts model.BatchOptions
}

// NewRowComputer creates a computer honoring the batch's feature toggles.
func NewRowComputer(opts model.BatchOptions) *RowComputer {
	if opts.VolumeMultiplier <= 0 {
		opts.VolumeMultiplier = 1.0
	}
	return &RowComputer{opts: opts}
}

// ComputeRow produces the output row for one classified inventory row. The
// tracker must be fed rows in processing order; the duplication flag depends
// on it.
func (c *RowComputer) ComputeRow(row *model.InventoryRow, cls model.Classification, cache *enrich.Cache, tracker *DuplicationTracker) model.OutputRow {
	out := model.OutputRow{
		ItemCode:     row.ItemCode,
		PartNumber:   row.PartNumber,
		Manufacturer: row.Manufacturer,
		Description:  row.Description,
		Site:         row.Site,
		Commodity:    cls.Commodity,
		Scope:        cls.Scope,
		Duplication:  tracker.Flag(row.ItemCode),
	}

	out.PreviouslyQuoted = cache.PreviouslyQuoted(row.ItemCode, row.PartNumber)
	if out.PreviouslyQuoted {
		// A human-confirmed prior quote outranks the classifier.
		out.Scope = model.ScopeIn
	}

	if ref, ok := cache.CrossReference(row.PartNumber); ok {
		out.CrossReference = ref
	}
	if demand, ok := cache.Demand(row.ItemCode); ok {
		// Round to nearest: truncation would lose half a unit on odd
		// demand with fractional multipliers.
		scaled := int64(math.Round(float64(demand) * c.opts.VolumeMultiplier))
		out.TotalDemand = &scaled
	}

	ear, usesFallback := c.computeEAR(row, cache)
	out.EAR = ear
	out.EARUsesFallback = usesFallback
	out.ThresholdStatus = thresholdStatus(ear)

	return out
}

// computeEAR returns usage x the minimum strictly-positive unit price, or nil
// when usage is absent or no price is positive. A price of exactly 0 means
// "not provided". The fallback flag is set when only a cache-derived price
// was positive.
func (c *RowComputer) computeEAR(row *model.InventoryRow, cache *enrich.Cache) (*float64, bool) {
	usage := row.Usage()
	if usage <= 0 {
		return nil, false
	}

	primary := minPositive(
		derefOrZero(row.StandardCost),
		derefOrZero(row.LastPurchasePrice),
		derefOrZero(row.LastPOPrice),
	)

	var cachePrices []float64
	if price, ok := cache.MinPrice(row.ItemCode); ok {
		cachePrices = append(cachePrices, price)
	}
	if price, ok := cache.QuotedPrice(row.ItemCode, row.PartNumber); ok {
		cachePrices = append(cachePrices, price)
	}
	fallback := minPositive(cachePrices...)

	unit := minPositive(primary, fallback)
	if unit <= 0 {
		return nil, false
	}

	ear := float64(usage) * unit
	return &ear, primary <= 0 && fallback > 0
}

// thresholdStatus renders the threshold message for the computed EAR.
func thresholdStatus(ear *float64) string {
	if ear == nil {
		return "Insufficient data to calculate threshold"
	}
	if *ear >= EARThreshold {
		return fmt.Sprintf("Exceeds threshold ($%.2f)", *ear)
	}
	return fmt.Sprintf("Below threshold ($%.2f)", *ear)
}

// minPositive returns the smallest strictly-positive value, or 0 when none
// of the inputs are positive.
func minPositive(values ...float64) float64 {
	best := 0.0
	for _, v := range values {
		if v <= 0 {
			continue
		}
		if best == 0 || v < best {
			best = v
		}
	}
	return best
}

func derefOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
