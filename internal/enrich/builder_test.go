package enrich

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSource is a configurable AuxiliaryDataSource for builder tests.
type mockSource struct {
	quotes       []service.QuoteRecord
	crossRefs    map[string]string
	demand       map[string]int64
	minPrices    map[string]float64
	quoteErr     error
	crossErr     error
	demandErr    error
	priceErr     error
	quoteCalls   [][]string
	demandCalls  int
	gradeQueried model.ComponentGrade
}

func (m *mockSource) QuoteHistory(_ context.Context, itemCodes []string) ([]service.QuoteRecord, error) {
	m.quoteCalls = append(m.quoteCalls, itemCodes)
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	var out []service.QuoteRecord
	wanted := make(map[string]bool, len(itemCodes))
	for _, code := range itemCodes {
		wanted[code] = true
	}
	for _, q := range m.quotes {
		if wanted[q.ItemCode] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *mockSource) CrossReferences(_ context.Context, _ []string, grade model.ComponentGrade) (map[string]string, error) {
	m.gradeQueried = grade
	if m.crossErr != nil {
		return nil, m.crossErr
	}
	return m.crossRefs, nil
}

func (m *mockSource) Demand(_ context.Context, _ []string) (map[string]int64, error) {
	m.demandCalls++
	if m.demandErr != nil {
		return nil, m.demandErr
	}
	return m.demand, nil
}

func (m *mockSource) MinimumPrices(_ context.Context, _ []string) (map[string]float64, error) {
	if m.priceErr != nil {
		return nil, m.priceErr
	}
	return m.minPrices, nil
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildKeepsMostRecentQuote(t *testing.T) {
	source := &mockSource{
		quotes: []service.QuoteRecord{
			{ItemCode: "ITEM001", PartNumber: "PN-1", LogDate: day(1), UnitPrice: 10, ID: 1},
			{ItemCode: "ITEM001", PartNumber: "PN-1", LogDate: day(5), UnitPrice: 12, ID: 2},
			{ItemCode: "ITEM001", PartNumber: "PN-1", LogDate: day(3), UnitPrice: 11, ID: 3},
		},
	}
	rows := []model.InventoryRow{{ItemCode: "ITEM001", PartNumber: "PN-1", Description: "box"}}

	cache := NewBuilder(source).Build(context.Background(), rows, model.DefaultBatchOptions())

	assert.True(t, cache.PreviouslyQuoted("ITEM001", "PN-1"))
	price, ok := cache.QuotedPrice("ITEM001", "PN-1")
	require.True(t, ok)
	assert.InDelta(t, 12, price, 0.001)
}

func TestBuildQuoteTieBreakLowestID(t *testing.T) {
	source := &mockSource{
		quotes: []service.QuoteRecord{
			{ItemCode: "ITEM001", LogDate: day(5), UnitPrice: 20, ID: 7},
			{ItemCode: "ITEM001", LogDate: day(5), UnitPrice: 30, ID: 3},
		},
	}
	rows := []model.InventoryRow{{ItemCode: "ITEM001", PartNumber: "PN-1", Description: "box"}}

	cache := NewBuilder(source).Build(context.Background(), rows, model.DefaultBatchOptions())

	price, ok := cache.QuotedPrice("ITEM001", "PN-1")
	require.True(t, ok)
	assert.InDelta(t, 30, price, 0.001)
}

func TestBuildExcludesSentinelPartNumbers(t *testing.T) {
	source := &mockSource{
		quotes: []service.QuoteRecord{
			{ItemCode: "ITEM001", LogDate: day(1), UnitPrice: 10, ID: 1},
		},
	}
	// Part number equals item code: the "no real part number" sentinel
	rows := []model.InventoryRow{{ItemCode: "ITEM001", PartNumber: "ITEM001", Description: "box"}}

	cache := NewBuilder(source).Build(context.Background(), rows, model.DefaultBatchOptions())

	assert.False(t, cache.PreviouslyQuoted("ITEM001", "ITEM001"))
	require.Len(t, source.quoteCalls, 0, "sentinel rows should not reach the quote lookup")
}

func TestBuildSentinelRowFirstStillQuotesRealPartRow(t *testing.T) {
	source := &mockSource{
		quotes: []service.QuoteRecord{
			{ItemCode: "ITEM001", PartNumber: "PN-9", LogDate: day(2), UnitPrice: 15, ID: 1},
		},
	}
	// Duplicate item code: the sentinel row comes first, the real-part row
	// after it. The real-part row must still see the quote history.
	rows := []model.InventoryRow{
		{ItemCode: "ITEM001", PartNumber: "ITEM001", Description: "box"},
		{ItemCode: "ITEM001", PartNumber: "PN-9", Description: "box"},
	}

	cache := NewBuilder(source).Build(context.Background(), rows, model.DefaultBatchOptions())

	assert.True(t, cache.PreviouslyQuoted("ITEM001", "PN-9"))
	price, ok := cache.QuotedPrice("ITEM001", "PN-9")
	require.True(t, ok)
	assert.InDelta(t, 15, price, 0.001)

	// The sentinel row itself stays unquoted on the read side
	assert.False(t, cache.PreviouslyQuoted("ITEM001", "ITEM001"))
}

func TestBuildDemandToggle(t *testing.T) {
	source := &mockSource{demand: map[string]int64{"ITEM001": 500}}
	rows := []model.InventoryRow{{ItemCode: "ITEM001", PartNumber: "PN-1", Description: "box"}}

	opts := model.DefaultBatchOptions()
	opts.DemandLookup = false
	cache := NewBuilder(source).Build(context.Background(), rows, opts)

	assert.Equal(t, 0, source.demandCalls, "demand lookup should be skipped entirely")
	_, ok := cache.Demand("ITEM001")
	assert.False(t, ok)

	// Price lookup still runs independently of the demand toggle
	source.minPrices = map[string]float64{"ITEM001": 9.5}
	cache = NewBuilder(source).Build(context.Background(), rows, opts)
	price, ok := cache.MinPrice("ITEM001")
	require.True(t, ok)
	assert.InDelta(t, 9.5, price, 0.001)
}

func TestBuildGradeFilterPassedThrough(t *testing.T) {
	source := &mockSource{crossRefs: map[string]string{"PN-1": "INT-1"}}
	rows := []model.InventoryRow{{ItemCode: "ITEM001", PartNumber: "PN-1", Description: "box"}}

	opts := model.DefaultBatchOptions()
	opts.ComponentGrade = model.GradeAll
	cache := NewBuilder(source).Build(context.Background(), rows, opts)

	assert.Equal(t, model.GradeAll, source.gradeQueried)
	ref, ok := cache.CrossReference("PN-1")
	require.True(t, ok)
	assert.Equal(t, "INT-1", ref)
}

func TestBuildLookupFailureDegradesToEmptySubCache(t *testing.T) {
	source := &mockSource{
		quoteErr:  fmt.Errorf("connection refused"),
		minPrices: map[string]float64{"ITEM001": 5},
	}
	rows := []model.InventoryRow{{ItemCode: "ITEM001", PartNumber: "PN-1", Description: "box"}}

	cache := NewBuilder(source).Build(context.Background(), rows, model.DefaultBatchOptions())

	assert.False(t, cache.PreviouslyQuoted("ITEM001", "PN-1"))

	// Other sub-caches are unaffected by the quote outage
	price, ok := cache.MinPrice("ITEM001")
	require.True(t, ok)
	assert.InDelta(t, 5, price, 0.001)
}

func TestChunks(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	got := chunks(ids, 2)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b"}, got[0])
	assert.Equal(t, []string{"e"}, got[2])

	assert.Nil(t, chunks(nil, 2))
}
