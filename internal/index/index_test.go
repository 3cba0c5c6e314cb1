package index

import (
	"testing"

	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func axisCatalog() []model.ReferenceCommodity {
	return []model.ReferenceCommodity{
		{ID: 1, Level2: "Packaging", Level3: "A", Embedding: []float32{1, 0, 0}, InScope: true},
		{ID: 2, Level2: "Labels", Level3: "B", Embedding: []float32{0, 1, 0}, InScope: true},
		{ID: 3, Level2: "Hardware", Level3: "C", Embedding: []float32{0, 0, 1}},
	}
}

func TestFindMostSimilarRanking(t *testing.T) {
	ix := New(axisCatalog())

	tests := []struct {
		name  string
		query []float32
		want  string
	}{
		{name: "near first axis", query: []float32{0.9, 0.1, 0}, want: "A"},
		{name: "near second axis", query: []float32{0.1, 0.9, 0}, want: "B"},
		{name: "near third axis", query: []float32{0.1, 0.1, 0.8}, want: "C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := ix.FindMostSimilar(tt.query, 1)
			require.Len(t, matches, 1)
			assert.Equal(t, tt.want, matches[0].Commodity.Level3)
		})
	}
}

func TestFindMostSimilarOrdering(t *testing.T) {
	ix := New(axisCatalog())

	matches := ix.FindMostSimilar([]float32{0.9, 0.3, 0.1}, 3)
	require.Len(t, matches, 3)
	assert.Equal(t, "A", matches[0].Commodity.Level3)
	assert.Equal(t, "B", matches[1].Commodity.Level3)
	assert.Equal(t, "C", matches[2].Commodity.Level3)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestFindMostSimilarNilQuery(t *testing.T) {
	ix := New(axisCatalog())
	assert.Empty(t, ix.FindMostSimilar(nil, 1))
}

func TestFindMostSimilarEmptyCatalog(t *testing.T) {
	ix := New(nil)
	assert.Empty(t, ix.FindMostSimilar([]float32{1, 0, 0}, 1))
}

func TestFindMostSimilarMissingEmbeddingSortsLast(t *testing.T) {
	catalog := axisCatalog()
	catalog[0].Embedding = nil
	ix := New(catalog)

	matches := ix.FindMostSimilar([]float32{1, 0, 0}, 3)
	require.Len(t, matches, 3)
	assert.Equal(t, "A", matches[2].Commodity.Level3)
}

func TestFindMostSimilarStableTieBreak(t *testing.T) {
	catalog := []model.ReferenceCommodity{
		{ID: 1, Level3: "first", Embedding: []float32{1, 0, 0}},
		{ID: 2, Level3: "second", Embedding: []float32{1, 0, 0}},
	}
	ix := New(catalog)

	matches := ix.FindMostSimilar([]float32{1, 0, 0}, 2)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Commodity.Level3)
	assert.Equal(t, "second", matches[1].Commodity.Level3)
}

func TestFindMostSimilarLimitsToK(t *testing.T) {
	ix := New(axisCatalog())
	matches := ix.FindMostSimilar([]float32{0.5, 0.5, 0.5}, 2)
	assert.Len(t, matches, 2)
}

func TestFindByLabelExact(t *testing.T) {
	catalog := []model.ReferenceCommodity{
		{ID: 1, Level3: "PACK BROWN BOX", InScope: true},
		{ID: 2, Level3: "HARDWARE"},
	}
	ix := New(catalog)

	found := ix.FindByLabelExact("  pack brown box ")
	require.NotNil(t, found)
	assert.Equal(t, int64(1), found.ID)

	assert.Nil(t, ix.FindByLabelExact("missing"))
	assert.Nil(t, ix.FindByLabelExact(""))
}
