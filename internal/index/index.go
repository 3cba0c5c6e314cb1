// Package index provides similarity search over the commodity reference
// catalog. Vectors are unit-normalized when they are produced, so dot
// product is cosine similarity; the index never re-normalizes.
package index

import (
	"sort"
	"strings"

	"github.com/sourcewise/commodityflow/internal/model"
)

// Default result counts for the two query styles.
const (
	DefaultK = 1
	ReviewK  = 10
)

// Match pairs a catalog entry with its similarity to a query vector.
type Match struct {
	Commodity *model.ReferenceCommodity
	Score     float64
}

// EmbeddingIndex holds the reference catalog in insertion order. For the
// catalog sizes this system sees (hundreds of entries) a brute-force scan is
// fine; the contract is the ordering, not the search method.
type EmbeddingIndex struct {
	entries []model.ReferenceCommodity
}

// New builds an index over the given catalog. Entries keep their insertion
// order, which is also the tie-break order for equal scores.
func New(catalog []model.ReferenceCommodity) *EmbeddingIndex {
	entries := make([]model.ReferenceCommodity, len(catalog))
	copy(entries, catalog)
	return &EmbeddingIndex{entries: entries}
}

// Len returns the number of catalog entries.
func (ix *EmbeddingIndex) Len() int {
	return len(ix.entries)
}

// FindMostSimilar returns up to k catalog entries ordered by descending
// similarity to query. Entries without an embedding sort last. A nil query
// or an empty catalog yields an empty result.
func (ix *EmbeddingIndex) FindMostSimilar(query []float32, k int) []Match {
	if len(query) == 0 || len(ix.entries) == 0 || k <= 0 {
		return nil
	}

	matches := make([]Match, 0, len(ix.entries))
	for i := range ix.entries {
		entry := &ix.entries[i]
		score := missingScore
		if entry.HasEmbedding() {
			score = dot(query, entry.Embedding)
		}
		matches = append(matches, Match{Commodity: entry, Score: score})
	}

	// Stable keeps insertion order for ties
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

// FindByLabelExact looks up a catalog entry by its level-3 label, ignoring
// case and surrounding whitespace. Returns nil when no entry matches.
func (ix *EmbeddingIndex) FindByLabelExact(name string) *model.ReferenceCommodity {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil
	}
	for i := range ix.entries {
		if strings.ToLower(strings.TrimSpace(ix.entries[i].Level3)) == want {
			return &ix.entries[i]
		}
	}
	return nil
}

// missingScore ranks entries lacking an embedding below every real cosine
// similarity, which is bounded to [-1, 1].
const missingScore = -2.0

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
