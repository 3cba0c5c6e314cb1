// Package model defines the core domain models used throughout the application.
package model

import "strings"

// Scope indicates whether a commodity falls inside the sourcing program.
type Scope string

// Scope constants.
const (
	ScopeIn  Scope = "In scope"
	ScopeOut Scope = "Out of scope"
)

// ReferenceCommodity is one entry of the commodity reference catalog.
// Embedding is either a full-length vector or nil; partially embedded
// entries never exist.
type ReferenceCommodity struct {
	Level1            string
	Level2            string
	Level3            string
	GlobalCode        string
	Keywords          string
	Manufacturers     string
	SamplePartNumbers string
	Embedding         []float32
	ID                int64
	InScope           bool
}

// ScopeLabel maps the catalog scope flag to its display form.
func (c *ReferenceCommodity) ScopeLabel() Scope {
	if c.InScope {
		return ScopeIn
	}
	return ScopeOut
}

// HasEmbedding reports whether the entry carries a usable vector.
func (c *ReferenceCommodity) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// EmbeddingText builds the catalog text that gets embedded for this entry.
// The field order is fixed; changing it invalidates every stored vector.
func (c *ReferenceCommodity) EmbeddingText() string {
	parts := []string{c.Level1, c.Level2, c.Level3, c.GlobalCode, c.Keywords, c.Manufacturers}
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(p))
		}
	}
	return strings.Join(nonEmpty, " ")
}
