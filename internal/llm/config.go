// Package llm provides the embedding and completion clients backing the
// classification pipeline, plus fixture implementations for offline use.
package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/sourcewise/commodityflow/internal/service"
)

// EmbeddingDimensions is the vector size of the embedding model in use.
const EmbeddingDimensions = 1536

// Config holds the settings for the external AI providers.
type Config struct {
	Provider        string
	APIKey          string
	EmbeddingModel  string
	CompletionModel string
	Temperature     float64
	MaxTokens       int
	CacheTTL        time.Duration
}

// NewEmbeddingProvider creates an embedding provider based on the configured
// provider name.
func NewEmbeddingProvider(cfg Config) (service.EmbeddingProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIEmbedder(cfg)
	case "fixture":
		return NewFixtureEmbedder(nil), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// NewCompletionClient creates a completion client based on the configured
// provider name.
func NewCompletionClient(cfg Config) (service.CompletionClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAICompleter(cfg)
	case "fixture":
		return NewFixtureCompleter(""), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Provider)
	}
}
