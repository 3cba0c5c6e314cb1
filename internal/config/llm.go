package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/sourcewise/commodityflow/internal/llm"
)

// LoadLLMConfig loads AI provider settings from Viper with environment
// fallbacks. Defaults target OpenAI; set llm.provider to "fixture" for
// offline runs.
func LoadLLMConfig() llm.Config {
	cfg := llm.Config{
		Provider:        viper.GetString("llm.provider"),
		APIKey:          viper.GetString("llm.api_key"),
		EmbeddingModel:  viper.GetString("llm.embedding_model"),
		CompletionModel: viper.GetString("llm.completion_model"),
		Temperature:     viper.GetFloat64("llm.temperature"),
		MaxTokens:       viper.GetInt("llm.max_tokens"),
		CacheTTL:        viper.GetDuration("llm.cache_ttl"),
	}

	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}

	return cfg
}
