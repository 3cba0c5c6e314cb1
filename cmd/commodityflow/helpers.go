package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/sourcewise/commodityflow/internal/auxdata"
	"github.com/sourcewise/commodityflow/internal/classify"
	"github.com/sourcewise/commodityflow/internal/common"
	"github.com/sourcewise/commodityflow/internal/config"
	"github.com/sourcewise/commodityflow/internal/index"
	"github.com/sourcewise/commodityflow/internal/llm"
	"github.com/sourcewise/commodityflow/internal/service"
	"github.com/sourcewise/commodityflow/internal/storage"
)

// initStorage opens the local database and applies any pending migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/commodityflow/commodityflow.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// buildClassifyEngine loads the embedded catalog and wires the AI providers.
func buildClassifyEngine(ctx context.Context, store *storage.SQLiteStorage) (*classify.Engine, error) {
	catalog, err := store.GetCommodities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference catalog: %w", err)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: run 'commodityflow commodities load' first", common.ErrEmptyCatalog)
	}

	llmCfg := config.LoadLLMConfig()
	embedder, err := llm.NewEmbeddingProvider(llmCfg)
	if err != nil {
		return nil, err
	}
	completer, err := llm.NewCompletionClient(llmCfg)
	if err != nil {
		return nil, err
	}

	engineCfg := classify.DefaultConfig()
	if v := viper.GetFloat64("classify.correction_threshold"); v > 0 {
		engineCfg.CorrectionThreshold = v
	}

	return classify.NewWithConfig(index.New(catalog), embedder, completer, store, engineCfg)
}

// initAuxSource connects the auxiliary reporting database, or falls back to
// an empty fixture when none is configured.
func initAuxSource(ctx context.Context) (service.AuxiliaryDataSource, func(), error) {
	dsn := viper.GetString("auxdata.dsn")
	if dsn == "" {
		return &auxdata.FixtureSource{}, func() {}, nil
	}

	source, err := auxdata.NewPostgresSource(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return source, source.Close, nil
}

// artifactPath picks the output location for a batch's report.
func artifactPath(batchID string) string {
	dir := viper.GetString("output.dir")
	if dir == "" {
		dir = "."
	}
	return filepath.Join(config.ExpandPath(dir), fmt.Sprintf("commodityflow-%s.xlsx", batchID))
}
