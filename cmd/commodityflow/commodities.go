package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/sourcewise/commodityflow/internal/config"
	"github.com/sourcewise/commodityflow/internal/llm"
	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/service"
	"github.com/sourcewise/commodityflow/internal/storage"
)

// embedBatchSize bounds how many catalog texts go into one provider call.
const embedBatchSize = 100

func commoditiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commodities",
		Short: "Manage the commodity reference catalog",
	}
	cmd.AddCommand(commoditiesLoadCmd())
	cmd.AddCommand(commoditiesEmbedCmd())
	return cmd
}

func commoditiesLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <catalog.xlsx>",
		Short: "Bulk-load reference commodities from a workbook",
		Long: `Load the commodity reference catalog from an .xlsx workbook.

The first sheet must carry a header row with Level1, Level2, Level3,
GlobalCode, Keywords, Manufacturers, SamplePartNumbers and Scope columns.
Embeddings are computed separately with 'commodities embed'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			catalog, err := readCatalogWorkbook(args[0])
			if err != nil {
				return err
			}
			if err := store.SaveCommodities(ctx, catalog); err != nil {
				return fmt.Errorf("failed to save catalog: %w", err)
			}

			slog.Info("Loaded reference catalog", "entries", len(catalog))
			return nil
		},
	}
}

func commoditiesEmbedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embed",
		Short: "Compute embeddings for catalog entries missing one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			missing, err := store.GetCommoditiesWithoutEmbedding(ctx)
			if err != nil {
				return fmt.Errorf("failed to query catalog: %w", err)
			}
			if len(missing) == 0 {
				slog.Info("Every catalog entry already has an embedding")
				return nil
			}

			embedder, err := llm.NewEmbeddingProvider(config.LoadLLMConfig())
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(len(missing),
				progressbar.OptionSetDescription("Embedding catalog entries..."),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
			)

			for start := 0; start < len(missing); start += embedBatchSize {
				end := start + embedBatchSize
				if end > len(missing) {
					end = len(missing)
				}
				if err := embedCatalogChunk(ctx, store, embedder, missing[start:end]); err != nil {
					return err
				}
				_ = bar.Add(end - start)
			}
			_ = bar.Finish()
			fmt.Println()

			slog.Info("Catalog embedding completed", "entries", len(missing))
			return nil
		},
	}
}

func embedCatalogChunk(ctx context.Context, store *storage.SQLiteStorage, embedder service.EmbeddingProvider, chunk []model.ReferenceCommodity) error {
	texts := make([]string, len(chunk))
	for i := range chunk {
		texts[i] = chunk[i].EmbeddingText()
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding provider failed: %w", err)
	}
	if len(vectors) != len(chunk) {
		return fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vectors), len(chunk))
	}

	// An entry either gets its full vector persisted or stays unembedded.
	for i := range chunk {
		if err := store.SaveCommodityEmbedding(ctx, chunk[i].ID, vectors[i]); err != nil {
			return fmt.Errorf("failed to save embedding for %q: %w", chunk[i].Level3, err)
		}
	}
	return nil
}

// readCatalogWorkbook parses the catalog sheet into reference commodities.
func readCatalogWorkbook(path string) ([]model.ReferenceCommodity, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook %s has no data rows", path)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cell := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	catalog := make([]model.ReferenceCommodity, 0, len(rows)-1)
	for _, row := range rows[1:] {
		entry := model.ReferenceCommodity{
			Level1:            cell(row, "level1"),
			Level2:            cell(row, "level2"),
			Level3:            cell(row, "level3"),
			GlobalCode:        cell(row, "globalcode"),
			Keywords:          cell(row, "keywords"),
			Manufacturers:     cell(row, "manufacturers"),
			SamplePartNumbers: cell(row, "samplepartnumbers"),
			InScope:           strings.EqualFold(cell(row, "scope"), string(model.ScopeIn)),
		}
		if entry.Level3 == "" {
			continue
		}
		catalog = append(catalog, entry)
	}
	return catalog, nil
}
