package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sourcewise/commodityflow/internal/config"
	"github.com/sourcewise/commodityflow/internal/engine"
	"github.com/sourcewise/commodityflow/internal/enrich"
	"github.com/sourcewise/commodityflow/internal/report"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <batch-id>",
		Short: "Export a completed batch to Google Sheets",
		Long: `Recompute a completed batch's output rows and upload them to the
configured Google Sheets spreadsheet. Authentication uses either a service
account key or OAuth2 credentials from config or GOOGLE_SHEETS_* variables.`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	batchID := args[0]

	sheetsCfg, err := config.LoadSheetsConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	classifier, err := buildClassifyEngine(ctx, store)
	if err != nil {
		return err
	}

	source, closeSource, err := initAuxSource(ctx)
	if err != nil {
		return err
	}
	defer closeSource()

	writer, err := report.NewSheetsWriter(ctx, *sheetsCfg)
	if err != nil {
		return err
	}

	processor := engine.NewProcessor(store, classifier, enrich.NewBuilder(source), writer)
	if err := processor.Regenerate(ctx, batchID); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	slog.Info("Batch exported to Google Sheets", "batch_id", batchID)
	return nil
}
