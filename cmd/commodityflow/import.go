package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/sourcewise/commodityflow/internal/model"
)

// Canonical row fields a column mapping may target.
const (
	fieldItemCode          = "item_code"
	fieldPartNumber        = "part_number"
	fieldManufacturer      = "manufacturer"
	fieldDescription       = "description"
	fieldSite              = "site"
	fieldStandardCost      = "standard_cost"
	fieldLastPurchasePrice = "last_purchase_price"
	fieldLastPOPrice       = "last_po_price"
	fieldUsageQuantity     = "usage_quantity"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <inventory.xlsx>",
		Short: "Import an inventory workbook as a new batch",
		Long: `Create a processing batch from an inventory workbook.

Columns are mapped onto canonical fields with --mapping, a comma-separated
list of header=field pairs, e.g.:

  --mapping "Item #=item_code,MPN=part_number,Desc=description"

Headers already matching a canonical field name map automatically. The
committed mapping is persisted with the batch; run 'process' afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("mapping", "", "comma-separated header=field pairs")
	cmd.Flags().Bool("no-demand", false, "disable the demand lookup for this batch")
	cmd.Flags().Bool("all-grades", false, "include automotive/medical cross-reference grades")
	cmd.Flags().Float64("volume-multiplier", 1.0, "multiplier applied to demand quantities")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	mappingFlag, _ := cmd.Flags().GetString("mapping")
	noDemand, _ := cmd.Flags().GetBool("no-demand")
	allGrades, _ := cmd.Flags().GetBool("all-grades")
	multiplier, _ := cmd.Flags().GetFloat64("volume-multiplier")

	mapping, err := parseMappingFlag(mappingFlag)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rows, resolved, err := readInventoryWorkbook(path, mapping)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("workbook %s produced no usable rows", path)
	}

	opts := model.DefaultBatchOptions()
	opts.DemandLookup = !noDemand
	if allGrades {
		opts.ComponentGrade = model.GradeAll
	}
	if multiplier > 0 {
		opts.VolumeMultiplier = multiplier
	}

	batch := &model.ProcessingBatch{
		ID:       uuid.New().String(),
		Filename: filepath.Base(path),
		Status:   model.BatchQueued,
		Mapping:  resolved,
		Options:  opts,
	}
	if err := store.CreateBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	if err := store.SaveRows(ctx, batch.ID, rows); err != nil {
		return fmt.Errorf("failed to save rows: %w", err)
	}

	slog.Info("Batch imported", "batch_id", batch.ID, "rows", len(rows), "file", batch.Filename)
	fmt.Printf("Imported batch %s with %d rows. Run 'commodityflow process %s' to classify.\n",
		batch.ID, len(rows), batch.ID)
	return nil
}

func parseMappingFlag(raw string) (model.ColumnMapping, error) {
	mapping := model.ColumnMapping{}
	if strings.TrimSpace(raw) == "" {
		return mapping, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("invalid mapping entry %q, want header=field", pair)
		}
		mapping[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return mapping, nil
}

// readInventoryWorkbook parses the first sheet into inventory rows using the
// given header mapping, falling back to identity for canonical header names.
// It returns the rows and the resolved header-to-field mapping that was
// committed.
func readInventoryWorkbook(path string, mapping model.ColumnMapping) ([]model.InventoryRow, model.ColumnMapping, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(raw) < 2 {
		return nil, nil, fmt.Errorf("workbook %s has no data rows", path)
	}

	fieldCols := make(map[string]int)
	resolved := model.ColumnMapping{}
	for i, header := range raw[0] {
		header = strings.TrimSpace(header)
		if header == "" {
			continue
		}
		field, ok := mapping[header]
		if !ok {
			field = strings.ToLower(strings.ReplaceAll(header, " ", "_"))
		}
		switch field {
		case fieldItemCode, fieldPartNumber, fieldManufacturer, fieldDescription,
			fieldSite, fieldStandardCost, fieldLastPurchasePrice, fieldLastPOPrice,
			fieldUsageQuantity:
			fieldCols[field] = i
			resolved[header] = field
		}
	}
	if _, ok := fieldCols[fieldItemCode]; !ok {
		return nil, nil, fmt.Errorf("no column maps to %s", fieldItemCode)
	}
	if _, ok := fieldCols[fieldDescription]; !ok {
		return nil, nil, fmt.Errorf("no column maps to %s", fieldDescription)
	}

	cell := func(row []string, field string) string {
		idx, ok := fieldCols[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rows := make([]model.InventoryRow, 0, len(raw)-1)
	for _, line := range raw[1:] {
		row := model.InventoryRow{
			ItemCode:          cell(line, fieldItemCode),
			PartNumber:        cell(line, fieldPartNumber),
			Manufacturer:      cell(line, fieldManufacturer),
			Description:       cell(line, fieldDescription),
			Site:              cell(line, fieldSite),
			StandardCost:      parsePrice(cell(line, fieldStandardCost)),
			LastPurchasePrice: parsePrice(cell(line, fieldLastPurchasePrice)),
			LastPOPrice:       parsePrice(cell(line, fieldLastPOPrice)),
			UsageQuantity:     parseQuantity(cell(line, fieldUsageQuantity)),
		}
		if !row.Valid() {
			slog.Warn("Skipping workbook row with missing required fields",
				"item_code", row.ItemCode, "description", row.Description)
			continue
		}
		// No real part number available: carry the item code as sentinel.
		if row.PartNumber == "" {
			row.PartNumber = row.ItemCode
		}
		rows = append(rows, row)
	}
	return rows, resolved, nil
}

func parsePrice(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseQuantity(raw string) *int64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
