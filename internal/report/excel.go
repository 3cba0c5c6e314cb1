package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/sourcewise/commodityflow/internal/model"
)

const sheetName = "Classified Items"

// ExcelWriter renders output rows into an .xlsx workbook.
type ExcelWriter struct{}

// NewExcelWriter creates an Excel report writer.
func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{}
}

// Write renders the rows to path. An existing file at path is replaced.
func (w *ExcelWriter) Write(ctx context.Context, path string, rows []model.OutputRow) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Failed to close workbook", "error", err)
		}
	}()

	f.SetSheetName("Sheet1", sheetName)

	headers := Headers()
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header %q: %w", h, err)
		}
	}

	if err := w.styleHeaders(f); err != nil {
		return err
	}
	fallbackStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FEF3C7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create highlight style: %w", err)
	}

	earColumn := len(PrimaryHeaders) + 4
	for i := range rows {
		rowNum := i + 2
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", rowNum), ptr(rowValues(&rows[i]))); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
		if rows[i].EARUsesFallback {
			cell, cellErr := excelize.CoordinatesToCellName(earColumn, rowNum)
			if cellErr != nil {
				return fmt.Errorf("failed to resolve EAR cell: %w", cellErr)
			}
			if styleErr := f.SetCellStyle(sheetName, cell, cell, fallbackStyle); styleErr != nil {
				return fmt.Errorf("failed to highlight fallback EAR: %w", styleErr)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	slog.Info("Wrote Excel artifact", "path", path, "rows", len(rows))
	return nil
}

// styleHeaders gives primary and auxiliary header groups distinct fills.
func (w *ExcelWriter) styleHeaders(f *excelize.File) error {
	primary, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create primary header style: %w", err)
	}
	auxiliary, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DBEAFE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create auxiliary header style: %w", err)
	}

	primaryEnd, err := excelize.CoordinatesToCellName(len(PrimaryHeaders), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", primaryEnd, primary); err != nil {
		return fmt.Errorf("failed to style primary headers: %w", err)
	}

	auxStart, err := excelize.CoordinatesToCellName(len(PrimaryHeaders)+1, 1)
	if err != nil {
		return err
	}
	auxEnd, err := excelize.CoordinatesToCellName(len(PrimaryHeaders)+len(AuxiliaryHeaders), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, auxStart, auxEnd, auxiliary); err != nil {
		return fmt.Errorf("failed to style auxiliary headers: %w", err)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
