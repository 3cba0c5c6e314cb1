package report

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcelWriterRoundTrip(t *testing.T) {
	demand := int64(250)
	rows := []model.OutputRow{
		{
			ItemCode:         "ITEM001",
			PartNumber:       "PN-1",
			Manufacturer:     "Acme",
			Description:      "packaging box",
			Site:             "US10",
			Commodity:        "PACK BROWN BOX",
			Scope:            model.ScopeIn,
			Duplication:      model.FlagUnique,
			PreviouslyQuoted: true,
			CrossReference:   "INT-100",
			TotalDemand:      &demand,
			EAR:              testutil.FloatPtr(1000),
			ThresholdStatus:  "Below threshold ($1000.00)",
		},
		{
			ItemCode:        "ITEM003",
			Description:     "hardware",
			Commodity:       "HARDWARE",
			Scope:           model.ScopeOut,
			Duplication:     model.FlagUnique,
			EAR:             testutil.FloatPtr(500000),
			EARUsesFallback: true,
			ThresholdStatus: "Exceeds threshold ($500000.00)",
		},
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, NewExcelWriter().Write(context.Background(), path, rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, Headers(), got[0])
	assert.Equal(t, "ITEM001", got[1][0])
	assert.Equal(t, "PACK BROWN BOX", got[1][5])
	assert.Equal(t, "In scope", got[1][6])
	assert.Equal(t, "Unique", got[1][7])
	assert.Equal(t, "Yes", got[1][8])
	assert.Equal(t, "INT-100", got[1][9])
	assert.Equal(t, "250", got[1][10])
	assert.Equal(t, "1000.00", got[1][11])
	assert.Equal(t, "Below threshold ($1000.00)", got[1][12])

	assert.Equal(t, "Out of scope", got[2][6])
	assert.Equal(t, "No", got[2][8])
	assert.Equal(t, "500000.00", got[2][11])
}

func TestExcelWriterContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "out.xlsx")
	err := NewExcelWriter().Write(ctx, path, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSheetsConfigValidation(t *testing.T) {
	cfg := DefaultSheetsConfig()
	assert.Error(t, cfg.Validate(), "no auth configured")

	cfg.ServiceAccountPath = "/etc/creds.json"
	assert.NoError(t, cfg.Validate())

	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	cfg.RefreshToken = "token"
	assert.Error(t, cfg.Validate(), "both auth methods configured")

	cfg.ServiceAccountPath = ""
	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate(), "batch size must be positive")
}
