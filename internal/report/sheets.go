package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sourcewise/commodityflow/internal/common"
	"github.com/sourcewise/commodityflow/internal/model"
	"github.com/sourcewise/commodityflow/internal/service"
)

// SheetsConfig holds the configuration for the Google Sheets writer.
type SheetsConfig struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
}

// DefaultSheetsConfig returns a SheetsConfig with sensible defaults.
func DefaultSheetsConfig() SheetsConfig {
	return SheetsConfig{
		SpreadsheetName: "Commodity Classification",
		BatchSize:       1000,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
	}
}

// Validate checks that exactly one authentication method is configured.
func (c *SheetsConfig) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("%w: no Google Sheets authentication configured", common.ErrMissingConfig)
	}
	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("%w: both OAuth2 and service account configured; pick one", common.ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: sheets batch size must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// SheetsWriter exports output rows to a Google Sheets spreadsheet. The path
// argument of Write is ignored; the destination is the configured
// spreadsheet.
type SheetsWriter struct {
	service *sheets.Service
	config  SheetsConfig
}

// NewSheetsWriter creates a Google Sheets report writer.
func NewSheetsWriter(ctx context.Context, config SheetsConfig) (*SheetsWriter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsWriter{service: svc, config: config}, nil
}

// Write clears the spreadsheet and uploads the header plus every row.
func (w *SheetsWriter) Write(ctx context.Context, _ string, rows []model.OutputRow) error {
	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if _, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := make([][]any, 0, len(rows)+1)
	header := make([]any, 0, len(PrimaryHeaders)+len(AuxiliaryHeaders))
	for _, h := range Headers() {
		header = append(header, h)
	}
	values = append(values, header)
	for i := range rows {
		values = append(values, rowValues(&rows[i]))
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if err := common.WithRetry(ctx, func() error {
		return w.writeValues(ctx, spreadsheetID, values)
	}, retryOpts); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	slog.Info("Exported rows to Google Sheets",
		"spreadsheet_id", spreadsheetID, "rows", len(rows))
	return nil
}

func createSheetsService(ctx context.Context, config SheetsConfig) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

func (w *SheetsWriter) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		if _, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title: w.config.SpreadsheetName,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: sheetName}},
		},
	}
	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	slog.Info("Created new spreadsheet",
		"id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
	return created.SpreadsheetId, nil
}

// writeValues uploads the rows in bounded batches to stay under API limits.
func (w *SheetsWriter) writeValues(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := i + w.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		valueRange := &sheets.ValueRange{Values: values[i:end]}
		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}
	}
	return nil
}
