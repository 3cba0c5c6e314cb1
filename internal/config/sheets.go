// Package config provides configuration utilities for the application.
package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/sourcewise/commodityflow/internal/report"
)

// LoadSheetsConfig loads Google Sheets configuration with this precedence:
// 1. Viper configuration (config file or COMMODITYFLOW_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. Default values
func LoadSheetsConfig() (*report.SheetsConfig, error) {
	cfg := report.DefaultSheetsConfig()

	if v := viper.GetString("sheets.service_account_path"); v != "" {
		cfg.ServiceAccountPath = ExpandPath(v)
	}
	if v := viper.GetString("sheets.client_id"); v != "" {
		cfg.ClientID = v
	}
	if v := viper.GetString("sheets.client_secret"); v != "" {
		cfg.ClientSecret = v
	}
	if v := viper.GetString("sheets.refresh_token"); v != "" {
		cfg.RefreshToken = v
	}
	if v := viper.GetString("sheets.spreadsheet_id"); v != "" {
		cfg.SpreadsheetID = v
	}
	if v := viper.GetString("sheets.spreadsheet_name"); v != "" {
		cfg.SpreadsheetName = v
	}

	if cfg.ServiceAccountPath == "" {
		if v := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"); v != "" {
			cfg.ServiceAccountPath = ExpandPath(v)
		}
	}
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if cfg.RefreshToken == "" {
		cfg.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	}
	if cfg.SpreadsheetID == "" {
		cfg.SpreadsheetID = os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
