// Package report renders computed output rows into spreadsheet artifacts.
// The Excel writer produces the batch's local artifact; the Sheets writer
// exports the same rows to Google Sheets.
package report

import (
	"fmt"

	"github.com/sourcewise/commodityflow/internal/model"
)

// PrimaryHeaders are the columns carried over from the uploaded file plus
// the classification result.
var PrimaryHeaders = []string{
	"Item Code",
	"Part Number",
	"Manufacturer",
	"Description",
	"Site",
	"Commodity",
	"Scope",
	"Duplication",
}

// AuxiliaryHeaders are the enrichment-derived columns, styled differently so
// analysts can tell sourced data from computed data.
var AuxiliaryHeaders = []string{
	"Previously Quoted",
	"Cross Reference",
	"Total Demand",
	"EAR",
	"Threshold Status",
}

// Headers returns the full ordered header row.
func Headers() []string {
	out := make([]string, 0, len(PrimaryHeaders)+len(AuxiliaryHeaders))
	out = append(out, PrimaryHeaders...)
	return append(out, AuxiliaryHeaders...)
}

// rowValues flattens one output row into cell values matching Headers().
func rowValues(row *model.OutputRow) []any {
	quoted := "No"
	if row.PreviouslyQuoted {
		quoted = "Yes"
	}

	var demand any
	if row.TotalDemand != nil {
		demand = *row.TotalDemand
	} else {
		demand = ""
	}

	var ear any
	if row.EAR != nil {
		ear = fmt.Sprintf("%.2f", *row.EAR)
	} else {
		ear = ""
	}

	return []any{
		row.ItemCode,
		row.PartNumber,
		row.Manufacturer,
		row.Description,
		row.Site,
		row.Commodity,
		string(row.Scope),
		string(row.Duplication),
		quoted,
		row.CrossReference,
		demand,
		ear,
		row.ThresholdStatus,
	}
}
