package model

import "time"

// InventoryRow is one line of an uploaded inventory file plus the fields
// derived during processing. Numeric source fields are pointers because the
// upload may simply not carry them.
type InventoryRow struct {
	ID                int64
	BatchID           string
	ItemCode          string
	PartNumber        string
	Manufacturer      string
	Description       string
	Site              string
	StandardCost      *float64
	LastPurchasePrice *float64
	LastPOPrice       *float64
	UsageQuantity     *int64
	Commodity         string
	Scope             Scope
	Embedding         []float32
	Position          int
	CreatedAt         time.Time
}

// Valid reports whether the row carries the fields processing requires.
func (r *InventoryRow) Valid() bool {
	return r.ItemCode != "" && r.Description != ""
}

// Usage returns the usage quantity, or 0 when absent.
func (r *InventoryRow) Usage() int64 {
	if r.UsageQuantity == nil {
		return 0
	}
	return *r.UsageQuantity
}

// Classification is the result of classifying one inventory row.
type Classification struct {
	Commodity string
	Scope     Scope
	Embedding []float32
}

// DuplicationFlag marks whether an item code already appeared in the batch.
type DuplicationFlag string

// Duplication flag constants. The first occurrence of an item code within a
// batch is Unique; every later occurrence is AML.
const (
	FlagUnique DuplicationFlag = "Unique"
	FlagAML    DuplicationFlag = "AML"
)

// OutputRow is a fully computed report row handed to the spreadsheet writer.
type OutputRow struct {
	ItemCode         string
	PartNumber       string
	Manufacturer     string
	Description      string
	Site             string
	Commodity        string
	Scope            Scope
	Duplication      DuplicationFlag
	PreviouslyQuoted bool
	CrossReference   string
	TotalDemand      *int64
	EAR              *float64
	EARUsesFallback  bool
	ThresholdStatus  string
}
