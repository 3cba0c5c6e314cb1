package model

import "time"

// BatchStatus tracks a processing batch through its lifecycle.
type BatchStatus string

// Batch status constants.
const (
	BatchPending       BatchStatus = "pending"
	BatchColumnPreview BatchStatus = "column_preview"
	BatchQueued        BatchStatus = "queued"
	BatchProcessing    BatchStatus = "processing"
	BatchCompleted     BatchStatus = "completed"
	BatchFailed        BatchStatus = "failed"
)

// ComponentGrade selects which cross-reference grades a batch may use.
type ComponentGrade string

// Component grade constants.
const (
	GradeCommercial ComponentGrade = "commercial"
	GradeAll        ComponentGrade = "all"
)

// BatchOptions are the per-batch feature toggles chosen at upload time.
type BatchOptions struct {
	DemandLookup     bool
	ComponentGrade   ComponentGrade
	VolumeMultiplier float64
}

// DefaultBatchOptions returns the toggles applied when the user picks none.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		DemandLookup:     true,
		ComponentGrade:   GradeCommercial,
		VolumeMultiplier: 1.0,
	}
}

// ColumnMapping maps uploaded header labels onto canonical row fields. It is
// produced by the external column-identification step and may be edited by
// the user before the batch is committed.
type ColumnMapping map[string]string

// ProcessingBatch is one user-submitted file and its lifecycle state.
// ArtifactPath is set only once Status is BatchCompleted.
type ProcessingBatch struct {
	ID            string
	Filename      string
	Status        BatchStatus
	Mapping       ColumnMapping
	Options       BatchOptions
	ArtifactPath  string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Terminal reports whether the batch reached a final state.
func (b *ProcessingBatch) Terminal() bool {
	return b.Status == BatchCompleted || b.Status == BatchFailed
}
