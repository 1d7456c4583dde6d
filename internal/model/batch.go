package model

import "time"

// BatchStatus is the lifecycle state of an import batch.
type BatchStatus string

const (
	BatchUploaded  BatchStatus = "uploaded"
	BatchPreviewed BatchStatus = "previewed"
	BatchConfirmed BatchStatus = "confirmed"
	BatchCancelled BatchStatus = "cancelled"
)

// ImportBatch records one statement upload and its outcome.
type ImportBatch struct {
	ID          string
	FileName    string
	BankFormat  string // detected or user-selected
	ParsedCount int
	Status      BatchStatus
	CreatedAt   time.Time
}
