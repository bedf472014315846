package models

import "time"

// Export status values.
const (
	ExportPending   = "pending"
	ExportCompleted = "completed"
)

// Export records one encrypted vault export uploaded to object storage.
type Export struct {
	ID         string
	UserID     string
	StorageKey string
	EntryCount int
	Status     string
	CreatedAt  time.Time
}
