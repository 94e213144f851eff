package model

import "time"

const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Run is one digester invocation as recorded in the archive.
type Run struct {
	ID          string
	Date        string
	Status      string
	SummaryKey  string
	EntityCount int
	CreatedAt   time.Time
}
