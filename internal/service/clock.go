package service

import (
	"time"

	"compliance/internal/model"
)

// Clock supplies reviewedAt timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Broadcaster pushes status-change events to connected clients. Implementations must not block.
// Events for vendorID reach staff clients and that vendor only.
type Broadcaster interface {
	BroadcastJSON(vendorID string, v interface{})
}

// StatusChangedEvent is broadcast after a review transaction commits.
type StatusChangedEvent struct {
	Type             string       `json:"type"`
	SubmissionID     string       `json:"submission_id"`
	SubmissionStatus model.Status `json:"submission_status"`
	DocumentID       string       `json:"document_id"`
	DocumentStatus   model.Status `json:"document_status"`
}
