package model

// Status is the review state of a file, or the rolled-up state of a document or submission.
type Status string

const (
	StatusPending         Status = "pending"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusChangeRequested Status = "change_requested"
	// StatusUnderReview only ever appears as a rollup result.
	StatusUnderReview Status = "under_review"
)

// IsDecision reports whether s may be written by a reviewer.
func (s Status) IsDecision() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusChangeRequested:
		return true
	default:
		return false
	}
}

// IsKnown reports whether s is any status the rollup engine understands.
func (s Status) IsKnown() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusChangeRequested, StatusUnderReview:
		return true
	default:
		return false
	}
}
