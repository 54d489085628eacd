package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionCreateSubmission   = "CREATE_SUBMISSION"
	ActionReviewFile         = "REVIEW_FILE"
	ActionBulkReviewDocument = "BULK_REVIEW_DOCUMENT"
	ActionCreateResubmission = "CREATE_RESUBMISSION"
	ActionFinalizeSubmission = "FINALIZE_SUBMISSION"
)

// AuditLog tracks who changed what and when in the review pipeline
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
