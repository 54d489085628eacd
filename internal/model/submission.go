package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission is a vendor's dated batch of documents for one (year, month) reporting period.
// Status is a cache of the rollup over Documents and is written only by the review service.
type Submission struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VendorID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Year      int        `gorm:"not null;index:idx_submission_period" json:"year"`
	Month     int        `gorm:"not null;index:idx_submission_period" json:"month"`
	Status    Status     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Documents []Document `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"documents"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Document is one logical document inside a submission. It owns 1..N files, each reviewed independently.
// OriginalDocumentID is a lookup link to the rejected predecessor, never an ownership edge.
type Document struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubmissionID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"submission_id"`
	DocumentType       string     `gorm:"type:varchar(50);not null;index" json:"document_type"`
	Title              string     `gorm:"type:varchar(255);not null" json:"title"`
	Status             Status     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	IsReupload         bool       `gorm:"default:false" json:"is_reupload"`
	OriginalDocumentID *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"original_document_id,omitempty"`
	Files              []File     `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"files"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// File is one uploaded artifact. The binary lives with the storage collaborator under StorageKey.
type File struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DocumentID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"document_id"`
	FileName    string     `gorm:"type:varchar(255);not null" json:"file_name"`
	MimeType    string     `gorm:"type:varchar(100)" json:"mime_type"`
	Size        int64      `gorm:"not null;default:0" json:"size"`
	StorageKey  string     `gorm:"type:text" json:"storage_key"`
	Status      Status     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewNotes string     `gorm:"type:text" json:"review_notes"`
	ReviewerID  *uuid.UUID `gorm:"type:uuid" json:"reviewer_id"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FileStatuses returns the review status of every file, in file order.
func (d *Document) FileStatuses() []Status {
	statuses := make([]Status, 0, len(d.Files))
	for _, f := range d.Files {
		statuses = append(statuses, f.Status)
	}
	return statuses
}

// FindFile returns the file with the given ID, or nil.
func (d *Document) FindFile(id uuid.UUID) *File {
	for i := range d.Files {
		if d.Files[i].ID == id {
			return &d.Files[i]
		}
	}
	return nil
}

// FindDocument returns the document with the given ID, or nil.
func (s *Submission) FindDocument(id uuid.UUID) *Document {
	for i := range s.Documents {
		if s.Documents[i].ID == id {
			return &s.Documents[i]
		}
	}
	return nil
}
