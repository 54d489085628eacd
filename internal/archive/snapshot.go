package archive

import (
	"fmt"
	"time"

	"compliance/internal/compliance"
	"compliance/internal/model"

	"github.com/google/uuid"
)

// SubmissionSnapshot is one item in the finalized-reports DynamoDB table.
type SubmissionSnapshot struct {
	SubmissionID   string             `dynamodbav:"submissionId"`
	VendorID       string             `dynamodbav:"vendorId"`
	Year           int                `dynamodbav:"year"`
	Month          int                `dynamodbav:"month"`
	Status         string             `dynamodbav:"status"`
	ComplianceRate int                `dynamodbav:"complianceRate"`
	Total          int                `dynamodbav:"totalDocuments"`
	Approved       int                `dynamodbav:"approvedDocuments"`
	Rejected       int                `dynamodbav:"rejectedDocuments"`
	Pending        int                `dynamodbav:"pendingDocuments"`
	FinalizedAt    string             `dynamodbav:"finalizedAt"`
	CreatedAt      string             `dynamodbav:"createdAt"`
	Documents      []DocumentSnapshot `dynamodbav:"documents"`
}

// DocumentSnapshot carries file statuses only; document status is recomputed on read.
type DocumentSnapshot struct {
	ID                 string         `dynamodbav:"id"`
	DocumentType       string         `dynamodbav:"documentType"`
	Title              string         `dynamodbav:"title"`
	IsReupload         bool           `dynamodbav:"isReupload"`
	OriginalDocumentID string         `dynamodbav:"originalDocumentId,omitempty"`
	Files              []FileSnapshot `dynamodbav:"files"`
}

type FileSnapshot struct {
	ID          string `dynamodbav:"id"`
	FileName    string `dynamodbav:"fileName"`
	MimeType    string `dynamodbav:"mimeType"`
	Size        int64  `dynamodbav:"size"`
	StorageKey  string `dynamodbav:"storageKey"`
	Status      string `dynamodbav:"status"`
	ReviewNotes string `dynamodbav:"reviewNotes"`
	ReviewerID  string `dynamodbav:"reviewerId,omitempty"`
	ReviewedAt  string `dynamodbav:"reviewedAt,omitempty"`
}

// NewSnapshot flattens a submission and its assessment into a table item.
func NewSnapshot(sub *model.Submission, assessment compliance.Assessment, finalizedAt time.Time) SubmissionSnapshot {
	snap := SubmissionSnapshot{
		SubmissionID:   sub.ID.String(),
		VendorID:       sub.VendorID.String(),
		Year:           sub.Year,
		Month:          sub.Month,
		Status:         string(sub.Status),
		ComplianceRate: assessment.Metrics.ComplianceRate,
		Total:          assessment.Metrics.TotalDocuments,
		Approved:       assessment.Metrics.ApprovedDocuments,
		Rejected:       assessment.Metrics.RejectedDocuments,
		Pending:        assessment.Metrics.PendingDocuments,
		FinalizedAt:    finalizedAt.UTC().Format(time.RFC3339Nano),
		CreatedAt:      sub.CreatedAt.UTC().Format(time.RFC3339Nano),
		Documents:      make([]DocumentSnapshot, 0, len(sub.Documents)),
	}
	for _, d := range sub.Documents {
		ds := DocumentSnapshot{
			ID:           d.ID.String(),
			DocumentType: d.DocumentType,
			Title:        d.Title,
			IsReupload:   d.IsReupload,
			Files:        make([]FileSnapshot, 0, len(d.Files)),
		}
		if d.OriginalDocumentID != nil {
			ds.OriginalDocumentID = d.OriginalDocumentID.String()
		}
		for _, f := range d.Files {
			fs := FileSnapshot{
				ID:          f.ID.String(),
				FileName:    f.FileName,
				MimeType:    f.MimeType,
				Size:        f.Size,
				StorageKey:  f.StorageKey,
				Status:      string(f.Status),
				ReviewNotes: f.ReviewNotes,
			}
			if f.ReviewerID != nil {
				fs.ReviewerID = f.ReviewerID.String()
			}
			if f.ReviewedAt != nil {
				fs.ReviewedAt = f.ReviewedAt.UTC().Format(time.RFC3339Nano)
			}
			ds.Files = append(ds.Files, fs)
		}
		snap.Documents = append(snap.Documents, ds)
	}
	return snap
}

// Submission rebuilds the domain entity. Cached statuses are recomputed from the file statuses,
// never copied from the item.
func (s SubmissionSnapshot) Submission() (*model.Submission, error) {
	sub := &model.Submission{
		Year:      s.Year,
		Month:     s.Month,
		Documents: make([]model.Document, 0, len(s.Documents)),
	}
	var err error
	if sub.ID, err = uuid.Parse(s.SubmissionID); err != nil {
		return nil, fmt.Errorf("failed to parse submissionId: %w", err)
	}
	if sub.VendorID, err = uuid.Parse(s.VendorID); err != nil {
		return nil, fmt.Errorf("failed to parse vendorId: %w", err)
	}
	if s.CreatedAt != "" {
		if sub.CreatedAt, err = time.Parse(time.RFC3339Nano, s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse createdAt: %w", err)
		}
	}

	for _, ds := range s.Documents {
		doc := model.Document{
			SubmissionID: sub.ID,
			DocumentType: ds.DocumentType,
			Title:        ds.Title,
			IsReupload:   ds.IsReupload,
			Files:        make([]model.File, 0, len(ds.Files)),
		}
		if doc.ID, err = uuid.Parse(ds.ID); err != nil {
			return nil, fmt.Errorf("failed to parse document id: %w", err)
		}
		if ds.OriginalDocumentID != "" {
			orig, parseErr := uuid.Parse(ds.OriginalDocumentID)
			if parseErr != nil {
				return nil, fmt.Errorf("failed to parse originalDocumentId: %w", parseErr)
			}
			doc.OriginalDocumentID = &orig
		}
		for _, fs := range ds.Files {
			file, fileErr := fs.file(doc.ID)
			if fileErr != nil {
				return nil, fileErr
			}
			doc.Files = append(doc.Files, file)
		}
		sub.Documents = append(sub.Documents, doc)
	}

	if err := compliance.Refresh(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (fs FileSnapshot) file(documentID uuid.UUID) (model.File, error) {
	f := model.File{
		DocumentID:  documentID,
		FileName:    fs.FileName,
		MimeType:    fs.MimeType,
		Size:        fs.Size,
		StorageKey:  fs.StorageKey,
		Status:      model.Status(fs.Status),
		ReviewNotes: fs.ReviewNotes,
	}
	var err error
	if f.ID, err = uuid.Parse(fs.ID); err != nil {
		return model.File{}, fmt.Errorf("failed to parse file id: %w", err)
	}
	if fs.ReviewerID != "" {
		reviewer, parseErr := uuid.Parse(fs.ReviewerID)
		if parseErr != nil {
			return model.File{}, fmt.Errorf("failed to parse reviewerId: %w", parseErr)
		}
		f.ReviewerID = &reviewer
	}
	if fs.ReviewedAt != "" {
		reviewedAt, parseErr := time.Parse(time.RFC3339Nano, fs.ReviewedAt)
		if parseErr != nil {
			return model.File{}, fmt.Errorf("failed to parse reviewedAt: %w", parseErr)
		}
		f.ReviewedAt = &reviewedAt
	}
	return f, nil
}
