package service

import (
	"time"

	"compliance/internal/compliance"
	"compliance/internal/model"
)

// --- Requests ---

type FileUploadDTO struct {
	FileName   string `json:"file_name" binding:"required"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	StorageKey string `json:"storage_key"`
}

type DocumentUploadDTO struct {
	DocumentType string          `json:"document_type" binding:"required"`
	Title        string          `json:"title"`
	Files        []FileUploadDTO `json:"files"`
}

type CreateSubmissionDTO struct {
	Year      int                 `json:"year" binding:"required"`
	Month     int                 `json:"month" binding:"required"`
	Documents []DocumentUploadDTO `json:"documents"`
}

// ReviewDecisionDTO carries a decision for one file or, in bulk, for every file of a document.
// Notes are validated by the service so both modes share one rule.
type ReviewDecisionDTO struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

type ResubmissionDTO struct {
	Title string          `json:"title"`
	Files []FileUploadDTO `json:"files"`
}

type SubmissionListFilter struct {
	VendorID string
	Year     int
	Month    int
	Page     int
	Limit    int
}

// --- Responses ---

type FileResponse struct {
	ID          string       `json:"id"`
	FileName    string       `json:"file_name"`
	MimeType    string       `json:"mime_type"`
	Size        int64        `json:"size"`
	StorageKey  string       `json:"storage_key"`
	Status      model.Status `json:"status"`
	ReviewNotes string       `json:"review_notes"`
	ReviewerID  *string      `json:"reviewer_id"`
	ReviewedAt  *string      `json:"reviewed_at"`
}

type DocumentResponse struct {
	ID                 string         `json:"id"`
	SubmissionID       string         `json:"submission_id"`
	DocumentType       string         `json:"document_type"`
	Title              string         `json:"title"`
	Status             model.Status   `json:"status"`
	IsReupload         bool           `json:"is_reupload"`
	OriginalDocumentID *string        `json:"original_document_id,omitempty"`
	Superseded         bool           `json:"superseded"`
	Files              []FileResponse `json:"files"`
	CreatedAt          string         `json:"created_at"`
}

type SubmissionResponse struct {
	ID        string             `json:"id"`
	VendorID  string             `json:"vendor_id"`
	Year      int                `json:"year"`
	Month     int                `json:"month"`
	Status    model.Status       `json:"status"`
	Documents []DocumentResponse `json:"documents,omitempty"`
	CreatedAt string             `json:"created_at"`
}

type CompletenessResponse struct {
	SubmissionID string                  `json:"submission_id"`
	Period       string                  `json:"period"`
	Required     []string                `json:"required"`
	Missing      compliance.MissingTypes `json:"missing"`
	Complete     bool                    `json:"complete"`
}

type AssessmentResponse struct {
	SubmissionID string `json:"submission_id"`
	compliance.Assessment
}

type FinalReportResponse struct {
	SubmissionID string                `json:"submission_id"`
	Period       string                `json:"period"`
	Assessment   compliance.Assessment `json:"assessment"`
	Required     []string              `json:"required"`
	Archived     bool                  `json:"archived"`
	FinalizedAt  string                `json:"finalized_at"`
}

// ArchivedReportResponse is a finalized report read back from the archive. Statuses in the
// submission are recomputed from the archived file statuses.
type ArchivedReportResponse struct {
	Submission     SubmissionResponse `json:"submission"`
	ComplianceRate int                `json:"compliance_rate"`
	TotalDocuments int                `json:"total_documents"`
	Approved       int                `json:"approved_documents"`
	Rejected       int                `json:"rejected_documents"`
	Pending        int                `json:"pending_documents"`
	FinalizedAt    string             `json:"finalized_at"`
}

// HistoryEntry is one link of a resubmission chain. Review notes are a read-only view of the
// stored files.
type HistoryEntry struct {
	DocumentID string         `json:"document_id"`
	Status     model.Status   `json:"status"`
	IsReupload bool           `json:"is_reupload"`
	Files      []FileResponse `json:"files"`
	CreatedAt  string         `json:"created_at"`
}

// --- Helpers ---

func toFileResponse(f model.File) FileResponse {
	resp := FileResponse{
		ID:          f.ID.String(),
		FileName:    f.FileName,
		MimeType:    f.MimeType,
		Size:        f.Size,
		StorageKey:  f.StorageKey,
		Status:      f.Status,
		ReviewNotes: f.ReviewNotes,
	}
	if f.ReviewerID != nil {
		s := f.ReviewerID.String()
		resp.ReviewerID = &s
	}
	if f.ReviewedAt != nil {
		s := f.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &s
	}
	return resp
}

func toDocumentResponse(d model.Document, superseded bool) DocumentResponse {
	resp := DocumentResponse{
		ID:           d.ID.String(),
		SubmissionID: d.SubmissionID.String(),
		DocumentType: d.DocumentType,
		Title:        d.Title,
		Status:       d.Status,
		IsReupload:   d.IsReupload,
		Superseded:   superseded,
		Files:        make([]FileResponse, 0, len(d.Files)),
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
	}
	if d.OriginalDocumentID != nil {
		s := d.OriginalDocumentID.String()
		resp.OriginalDocumentID = &s
	}
	for _, f := range d.Files {
		resp.Files = append(resp.Files, toFileResponse(f))
	}
	return resp
}

func toSubmissionResponse(s model.Submission, withDocuments bool) SubmissionResponse {
	resp := SubmissionResponse{
		ID:        s.ID.String(),
		VendorID:  s.VendorID.String(),
		Year:      s.Year,
		Month:     s.Month,
		Status:    s.Status,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
	if withDocuments {
		superseded := compliance.SupersededDocuments(&s)
		resp.Documents = make([]DocumentResponse, 0, len(s.Documents))
		for _, d := range s.Documents {
			resp.Documents = append(resp.Documents, toDocumentResponse(d, superseded[d.ID]))
		}
	}
	return resp
}
