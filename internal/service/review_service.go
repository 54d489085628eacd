package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"compliance/internal/compliance"
	"compliance/internal/model"
	"compliance/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// --- Interface ---

type ReviewService interface {
	RecordDecision(ctx context.Context, fileID, reviewerID string, req ReviewDecisionDTO) (DocumentResponse, error)
	RecordBulkDecision(ctx context.Context, documentID, reviewerID string, req ReviewDecisionDTO) (DocumentResponse, error)
	CreateResubmission(ctx context.Context, originalDocumentID, actorID string, req ResubmissionDTO) (DocumentResponse, error)
	ResubmissionHistory(ctx context.Context, documentID string) ([]HistoryEntry, error)
}

// ReviewPolicy holds the decisions left open by the review rules.
type ReviewPolicy struct {
	// LockApproved refuses new decisions on a document whose files are all approved.
	// Re-review is permitted when false.
	LockApproved bool
}

type reviewService struct {
	repo   repository.SubmissionRepository
	audit  repository.AuditRepository
	tx     repository.TransactionManager
	clock  Clock
	hub    Broadcaster // optional
	policy ReviewPolicy
}

func NewReviewService(
	repo repository.SubmissionRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	clock Clock,
	hub Broadcaster,
	policy ReviewPolicy,
) ReviewService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &reviewService{repo: repo, audit: audit, tx: tx, clock: clock, hub: hub, policy: policy}
}

// --- Implementation ---

// validateDecision is shared by the individual and bulk paths.
func validateDecision(req ReviewDecisionDTO) (model.Status, string, error) {
	status := model.Status(strings.TrimSpace(req.Status))
	if !status.IsDecision() {
		return "", "", &compliance.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("must be one of approved, rejected, change_requested; got %q", req.Status),
		}
	}
	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		return "", "", &compliance.ValidationError{Field: "notes", Reason: "remarks are required for every decision"}
	}
	return status, notes, nil
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, &compliance.ValidationError{Field: field, Reason: "invalid id " + raw}
	}
	return id, nil
}

func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// unknownID turns a storage miss into the validation error callers see for an unknown id.
func unknownID(field string, id uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &compliance.ValidationError{Field: field, Reason: "no such id " + id.String()}
	}
	return err
}

func (s *reviewService) RecordDecision(ctx context.Context, fileID, reviewerID string, req ReviewDecisionDTO) (DocumentResponse, error) {
	status, notes, err := validateDecision(req)
	if err != nil {
		return DocumentResponse{}, err
	}
	fid, err := parseID("file_id", fileID)
	if err != nil {
		return DocumentResponse{}, err
	}
	reviewer, err := parseOptionalID("reviewer_id", reviewerID)
	if err != nil {
		return DocumentResponse{}, err
	}

	var sub *model.Submission
	var doc *model.Document
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		file, findErr := s.repo.FindFile(txCtx, fid)
		if findErr != nil {
			return unknownID("file_id", fid, findErr)
		}

		var lockErr error
		sub, doc, lockErr = s.lockDocument(txCtx, file.DocumentID)
		if lockErr != nil {
			return lockErr
		}
		if guardErr := s.guardReviewable(sub, doc); guardErr != nil {
			return guardErr
		}

		target := doc.FindFile(fid)
		if target == nil {
			return unknownID("file_id", fid, repository.ErrNotFound)
		}
		s.applyDecision(target, status, notes, reviewer)
		if saveErr := s.repo.SaveFile(txCtx, target); saveErr != nil {
			return fmt.Errorf("failed to save file review: %w", saveErr)
		}

		if rollupErr := s.recompute(txCtx, sub); rollupErr != nil {
			return rollupErr
		}

		return s.writeAudit(txCtx, reviewer, model.ActionReviewFile, fid.String(), target.FileName, map[string]interface{}{
			"document_id":     doc.ID.String(),
			"status":          status,
			"notes":           notes,
			"document_status": doc.Status,
		})
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	s.publish(sub, doc)
	return toDocumentResponse(*doc, false), nil
}

func (s *reviewService) RecordBulkDecision(ctx context.Context, documentID, reviewerID string, req ReviewDecisionDTO) (DocumentResponse, error) {
	status, notes, err := validateDecision(req)
	if err != nil {
		return DocumentResponse{}, err
	}
	did, err := parseID("document_id", documentID)
	if err != nil {
		return DocumentResponse{}, err
	}
	reviewer, err := parseOptionalID("reviewer_id", reviewerID)
	if err != nil {
		return DocumentResponse{}, err
	}

	var sub *model.Submission
	var doc *model.Document
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var lockErr error
		sub, doc, lockErr = s.lockDocument(txCtx, did)
		if lockErr != nil {
			return lockErr
		}
		if guardErr := s.guardReviewable(sub, doc); guardErr != nil {
			return guardErr
		}
		if len(doc.Files) == 0 {
			return &compliance.ValidationError{Field: "document_id", Reason: "document has no files"}
		}

		// A failed write aborts the transaction, so no file keeps a partial decision.
		for i := range doc.Files {
			s.applyDecision(&doc.Files[i], status, notes, reviewer)
			if saveErr := s.repo.SaveFile(txCtx, &doc.Files[i]); saveErr != nil {
				return fmt.Errorf("failed to save file review %s: %w", doc.Files[i].ID, saveErr)
			}
		}

		if rollupErr := s.recompute(txCtx, sub); rollupErr != nil {
			return rollupErr
		}

		return s.writeAudit(txCtx, reviewer, model.ActionBulkReviewDocument, did.String(), doc.Title, map[string]interface{}{
			"status":          status,
			"notes":           notes,
			"file_count":      len(doc.Files),
			"document_status": doc.Status,
		})
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	s.publish(sub, doc)
	return toDocumentResponse(*doc, false), nil
}

func (s *reviewService) CreateResubmission(ctx context.Context, originalDocumentID, actorID string, req ResubmissionDTO) (DocumentResponse, error) {
	oid, err := parseID("document_id", originalDocumentID)
	if err != nil {
		return DocumentResponse{}, err
	}
	actor, err := parseOptionalID("actor_id", actorID)
	if err != nil {
		return DocumentResponse{}, err
	}
	files, err := newFiles(req.Files)
	if err != nil {
		return DocumentResponse{}, err
	}

	var sub *model.Submission
	var replacement *model.Document
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var original *model.Document
		var lockErr error
		sub, original, lockErr = s.lockDocument(txCtx, oid)
		if lockErr != nil {
			return lockErr
		}

		status, rollupErr := compliance.DocumentStatus(original)
		if rollupErr != nil {
			return s.rollupFailed(original.ID, rollupErr)
		}
		if status != model.StatusRejected && status != model.StatusChangeRequested {
			return &compliance.InvalidStateError{
				Entity: "document",
				ID:     oid.String(),
				State:  status,
				Reason: "only rejected or change_requested documents can be resubmitted",
			}
		}
		if compliance.SupersededDocuments(sub)[oid] {
			return &compliance.InvalidStateError{
				Entity: "document",
				ID:     oid.String(),
				State:  status,
				Reason: "document has already been resubmitted",
			}
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = original.Title
		}
		replacement = &model.Document{
			ID:                 uuid.New(),
			SubmissionID:       sub.ID,
			DocumentType:       original.DocumentType,
			Title:              title,
			IsReupload:         true,
			OriginalDocumentID: &oid,
			Files:              files,
		}
		for i := range replacement.Files {
			replacement.Files[i].DocumentID = replacement.ID
		}
		if replacement.Status, rollupErr = compliance.DocumentStatus(replacement); rollupErr != nil {
			return s.rollupFailed(replacement.ID, rollupErr)
		}
		if createErr := s.repo.CreateDocument(txCtx, replacement); createErr != nil {
			return fmt.Errorf("failed to create resubmission: %w", createErr)
		}

		sub.Documents = append(sub.Documents, *replacement)
		if recomputeErr := s.recompute(txCtx, sub); recomputeErr != nil {
			return recomputeErr
		}

		return s.writeAudit(txCtx, actor, model.ActionCreateResubmission, replacement.ID.String(), replacement.Title, map[string]interface{}{
			"original_document_id": oid.String(),
			"original_status":      status,
			"file_count":           len(files),
		})
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	s.publish(sub, replacement)
	return toDocumentResponse(*replacement, false), nil
}

// ResubmissionHistory returns the whole chain the document belongs to, newest first.
func (s *reviewService) ResubmissionHistory(ctx context.Context, documentID string) ([]HistoryEntry, error) {
	did, err := parseID("document_id", documentID)
	if err != nil {
		return nil, err
	}

	start, err := s.repo.FindDocument(ctx, did)
	if err != nil {
		return nil, unknownID("document_id", did, err)
	}
	if isVendorCaller(ctx) {
		owner, loadErr := s.repo.LoadSubmission(ctx, start.SubmissionID)
		if loadErr != nil {
			return nil, fmt.Errorf("failed to load submission %s: %w", start.SubmissionID, loadErr)
		}
		if authErr := authorize(ctx, owner); authErr != nil {
			return nil, authErr
		}
	}

	head, err := s.latestReplacement(ctx, did)
	if err != nil {
		return nil, err
	}

	history := []HistoryEntry{}
	visited := map[uuid.UUID]bool{}
	next := &head
	for next != nil {
		if visited[*next] {
			return nil, fmt.Errorf("resubmission chain of %s loops at %s", did, *next)
		}
		visited[*next] = true

		doc, findErr := s.repo.FindDocument(ctx, *next)
		if findErr != nil {
			return nil, unknownID("document_id", *next, findErr)
		}
		status, rollupErr := compliance.DocumentStatus(doc)
		if rollupErr != nil {
			return nil, s.rollupFailed(doc.ID, rollupErr)
		}

		entry := HistoryEntry{
			DocumentID: doc.ID.String(),
			Status:     status,
			IsReupload: doc.IsReupload,
			Files:      make([]FileResponse, 0, len(doc.Files)),
			CreatedAt:  doc.CreatedAt.Format(time.RFC3339),
		}
		for _, f := range doc.Files {
			entry.Files = append(entry.Files, toFileResponse(f))
		}
		history = append(history, entry)
		next = doc.OriginalDocumentID
	}
	return history, nil
}

// --- Helpers ---

// latestReplacement follows replacement links forward from documentID to the newest document
// of its chain.
func (s *reviewService) latestReplacement(ctx context.Context, documentID uuid.UUID) (uuid.UUID, error) {
	current := documentID
	seen := map[uuid.UUID]bool{current: true}
	for {
		next, err := s.repo.FindReplacement(ctx, current)
		if errors.Is(err, repository.ErrNotFound) {
			return current, nil
		}
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to find replacement of %s: %w", current, err)
		}
		if seen[next.ID] {
			return uuid.Nil, fmt.Errorf("resubmission chain of %s loops at %s", documentID, next.ID)
		}
		seen[next.ID] = true
		current = next.ID
	}
}

// lockDocument locks the owning submission and returns it freshly loaded together with a
// pointer to the document inside it. Every status recompute happens under this lock.
// Vendor callers only get past it for their own submissions.
func (s *reviewService) lockDocument(ctx context.Context, documentID uuid.UUID) (*model.Submission, *model.Document, error) {
	header, err := s.repo.FindDocument(ctx, documentID)
	if err != nil {
		return nil, nil, unknownID("document_id", documentID, err)
	}
	if err := s.repo.LockSubmission(ctx, header.SubmissionID); err != nil {
		return nil, nil, fmt.Errorf("failed to lock submission %s: %w", header.SubmissionID, err)
	}
	sub, err := s.repo.LoadSubmission(ctx, header.SubmissionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load submission %s: %w", header.SubmissionID, err)
	}
	if err := authorize(ctx, sub); err != nil {
		return nil, nil, err
	}
	doc := sub.FindDocument(documentID)
	if doc == nil {
		return nil, nil, unknownID("document_id", documentID, repository.ErrNotFound)
	}
	return sub, doc, nil
}

// guardReviewable refuses decisions on documents the system treats as immutable: originals that
// were replaced by a resubmission and, when LockApproved is set, fully approved documents.
func (s *reviewService) guardReviewable(sub *model.Submission, doc *model.Document) error {
	if compliance.SupersededDocuments(sub)[doc.ID] {
		return &compliance.ValidationError{
			Field:  "document_id",
			Reason: fmt.Sprintf("document %s was superseded by a resubmission and is read-only", doc.ID),
		}
	}
	if !s.policy.LockApproved {
		return nil
	}
	status, err := compliance.DocumentStatus(doc)
	if err != nil {
		return s.rollupFailed(doc.ID, err)
	}
	if status == model.StatusApproved {
		return &compliance.ValidationError{
			Field:  "document_id",
			Reason: fmt.Sprintf("document %s is approved and locked against re-review", doc.ID),
		}
	}
	return nil
}

func (s *reviewService) applyDecision(f *model.File, status model.Status, notes string, reviewer *uuid.UUID) {
	now := s.clock.Now()
	f.Status = status
	f.ReviewNotes = notes
	f.ReviewerID = reviewer
	f.ReviewedAt = &now
}

// recompute refreshes every cached status of sub and persists the ones that changed.
func (s *reviewService) recompute(ctx context.Context, sub *model.Submission) error {
	return refreshAndSave(ctx, s.repo, sub)
}

func refreshAndSave(ctx context.Context, repo repository.SubmissionRepository, sub *model.Submission) error {
	before := make(map[uuid.UUID]model.Status, len(sub.Documents))
	for _, d := range sub.Documents {
		before[d.ID] = d.Status
	}
	previous := sub.Status

	if err := refresh(sub); err != nil {
		return err
	}

	for i := range sub.Documents {
		d := &sub.Documents[i]
		if before[d.ID] == d.Status {
			continue
		}
		if err := repo.SaveDocument(ctx, d); err != nil {
			return fmt.Errorf("failed to save document status %s: %w", d.ID, err)
		}
	}
	if previous != sub.Status {
		if err := repo.UpdateSubmissionStatus(ctx, sub.ID, sub.Status); err != nil {
			return fmt.Errorf("failed to save submission status %s: %w", sub.ID, err)
		}
	}
	return nil
}

// refresh recomputes the cached statuses of sub. An inconsistent rollup is logged and returned.
func refresh(sub *model.Submission) error {
	err := compliance.Refresh(sub)
	var inconsistent *compliance.InconsistentRollupError
	if errors.As(err, &inconsistent) {
		log.Printf("rollup aborted for submission %s: %v", sub.ID, err)
	}
	return err
}

func (s *reviewService) rollupFailed(documentID uuid.UUID, err error) error {
	log.Printf("rollup aborted for document %s: %v", documentID, err)
	return err
}

func (s *reviewService) writeAudit(ctx context.Context, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	return writeAudit(ctx, s.audit, userID, action, entityID, entityName, details)
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    datatypes.JSON(payload),
	}
	if err := repo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *reviewService) publish(sub *model.Submission, doc *model.Document) {
	if s.hub == nil || sub == nil || doc == nil {
		return
	}
	s.hub.BroadcastJSON(sub.VendorID.String(), StatusChangedEvent{
		Type:             "status_changed",
		SubmissionID:     sub.ID.String(),
		SubmissionStatus: sub.Status,
		DocumentID:       doc.ID.String(),
		DocumentStatus:   doc.Status,
	})
}

// newFiles builds pending files from upload metadata.
func newFiles(uploads []FileUploadDTO) ([]model.File, error) {
	if len(uploads) == 0 {
		return nil, &compliance.ValidationError{Field: "files", Reason: "at least one file is required"}
	}
	files := make([]model.File, 0, len(uploads))
	for i, u := range uploads {
		name := strings.TrimSpace(u.FileName)
		if name == "" {
			return nil, &compliance.ValidationError{Field: fmt.Sprintf("files[%d].file_name", i), Reason: "must not be empty"}
		}
		if u.Size < 0 {
			return nil, &compliance.ValidationError{Field: fmt.Sprintf("files[%d].size", i), Reason: "must not be negative"}
		}
		files = append(files, model.File{
			ID:         uuid.New(),
			FileName:   name,
			MimeType:   u.MimeType,
			Size:       u.Size,
			StorageKey: u.StorageKey,
			Status:     model.StatusPending,
		})
	}
	return files, nil
}
