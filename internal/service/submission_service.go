package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"compliance/internal/archive"
	"compliance/internal/compliance"
	"compliance/internal/model"
	"compliance/internal/repository"

	"github.com/google/uuid"
)

// Archiver stores an immutable snapshot of a finalized submission and reads it back.
type Archiver interface {
	Archive(ctx context.Context, sub *model.Submission, assessment compliance.Assessment, finalizedAt time.Time) error
	Get(ctx context.Context, submissionID string) (*archive.SubmissionSnapshot, error)
}

// --- Interface ---

type SubmissionService interface {
	CreateSubmission(ctx context.Context, vendorID string, req CreateSubmissionDTO) (SubmissionResponse, error)
	GetSubmission(ctx context.Context, id string) (SubmissionResponse, error)
	ListSubmissions(ctx context.Context, filter SubmissionListFilter) ([]SubmissionResponse, int64, error)
	CheckCompleteness(ctx context.Context, id string) (CompletenessResponse, error)
	Assess(ctx context.Context, id string) (AssessmentResponse, error)
	Finalize(ctx context.Context, id, actorID string) (FinalReportResponse, error)
	ArchivedReport(ctx context.Context, id string) (ArchivedReportResponse, error)
	DocumentTypes() []model.DocumentType
}

type submissionService struct {
	repo     repository.SubmissionRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	catalog  *compliance.Catalog
	excluded map[string]bool
	archiver Archiver // optional
	clock    Clock
}

// NewSubmissionService builds the service. When excluded is nil the catalog's
// ExcludedFromScoring flags decide which types are left out of scoring.
func NewSubmissionService(
	repo repository.SubmissionRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	catalog *compliance.Catalog,
	excluded map[string]bool,
	archiver Archiver,
	clock Clock,
) SubmissionService {
	if excluded == nil {
		excluded = catalog.ExcludedFromScoring()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &submissionService{
		repo:     repo,
		audit:    audit,
		tx:       tx,
		catalog:  catalog,
		excluded: excluded,
		archiver: archiver,
		clock:    clock,
	}
}

// --- Implementation ---

func (s *submissionService) CreateSubmission(ctx context.Context, vendorID string, req CreateSubmissionDTO) (SubmissionResponse, error) {
	vid, err := parseID("vendor_id", vendorID)
	if err != nil {
		return SubmissionResponse{}, err
	}
	period := compliance.Period{Year: req.Year, Month: time.Month(req.Month)}
	if err := period.Validate(); err != nil {
		return SubmissionResponse{}, err
	}
	if len(req.Documents) == 0 {
		return SubmissionResponse{}, &compliance.ValidationError{Field: "documents", Reason: "at least one document is required"}
	}

	sub := model.Submission{
		ID:        uuid.New(),
		VendorID:  vid,
		Year:      req.Year,
		Month:     req.Month,
		Documents: make([]model.Document, 0, len(req.Documents)),
	}
	for i, d := range req.Documents {
		docType, ok := s.catalog.Lookup(strings.TrimSpace(d.DocumentType))
		if !ok {
			return SubmissionResponse{}, &compliance.ValidationError{
				Field:  fmt.Sprintf("documents[%d].document_type", i),
				Reason: fmt.Sprintf("unknown document type %q", d.DocumentType),
			}
		}
		files, fileErr := newFiles(d.Files)
		if fileErr != nil {
			return SubmissionResponse{}, fmt.Errorf("documents[%d]: %w", i, fileErr)
		}
		title := strings.TrimSpace(d.Title)
		if title == "" {
			title = docType.DisplayName
		}
		doc := model.Document{
			ID:           uuid.New(),
			SubmissionID: sub.ID,
			DocumentType: docType.ID,
			Title:        title,
			Files:        files,
		}
		for j := range doc.Files {
			doc.Files[j].DocumentID = doc.ID
		}
		sub.Documents = append(sub.Documents, doc)
	}
	if err := refresh(&sub); err != nil {
		return SubmissionResponse{}, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.repo.CreateSubmission(txCtx, &sub); createErr != nil {
			return fmt.Errorf("failed to create submission: %w", createErr)
		}
		types := make([]string, 0, len(sub.Documents))
		for _, d := range sub.Documents {
			types = append(types, d.DocumentType)
		}
		return writeAudit(txCtx, s.audit, &vid, model.ActionCreateSubmission, sub.ID.String(), period.String(), map[string]interface{}{
			"document_types": types,
		})
	})
	if err != nil {
		return SubmissionResponse{}, err
	}

	return toSubmissionResponse(sub, true), nil
}

// GetSubmission returns the submission with every status recomputed from the stored files.
func (s *submissionService) GetSubmission(ctx context.Context, id string) (SubmissionResponse, error) {
	sub, err := s.load(ctx, id)
	if err != nil {
		return SubmissionResponse{}, err
	}
	return toSubmissionResponse(*sub, true), nil
}

func (s *submissionService) ListSubmissions(ctx context.Context, filter SubmissionListFilter) ([]SubmissionResponse, int64, error) {
	var repoFilter repository.SubmissionFilter
	vendor, err := parseOptionalID("vendor_id", filter.VendorID)
	if err != nil {
		return nil, 0, err
	}
	repoFilter.VendorID = vendor
	// Vendors only see their own submissions.
	if c, ok := callerFrom(ctx); ok && c.Vendor {
		own, ownErr := parseID("vendor_id", c.ID)
		if ownErr != nil {
			return nil, 0, ownErr
		}
		repoFilter.VendorID = &own
	}
	repoFilter.Year = filter.Year
	repoFilter.Month = filter.Month

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	subs, total, err := s.repo.ListSubmissions(ctx, repoFilter, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]SubmissionResponse, 0, len(subs))
	for _, sub := range subs {
		result = append(result, toSubmissionResponse(sub, false))
	}
	return result, total, nil
}

func (s *submissionService) CheckCompleteness(ctx context.Context, id string) (CompletenessResponse, error) {
	sub, err := s.load(ctx, id)
	if err != nil {
		return CompletenessResponse{}, err
	}
	period := compliance.SubmissionPeriod(sub)
	missing := s.catalog.MissingMandatoryTypes(period, compliance.UploadedTypes(sub))
	return CompletenessResponse{
		SubmissionID: sub.ID.String(),
		Period:       period.String(),
		Required:     s.catalog.Required(period),
		Missing:      missing,
		Complete:     missing.Complete(),
	}, nil
}

func (s *submissionService) Assess(ctx context.Context, id string) (AssessmentResponse, error) {
	sub, err := s.load(ctx, id)
	if err != nil {
		return AssessmentResponse{}, err
	}
	assessment, err := compliance.Assess(sub, s.excluded)
	if err != nil {
		return AssessmentResponse{}, err
	}
	return AssessmentResponse{SubmissionID: sub.ID.String(), Assessment: assessment}, nil
}

// Finalize produces the final compliance report. It refuses while any mandatory document type
// is missing or any in-scope document is rejected. The checks, the archive write and the audit
// row all happen under the submission lock.
func (s *submissionService) Finalize(ctx context.Context, id, actorID string) (FinalReportResponse, error) {
	actor, err := parseOptionalID("actor_id", actorID)
	if err != nil {
		return FinalReportResponse{}, err
	}
	sid, err := parseID("submission_id", id)
	if err != nil {
		return FinalReportResponse{}, err
	}

	var report FinalReportResponse
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if lockErr := s.repo.LockSubmission(txCtx, sid); lockErr != nil {
			return unknownID("submission_id", sid, lockErr)
		}
		sub, loadErr := s.loadByID(txCtx, sid)
		if loadErr != nil {
			return loadErr
		}

		period := compliance.SubmissionPeriod(sub)
		missing := s.catalog.MissingMandatoryTypes(period, compliance.UploadedTypes(sub))
		if !missing.Complete() {
			return &compliance.InvalidStateError{
				Entity: "submission",
				ID:     sub.ID.String(),
				State:  sub.Status,
				Reason: "mandatory document types missing: " + strings.Join(missing.All(), ", "),
			}
		}

		assessment, assessErr := compliance.Assess(sub, s.excluded)
		if assessErr != nil {
			return assessErr
		}
		if !assessment.Finalizable {
			return &compliance.InvalidStateError{
				Entity: "submission",
				ID:     sub.ID.String(),
				State:  sub.Status,
				Reason: fmt.Sprintf("%d rejected document(s) must be resolved before finalizing", assessment.Metrics.RejectedDocuments),
			}
		}

		finalizedAt := s.clock.Now()
		report = FinalReportResponse{
			SubmissionID: sub.ID.String(),
			Period:       period.String(),
			Assessment:   assessment,
			Required:     s.catalog.Required(period),
			Archived:     s.archiver != nil,
			FinalizedAt:  finalizedAt.Format(time.RFC3339),
		}

		if auditErr := writeAudit(txCtx, s.audit, actor, model.ActionFinalizeSubmission, sub.ID.String(), period.String(), map[string]interface{}{
			"compliance_rate": assessment.Metrics.ComplianceRate,
			"total_documents": assessment.Metrics.TotalDocuments,
			"archived":        report.Archived,
		}); auditErr != nil {
			return auditErr
		}

		// Last, so a failed archive write rolls the audit row back.
		if s.archiver != nil {
			if archiveErr := s.archiver.Archive(txCtx, sub, assessment, finalizedAt); archiveErr != nil {
				return fmt.Errorf("failed to archive submission snapshot: %w", archiveErr)
			}
		}
		return nil
	})
	if err != nil {
		return FinalReportResponse{}, err
	}
	return report, nil
}

// ArchivedReport reads the snapshot written when the submission was finalized.
func (s *submissionService) ArchivedReport(ctx context.Context, id string) (ArchivedReportResponse, error) {
	sub, err := s.load(ctx, id)
	if err != nil {
		return ArchivedReportResponse{}, err
	}
	if s.archiver == nil {
		return ArchivedReportResponse{}, &compliance.InvalidStateError{
			Entity: "submission",
			ID:     sub.ID.String(),
			State:  sub.Status,
			Reason: "report archiving is not configured",
		}
	}

	snap, err := s.archiver.Get(ctx, sub.ID.String())
	if errors.Is(err, archive.ErrNotFound) {
		return ArchivedReportResponse{}, &compliance.InvalidStateError{
			Entity: "submission",
			ID:     sub.ID.String(),
			State:  sub.Status,
			Reason: "submission has not been finalized",
		}
	}
	if err != nil {
		return ArchivedReportResponse{}, fmt.Errorf("failed to read archived report: %w", err)
	}

	archived, err := snap.Submission()
	if err != nil {
		return ArchivedReportResponse{}, fmt.Errorf("failed to rebuild archived submission: %w", err)
	}
	return ArchivedReportResponse{
		Submission:     toSubmissionResponse(*archived, true),
		ComplianceRate: snap.ComplianceRate,
		TotalDocuments: snap.Total,
		Approved:       snap.Approved,
		Rejected:       snap.Rejected,
		Pending:        snap.Pending,
		FinalizedAt:    snap.FinalizedAt,
	}, nil
}

func (s *submissionService) DocumentTypes() []model.DocumentType {
	return s.catalog.Types()
}

// load reads a submission and recomputes its cached statuses in memory without writing them.
func (s *submissionService) load(ctx context.Context, id string) (*model.Submission, error) {
	sid, err := parseID("submission_id", id)
	if err != nil {
		return nil, err
	}
	return s.loadByID(ctx, sid)
}

func (s *submissionService) loadByID(ctx context.Context, sid uuid.UUID) (*model.Submission, error) {
	sub, err := s.repo.LoadSubmission(ctx, sid)
	if err != nil {
		return nil, unknownID("submission_id", sid, err)
	}
	if err := authorize(ctx, sub); err != nil {
		return nil, err
	}
	if err := refresh(sub); err != nil {
		return nil, err
	}
	return sub, nil
}
