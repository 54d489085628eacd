package compliance

import (
	"compliance/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Assessment is the scoring engine's answer to "may a final report be produced?".
// Finalizable is false while any in-scope document is rejected; BlockingDocumentIDs names them.
type Assessment struct {
	Metrics             model.ComplianceMetrics `json:"metrics"`
	Finalizable         bool                    `json:"finalizable"`
	BlockingDocumentIDs []uuid.UUID             `json:"blocking_document_ids"`
}

// ComputeMetrics counts the active documents of sub whose type is not in excluded, bucketed by
// their rolled-up status. The rate covers decided documents only: pending ones are left out of
// the denominator.
func ComputeMetrics(sub *model.Submission, excluded map[string]bool) (model.ComplianceMetrics, error) {
	metrics, _, err := score(sub, excluded)
	return metrics, err
}

// CanFinalize is the finalization guard: no rejected document may remain in scope.
func CanFinalize(metrics model.ComplianceMetrics) bool {
	return metrics.RejectedDocuments == 0
}

// Assess computes metrics and evaluates the finalization guard in one pass.
func Assess(sub *model.Submission, excluded map[string]bool) (Assessment, error) {
	metrics, blocking, err := score(sub, excluded)
	if err != nil {
		return Assessment{}, err
	}
	return Assessment{
		Metrics:             metrics,
		Finalizable:         CanFinalize(metrics),
		BlockingDocumentIDs: blocking,
	}, nil
}

func score(sub *model.Submission, excluded map[string]bool) (model.ComplianceMetrics, []uuid.UUID, error) {
	var m model.ComplianceMetrics
	blocking := []uuid.UUID{}
	for _, doc := range ActiveDocuments(sub) {
		if excluded[doc.DocumentType] {
			continue
		}
		st, err := DocumentStatus(doc)
		if err != nil {
			return model.ComplianceMetrics{}, nil, err
		}
		m.TotalDocuments++
		switch st {
		case model.StatusApproved:
			m.ApprovedDocuments++
		case model.StatusRejected:
			m.RejectedDocuments++
			blocking = append(blocking, doc.ID)
		default:
			m.PendingDocuments++
		}
	}
	m.ComplianceRate = complianceRate(m.ApprovedDocuments, m.RejectedDocuments)
	return m, blocking, nil
}

// complianceRate rounds half away from zero.
func complianceRate(approved, rejected int) int {
	decided := approved + rejected
	if decided == 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(approved)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(decided))).
		Round(0)
	return int(rate.IntPart())
}
