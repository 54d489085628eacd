package compliance

import (
	"testing"

	"compliance/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMetricsScenarioB(t *testing.T) {
	doc := docWithFiles("payroll_register", model.StatusApproved, model.StatusRejected)
	doc.Files[0].ReviewNotes = "ok"
	doc.Files[1].ReviewNotes = "missing signature"
	sub := &model.Submission{ID: uuid.New(), Documents: []model.Document{doc}}

	require.NoError(t, Refresh(sub))
	assert.Equal(t, model.StatusRejected, sub.Documents[0].Status)

	m, err := ComputeMetrics(sub, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceMetrics{
		TotalDocuments:    1,
		RejectedDocuments: 1,
		ComplianceRate:    0,
	}, m)
	assert.False(t, CanFinalize(m))
}

func TestAssessScenarioC(t *testing.T) {
	sub := &model.Submission{
		ID: uuid.New(),
		Documents: []model.Document{
			docWithFiles("payroll_register", model.StatusApproved),
			docWithFiles("payslips", model.StatusApproved),
			docWithFiles("pf_challan", model.StatusApproved),
			docWithFiles("esi_challan", model.StatusPending),
		},
	}

	a, err := Assess(sub, DefaultCatalog().ExcludedFromScoring())
	require.NoError(t, err)

	assert.Equal(t, 4, a.Metrics.TotalDocuments)
	assert.Equal(t, 3, a.Metrics.ApprovedDocuments)
	assert.Equal(t, 1, a.Metrics.PendingDocuments)
	// Pending documents are outside the denominator, so one unreviewed document still yields 100.
	assert.Equal(t, 100, a.Metrics.ComplianceRate)
	assert.True(t, a.Finalizable)
	assert.Empty(t, a.BlockingDocumentIDs)
}

func TestComputeMetricsExcludesFlaggedTypes(t *testing.T) {
	sub := &model.Submission{
		Documents: []model.Document{
			docWithFiles("payroll_register", model.StatusApproved),
			docWithFiles("contract_labour_license", model.StatusRejected),
			docWithFiles("registration_certificate", model.StatusPending),
		},
	}

	m, err := ComputeMetrics(sub, DefaultCatalog().ExcludedFromScoring())
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalDocuments)
	assert.Equal(t, 0, m.RejectedDocuments)
	assert.Equal(t, 100, m.ComplianceRate)
	assert.True(t, CanFinalize(m))

	m, err = ComputeMetrics(sub, map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, 3, m.TotalDocuments)
	assert.Equal(t, 1, m.RejectedDocuments)
	assert.Equal(t, 50, m.ComplianceRate)
}

func TestComputeMetricsBucketsAddUp(t *testing.T) {
	sub := &model.Submission{
		Documents: []model.Document{
			docWithFiles("a", model.StatusApproved),
			docWithFiles("b", model.StatusRejected),
			docWithFiles("c", model.StatusChangeRequested),
			docWithFiles("d", model.StatusPending, model.StatusApproved),
			docWithFiles("e"),
		},
	}

	m, err := ComputeMetrics(sub, nil)
	require.NoError(t, err)
	assert.Equal(t, m.TotalDocuments, m.ApprovedDocuments+m.RejectedDocuments+m.PendingDocuments)
	assert.Equal(t, 3, m.PendingDocuments)
}

func TestComplianceRateRounding(t *testing.T) {
	tests := []struct {
		approved, rejected, want int
	}{
		{0, 0, 0},
		{2, 1, 67},
		{1, 2, 33},
		{1, 1, 50},
		{1, 7, 13}, // 12.5 rounds half away from zero
		{5, 0, 100},
		{0, 4, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, complianceRate(tt.approved, tt.rejected), "approved=%d rejected=%d", tt.approved, tt.rejected)
	}
}

func TestAssessNamesBlockingDocuments(t *testing.T) {
	rejected := docWithFiles("payslips", model.StatusRejected)
	sub := &model.Submission{
		Documents: []model.Document{
			docWithFiles("payroll_register", model.StatusApproved),
			rejected,
		},
	}

	a, err := Assess(sub, nil)
	require.NoError(t, err)
	assert.False(t, a.Finalizable)
	assert.Equal(t, []uuid.UUID{rejected.ID}, a.BlockingDocumentIDs)
}

func TestAssessPropagatesUnknownStatus(t *testing.T) {
	sub := &model.Submission{Documents: []model.Document{docWithFiles("a", "bogus")}}

	_, err := Assess(sub, nil)
	var inconsistent *InconsistentRollupError
	assert.ErrorAs(t, err, &inconsistent)
}
