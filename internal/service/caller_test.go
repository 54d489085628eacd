package service

import (
	"context"
	"testing"

	"compliance/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorCallersOnlyReachTheirOwnSubmissions(t *testing.T) {
	f := newFixture(t, ReviewPolicy{})
	sub := f.createSubmission(t, 3, upload("payroll_register", "a.pdf"), upload("payslips", "b.pdf"))
	payroll := sub.Documents[0]
	f.decide(t, payroll.Files[0].ID, model.StatusRejected, "unsigned")

	owner := WithCaller(context.Background(), Caller{ID: f.vendorID, Vendor: true})
	stranger := WithCaller(context.Background(), Caller{ID: uuid.NewString(), Vendor: true})
	reviewer := WithCaller(context.Background(), Caller{ID: f.reviewerID})

	_, err := f.submissions.GetSubmission(stranger, sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.submissions.CheckCompleteness(stranger, sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.submissions.Assess(stranger, sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.reviews.ResubmissionHistory(stranger, payroll.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.reviews.CreateResubmission(stranger, payroll.ID, "", ResubmissionDTO{Files: []FileUploadDTO{{FileName: "mine-now.pdf"}}})
	assert.ErrorIs(t, err, ErrForbidden)
	// The refused attempt leaves the original open for its owner.
	assert.Len(t, f.submission(t, sub.ID).Documents, 2)

	_, err = f.submissions.GetSubmission(owner, sub.ID)
	require.NoError(t, err)
	_, err = f.submissions.GetSubmission(reviewer, sub.ID)
	require.NoError(t, err)

	replacement, err := f.reviews.CreateResubmission(owner, payroll.ID, f.vendorID, ResubmissionDTO{Files: []FileUploadDTO{{FileName: "signed.pdf"}}})
	require.NoError(t, err)
	history, err := f.reviews.ResubmissionHistory(owner, replacement.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestVendorCallerListingIsScoped(t *testing.T) {
	f := newFixture(t, ReviewPolicy{})
	f.createSubmission(t, 3, upload("payroll_register", "a.pdf"))
	other := uuid.NewString()
	_, err := f.submissions.CreateSubmission(context.Background(), other, CreateSubmissionDTO{
		Year:      2024,
		Month:     3,
		Documents: []DocumentUploadDTO{upload("payslips", "s.pdf")},
	})
	require.NoError(t, err)

	// An explicit vendor_id filter cannot widen a vendor's view.
	ctx := WithCaller(context.Background(), Caller{ID: other, Vendor: true})
	subs, total, err := f.submissions.ListSubmissions(ctx, SubmissionListFilter{VendorID: f.vendorID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, other, subs[0].VendorID)

	_, total, err = f.submissions.ListSubmissions(WithCaller(context.Background(), Caller{ID: f.reviewerID}), SubmissionListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
