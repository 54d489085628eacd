package compliance

import "compliance/internal/model"

// Rollup folds child statuses into one parent status. The first matching rule wins:
//
//	empty           -> pending
//	all approved    -> approved
//	any rejected    -> rejected
//	any change_req. -> change_requested
//	otherwise       -> under_review
//
// It is applied to file statuses for a document and to document statuses for a submission.
func Rollup(statuses []model.Status) (model.Status, error) {
	if len(statuses) == 0 {
		return model.StatusPending, nil
	}

	allApproved := true
	anyRejected := false
	anyChangeRequested := false
	for i, s := range statuses {
		if !s.IsKnown() {
			return "", &InconsistentRollupError{Value: s, Index: i}
		}
		switch s {
		case model.StatusApproved:
			continue
		case model.StatusRejected:
			anyRejected = true
		case model.StatusChangeRequested:
			anyChangeRequested = true
		}
		allApproved = false
	}

	switch {
	case allApproved:
		return model.StatusApproved, nil
	case anyRejected:
		return model.StatusRejected, nil
	case anyChangeRequested:
		return model.StatusChangeRequested, nil
	default:
		return model.StatusUnderReview, nil
	}
}

// DocumentStatus recomputes a document's status from its files. The cached Status field is ignored.
func DocumentStatus(doc *model.Document) (model.Status, error) {
	return Rollup(doc.FileStatuses())
}

// SubmissionStatus recomputes a submission's status from the file statuses of every document.
// Superseded documents are kept for audit but take no part in the rollup.
func SubmissionStatus(sub *model.Submission) (model.Status, error) {
	superseded := SupersededDocuments(sub)
	statuses := make([]model.Status, 0, len(sub.Documents))
	for i := range sub.Documents {
		doc := &sub.Documents[i]
		if superseded[doc.ID] {
			continue
		}
		st, err := DocumentStatus(doc)
		if err != nil {
			return "", err
		}
		statuses = append(statuses, st)
	}
	return Rollup(statuses)
}

// Refresh rewrites the cached status of every document and of the submission itself.
// It is idempotent: running it twice on the same files yields the same statuses.
func Refresh(sub *model.Submission) error {
	for i := range sub.Documents {
		st, err := DocumentStatus(&sub.Documents[i])
		if err != nil {
			return err
		}
		sub.Documents[i].Status = st
	}
	st, err := SubmissionStatus(sub)
	if err != nil {
		return err
	}
	sub.Status = st
	return nil
}
