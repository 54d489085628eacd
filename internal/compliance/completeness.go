package compliance

import (
	"sort"
	"time"

	"compliance/internal/model"

	"github.com/google/uuid"
)

// MissingTypes is the set of mandatory type IDs not yet uploaded for a period,
// partitioned by mandatory class so callers can render a precise remediation message.
type MissingTypes struct {
	Monthly []string `json:"monthly"`
	Annual  []string `json:"annual"`
	// Other holds classes registered beyond the built-in ones (e.g. a quarterly rule).
	Other []string `json:"other,omitempty"`
}

// All returns every missing ID, sorted.
func (m MissingTypes) All() []string {
	out := make([]string, 0, len(m.Monthly)+len(m.Annual)+len(m.Other))
	out = append(out, m.Monthly...)
	out = append(out, m.Annual...)
	out = append(out, m.Other...)
	sort.Strings(out)
	return out
}

// Complete reports whether nothing is missing.
func (m MissingTypes) Complete() bool {
	return len(m.Monthly) == 0 && len(m.Annual) == 0 && len(m.Other) == 0
}

// MissingMandatoryTypes returns required(period) minus uploaded. Optional types never appear.
func (c *Catalog) MissingMandatoryTypes(period Period, uploaded map[string]bool) MissingTypes {
	missing := MissingTypes{Monthly: []string{}, Annual: []string{}}
	for _, id := range c.Required(period) {
		if uploaded[id] {
			continue
		}
		switch c.byID[id].MandatoryClass {
		case model.MandatoryMonthly:
			missing.Monthly = append(missing.Monthly, id)
		case model.MandatoryAnnualJanuaryOnly:
			missing.Annual = append(missing.Annual, id)
		default:
			missing.Other = append(missing.Other, id)
		}
	}
	return missing
}

// SupersededDocuments returns the IDs of documents that a resubmission in the same submission replaces.
func SupersededDocuments(sub *model.Submission) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool)
	for _, d := range sub.Documents {
		if d.IsReupload && d.OriginalDocumentID != nil {
			out[*d.OriginalDocumentID] = true
		}
	}
	return out
}

// ActiveDocuments returns the documents that have not been replaced by a resubmission.
func ActiveDocuments(sub *model.Submission) []*model.Document {
	superseded := SupersededDocuments(sub)
	out := make([]*model.Document, 0, len(sub.Documents))
	for i := range sub.Documents {
		if !superseded[sub.Documents[i].ID] {
			out = append(out, &sub.Documents[i])
		}
	}
	return out
}

// UploadedTypes collects the document types of the active documents of a submission.
func UploadedTypes(sub *model.Submission) map[string]bool {
	out := make(map[string]bool)
	for _, d := range ActiveDocuments(sub) {
		out[d.DocumentType] = true
	}
	return out
}

// SubmissionPeriod returns the reporting period of a submission.
func SubmissionPeriod(sub *model.Submission) Period {
	return Period{Year: sub.Year, Month: time.Month(sub.Month)}
}
