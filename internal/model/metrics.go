package model

// ComplianceMetrics is computed on demand from a submission and never stored.
type ComplianceMetrics struct {
	TotalDocuments    int `json:"total_documents"`
	ApprovedDocuments int `json:"approved_documents"`
	RejectedDocuments int `json:"rejected_documents"`
	PendingDocuments  int `json:"pending_documents"` // pending, under_review and change_requested
	ComplianceRate    int `json:"compliance_rate"`   // 0..100, over decided documents only
}
