package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"compliance/internal/compliance"
	"compliance/internal/middleware"
	"compliance/internal/repository"
	"compliance/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

type testServer struct {
	router   *gin.Engine
	vendor   string
	reviewer string
	admin    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetJWTSecret(testSecret)

	store := repository.NewMemoryStore()
	reviews := service.NewReviewService(store, store, store, nil, nil, service.ReviewPolicy{})
	submissions := service.NewSubmissionService(store, store, store, compliance.DefaultCatalog(), nil, nil, nil)

	router := gin.New()
	NewSubmissionHandler(submissions).RegisterRoutes(router.Group(""))
	NewReviewHandler(reviews).RegisterRoutes(router.Group(""))
	NewAuditHandler(service.NewAuditService(store)).RegisterRoutes(router.Group(""))

	return &testServer{
		router:   router,
		vendor:   uuid.NewString(),
		reviewer: uuid.NewString(),
		admin:    uuid.NewString(),
	}
}

func token(t *testing.T, subject, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func document(docType string) service.DocumentUploadDTO {
	return service.DocumentUploadDTO{DocumentType: docType, Files: []service.FileUploadDTO{{FileName: docType + ".pdf"}}}
}

// marchDocuments covers every type required in March, payroll_register first.
func marchDocuments() []service.DocumentUploadDTO {
	docs := []service.DocumentUploadDTO{document("payroll_register")}
	for _, id := range compliance.DefaultCatalog().Required(compliance.Period{Year: 2024, Month: time.March}) {
		if id != "payroll_register" {
			docs = append(docs, document(id))
		}
	}
	return docs
}

func (s *testServer) createSubmissionWith(t *testing.T, docs ...service.DocumentUploadDTO) service.SubmissionResponse {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/submissions", token(t, s.vendor, middleware.RoleVendor), service.CreateSubmissionDTO{
		Year:      2024,
		Month:     3,
		Documents: docs,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sub service.SubmissionResponse
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	return sub
}

func (s *testServer) createSubmission(t *testing.T) service.SubmissionResponse {
	t.Helper()
	return s.createSubmissionWith(t, marchDocuments()...)
}

func TestDocumentTypesArePublic(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/document-types", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var types []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &types))
	assert.Len(t, types, 14)
}

func TestAuthIsRequired(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/submissions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "error", env.Status)

	w, _ = s.do(t, http.MethodGet, "/api/submissions", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": s.admin, "role": "admin"}).SignedString([]byte("other"))
	require.NoError(t, err)
	w, _ = s.do(t, http.MethodGet, "/api/submissions", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReviewFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	sub := s.createSubmission(t)
	payroll := sub.Documents[0]
	reviewerToken := token(t, s.reviewer, middleware.RoleReviewer)
	vendorToken := token(t, s.vendor, middleware.RoleVendor)

	// Vendors cannot review.
	w, _ := s.do(t, http.MethodPut, "/api/files/"+payroll.Files[0].ID+"/review", vendorToken, service.ReviewDecisionDTO{Status: "approved", Notes: "ok"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Remarks are mandatory.
	w, env := s.do(t, http.MethodPut, "/api/files/"+payroll.Files[0].ID+"/review", reviewerToken, service.ReviewDecisionDTO{Status: "approved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "notes")

	w, env = s.do(t, http.MethodPut, "/api/files/"+payroll.Files[0].ID+"/review", reviewerToken, service.ReviewDecisionDTO{Status: "rejected", Notes: "unsigned"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var doc service.DocumentResponse
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, "rejected", string(doc.Status))
	require.NotNil(t, doc.Files[0].ReviewerID)
	assert.Equal(t, s.reviewer, *doc.Files[0].ReviewerID)

	w, env = s.do(t, http.MethodGet, "/api/submissions/"+sub.ID+"/metrics", vendorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var assessment service.AssessmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &assessment))
	assert.Equal(t, 1, assessment.Metrics.RejectedDocuments)
	assert.False(t, assessment.Finalizable)

	w, _ = s.do(t, http.MethodPost, "/api/submissions/"+sub.ID+"/finalize", vendorToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/submissions/"+sub.ID+"/finalize", reviewerToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/documents/"+payroll.ID+"/resubmissions", vendorToken, service.ResubmissionDTO{
		Files: []service.FileUploadDTO{{FileName: "payroll-signed.pdf"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var replacement service.DocumentResponse
	require.NoError(t, json.Unmarshal(env.Data, &replacement))
	assert.True(t, replacement.IsReupload)

	w, env = s.do(t, http.MethodPut, "/api/documents/"+replacement.ID+"/review", reviewerToken, service.ReviewDecisionDTO{Status: "approved", Notes: "signed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(t, http.MethodGet, "/api/documents/"+replacement.ID+"/history", vendorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []service.HistoryEntry
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 2)

	w, env = s.do(t, http.MethodPost, "/api/submissions/"+sub.ID+"/finalize", reviewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report service.FinalReportResponse
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "2024-03", report.Period)
	assert.Equal(t, 100, report.Assessment.Metrics.ComplianceRate)
}

func TestResubmittingApprovedDocumentConflicts(t *testing.T) {
	s := newTestServer(t)
	sub := s.createSubmission(t)
	doc := sub.Documents[0]

	w, _ := s.do(t, http.MethodPut, "/api/documents/"+doc.ID+"/review", token(t, s.admin, middleware.RoleAdmin), service.ReviewDecisionDTO{Status: "approved", Notes: "ok"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/documents/"+doc.ID+"/resubmissions", token(t, s.vendor, middleware.RoleVendor), service.ResubmissionDTO{
		Files: []service.FileUploadDTO{{FileName: "again.pdf"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", env.Status)
}

func TestCompletenessOverHTTP(t *testing.T) {
	s := newTestServer(t)
	sub := s.createSubmissionWith(t, document("payroll_register"), document("payslips"))

	w, env := s.do(t, http.MethodGet, "/api/submissions/"+sub.ID+"/completeness", token(t, s.reviewer, middleware.RoleReviewer), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res service.CompletenessResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Complete)
	assert.Len(t, res.Missing.Monthly, 7)
	assert.Empty(t, res.Missing.Annual)
}

func TestCreateSubmissionRejectsBadPayload(t *testing.T) {
	s := newTestServer(t)
	vendorToken := token(t, s.vendor, middleware.RoleVendor)

	w, _ := s.do(t, http.MethodPost, "/api/submissions", vendorToken, map[string]interface{}{"year": 2024})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/submissions", vendorToken, service.CreateSubmissionDTO{
		Year:      2024,
		Month:     3,
		Documents: []service.DocumentUploadDTO{{DocumentType: "nonsense", Files: []service.FileUploadDTO{{FileName: "x.pdf"}}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "unknown document type")
}

func TestListSubmissionsScopesVendors(t *testing.T) {
	s := newTestServer(t)
	s.createSubmission(t)

	other := uuid.NewString()
	w, _ := s.do(t, http.MethodPost, "/api/submissions", token(t, other, middleware.RoleVendor), service.CreateSubmissionDTO{
		Year:      2024,
		Month:     4,
		Documents: []service.DocumentUploadDTO{{DocumentType: "payslips", Files: []service.FileUploadDTO{{FileName: "s.pdf"}}}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var page struct {
		Items []service.SubmissionResponse `json:"items"`
		Total int64                        `json:"total"`
	}

	w, env := s.do(t, http.MethodGet, "/api/submissions", token(t, s.vendor, middleware.RoleVendor), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, s.vendor, page.Items[0].VendorID)

	w, env = s.do(t, http.MethodGet, "/api/submissions?limit=1", token(t, s.reviewer, middleware.RoleReviewer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 1)
}

func TestAuditLogsRequireStaffRole(t *testing.T) {
	s := newTestServer(t)
	s.createSubmission(t)

	w, _ := s.do(t, http.MethodGet, "/api/audit-logs", token(t, s.vendor, middleware.RoleVendor), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/audit-logs", token(t, s.admin, middleware.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items []service.AuditLogResponse `json:"items"`
		Total int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, s.vendor, page.Items[0].UserID)
}

func TestUnknownSubmissionIsBadRequest(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/submissions/"+uuid.NewString(), token(t, s.admin, middleware.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "submission_id")
}

func TestIncompleteSubmissionCannotBeFinalized(t *testing.T) {
	s := newTestServer(t)
	sub := s.createSubmissionWith(t, document("payroll_register"), document("payslips"))

	w, env := s.do(t, http.MethodPost, "/api/submissions/"+sub.ID+"/finalize", token(t, s.reviewer, middleware.RoleReviewer), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, env.Error, "mandatory document types missing")
	assert.Contains(t, env.Error, "pf_challan")
}

func TestVendorsCannotReachOtherVendorsSubmissions(t *testing.T) {
	s := newTestServer(t)
	sub := s.createSubmission(t)
	payroll := sub.Documents[0]

	w, _ := s.do(t, http.MethodPut, "/api/files/"+payroll.Files[0].ID+"/review", token(t, s.reviewer, middleware.RoleReviewer), service.ReviewDecisionDTO{Status: "rejected", Notes: "unsigned"})
	require.Equal(t, http.StatusOK, w.Code)

	stranger := token(t, uuid.NewString(), middleware.RoleVendor)
	for _, path := range []string{
		"/api/submissions/" + sub.ID,
		"/api/submissions/" + sub.ID + "/completeness",
		"/api/submissions/" + sub.ID + "/metrics",
		"/api/submissions/" + sub.ID + "/report",
		"/api/documents/" + payroll.ID + "/history",
	} {
		w, env := s.do(t, http.MethodGet, path, stranger, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		assert.Equal(t, "error", env.Status, path)
	}

	w, _ = s.do(t, http.MethodPost, "/api/documents/"+payroll.ID+"/resubmissions", stranger, service.ResubmissionDTO{
		Files: []service.FileUploadDTO{{FileName: "not-mine.pdf"}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The owner can still resubmit.
	w, _ = s.do(t, http.MethodPost, "/api/documents/"+payroll.ID+"/resubmissions", token(t, s.vendor, middleware.RoleVendor), service.ResubmissionDTO{
		Files: []service.FileUploadDTO{{FileName: "signed.pdf"}},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/submissions/"+sub.ID, token(t, s.vendor, middleware.RoleVendor), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
