package handler

import (
	"net/http"
	"strconv"

	"compliance/internal/middleware"
	"compliance/internal/service"
	"compliance/pkg/pagination"
	"compliance/pkg/response"

	"github.com/gin-gonic/gin"
)

type SubmissionHandler struct {
	submissionService service.SubmissionService
}

func NewSubmissionHandler(submissionService service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

func (h *SubmissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/document-types", h.GetDocumentTypes)

	submissions := router.Group("/api/submissions")
	submissions.Use(middleware.RequireRole(middleware.AllRoles...))
	{
		submissions.POST("", h.CreateSubmission)
		submissions.GET("", h.ListSubmissions)
		submissions.GET("/:id", h.GetSubmission)
		submissions.GET("/:id/completeness", h.GetCompleteness)
		submissions.GET("/:id/metrics", h.GetMetrics)
		submissions.GET("/:id/report", h.GetArchivedReport)
		submissions.POST("/:id/finalize", middleware.RequireRole(middleware.RoleReviewer, middleware.RoleAdmin), h.Finalize)
	}
}

// GetDocumentTypes returns the document type catalog
// @Summary      List document types
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.DocumentType}
// @Router       /api/document-types [get]
func (h *SubmissionHandler) GetDocumentTypes(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.submissionService.DocumentTypes()))
}

// CreateSubmission records a vendor's documents and file metadata for one period
// @Summary      Create a submission
// @Tags         submissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      service.CreateSubmissionDTO  true  "Submission"
// @Success      201   {object}  response.Response{data=service.SubmissionResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/submissions [post]
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var req service.CreateSubmissionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.submissionService.CreateSubmission(requestContext(c), currentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListSubmissions returns submissions, newest first
// @Summary      List submissions
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Param        vendor_id  query  string  false  "Vendor ID"
// @Param        year       query  int     false  "Year"
// @Param        month      query  int     false  "Month"
// @Param        page       query  int     false  "Page number (default 1)"
// @Param        limit      query  int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=response.Page}
// @Router       /api/submissions [get]
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	params := pagination.Parse(c)
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	filter := service.SubmissionListFilter{
		VendorID: c.Query("vendor_id"),
		Year:     year,
		Month:    month,
		Page:     params.Page,
		Limit:    params.Limit,
	}
	submissions, total, err := h.submissionService.ListSubmissions(requestContext(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.NewPage(submissions, total, params.Page, params.Limit)))
}

// GetSubmission returns a submission with statuses recomputed from its files
// @Summary      Get a submission
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Submission ID"
// @Success      200  {object}  response.Response{data=service.SubmissionResponse}
// @Router       /api/submissions/{id} [get]
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	result, err := h.submissionService.GetSubmission(requestContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetCompleteness lists the mandatory document types still missing for the submission's period
// @Summary      Check completeness
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Submission ID"
// @Success      200  {object}  response.Response{data=service.CompletenessResponse}
// @Router       /api/submissions/{id}/completeness [get]
func (h *SubmissionHandler) GetCompleteness(c *gin.Context) {
	result, err := h.submissionService.CheckCompleteness(requestContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetMetrics returns compliance metrics and the finalization guard
// @Summary      Compliance metrics
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Submission ID"
// @Success      200  {object}  response.Response{data=service.AssessmentResponse}
// @Router       /api/submissions/{id}/metrics [get]
func (h *SubmissionHandler) GetMetrics(c *gin.Context) {
	result, err := h.submissionService.Assess(requestContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Finalize produces the final compliance report
// @Summary      Finalize a submission
// @Description  Refused with 409 while a mandatory document type is missing or any in-scope document is rejected
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Submission ID"
// @Success      200  {object}  response.Response{data=service.FinalReportResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/submissions/{id}/finalize [post]
func (h *SubmissionHandler) Finalize(c *gin.Context) {
	result, err := h.submissionService.Finalize(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetArchivedReport returns the report archived when the submission was finalized
// @Summary      Archived final report
// @Tags         submissions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Submission ID"
// @Success      200  {object}  response.Response{data=service.ArchivedReportResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/submissions/{id}/report [get]
func (h *SubmissionHandler) GetArchivedReport(c *gin.Context) {
	result, err := h.submissionService.ArchivedReport(requestContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
