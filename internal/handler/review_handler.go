package handler

import (
	"net/http"

	"compliance/internal/middleware"
	"compliance/internal/service"
	"compliance/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewService service.ReviewService
}

func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

func (h *ReviewHandler) RegisterRoutes(router *gin.RouterGroup) {
	files := router.Group("/api/files")
	files.Use(middleware.RequireRole(middleware.RoleReviewer, middleware.RoleAdmin))
	{
		files.PUT("/:id/review", h.ReviewFile)
	}

	documents := router.Group("/api/documents")
	{
		documents.PUT("/:id/review", middleware.RequireRole(middleware.RoleReviewer, middleware.RoleAdmin), h.ReviewDocument)
		documents.POST("/:id/resubmissions", middleware.RequireRole(middleware.RoleVendor, middleware.RoleAdmin), h.CreateResubmission)
		documents.GET("/:id/history", middleware.RequireRole(middleware.AllRoles...), h.GetHistory)
	}
}

// ReviewFile records a decision on a single file
// @Summary      Review a file
// @Description  Sets approved, rejected or change_requested on one file. Remarks are mandatory for every decision.
// @Tags         review
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true  "File ID"
// @Param        body  body      service.ReviewDecisionDTO  true  "Decision"
// @Success      200   {object}  response.Response{data=service.DocumentResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/files/{id}/review [put]
func (h *ReviewHandler) ReviewFile(c *gin.Context) {
	var req service.ReviewDecisionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.reviewService.RecordDecision(requestContext(c), c.Param("id"), currentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ReviewDocument applies one decision to every file of a document, all or nothing
// @Summary      Bulk review a document
// @Tags         review
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true  "Document ID"
// @Param        body  body      service.ReviewDecisionDTO  true  "Decision"
// @Success      200   {object}  response.Response{data=service.DocumentResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/documents/{id}/review [put]
func (h *ReviewHandler) ReviewDocument(c *gin.Context) {
	var req service.ReviewDecisionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.reviewService.RecordBulkDecision(requestContext(c), c.Param("id"), currentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// CreateResubmission replaces a rejected or change-requested document
// @Summary      Resubmit a document
// @Tags         review
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true  "Original document ID"
// @Param        body  body      service.ResubmissionDTO  true  "Replacement files"
// @Success      201   {object}  response.Response{data=service.DocumentResponse}
// @Failure      409   {object}  response.Response
// @Router       /api/documents/{id}/resubmissions [post]
func (h *ReviewHandler) CreateResubmission(c *gin.Context) {
	var req service.ResubmissionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.reviewService.CreateResubmission(requestContext(c), c.Param("id"), currentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// GetHistory returns the resubmission chain of a document, newest first
// @Summary      Resubmission history
// @Tags         review
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  response.Response{data=[]service.HistoryEntry}
// @Router       /api/documents/{id}/history [get]
func (h *ReviewHandler) GetHistory(c *gin.Context) {
	history, err := h.reviewService.ResubmissionHistory(requestContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}
