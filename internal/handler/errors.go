package handler

import (
	"context"
	"errors"
	"net/http"

	"compliance/internal/compliance"
	"compliance/internal/middleware"
	"compliance/internal/service"
	"compliance/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors to HTTP statuses and writes the standard envelope.
func writeError(c *gin.Context, err error) {
	var validationErr *compliance.ValidationError
	var stateErr *compliance.InvalidStateError
	var rollupErr *compliance.InconsistentRollupError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &stateErr):
		status = http.StatusConflict
	case errors.As(err, &rollupErr):
		status = http.StatusInternalServerError
	}
	c.JSON(status, response.Error(status, err.Error()))
}

// currentUserID returns the token subject set by the auth middleware.
func currentUserID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)
	return userIDStr
}

// requestContext carries the authenticated caller into the service layer.
func requestContext(c *gin.Context) context.Context {
	role, _ := c.Get("userRole")
	return service.WithCaller(c.Request.Context(), service.Caller{
		ID:     currentUserID(c),
		Vendor: role == middleware.RoleVendor,
	})
}
