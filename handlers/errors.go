package handlers

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"github.com/gin-gonic/gin"
)

// writeBindError reports a request binding failure with per-field detail.
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "invalid request",
		"fields": utils.MapValidationErrors(err),
	})
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	var resolutionErr *utils.ResolutionError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &resolutionErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": resolutionErr.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
