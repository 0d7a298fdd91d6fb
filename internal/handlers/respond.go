package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dembasy/jokko/internal/apperrors"
)

// ok writes the success envelope shared by all endpoints.
func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

// fail maps the error's classification to an HTTP status.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindPermission:
		status = http.StatusForbidden
	case apperrors.KindInvariant:
		status = http.StatusConflict
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindRemote:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
