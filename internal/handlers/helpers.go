package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"siraqemir/internal/middleware"
	"siraqemir/internal/models"
	"siraqemir/internal/repositories"
	"siraqemir/internal/services"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

// errorStatus maps service errors onto HTTP statuses. Anything unknown is a 500
// and its text is not echoed to the client.
func errorStatus(err error) (int, string) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Message
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidRefresh),
		errors.Is(err, services.ErrRefreshExpired):
		return http.StatusUnauthorized, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func abortWithError(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	c.JSON(status, gin.H{"error": msg})
}
