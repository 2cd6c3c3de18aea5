package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/answerly-api/internal/middleware"
	apperrors "github.com/yourusername/answerly-api/internal/pkg/errors"
	"github.com/yourusername/answerly-api/internal/service"
)

// Ключи контекста, которые выставляют middleware параметров
const (
	ctxSetID    = "setID"
	ctxSlug     = "slug"
	ctxAnswerID = "answerID"
)

// handleError преобразует ошибки сервисов в HTTP ответы
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		// ErrSlugExhausted и ошибки хранилища не раскрываются клиенту
		log.Printf("ERROR: Internal server error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// viewerFromContext собирает вызывающего из данных AuthMiddleware
func viewerFromContext(c *gin.Context) service.Viewer {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return service.Viewer{}
	}
	return service.Viewer{
		UserID:   userID,
		Username: middleware.CurrentUsername(c),
		IsAdmin:  middleware.IsAdmin(c),
	}
}
