package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/answerly-api/internal/service"
)

// AdminHandler обрабатывает административные запросы
type AdminHandler struct {
	answerService *service.AnswerService
}

// NewAdminHandler создает новый обработчик администратора
func NewAdminHandler(answerService *service.AnswerService) *AdminHandler {
	return &AdminHandler{answerService: answerService}
}

// GetStats возвращает количество наборов и отправок
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.answerService.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DeleteAllAnswers удаляет все отправки во всех наборах
func (h *AdminHandler) DeleteAllAnswers(c *gin.Context) {
	removed, err := h.answerService.DeleteAllAnswers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	log.Printf("[AdminHandler] Администратор %d удалил %d отправок", viewerFromContext(c).UserID, removed)
	c.JSON(http.StatusOK, gin.H{"deleted": removed})
}
