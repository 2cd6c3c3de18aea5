package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/answerly-api/internal/handler/dto"
	"github.com/yourusername/answerly-api/internal/service"
)

// QuestionSetHandler обрабатывает запросы, связанные с наборами вопросов
type QuestionSetHandler struct {
	setService *service.QuestionSetService
}

// NewQuestionSetHandler создает новый обработчик наборов
func NewQuestionSetHandler(setService *service.QuestionSetService) *QuestionSetHandler {
	return &QuestionSetHandler{setService: setService}
}

// QuestionRequest представляет вопрос в запросе
type QuestionRequest struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

// CreateQuestionSetRequest представляет запрос на создание набора
type CreateQuestionSetRequest struct {
	Title        string            `json:"title"`
	Mode         string            `json:"mode"`
	Questions    []QuestionRequest `json:"questions"`
	TimeLimitSec *int              `json:"time_limit_sec"`
	IsPublic     bool              `json:"is_public"`
}

// UpdateQuestionSetRequest представляет частичное обновление набора
type UpdateQuestionSetRequest struct {
	Title        *string           `json:"title"`
	Mode         *string           `json:"mode"`
	Questions    []QuestionRequest `json:"questions"`
	TimeLimitSec *int              `json:"time_limit_sec"`
	IsPublic     *bool             `json:"is_public"`
}

func toQuestionInputs(reqs []QuestionRequest) []service.QuestionInput {
	if reqs == nil {
		return nil
	}
	out := make([]service.QuestionInput, len(reqs))
	for i, q := range reqs {
		out[i] = service.QuestionInput{ID: q.ID, Text: q.Text, Options: q.Options, Answer: q.Answer}
	}
	return out
}

// CreateSet обрабатывает запрос на создание набора
func (h *QuestionSetHandler) CreateSet(c *gin.Context) {
	var req CreateQuestionSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	set, err := h.setService.CreateSet(c.Request.Context(), viewerFromContext(c).UserID, service.CreateSetInput{
		Title:        req.Title,
		Mode:         req.Mode,
		Questions:    toQuestionInputs(req.Questions),
		TimeLimitSec: req.TimeLimitSec,
		IsPublic:     req.IsPublic,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuestionSetResponse(set, true, true))
}

// UpdateSet обрабатывает частичное обновление набора владельцем
func (h *QuestionSetHandler) UpdateSet(c *gin.Context) {
	setID := c.MustGet(ctxSetID).(uint)

	var req UpdateQuestionSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	set, err := h.setService.UpdateSet(c.Request.Context(), viewerFromContext(c).UserID, setID, service.UpdateSetInput{
		Title:        req.Title,
		Mode:         req.Mode,
		Questions:    toQuestionInputs(req.Questions),
		TimeLimitSec: req.TimeLimitSec,
		IsPublic:     req.IsPublic,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuestionSetResponse(set, true, true))
}

// DeleteSet удаляет набор вместе с ответами
func (h *QuestionSetHandler) DeleteSet(c *gin.Context) {
	setID := c.MustGet(ctxSetID).(uint)

	if err := h.setService.DeleteSet(c.Request.Context(), viewerFromContext(c).UserID, setID); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Question set deleted"})
}

// ListMySets возвращает наборы текущего пользователя
func (h *QuestionSetHandler) ListMySets(c *gin.Context) {
	sets, err := h.setService.ListSetsByOwner(c.Request.Context(), viewerFromContext(c).UserID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListQuestionSetResponse(sets, true))
}

// GetOwnedSet возвращает полный набор владельцу по ID
func (h *QuestionSetHandler) GetOwnedSet(c *gin.Context) {
	setID := c.MustGet(ctxSetID).(uint)

	set, err := h.setService.GetOwnedSet(c.Request.Context(), viewerFromContext(c).UserID, setID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuestionSetResponse(set, true, true))
}

// ResolveSet возвращает набор по slug. Правильные ответы видит только владелец.
func (h *QuestionSetHandler) ResolveSet(c *gin.Context) {
	slug := c.MustGet(ctxSlug).(string)

	set, full, err := h.setService.Resolve(c.Request.Context(), slug, viewerFromContext(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuestionSetResponse(set, full, true))
}

// ListPublicSets возвращает страницу публичного каталога
func (h *QuestionSetHandler) ListPublicSets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = service.NormalizePage(page, pageSize)

	sets, total, err := h.setService.ListPublic(c.Request.Context(), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PaginatedQuestionSetResponse{
		Sets:     dto.NewListQuestionSetResponse(sets, false),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}
