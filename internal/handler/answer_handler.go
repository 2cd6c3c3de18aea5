package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/answerly-api/internal/domain/entity"
	"github.com/yourusername/answerly-api/internal/handler/dto"
	"github.com/yourusername/answerly-api/internal/service"
)

// AnswerHandler обрабатывает отправки ответов и просмотр результатов
type AnswerHandler struct {
	answerService *service.AnswerService
}

// NewAnswerHandler создает новый обработчик ответов
func NewAnswerHandler(answerService *service.AnswerService) *AnswerHandler {
	return &AnswerHandler{answerService: answerService}
}

// SubmitAnswersRequest представляет отправку ответов.
// respondent_name обязателен только для анонимных респондентов.
type SubmitAnswersRequest struct {
	RespondentName string                 `json:"respondent_name"`
	Answers        map[string]interface{} `json:"answers"`
}

// SubmitAnswers принимает отправку ответов на набор
func (h *AnswerHandler) SubmitAnswers(c *gin.Context) {
	slug := c.MustGet(ctxSlug).(string)

	var req SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	res, err := h.answerService.Submit(c.Request.Context(), slug, viewerFromContext(c), service.SubmitInput{
		RespondentName: req.RespondentName,
		Answers:        entity.AnswerMap(req.Answers),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SubmissionResponse{
		Answer: dto.NewAnswerResponse(res.Answer),
		Score:  res.Score,
	})
}

// CheckAvailability сообщает, свободно ли имя респондента для набора
func (h *AnswerHandler) CheckAvailability(c *gin.Context) {
	slug := c.MustGet(ctxSlug).(string)

	available, err := h.answerService.CheckAvailability(c.Request.Context(), slug, viewerFromContext(c), c.Query("name"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

// ListAnswers возвращает набор со всеми сырыми отправками
func (h *AnswerHandler) ListAnswers(c *gin.Context) {
	slug := c.MustGet(ctxSlug).(string)
	viewer := viewerFromContext(c)

	set, answers, err := h.answerService.Answers(c.Request.Context(), slug, viewer)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SetAnswersResponse{
		Set:     dto.NewQuestionSetResponse(set, true, true),
		Answers: dto.NewListAnswerResponse(answers),
	})
}

// GetResults возвращает сводки по респондентам.
// Query: sort=name|submitted_at|score, name=<подстрока>
func (h *AnswerHandler) GetResults(c *gin.Context) {
	slug := c.MustGet(ctxSlug).(string)

	results, err := h.answerService.Results(c.Request.Context(), slug, viewerFromContext(c), service.ResultsQuery{
		Sort: c.Query("sort"),
		Name: c.Query("name"),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ResultsResponse{
		Set:       dto.NewQuestionSetResponse(results.Set, true, false),
		Summaries: results.Summaries,
		Questions: results.Questions,
		Total:     len(results.Answers),
	})
}

// GetAnswerDetail возвращает разбор одной отправки по вопросам
func (h *AnswerHandler) GetAnswerDetail(c *gin.Context) {
	slug := c.MustGet(ctxSlug).(string)
	answerID := c.MustGet(ctxAnswerID).(uint)

	_, answer, breakdown, err := h.answerService.AnswerDetail(c.Request.Context(), slug, viewerFromContext(c), answerID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AnswerDetailResponse{
		Answer:    dto.NewAnswerResponse(answer),
		Score:     service.ScoreFromAnswer(answer),
		Breakdown: breakdown,
	})
}

// ExportResults выгружает сводки в CSV или XLSX
func (h *AnswerHandler) ExportResults(c *gin.Context) {
	slug := c.MustGet(ctxSlug).(string)
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	results, err := h.answerService.Results(c.Request.Context(), slug, viewerFromContext(c), service.ResultsQuery{
		Sort: c.Query("sort"),
		Name: c.Query("name"),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	filename := fmt.Sprintf("%s_results_%s", slug, time.Now().Format("2006-01-02"))
	if format == "xlsx" {
		exportXLSX(c, results, filename)
		return
	}
	exportCSV(c, results, filename)
}

// Regrade пересчитывает оценки по текущим правильным ответам
func (h *AnswerHandler) Regrade(c *gin.Context) {
	slug := c.MustGet(ctxSlug).(string)

	updated, err := h.answerService.Regrade(c.Request.Context(), slug, viewerFromContext(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// ClearAnswers удаляет все отправки набора
func (h *AnswerHandler) ClearAnswers(c *gin.Context) {
	slug := c.MustGet(ctxSlug).(string)

	removed, err := h.answerService.ClearAnswers(c.Request.Context(), slug, viewerFromContext(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": removed})
}
