package dto

import (
	"time"

	"github.com/yourusername/answerly-api/internal/domain/entity"
	"github.com/yourusername/answerly-api/internal/service"
)

// QuestionResponse представляет вопрос в формате для ответа клиенту.
// Answer заполняется только в представлении владельца.
type QuestionResponse struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  *string  `json:"answer,omitempty"`
}

// QuestionSetResponse представляет набор вопросов в формате для ответа клиенту
type QuestionSetResponse struct {
	ID            uint               `json:"id"`
	Title         string             `json:"title"`
	Mode          string             `json:"mode"`
	Slug          string             `json:"slug"`
	TimeLimitSec  int                `json:"time_limit_sec"`
	IsPublic      bool               `json:"is_public"`
	QuestionCount int                `json:"question_count"`
	Questions     []QuestionResponse `json:"questions,omitempty"`
	IsOwnerView   bool               `json:"is_owner_view"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// PaginatedQuestionSetResponse - страница публичного каталога
type PaginatedQuestionSetResponse struct {
	Sets     []*QuestionSetResponse `json:"sets"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

// AnswerResponse представляет сохраненную отправку
type AnswerResponse struct {
	ID             uint                   `json:"id"`
	QuestionSetID  uint                   `json:"question_set_id"`
	RespondentName string                 `json:"respondent_name"`
	UserID         *uint                  `json:"user_id,omitempty"`
	Answers        map[string]interface{} `json:"answers"`
	Score          *int                   `json:"score"`
	TotalQuestions int                    `json:"total_questions"`
	CreatedAt      time.Time              `json:"created_at"`
}

// SubmissionResponse - ответ на отправку; score отсутствует для опросов
type SubmissionResponse struct {
	Answer *AnswerResponse      `json:"answer"`
	Score  *service.ScoreResult `json:"score,omitempty"`
}

// ResultsResponse - сводки по респондентам и статистика по вопросам
type ResultsResponse struct {
	Set       *QuestionSetResponse        `json:"set"`
	Summaries []service.RespondentSummary `json:"summaries"`
	Questions []service.QuestionStats     `json:"questions"`
	Total     int                         `json:"total_submissions"`
}

// SetAnswersResponse - набор и все его сырые отправки
type SetAnswersResponse struct {
	Set     *QuestionSetResponse `json:"set"`
	Answers []*AnswerResponse    `json:"answers"`
}

// AnswerDetailResponse - отправка и ее разбор по вопросам
type AnswerDetailResponse struct {
	Answer    *AnswerResponse             `json:"answer"`
	Score     *service.ScoreResult        `json:"score,omitempty"`
	Breakdown []service.QuestionBreakdown `json:"breakdown"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q *entity.Question, withAnswer bool) QuestionResponse {
	resp := QuestionResponse{
		ID:      q.ID,
		Text:    q.Text,
		Options: append([]string{}, q.Options...),
	}
	if withAnswer {
		answer := q.Answer
		resp.Answer = &answer
	}
	return resp
}

// NewQuestionSetResponse создает DTO для набора.
// full=false никогда не раскрывает правильные ответы.
func NewQuestionSetResponse(set *entity.QuestionSet, full, includeQuestions bool) *QuestionSetResponse {
	resp := &QuestionSetResponse{
		ID:            set.ID,
		Title:         set.Title,
		Mode:          set.Mode,
		Slug:          set.Slug,
		TimeLimitSec:  set.TimeLimitSec,
		IsPublic:      set.IsPublic,
		QuestionCount: set.QuestionCount(),
		IsOwnerView:   full,
		CreatedAt:     set.CreatedAt,
		UpdatedAt:     set.UpdatedAt,
	}
	if includeQuestions {
		resp.Questions = make([]QuestionResponse, len(set.Questions))
		for i := range set.Questions {
			resp.Questions[i] = NewQuestionResponse(&set.Questions[i], full)
		}
	}
	return resp
}

// NewListQuestionSetResponse создает список DTO без вопросов
func NewListQuestionSetResponse(sets []entity.QuestionSet, full bool) []*QuestionSetResponse {
	out := make([]*QuestionSetResponse, len(sets))
	for i := range sets {
		out[i] = NewQuestionSetResponse(&sets[i], full, false)
	}
	return out
}

// NewAnswerResponse создает DTO для отправки
func NewAnswerResponse(a *entity.Answer) *AnswerResponse {
	answers := make(map[string]interface{}, len(a.Answers))
	for k, v := range a.Answers {
		answers[k] = v
	}
	return &AnswerResponse{
		ID:             a.ID,
		QuestionSetID:  a.QuestionSetID,
		RespondentName: a.RespondentName,
		UserID:         a.UserID,
		Answers:        answers,
		Score:          a.Score,
		TotalQuestions: a.TotalQuestions,
		CreatedAt:      a.CreatedAt,
	}
}

// NewListAnswerResponse создает список DTO отправок
func NewListAnswerResponse(answers []entity.Answer) []*AnswerResponse {
	out := make([]*AnswerResponse, len(answers))
	for i := range answers {
		out[i] = NewAnswerResponse(&answers[i])
	}
	return out
}
