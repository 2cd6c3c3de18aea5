package service

import "github.com/yourusername/answerly-api/internal/domain/entity"

// LiveNotifier получает события о новых отправках и изменениях результатов
type LiveNotifier interface {
	AnswerSubmitted(set *entity.QuestionSet, answer *entity.Answer, summary RespondentSummary)
	AnswersCleared(set *entity.QuestionSet, removed int64)
	AllAnswersCleared(removed int64)
	ResultsRegraded(set *entity.QuestionSet, updated int)
	SetDeleted(set *entity.QuestionSet)
}

type noopNotifier struct{}

func (noopNotifier) AnswerSubmitted(*entity.QuestionSet, *entity.Answer, RespondentSummary) {}
func (noopNotifier) AnswersCleared(*entity.QuestionSet, int64)                              {}
func (noopNotifier) AllAnswersCleared(int64)                                                {}
func (noopNotifier) ResultsRegraded(*entity.QuestionSet, int)                               {}
func (noopNotifier) SetDeleted(*entity.QuestionSet)                                         {}

// Viewer описывает вызывающего, как его видит провайдер идентичности.
// Нулевое значение означает анонимного пользователя.
type Viewer struct {
	UserID   uint
	Username string
	IsAdmin  bool
}

// IsAuthenticated проверяет, что вызывающий аутентифицирован
func (v Viewer) IsAuthenticated() bool {
	return v.UserID != 0
}

// Owns проверяет, является ли вызывающий владельцем набора
func (v Viewer) Owns(set *entity.QuestionSet) bool {
	return v.IsAuthenticated() && set.IsOwnedBy(v.UserID)
}

// CanViewResults проверяет доступ к результатам: владелец или администратор
func (v Viewer) CanViewResults(set *entity.QuestionSet) bool {
	return v.Owns(set) || (v.IsAuthenticated() && v.IsAdmin)
}
