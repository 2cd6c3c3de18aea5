package websocket

import (
	"log"
	"time"

	"github.com/yourusername/answerly-api/internal/domain/entity"
	"github.com/yourusername/answerly-api/internal/service"
)

// SubmissionEventData - полезная нагрузка события ANSWER_SUBMITTED
type SubmissionEventData struct {
	AnswerID       uint      `json:"answer_id"`
	Slug           string    `json:"slug"`
	RespondentName string    `json:"respondent_name"`
	UserID         *uint     `json:"user_id,omitempty"`
	Score          *int      `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	SubmittedAt    time.Time `json:"submitted_at"`

	// Summary - сводка респондента в том виде, в каком она попадет в результаты
	Summary service.RespondentSummary `json:"summary"`
}

// Manager превращает события домена в WebSocket-сообщения для владельцев наборов
type Manager struct {
	hub *Hub
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub *Hub) *Manager {
	return &Manager{hub: hub}
}

func (m *Manager) broadcast(slug, eventType string, data interface{}) {
	if m.hub.RoomSize(slug) == 0 {
		return
	}
	if err := m.hub.BroadcastJSON(slug, Event{Type: eventType, Data: data}); err != nil {
		log.Printf("[WebSocketManager] Ошибка рассылки %s в комнату %s: %v", eventType, slug, err)
	}
}

// AnswerSubmitted рассылает уведомление о новой отправке вместе со сводкой респондента
func (m *Manager) AnswerSubmitted(set *entity.QuestionSet, answer *entity.Answer, summary service.RespondentSummary) {
	m.broadcast(set.Slug, ANSWER_SUBMITTED, SubmissionEventData{
		AnswerID:       answer.ID,
		Slug:           set.Slug,
		RespondentName: answer.RespondentName,
		UserID:         answer.UserID,
		Score:          answer.Score,
		TotalQuestions: answer.TotalQuestions,
		SubmittedAt:    answer.CreatedAt,
		Summary:        summary,
	})
}

// AnswersCleared рассылает уведомление об очистке ответов
func (m *Manager) AnswersCleared(set *entity.QuestionSet, removed int64) {
	m.broadcast(set.Slug, ANSWERS_CLEARED, map[string]interface{}{
		"slug":    set.Slug,
		"removed": removed,
	})
}

// AllAnswersCleared сообщает всем открытым лентам, что администратор удалил все отправки
func (m *Manager) AllAnswersCleared(removed int64) {
	for _, room := range m.hub.Rooms() {
		m.broadcast(room, ANSWERS_CLEARED, map[string]interface{}{
			"slug":     room,
			"removed":  removed,
			"all_sets": true,
		})
	}
}

// ResultsRegraded рассылает уведомление о пересчете оценок
func (m *Manager) ResultsRegraded(set *entity.QuestionSet, updated int) {
	m.broadcast(set.Slug, RESULTS_REGRADED, map[string]interface{}{
		"slug":    set.Slug,
		"updated": updated,
	})
}

// SetDeleted отключает всех слушателей удаленного набора
func (m *Manager) SetDeleted(set *entity.QuestionSet) {
	m.hub.CloseRoom(set.Slug)
}
