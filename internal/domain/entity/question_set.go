package entity

import (
	"strings"
	"time"
)

// Режимы набора вопросов
const (
	SetModeQuiz   = "quiz"
	SetModeSurvey = "survey"
)

// DefaultTimeLimitSec - лимит времени по умолчанию
const DefaultTimeLimitSec = 60

// QuestionSet представляет набор вопросов (викторину или опрос)
type QuestionSet struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       uint         `gorm:"not null;index" json:"user_id"`
	Title        string       `gorm:"size:200;not null" json:"title"`
	Mode         string       `gorm:"size:20;not null;default:'quiz'" json:"mode"`
	Questions    QuestionList `gorm:"type:jsonb;not null" json:"questions"`
	TimeLimitSec int          `gorm:"not null;default:60" json:"time_limit_sec"`
	IsPublic     bool         `gorm:"not null;default:false" json:"is_public"`
	Slug         string       `gorm:"size:32;not null;uniqueIndex:idx_question_sets_slug" json:"slug"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (QuestionSet) TableName() string {
	return "question_sets"
}

// IsSurvey проверяет, является ли набор опросом (без подсчета очков)
func (s *QuestionSet) IsSurvey() bool {
	return s.Mode == SetModeSurvey
}

// IsOwnedBy проверяет, принадлежит ли набор пользователю
func (s *QuestionSet) IsOwnedBy(userID uint) bool {
	return s.UserID == userID
}

// QuestionCount возвращает количество вопросов
func (s *QuestionSet) QuestionCount() int {
	return len(s.Questions)
}

// Sanitized возвращает копию набора без правильных ответов
func (s *QuestionSet) Sanitized() *QuestionSet {
	cp := *s
	cp.Questions = s.Questions.Sanitized()
	return &cp
}

// IsValidMode проверяет значение режима
func IsValidMode(mode string) bool {
	return mode == SetModeQuiz || mode == SetModeSurvey
}

// ModeFromTitle определяет режим для запросов без явного режима.
// Наборы с названием "survey" (без учета регистра) исторически считались опросами.
func ModeFromTitle(title string) string {
	if strings.EqualFold(title, "survey") {
		return SetModeSurvey
	}
	return SetModeQuiz
}
