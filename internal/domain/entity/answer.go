package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AnonymousName - имя респондента по умолчанию
const AnonymousName = "Anonymous"

// AnswerMap хранит ответы респондента: id вопроса -> выбранное значение.
// Значения произвольной формы и не сверяются со списком вариантов.
type AnswerMap map[string]interface{}

// Scan реализует интерфейс sql.Scanner для AnswerMap
func (m *AnswerMap) Scan(value interface{}) error {
	if value == nil {
		*m = AnswerMap{}
		return nil
	}
	bytes, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*m = AnswerMap{}
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для AnswerMap
func (m AnswerMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// HasValue проверяет, что для вопроса есть непустое значение
func (m AnswerMap) HasValue(questionID string) bool {
	v, ok := m[questionID]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// StringMap - JSONB-словарь строк (снимок правильных ответов)
type StringMap map[string]string

// Scan реализует интерфейс sql.Scanner для StringMap
func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для StringMap
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func jsonbBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("failed to unmarshal JSONB value: expected []byte")
	}
}

// Answer представляет одну отправку ответов на набор вопросов
type Answer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	QuestionSetID  uint      `gorm:"not null;index;uniqueIndex:idx_answers_set_respondent" json:"question_set_id"`
	UserID         *uint     `gorm:"index" json:"user_id,omitempty"`
	RespondentName string    `gorm:"size:100;not null;default:'Anonymous'" json:"respondent_name"`
	RespondentKey  string    `gorm:"size:160;not null;uniqueIndex:idx_answers_set_respondent" json:"-"`
	Answers        AnswerMap `gorm:"type:jsonb;not null" json:"answers"`
	Score          *int      `json:"score"`
	TotalQuestions int       `gorm:"not null;default:0" json:"total_questions"`
	AnswerKey      StringMap `gorm:"type:jsonb" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Answer) TableName() string {
	return "answers"
}

// Identity восстанавливает идентичность респондента из сохраненной записи
func (a *Answer) Identity() Identity {
	if a.UserID != nil {
		return Registered(*a.UserID, a.RespondentName)
	}
	return Freeform(a.RespondentName)
}

// IsScored проверяет, был ли ответ оценен при отправке
func (a *Answer) IsScored() bool {
	return a.Score != nil
}

// IdentityKind различает зарегистрированных и анонимных респондентов
type IdentityKind int

const (
	// IdentityFreeform - респондент, представившийся произвольным именем
	IdentityFreeform IdentityKind = iota
	// IdentityRegistered - аутентифицированный пользователь
	IdentityRegistered
)

// Identity - идентичность респондента: Registered(userID) | Freeform(displayName)
type Identity struct {
	Kind        IdentityKind
	UserID      uint
	DisplayName string
}

// Registered создает идентичность аутентифицированного пользователя
func Registered(userID uint, displayName string) Identity {
	if strings.TrimSpace(displayName) == "" {
		displayName = fmt.Sprintf("user #%d", userID)
	}
	return Identity{Kind: IdentityRegistered, UserID: userID, DisplayName: displayName}
}

// Freeform создает идентичность по произвольному имени
func Freeform(displayName string) Identity {
	if displayName == "" {
		displayName = AnonymousName
	}
	return Identity{Kind: IdentityFreeform, DisplayName: displayName}
}

// IsRegistered проверяет, аутентифицирован ли респондент
func (i Identity) IsRegistered() bool {
	return i.Kind == IdentityRegistered
}

// Key возвращает естественный ключ респондента внутри набора.
// Для анонимных сравнение имен точное, без нормализации.
func (i Identity) Key() string {
	if i.IsRegistered() {
		return fmt.Sprintf("user:%d", i.UserID)
	}
	return "name:" + i.DisplayName
}

// Apply записывает идентичность в ответ
func (i Identity) Apply(a *Answer) {
	a.RespondentName = i.DisplayName
	a.RespondentKey = i.Key()
	if i.IsRegistered() {
		id := i.UserID
		a.UserID = &id
	} else {
		a.UserID = nil
	}
}
