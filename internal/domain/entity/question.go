package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
)

// StringArray - пользовательский тип для хранения вариантов ответа
type StringArray []string

// Question представляет один вопрос внутри набора.
// Вопросы хранятся в JSONB-колонке question_sets.questions в порядке автора.
type Question struct {
	ID      string      `json:"id"`
	Text    string      `json:"text"`
	Options StringArray `json:"options"`
	// Answer - правильный вариант. Пустая строка означает "без правильного ответа".
	Answer string `json:"answer"`
}

// IsCorrect сравнивает выбранное значение с правильным ответом.
// Сравнение строгое: без нормализации регистра и пробелов.
// Значения нестрокового типа никогда не считаются правильными.
func (q *Question) IsCorrect(value interface{}) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	return s == q.Answer
}

// HasOption проверяет, входит ли значение в список вариантов
func (q *Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if o == value {
			return true
		}
	}
	return false
}

// Validate проверяет, что у вопроса есть текст и хотя бы один непустой вариант
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text is required")
	}
	if len(q.Options) == 0 {
		return errors.New("question options are required")
	}
	for _, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return errors.New("question options must not be empty")
		}
	}
	return nil
}

// QuestionList - упорядоченный список вопросов, сохраняемый в JSONB
type QuestionList []Question

// Scan реализует интерфейс sql.Scanner для QuestionList
func (l *QuestionList) Scan(value interface{}) error {
	if value == nil {
		*l = QuestionList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*l = QuestionList{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Value реализует интерфейс driver.Valuer для QuestionList
func (l QuestionList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// IDs возвращает идентификаторы вопросов в исходном порядке
func (l QuestionList) IDs() []string {
	ids := make([]string, len(l))
	for i, q := range l {
		ids[i] = q.ID
	}
	return ids
}

// AnswerKey возвращает снимок правильных ответов: id вопроса -> правильный вариант
func (l QuestionList) AnswerKey() StringMap {
	key := make(StringMap, len(l))
	for _, q := range l {
		key[q.ID] = q.Answer
	}
	return key
}

// Sanitized возвращает копию списка без правильных ответов
func (l QuestionList) Sanitized() QuestionList {
	out := make(QuestionList, len(l))
	for i, q := range l {
		out[i] = Question{
			ID:      q.ID,
			Text:    q.Text,
			Options: append(StringArray(nil), q.Options...),
		}
	}
	return out
}
