package service

import (
	"sort"
	"strings"
	"time"

	"github.com/yourusername/answerly-api/internal/domain/entity"
)

// Варианты сортировки сводок
const (
	SortByName        = "name"
	SortBySubmittedAt = "submitted_at"
	SortByScore       = "score"
)

// RespondentSummary - сводка по одному респонденту набора
type RespondentSummary struct {
	Key             string    `json:"key"`
	DisplayName     string    `json:"display_name"`
	UserID          *uint     `json:"user_id,omitempty"`
	TotalQuestions  int       `json:"total_questions"`
	CorrectCount    int       `json:"correct_count"`
	Scored          bool      `json:"scored"`
	Percentage      float64   `json:"percentage"`
	Submissions     int       `json:"submissions"`
	LastSubmittedAt time.Time `json:"last_submitted_at"`

	// possible - сумма вопросов по всем учтенным отправкам, знаменатель процента
	possible int
}

// QuestionBreakdown - разбор одного вопроса в конкретной отправке
type QuestionBreakdown struct {
	QuestionID string      `json:"question_id"`
	Text       string      `json:"text"`
	Chosen     interface{} `json:"chosen"`
	Correct    string      `json:"correct"`
	IsCorrect  bool        `json:"is_correct"`
}

// QuestionStats - статистика ответов на вопрос по всем отправкам
type QuestionStats struct {
	QuestionID   string         `json:"question_id"`
	Text         string         `json:"text"`
	Answered     int            `json:"answered"`
	CorrectCount int            `json:"correct_count"`
	OptionCounts map[string]int `json:"option_counts"`
}

// isLegacyUnscored определяет ответы квиза, сохраненные до появления
// оценок при отправке. Сервис всегда записывает TotalQuestions, поэтому
// отправка без оценки и с TotalQuestions > 0 осталась неоцененной намеренно
// (набор был опросом при отправке или при пересчете).
func isLegacyUnscored(set *entity.QuestionSet, a *entity.Answer) bool {
	return !set.IsSurvey() && !a.IsScored() && a.AnswerKey == nil && a.TotalQuestions == 0
}

// gradingKey возвращает правильные ответы, по которым оценена отправка.
// Приоритет у снимка; текущие ответы набора используются только для
// оцененных отправок без снимка и для старых неоцененных ответов квиза.
func gradingKey(set *entity.QuestionSet, a *entity.Answer) (entity.StringMap, bool) {
	if a.AnswerKey != nil {
		return a.AnswerKey, true
	}
	if a.IsScored() || isLegacyUnscored(set, a) {
		return set.Questions.AnswerKey(), true
	}
	return nil, false
}

// answerScore возвращает оценку отправки. Сохраненная оценка имеет приоритет,
// пересчет по текущему набору выполняется только для старых неоцененных ответов квиза.
func answerScore(set *entity.QuestionSet, a *entity.Answer) (ScoreResult, bool) {
	if stored := ScoreFromAnswer(a); stored != nil {
		return *stored, true
	}
	if !isLegacyUnscored(set, a) {
		return ScoreResult{}, false
	}
	return Score(set.Questions, a.Answers), true
}

// respondentKey возвращает ключ идентичности отправки
func respondentKey(a *entity.Answer) string {
	if a.RespondentKey != "" {
		return a.RespondentKey
	}
	return a.Identity().Key()
}

// Aggregate сворачивает отправки в сводки по респондентам.
// Несколько отправок одного респондента суммируются. Порядок сводок
// соответствует первому появлению респондента.
func Aggregate(set *entity.QuestionSet, answers []entity.Answer) []RespondentSummary {
	index := make(map[string]int, len(answers))
	summaries := make([]RespondentSummary, 0, len(answers))

	for i := range answers {
		a := &answers[i]
		key := respondentKey(a)

		pos, ok := index[key]
		if !ok {
			identity := a.Identity()
			summary := RespondentSummary{
				Key:         key,
				DisplayName: identity.DisplayName,
			}
			if identity.IsRegistered() {
				id := identity.UserID
				summary.UserID = &id
			}
			summaries = append(summaries, summary)
			pos = len(summaries) - 1
			index[key] = pos
		}

		s := &summaries[pos]
		s.Submissions++

		res, scored := answerScore(set, a)
		total := res.TotalQuestions
		if !scored {
			total = a.TotalQuestions
			if total == 0 {
				total = set.QuestionCount()
			}
		}
		if scored {
			s.Scored = true
			s.CorrectCount += res.CorrectCount
			s.possible += res.TotalQuestions
		}

		if !a.CreatedAt.Before(s.LastSubmittedAt) {
			s.LastSubmittedAt = a.CreatedAt
			s.TotalQuestions = total
		}
	}

	for i := range summaries {
		if summaries[i].Scored {
			summaries[i].Percentage = percentage(summaries[i].CorrectCount, summaries[i].possible)
		}
	}
	return summaries
}

// FilterSummaries оставляет сводки, имя которых содержит подстроку (без учета регистра)
func FilterSummaries(summaries []RespondentSummary, name string) []RespondentSummary {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return summaries
	}
	out := make([]RespondentSummary, 0, len(summaries))
	for _, s := range summaries {
		if strings.Contains(strings.ToLower(s.DisplayName), needle) {
			out = append(out, s)
		}
	}
	return out
}

// SortSummaries сортирует сводки для представления.
// По умолчанию - от последних отправок к ранним.
func SortSummaries(summaries []RespondentSummary, by string) {
	var less func(a, b RespondentSummary) bool
	switch by {
	case SortByName:
		less = func(a, b RespondentSummary) bool {
			return strings.ToLower(a.DisplayName) < strings.ToLower(b.DisplayName)
		}
	case SortByScore:
		less = func(a, b RespondentSummary) bool {
			if a.Percentage != b.Percentage {
				return a.Percentage > b.Percentage
			}
			return a.LastSubmittedAt.Before(b.LastSubmittedAt)
		}
	default:
		less = func(a, b RespondentSummary) bool {
			return a.LastSubmittedAt.After(b.LastSubmittedAt)
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return less(summaries[i], summaries[j])
	})
}

// IsValidSort проверяет вариант сортировки
func IsValidSort(by string) bool {
	return by == "" || by == SortByName || by == SortBySubmittedAt || by == SortByScore
}

// Breakdown строит разбор отправки по вопросам в порядке набора.
// Правильный ответ берется из снимка, сделанного при отправке, если он есть.
func Breakdown(set *entity.QuestionSet, a *entity.Answer) []QuestionBreakdown {
	out := make([]QuestionBreakdown, 0, len(set.Questions))
	for i := range set.Questions {
		q := &set.Questions[i]
		item := QuestionBreakdown{
			QuestionID: q.ID,
			Text:       q.Text,
			Chosen:     a.Answers[q.ID],
		}
		if key, graded := gradingKey(set, a); graded {
			correct, ok := key[q.ID]
			if ok {
				item.Correct = correct
				chosen, isStr := item.Chosen.(string)
				item.IsCorrect = isStr && chosen == correct
			}
		}
		out = append(out, item)
	}
	return out
}

// QuestionStatistics считает по каждому вопросу число ответов,
// правильных ответов и распределение выбранных вариантов.
// Правильность определяется так же, как в оценке отправки.
func QuestionStatistics(set *entity.QuestionSet, answers []entity.Answer) []QuestionStats {
	stats := make([]QuestionStats, len(set.Questions))
	for i, q := range set.Questions {
		stats[i] = QuestionStats{
			QuestionID:   q.ID,
			Text:         q.Text,
			OptionCounts: make(map[string]int, len(q.Options)),
		}
		for _, o := range q.Options {
			stats[i].OptionCounts[o] = 0
		}
	}

	for i := range answers {
		a := &answers[i]
		key, graded := gradingKey(set, a)
		for j := range set.Questions {
			q := &set.Questions[j]
			if !a.Answers.HasValue(q.ID) {
				continue
			}
			stats[j].Answered++
			if s, ok := a.Answers[q.ID].(string); ok {
				stats[j].OptionCounts[s]++
			}
			if !graded {
				continue
			}
			if correct, ok := key[q.ID]; ok {
				if s, isStr := a.Answers[q.ID].(string); isStr && s == correct {
					stats[j].CorrectCount++
				}
			}
		}
	}
	return stats
}
