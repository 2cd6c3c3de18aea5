package service

import (
	"math"

	"github.com/yourusername/answerly-api/internal/domain/entity"
)

// ScoreResult - результат оценки одной отправки
type ScoreResult struct {
	CorrectCount   int     `json:"correct_count"`
	TotalQuestions int     `json:"total_questions"`
	Percentage     float64 `json:"percentage"`
}

// Score сверяет ответы с правильными ответами текущего набора.
// Сравнение строгое, без нормализации регистра и пробелов.
func Score(questions entity.QuestionList, answers entity.AnswerMap) ScoreResult {
	correct := 0
	for i := range questions {
		if questions[i].IsCorrect(answers[questions[i].ID]) {
			correct++
		}
	}
	return newScoreResult(correct, len(questions))
}

// ScoreFromAnswer восстанавливает результат по сохраненной оценке
func ScoreFromAnswer(a *entity.Answer) *ScoreResult {
	if a.Score == nil {
		return nil
	}
	res := newScoreResult(*a.Score, a.TotalQuestions)
	return &res
}

func newScoreResult(correct, total int) ScoreResult {
	return ScoreResult{
		CorrectCount:   correct,
		TotalQuestions: total,
		Percentage:     percentage(correct, total),
	}
}

// percentage округляет до двух знаков; для пустого набора возвращает 0
func percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)*10000/float64(total)) / 100
}
