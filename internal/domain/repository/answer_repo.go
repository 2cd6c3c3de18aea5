package repository

import (
	"context"

	"github.com/yourusername/answerly-api/internal/domain/entity"
)

// AnswerRepository определяет методы для работы с отправленными ответами
type AnswerRepository interface {
	// Create сохраняет ответ. Возвращает ErrDuplicateRespondent, если для пары
	// (набор, respondent_key) запись уже существует.
	Create(ctx context.Context, answer *entity.Answer) error
	GetByID(ctx context.Context, id uint) (*entity.Answer, error)
	ListBySet(ctx context.Context, setID uint) ([]entity.Answer, error)
	ExistsForRespondent(ctx context.Context, setID uint, respondentKey string) (bool, error)
	// UpdateScores точечно обновляет score, total_questions и answer_key
	UpdateScores(ctx context.Context, answers []entity.Answer) error
	DeleteBySet(ctx context.Context, setID uint) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}
