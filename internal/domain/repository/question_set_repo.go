package repository

import (
	"context"

	"github.com/yourusername/answerly-api/internal/domain/entity"
)

// QuestionSetRepository определяет методы для работы с наборами вопросов
type QuestionSetRepository interface {
	// Create сохраняет новый набор. Возвращает ErrSlugTaken, если slug уже занят
	// (нарушение уникального индекса idx_question_sets_slug).
	Create(ctx context.Context, set *entity.QuestionSet) error
	GetByID(ctx context.Context, id uint) (*entity.QuestionSet, error)
	GetBySlug(ctx context.Context, slug string) (*entity.QuestionSet, error)
	ListByOwner(ctx context.Context, userID uint) ([]entity.QuestionSet, error)
	ListPublic(ctx context.Context, limit, offset int) ([]entity.QuestionSet, int64, error)
	Update(ctx context.Context, set *entity.QuestionSet) error
	// DeleteWithAnswers удаляет набор вместе со всеми его ответами в одной транзакции
	DeleteWithAnswers(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}
