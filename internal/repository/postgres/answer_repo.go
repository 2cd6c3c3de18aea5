package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/yourusername/answerly-api/internal/domain/entity"
	apperrors "github.com/yourusername/answerly-api/internal/pkg/errors"
)

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// Create сохраняет ответ.
// Уникальный индекс idx_answers_set_respondent гарантирует не более одной отправки
// на пару (набор, респондент) даже при конкурентных запросах:
// - 23505 по этому индексу → repository.ErrDuplicateRespondent
// - другая DB ошибка → возвращается как есть
func (r *AnswerRepo) Create(ctx context.Context, answer *entity.Answer) error {
	if err := r.db.WithContext(ctx).Create(answer).Error; err != nil {
		return answerCreateError(err, answer.QuestionSetID)
	}
	return nil
}

// GetByID возвращает ответ по ID
func (r *AnswerRepo) GetByID(ctx context.Context, id uint) (*entity.Answer, error) {
	var answer entity.Answer
	err := r.db.WithContext(ctx).First(&answer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &answer, nil
}

// ListBySet возвращает все ответы на набор в порядке отправки
func (r *AnswerRepo) ListBySet(ctx context.Context, setID uint) ([]entity.Answer, error) {
	var answers []entity.Answer
	err := r.db.WithContext(ctx).
		Where("question_set_id = ?", setID).
		Order("created_at, id").
		Find(&answers).Error
	return answers, err
}

// ExistsForRespondent проверяет, отправлял ли респондент ответы на набор.
// Используется только для подсказки клиенту, не для гарантии уникальности.
func (r *AnswerRepo) ExistsForRespondent(ctx context.Context, setID uint, respondentKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Answer{}).
		Where("question_set_id = ? AND respondent_key = ?", setID, respondentKey).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateScores точечно обновляет результаты оценки в одной транзакции
func (r *AnswerRepo) UpdateScores(ctx context.Context, answers []entity.Answer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range answers {
			err := tx.Model(&entity.Answer{}).
				Where("id = ?", a.ID).
				Updates(map[string]interface{}{
					"score":           a.Score,
					"total_questions": a.TotalQuestions,
					"answer_key":      a.AnswerKey,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to update score of answer #%d: %w", a.ID, err)
			}
		}
		return nil
	})
}

// DeleteBySet удаляет все ответы на набор и возвращает их количество
func (r *AnswerRepo) DeleteBySet(ctx context.Context, setID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("question_set_id = ?", setID).Delete(&entity.Answer{})
	return result.RowsAffected, result.Error
}

// DeleteAll удаляет все ответы (административная операция, без soft delete)
func (r *AnswerRepo) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entity.Answer{})
	if result.Error != nil {
		return 0, result.Error
	}
	log.Printf("[AnswerRepo] Deleted %d answers", result.RowsAffected)
	return result.RowsAffected, nil
}

// Count возвращает общее количество ответов
func (r *AnswerRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.Answer{}).Count(&total).Error
	return total, err
}
