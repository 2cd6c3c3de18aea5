package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/answerly-api/internal/domain/entity"
	apperrors "github.com/yourusername/answerly-api/internal/pkg/errors"
)

// QuestionSetRepo реализует repository.QuestionSetRepository
type QuestionSetRepo struct {
	db *gorm.DB
}

// NewQuestionSetRepo создает новый репозиторий наборов вопросов
func NewQuestionSetRepo(db *gorm.DB) *QuestionSetRepo {
	return &QuestionSetRepo{db: db}
}

// Create создает новый набор.
// Нарушение idx_question_sets_slug возвращается как repository.ErrSlugTaken,
// чтобы сервис мог сгенерировать другой slug.
func (r *QuestionSetRepo) Create(ctx context.Context, set *entity.QuestionSet) error {
	if err := r.db.WithContext(ctx).Create(set).Error; err != nil {
		return setCreateError(err, set.Slug)
	}
	return nil
}

// GetByID возвращает набор по ID
func (r *QuestionSetRepo) GetByID(ctx context.Context, id uint) (*entity.QuestionSet, error) {
	var set entity.QuestionSet
	err := r.db.WithContext(ctx).First(&set, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &set, nil
}

// GetBySlug возвращает набор по публичному slug
func (r *QuestionSetRepo) GetBySlug(ctx context.Context, slug string) (*entity.QuestionSet, error) {
	var set entity.QuestionSet
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&set).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &set, nil
}

// ListByOwner возвращает все наборы пользователя, новые первыми
func (r *QuestionSetRepo) ListByOwner(ctx context.Context, userID uint) ([]entity.QuestionSet, error) {
	var sets []entity.QuestionSet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sets).Error
	return sets, err
}

// ListPublic возвращает публичные наборы с пагинацией и total count
func (r *QuestionSetRepo) ListPublic(ctx context.Context, limit, offset int) ([]entity.QuestionSet, int64, error) {
	var sets []entity.QuestionSet
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.QuestionSet{}).Where("is_public = ?", true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&sets).Error
	if err != nil {
		return nil, 0, err
	}
	return sets, total, nil
}

// Update точечно обновляет изменяемые поля набора. Slug и владелец не меняются.
func (r *QuestionSetRepo) Update(ctx context.Context, set *entity.QuestionSet) error {
	result := r.db.WithContext(ctx).Model(&entity.QuestionSet{}).
		Where("id = ?", set.ID).
		Updates(map[string]interface{}{
			"title":          set.Title,
			"mode":           set.Mode,
			"questions":      set.Questions,
			"time_limit_sec": set.TimeLimitSec,
			"is_public":      set.IsPublic,
			"updated_at":     gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteWithAnswers удаляет набор и все ответы на него в одной транзакции
func (r *QuestionSetRepo) DeleteWithAnswers(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_set_id = ?", id).Delete(&entity.Answer{}).Error; err != nil {
			return fmt.Errorf("failed to delete answers of set #%d: %w", id, err)
		}
		result := tx.Delete(&entity.QuestionSet{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// Count возвращает общее количество наборов
func (r *QuestionSetRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.QuestionSet{}).Count(&total).Error
	return total, err
}
