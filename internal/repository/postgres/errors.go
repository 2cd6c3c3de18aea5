package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/answerly-api/internal/domain/repository"
)

// Имена уникальных индексов, нарушение которых переводится в доменные ошибки
const (
	slugConstraint       = "idx_question_sets_slug"
	respondentConstraint = "idx_answers_set_respondent"
)

// uniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
// и возвращает имя нарушенного ограничения
func uniqueViolation(err error) (string, bool) {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}

// setCreateError переводит ошибку вставки набора: занятый slug → repository.ErrSlugTaken
func setCreateError(err error, slug string) error {
	if constraint, ok := uniqueViolation(err); ok && constraint == slugConstraint {
		return fmt.Errorf("%w: %s", repository.ErrSlugTaken, slug)
	}
	return err
}

// answerCreateError переводит ошибку вставки ответа: повтор респондента → repository.ErrDuplicateRespondent
func answerCreateError(err error, setID uint) error {
	if constraint, ok := uniqueViolation(err); ok && constraint == respondentConstraint {
		return fmt.Errorf("%w: set #%d", repository.ErrDuplicateRespondent, setID)
	}
	return err
}
