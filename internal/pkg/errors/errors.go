package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда набор вопросов, slug или ответ не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется, когда запрос требует аутентификации, а ее нет.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда вызывающий не является владельцем ресурса.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных
	// (пустой набор вопросов, неполная отправка, пустое имя респондента).
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется, когда респондент уже отправил ответы на этот набор.
	ErrConflict = errors.New("resource state conflict")

	// ErrSlugExhausted означает, что за отведенное число попыток не удалось
	// сгенерировать уникальный slug. На практике недостижимо.
	ErrSlugExhausted = errors.New("unable to allocate unique slug")
)
