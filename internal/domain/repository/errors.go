package repository

import "errors"

var (
	// ErrSlugTaken означает, что сгенерированный slug уже используется другим набором.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrDuplicateRespondent означает, что респондент уже отправил ответы на этот набор.
	ErrDuplicateRespondent = errors.New("respondent already submitted")
)
