package service

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// slugAlphabet не содержит визуально похожих символов (0/O, 1/l/I)
const slugAlphabet = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// SlugGenerator генерирует публичные идентификаторы наборов
type SlugGenerator interface {
	Generate() (string, error)
}

// RandomSlugGenerator генерирует nanoid фиксированной длины из slugAlphabet
type RandomSlugGenerator struct {
	length int
}

// NewRandomSlugGenerator создает генератор slug заданной длины
func NewRandomSlugGenerator(length int) *RandomSlugGenerator {
	return &RandomSlugGenerator{length: length}
}

// Generate возвращает новый случайный slug
func (g *RandomSlugGenerator) Generate() (string, error) {
	slug, err := gonanoid.Generate(slugAlphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("failed to generate slug: %w", err)
	}
	return slug, nil
}
