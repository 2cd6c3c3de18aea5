package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yourusername/answerly-api/internal/domain/entity"
	"github.com/yourusername/answerly-api/internal/domain/repository"
	apperrors "github.com/yourusername/answerly-api/internal/pkg/errors"
)

const (
	maxTitleLength   = 200
	defaultPageSize  = 20
	maxPageSize      = 100
	publicViewPrefix = "set:slug:"

	// staleMarkerPrefix - метка времени последней инвалидации представления
	staleMarkerPrefix = "set:stale:"
)

// QuestionSetConfig содержит настройки сервиса наборов
type QuestionSetConfig struct {
	MaxSlugRetries      int
	DefaultTimeLimitSec int
	PublicViewTTL       time.Duration
}

// QuestionInput - вопрос во входящем запросе
type QuestionInput struct {
	ID      string
	Text    string
	Options []string
	Answer  string
}

// CreateSetInput - данные для создания набора.
// Пустой Mode означает режим, определенный по названию.
type CreateSetInput struct {
	Title        string
	Mode         string
	Questions    []QuestionInput
	TimeLimitSec *int
	IsPublic     bool
}

// UpdateSetInput - частичное обновление набора. nil означает "без изменений".
type UpdateSetInput struct {
	Title        *string
	Mode         *string
	Questions    []QuestionInput
	TimeLimitSec *int
	IsPublic     *bool
}

// QuestionSetService предоставляет методы для работы с наборами вопросов
type QuestionSetService struct {
	setRepo   repository.QuestionSetRepository
	cacheRepo repository.CacheRepository
	slugs     SlugGenerator
	notifier  LiveNotifier
	config    QuestionSetConfig
}

// NewQuestionSetService создает новый сервис наборов.
// cacheRepo и notifier могут быть nil.
func NewQuestionSetService(
	setRepo repository.QuestionSetRepository,
	cacheRepo repository.CacheRepository,
	slugs SlugGenerator,
	notifier LiveNotifier,
	config QuestionSetConfig,
) *QuestionSetService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if config.MaxSlugRetries < 1 {
		config.MaxSlugRetries = 1
	}
	if config.DefaultTimeLimitSec <= 0 {
		config.DefaultTimeLimitSec = entity.DefaultTimeLimitSec
	}
	return &QuestionSetService{
		setRepo:   setRepo,
		cacheRepo: cacheRepo,
		slugs:     slugs,
		notifier:  notifier,
		config:    config,
	}
}

// CreateSet создает набор и выделяет ему уникальный slug
func (s *QuestionSetService) CreateSet(ctx context.Context, ownerID uint, input CreateSetInput) (*entity.QuestionSet, error) {
	if ownerID == 0 {
		return nil, apperrors.ErrUnauthorized
	}

	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}

	mode := input.Mode
	if mode == "" {
		mode = entity.ModeFromTitle(title)
	} else if !entity.IsValidMode(mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", apperrors.ErrValidation, mode)
	}

	questions, err := buildQuestions(input.Questions)
	if err != nil {
		return nil, err
	}

	timeLimit := s.config.DefaultTimeLimitSec
	if input.TimeLimitSec != nil {
		if *input.TimeLimitSec <= 0 {
			return nil, fmt.Errorf("%w: time limit must be positive", apperrors.ErrValidation)
		}
		timeLimit = *input.TimeLimitSec
	}

	set := &entity.QuestionSet{
		UserID:       ownerID,
		Title:        title,
		Mode:         mode,
		Questions:    questions,
		TimeLimitSec: timeLimit,
		IsPublic:     input.IsPublic,
	}

	for attempt := 1; attempt <= s.config.MaxSlugRetries; attempt++ {
		slug, err := s.slugs.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate slug: %w", err)
		}
		set.ID = 0
		set.Slug = slug

		err = s.setRepo.Create(ctx, set)
		if err == nil {
			log.Printf("[QuestionSetService] Создан набор #%d (%s, режим %s) пользователем %d", set.ID, set.Slug, set.Mode, ownerID)
			return set, nil
		}
		if !errors.Is(err, repository.ErrSlugTaken) {
			return nil, fmt.Errorf("failed to create question set: %w", err)
		}
		log.Printf("[QuestionSetService] Коллизия slug %s (попытка %d/%d)", slug, attempt, s.config.MaxSlugRetries)
	}

	return nil, apperrors.ErrSlugExhausted
}

// UpdateSet применяет частичное обновление. Slug не меняется.
func (s *QuestionSetService) UpdateSet(ctx context.Context, ownerID, id uint, patch UpdateSetInput) (*entity.QuestionSet, error) {
	set, err := s.ownedSet(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		set.Title = title
	}
	if patch.Mode != nil {
		if !entity.IsValidMode(*patch.Mode) {
			return nil, fmt.Errorf("%w: unknown mode %q", apperrors.ErrValidation, *patch.Mode)
		}
		set.Mode = *patch.Mode
	}
	if patch.Questions != nil {
		questions, err := buildQuestions(patch.Questions)
		if err != nil {
			return nil, err
		}
		set.Questions = questions
	}
	if patch.TimeLimitSec != nil {
		if *patch.TimeLimitSec <= 0 {
			return nil, fmt.Errorf("%w: time limit must be positive", apperrors.ErrValidation)
		}
		set.TimeLimitSec = *patch.TimeLimitSec
	}
	if patch.IsPublic != nil {
		set.IsPublic = *patch.IsPublic
	}

	if err := s.setRepo.Update(ctx, set); err != nil {
		return nil, fmt.Errorf("failed to update question set #%d: %w", id, err)
	}
	s.invalidate(ctx, set.Slug)
	return set, nil
}

// DeleteSet удаляет набор вместе с его ответами
func (s *QuestionSetService) DeleteSet(ctx context.Context, ownerID, id uint) error {
	set, err := s.ownedSet(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.setRepo.DeleteWithAnswers(ctx, id); err != nil {
		return fmt.Errorf("failed to delete question set #%d: %w", id, err)
	}
	s.invalidate(ctx, set.Slug)
	s.notifier.SetDeleted(set)
	log.Printf("[QuestionSetService] Набор #%d (%s) удален владельцем %d", id, set.Slug, ownerID)
	return nil
}

// GetOwnedSet возвращает полный набор, если вызывающий - владелец
func (s *QuestionSetService) GetOwnedSet(ctx context.Context, ownerID, id uint) (*entity.QuestionSet, error) {
	return s.ownedSet(ctx, ownerID, id)
}

// ListSetsByOwner возвращает наборы пользователя
func (s *QuestionSetService) ListSetsByOwner(ctx context.Context, ownerID uint) ([]entity.QuestionSet, error) {
	if ownerID == 0 {
		return nil, apperrors.ErrUnauthorized
	}
	return s.setRepo.ListByOwner(ctx, ownerID)
}

// ListPublic возвращает страницу публичных наборов без правильных ответов
func (s *QuestionSetService) ListPublic(ctx context.Context, page, pageSize int) ([]entity.QuestionSet, int64, error) {
	page, pageSize = NormalizePage(page, pageSize)
	sets, total, err := s.setRepo.ListPublic(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	for i := range sets {
		sets[i].Questions = sets[i].Questions.Sanitized()
	}
	return sets, total, nil
}

// Resolve находит набор по slug. Владелец получает полный набор,
// остальные - копию без правильных ответов. Возвращает признак полного представления.
func (s *QuestionSetService) Resolve(ctx context.Context, slug string, viewer Viewer) (*entity.QuestionSet, bool, error) {
	if !viewer.IsAuthenticated() {
		if cached, ok := s.cachedView(ctx, slug); ok {
			return cached, false, nil
		}
	}

	readAt := time.Now()
	set, err := s.setRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, false, err
	}
	if viewer.Owns(set) {
		return set, true, nil
	}

	public := set.Sanitized()
	s.storeView(ctx, public, readAt)
	return public, false, nil
}

// NormalizePage приводит параметры пагинации к допустимым значениям
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *QuestionSetService) ownedSet(ctx context.Context, ownerID, id uint) (*entity.QuestionSet, error) {
	if ownerID == 0 {
		return nil, apperrors.ErrUnauthorized
	}
	set, err := s.setRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !set.IsOwnedBy(ownerID) {
		return nil, fmt.Errorf("%w: question set #%d belongs to another user", apperrors.ErrForbidden, id)
	}
	return set, nil
}

func (s *QuestionSetService) cachedView(ctx context.Context, slug string) (*entity.QuestionSet, bool) {
	if s.cacheRepo == nil {
		return nil, false
	}
	var set entity.QuestionSet
	if err := s.cacheRepo.GetJSON(ctx, publicViewPrefix+slug, &set); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[QuestionSetService] Ошибка чтения кеша для %s: %v", slug, err)
		}
		return nil, false
	}
	return &set, true
}

// storeView кеширует представление, прочитанное в момент readAt.
// Если набор инвалидирован после readAt, прочитанная версия могла устареть
// и в кеш не попадает. Повторная проверка после записи закрывает гонку
// с инвалидацией, выполненной между проверкой и записью.
func (s *QuestionSetService) storeView(ctx context.Context, set *entity.QuestionSet, readAt time.Time) {
	if s.cacheRepo == nil || s.config.PublicViewTTL <= 0 {
		return
	}
	if s.invalidatedSince(ctx, set.Slug, readAt) {
		return
	}
	if err := s.cacheRepo.SetJSON(ctx, publicViewPrefix+set.Slug, set, s.config.PublicViewTTL); err != nil {
		log.Printf("[QuestionSetService] Ошибка записи кеша для %s: %v", set.Slug, err)
		return
	}
	if s.invalidatedSince(ctx, set.Slug, readAt) {
		s.deleteView(ctx, set.Slug)
	}
}

func (s *QuestionSetService) invalidatedSince(ctx context.Context, slug string, readAt time.Time) bool {
	var marker int64
	if err := s.cacheRepo.GetJSON(ctx, staleMarkerPrefix+slug, &marker); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false
		}
		log.Printf("[QuestionSetService] Ошибка чтения метки инвалидации для %s: %v", slug, err)
		return true
	}
	return marker >= readAt.UnixNano()
}

// invalidate сначала ставит метку инвалидации, затем удаляет представление
func (s *QuestionSetService) invalidate(ctx context.Context, slug string) {
	if s.cacheRepo == nil {
		return
	}
	if s.config.PublicViewTTL > 0 {
		if err := s.cacheRepo.SetJSON(ctx, staleMarkerPrefix+slug, time.Now().UnixNano(), s.config.PublicViewTTL); err != nil {
			log.Printf("[QuestionSetService] Ошибка записи метки инвалидации для %s: %v", slug, err)
		}
	}
	s.deleteView(ctx, slug)
}

func (s *QuestionSetService) deleteView(ctx context.Context, slug string) {
	if err := s.cacheRepo.Delete(ctx, publicViewPrefix+slug); err != nil {
		log.Printf("[QuestionSetService] Ошибка инвалидации кеша для %s: %v", slug, err)
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", fmt.Errorf("%w: title must be at most %d characters", apperrors.ErrValidation, maxTitleLength)
	}
	return title, nil
}

// buildQuestions проверяет вопросы и назначает идентификаторы тем, у кого их нет
func buildQuestions(inputs []QuestionInput) (entity.QuestionList, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: question set must contain at least one question", apperrors.ErrValidation)
	}

	seen := make(map[string]struct{}, len(inputs))
	questions := make(entity.QuestionList, 0, len(inputs))
	for i, in := range inputs {
		q := entity.Question{
			ID:      strings.TrimSpace(in.ID),
			Text:    in.Text,
			Options: append(entity.StringArray(nil), in.Options...),
			Answer:  in.Answer,
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", apperrors.ErrValidation, i+1, err)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: question %d: duplicate id %q", apperrors.ErrValidation, i+1, q.ID)
		}
		if q.Answer != "" && !q.HasOption(q.Answer) {
			return nil, fmt.Errorf("%w: question %d: correct answer must be one of the options", apperrors.ErrValidation, i+1)
		}
		seen[q.ID] = struct{}{}
		questions = append(questions, q)
	}
	return questions, nil
}
