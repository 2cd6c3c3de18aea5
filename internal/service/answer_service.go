package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/answerly-api/internal/domain/entity"
	"github.com/yourusername/answerly-api/internal/domain/repository"
	apperrors "github.com/yourusername/answerly-api/internal/pkg/errors"
)

const maxRespondentNameLength = 100

// SubmitInput - входящая отправка ответов
type SubmitInput struct {
	RespondentName string
	Answers        entity.AnswerMap
}

// SubmissionResult - сохраненная отправка и ее оценка (nil для опросов)
type SubmissionResult struct {
	Answer *entity.Answer
	Score  *ScoreResult
}

// ResultsQuery - параметры представления результатов
type ResultsQuery struct {
	Sort string
	Name string
}

// SetResults - набор, все его отправки и сводки по респондентам
type SetResults struct {
	Set       *entity.QuestionSet
	Answers   []entity.Answer
	Summaries []RespondentSummary
	Questions []QuestionStats
}

// Stats - общая статистика для администратора
type Stats struct {
	QuestionSets int64 `json:"question_sets"`
	Answers      int64 `json:"answers"`
}

// AnswerService принимает отправки и строит результаты
type AnswerService struct {
	setRepo    repository.QuestionSetRepository
	answerRepo repository.AnswerRepository
	notifier   LiveNotifier
}

// NewAnswerService создает новый сервис ответов. notifier может быть nil.
func NewAnswerService(
	setRepo repository.QuestionSetRepository,
	answerRepo repository.AnswerRepository,
	notifier LiveNotifier,
) *AnswerService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &AnswerService{
		setRepo:    setRepo,
		answerRepo: answerRepo,
		notifier:   notifier,
	}
}

// Submit проверяет и сохраняет отправку.
// Порядок проверок: slug, имя респондента, полнота ответов, уникальность респондента.
// Уникальность обеспечивается индексом в БД, а не предварительным чтением.
func (s *AnswerService) Submit(ctx context.Context, slug string, viewer Viewer, input SubmitInput) (*SubmissionResult, error) {
	set, err := s.setRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	identity, err := resolveIdentity(viewer, input.RespondentName)
	if err != nil {
		return nil, err
	}

	answers, err := completeAnswers(set, input.Answers)
	if err != nil {
		return nil, err
	}

	answer := &entity.Answer{
		QuestionSetID:  set.ID,
		Answers:        answers,
		TotalQuestions: set.QuestionCount(),
	}
	identity.Apply(answer)

	var score *ScoreResult
	if !set.IsSurvey() {
		res := Score(set.Questions, answers)
		correct := res.CorrectCount
		answer.Score = &correct
		answer.AnswerKey = set.Questions.AnswerKey()
		score = &res
	}

	if err := s.answerRepo.Create(ctx, answer); err != nil {
		if errors.Is(err, repository.ErrDuplicateRespondent) {
			return nil, fmt.Errorf("%w: respondent already submitted", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	log.Printf("[AnswerService] Отправка #%d на набор %s от %s", answer.ID, set.Slug, answer.RespondentKey)
	s.notifier.AnswerSubmitted(set, answer, Aggregate(set, []entity.Answer{*answer})[0])
	return &SubmissionResult{Answer: answer, Score: score}, nil
}

// CheckAvailability проверяет, может ли респондент отправить ответы.
// Результат носит справочный характер: окончательное решение принимает Submit.
func (s *AnswerService) CheckAvailability(ctx context.Context, slug string, viewer Viewer, name string) (bool, error) {
	set, err := s.setRepo.GetBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	identity, err := resolveIdentity(viewer, name)
	if err != nil {
		return false, err
	}
	exists, err := s.answerRepo.ExistsForRespondent(ctx, set.ID, identity.Key())
	if err != nil {
		return false, fmt.Errorf("failed to check respondent: %w", err)
	}
	return !exists, nil
}

// Answers возвращает набор со всеми отправками (владелец или администратор)
func (s *AnswerService) Answers(ctx context.Context, slug string, viewer Viewer) (*entity.QuestionSet, []entity.Answer, error) {
	set, err := s.managedSet(ctx, slug, viewer)
	if err != nil {
		return nil, nil, err
	}
	answers, err := s.answerRepo.ListBySet(ctx, set.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return set, answers, nil
}

// Results возвращает сводки по респондентам и статистику по вопросам
func (s *AnswerService) Results(ctx context.Context, slug string, viewer Viewer, query ResultsQuery) (*SetResults, error) {
	if !IsValidSort(query.Sort) {
		return nil, fmt.Errorf("%w: unknown sort %q", apperrors.ErrValidation, query.Sort)
	}
	set, answers, err := s.Answers(ctx, slug, viewer)
	if err != nil {
		return nil, err
	}

	summaries := FilterSummaries(Aggregate(set, answers), query.Name)
	SortSummaries(summaries, query.Sort)

	return &SetResults{
		Set:       set,
		Answers:   answers,
		Summaries: summaries,
		Questions: QuestionStatistics(set, answers),
	}, nil
}

// AnswerDetail возвращает отправку и ее разбор по вопросам
func (s *AnswerService) AnswerDetail(ctx context.Context, slug string, viewer Viewer, answerID uint) (*entity.QuestionSet, *entity.Answer, []QuestionBreakdown, error) {
	set, err := s.managedSet(ctx, slug, viewer)
	if err != nil {
		return nil, nil, nil, err
	}
	answer, err := s.answerRepo.GetByID(ctx, answerID)
	if err != nil {
		return nil, nil, nil, err
	}
	if answer.QuestionSetID != set.ID {
		return nil, nil, nil, fmt.Errorf("%w: answer #%d does not belong to set %s", apperrors.ErrNotFound, answerID, slug)
	}
	return set, answer, Breakdown(set, answer), nil
}

// Regrade пересчитывает и сохраняет оценки по текущим правильным ответам.
// Для опросов оценки сбрасываются.
func (s *AnswerService) Regrade(ctx context.Context, slug string, viewer Viewer) (int, error) {
	set, err := s.ownedBySlug(ctx, slug, viewer)
	if err != nil {
		return 0, err
	}
	answers, err := s.answerRepo.ListBySet(ctx, set.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list answers: %w", err)
	}
	if len(answers) == 0 {
		return 0, nil
	}

	key := set.Questions.AnswerKey()
	for i := range answers {
		answers[i].TotalQuestions = set.QuestionCount()
		if set.IsSurvey() {
			answers[i].Score = nil
			answers[i].AnswerKey = nil
			continue
		}
		correct := Score(set.Questions, answers[i].Answers).CorrectCount
		answers[i].Score = &correct
		answers[i].AnswerKey = key
	}

	if err := s.answerRepo.UpdateScores(ctx, answers); err != nil {
		return 0, fmt.Errorf("failed to regrade answers: %w", err)
	}
	log.Printf("[AnswerService] Пересчитано %d отправок набора %s", len(answers), set.Slug)
	s.notifier.ResultsRegraded(set, len(answers))
	return len(answers), nil
}

// ClearAnswers удаляет все отправки набора (только владелец)
func (s *AnswerService) ClearAnswers(ctx context.Context, slug string, viewer Viewer) (int64, error) {
	set, err := s.ownedBySlug(ctx, slug, viewer)
	if err != nil {
		return 0, err
	}
	removed, err := s.answerRepo.DeleteBySet(ctx, set.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear answers: %w", err)
	}
	log.Printf("[AnswerService] Удалено %d отправок набора %s", removed, set.Slug)
	s.notifier.AnswersCleared(set, removed)
	return removed, nil
}

// Stats возвращает количество наборов и отправок
func (s *AnswerService) Stats(ctx context.Context) (*Stats, error) {
	sets, err := s.setRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count question sets: %w", err)
	}
	answers, err := s.answerRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count answers: %w", err)
	}
	return &Stats{QuestionSets: sets, Answers: answers}, nil
}

// DeleteAllAnswers удаляет все отправки во всех наборах (администратор)
func (s *AnswerService) DeleteAllAnswers(ctx context.Context) (int64, error) {
	removed, err := s.answerRepo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete answers: %w", err)
	}
	log.Printf("[AnswerService] Удалены все отправки (%d)", removed)
	s.notifier.AllAnswersCleared(removed)
	return removed, nil
}

func (s *AnswerService) managedSet(ctx context.Context, slug string, viewer Viewer) (*entity.QuestionSet, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperrors.ErrUnauthorized
	}
	set, err := s.setRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !viewer.CanViewResults(set) {
		return nil, fmt.Errorf("%w: results of %s are available to the owner only", apperrors.ErrForbidden, slug)
	}
	return set, nil
}

func (s *AnswerService) ownedBySlug(ctx context.Context, slug string, viewer Viewer) (*entity.QuestionSet, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperrors.ErrUnauthorized
	}
	set, err := s.setRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !viewer.Owns(set) {
		return nil, fmt.Errorf("%w: question set %s belongs to another user", apperrors.ErrForbidden, slug)
	}
	return set, nil
}

// resolveIdentity определяет идентичность респондента.
// Аутентифицированный пользователь всегда Registered, имя берется из токена.
func resolveIdentity(viewer Viewer, name string) (entity.Identity, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxRespondentNameLength {
		return entity.Identity{}, fmt.Errorf("%w: respondent name must be at most %d characters", apperrors.ErrValidation, maxRespondentNameLength)
	}
	if viewer.IsAuthenticated() {
		display := truncateRunes(strings.TrimSpace(viewer.Username), maxRespondentNameLength)
		if display == "" {
			display = name
		}
		return entity.Registered(viewer.UserID, display), nil
	}
	if name == "" {
		return entity.Identity{}, fmt.Errorf("%w: respondent name is required", apperrors.ErrValidation)
	}
	return entity.Freeform(name), nil
}

// truncateRunes обрезает строку до max символов
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// completeAnswers проверяет, что на каждый вопрос есть ответ, и отбрасывает лишние ключи
func completeAnswers(set *entity.QuestionSet, answers entity.AnswerMap) (entity.AnswerMap, error) {
	missing := 0
	for _, id := range set.Questions.IDs() {
		if !answers.HasValue(id) {
			missing++
		}
	}
	if missing > 0 {
		return nil, fmt.Errorf("%w: incomplete submission, %d of %d question(s) unanswered", apperrors.ErrValidation, missing, set.QuestionCount())
	}

	out := make(entity.AnswerMap, set.QuestionCount())
	for _, id := range set.Questions.IDs() {
		out[id] = answers[id]
	}
	return out, nil
}
