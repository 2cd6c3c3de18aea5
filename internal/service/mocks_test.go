package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yourusername/answerly-api/internal/domain/entity"
	"github.com/yourusername/answerly-api/internal/domain/repository"
	apperrors "github.com/yourusername/answerly-api/internal/pkg/errors"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockQuestionSetRepository реализует repository.QuestionSetRepository
type MockQuestionSetRepository struct {
	mock.Mock
}

func (m *MockQuestionSetRepository) Create(ctx context.Context, set *entity.QuestionSet) error {
	args := m.Called(ctx, set)
	return args.Error(0)
}

func (m *MockQuestionSetRepository) GetByID(ctx context.Context, id uint) (*entity.QuestionSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuestionSet), args.Error(1)
}

func (m *MockQuestionSetRepository) GetBySlug(ctx context.Context, slug string) (*entity.QuestionSet, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuestionSet), args.Error(1)
}

func (m *MockQuestionSetRepository) ListByOwner(ctx context.Context, userID uint) ([]entity.QuestionSet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuestionSet), args.Error(1)
}

func (m *MockQuestionSetRepository) ListPublic(ctx context.Context, limit, offset int) ([]entity.QuestionSet, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.QuestionSet), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuestionSetRepository) Update(ctx context.Context, set *entity.QuestionSet) error {
	args := m.Called(ctx, set)
	return args.Error(0)
}

func (m *MockQuestionSetRepository) DeleteWithAnswers(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuestionSetRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockAnswerRepository реализует repository.AnswerRepository
type MockAnswerRepository struct {
	mock.Mock
}

func (m *MockAnswerRepository) Create(ctx context.Context, answer *entity.Answer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

func (m *MockAnswerRepository) GetByID(ctx context.Context, id uint) (*entity.Answer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Answer), args.Error(1)
}

func (m *MockAnswerRepository) ListBySet(ctx context.Context, setID uint) ([]entity.Answer, error) {
	args := m.Called(ctx, setID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Answer), args.Error(1)
}

func (m *MockAnswerRepository) ExistsForRespondent(ctx context.Context, setID uint, respondentKey string) (bool, error) {
	args := m.Called(ctx, setID, respondentKey)
	return args.Bool(0), args.Error(1)
}

func (m *MockAnswerRepository) UpdateScores(ctx context.Context, answers []entity.Answer) error {
	args := m.Called(ctx, answers)
	return args.Error(0)
}

func (m *MockAnswerRepository) DeleteBySet(ctx context.Context, setID uint) (int64, error) {
	args := m.Called(ctx, setID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnswerRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnswerRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// memoryCache - потокобезопасная реализация CacheRepository в памяти (без TTL)
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	return nil
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *memoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// MockNotifier реализует LiveNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) AnswerSubmitted(set *entity.QuestionSet, answer *entity.Answer, summary RespondentSummary) {
	m.Called(set, answer, summary)
}

func (m *MockNotifier) AnswersCleared(set *entity.QuestionSet, removed int64) {
	m.Called(set, removed)
}

func (m *MockNotifier) AllAnswersCleared(removed int64) {
	m.Called(removed)
}

func (m *MockNotifier) ResultsRegraded(set *entity.QuestionSet, updated int) {
	m.Called(set, updated)
}

func (m *MockNotifier) SetDeleted(set *entity.QuestionSet) {
	m.Called(set)
}

// sequenceSlugs выдает заранее заданные slug по порядку
type sequenceSlugs struct {
	mu    sync.Mutex
	slugs []string
	next  int
}

func (g *sequenceSlugs) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.slugs) {
		return "", fmt.Errorf("no more slugs")
	}
	s := g.slugs[g.next]
	g.next++
	return s, nil
}

// ============================================================================
// In-memory хранилище, эмулирующее уникальные индексы БД
// ============================================================================

type memoryStore struct {
	mu      sync.Mutex
	sets    map[uint]*entity.QuestionSet
	answers []entity.Answer
	nextID  uint
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sets: make(map[uint]*entity.QuestionSet)}
}

type memorySetRepo struct{ *memoryStore }

func (r memorySetRepo) Create(_ context.Context, set *entity.QuestionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sets {
		if existing.Slug == set.Slug {
			return fmt.Errorf("%w: %s", repository.ErrSlugTaken, set.Slug)
		}
	}
	r.nextID++
	set.ID = r.nextID
	set.CreatedAt = time.Now()
	cp := *set
	cp.Questions = append(entity.QuestionList(nil), set.Questions...)
	r.sets[set.ID] = &cp
	return nil
}

func (r memorySetRepo) GetByID(_ context.Context, id uint) (*entity.QuestionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *set
	return &cp, nil
}

func (r memorySetRepo) GetBySlug(_ context.Context, slug string) (*entity.QuestionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, set := range r.sets {
		if set.Slug == slug {
			cp := *set
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memorySetRepo) ListByOwner(_ context.Context, userID uint) ([]entity.QuestionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.QuestionSet
	for _, set := range r.sets {
		if set.UserID == userID {
			out = append(out, *set)
		}
	}
	return out, nil
}

func (r memorySetRepo) ListPublic(context.Context, int, int) ([]entity.QuestionSet, int64, error) {
	return nil, 0, nil
}

func (r memorySetRepo) Update(_ context.Context, set *entity.QuestionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *set
	r.sets[set.ID] = &cp
	return nil
}

func (r memorySetRepo) DeleteWithAnswers(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sets, id)
	return nil
}

func (r memorySetRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sets)), nil
}

type memoryAnswerRepo struct{ *memoryStore }

func (r memoryAnswerRepo) Create(_ context.Context, answer *entity.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.answers {
		if a.QuestionSetID == answer.QuestionSetID && a.RespondentKey == answer.RespondentKey {
			return repository.ErrDuplicateRespondent
		}
	}
	r.nextID++
	answer.ID = r.nextID
	answer.CreatedAt = time.Now()
	r.answers = append(r.answers, *answer)
	return nil
}

func (r memoryAnswerRepo) GetByID(_ context.Context, id uint) (*entity.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.answers {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memoryAnswerRepo) ListBySet(_ context.Context, setID uint) ([]entity.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Answer
	for _, a := range r.answers {
		if a.QuestionSetID == setID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memoryAnswerRepo) ExistsForRespondent(_ context.Context, setID uint, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.answers {
		if a.QuestionSetID == setID && a.RespondentKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (r memoryAnswerRepo) UpdateScores(_ context.Context, answers []entity.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, upd := range answers {
		for i := range r.answers {
			if r.answers[i].ID == upd.ID {
				r.answers[i].Score = upd.Score
				r.answers[i].TotalQuestions = upd.TotalQuestions
				r.answers[i].AnswerKey = upd.AnswerKey
			}
		}
	}
	return nil
}

func (r memoryAnswerRepo) DeleteBySet(_ context.Context, setID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.answers[:0]
	var removed int64
	for _, a := range r.answers {
		if a.QuestionSetID == setID {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	r.answers = kept
	return removed, nil
}

func (r memoryAnswerRepo) DeleteAll(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.answers))
	r.answers = nil
	return n, nil
}

func (r memoryAnswerRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.answers)), nil
}

func intPtr(v int) *int    { return &v }
func uintPtr(v uint) *uint { return &v }
