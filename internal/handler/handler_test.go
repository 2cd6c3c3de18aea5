package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/answerly-api/internal/domain/entity"
	"github.com/yourusername/answerly-api/internal/domain/repository"
	"github.com/yourusername/answerly-api/internal/middleware"
	apperrors "github.com/yourusername/answerly-api/internal/pkg/errors"
	"github.com/yourusername/answerly-api/internal/service"
	"github.com/yourusername/answerly-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// In-memory репозитории
// ============================================================================

type fakeStore struct {
	mu      sync.Mutex
	sets    []*entity.QuestionSet
	answers []*entity.Answer
	nextID  uint
}

type fakeSetRepo struct{ *fakeStore }

func (r fakeSetRepo) Create(_ context.Context, set *entity.QuestionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sets {
		if s.Slug == set.Slug {
			return repository.ErrSlugTaken
		}
	}
	r.nextID++
	set.ID = r.nextID
	set.CreatedAt = time.Now()
	cp := *set
	r.sets = append(r.sets, &cp)
	return nil
}

func (r fakeSetRepo) find(match func(*entity.QuestionSet) bool) (*entity.QuestionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sets {
		if match(s) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r fakeSetRepo) GetByID(_ context.Context, id uint) (*entity.QuestionSet, error) {
	return r.find(func(s *entity.QuestionSet) bool { return s.ID == id })
}

func (r fakeSetRepo) GetBySlug(_ context.Context, slug string) (*entity.QuestionSet, error) {
	return r.find(func(s *entity.QuestionSet) bool { return s.Slug == slug })
}

func (r fakeSetRepo) ListByOwner(_ context.Context, userID uint) ([]entity.QuestionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.QuestionSet{}
	for _, s := range r.sets {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r fakeSetRepo) ListPublic(_ context.Context, limit, offset int) ([]entity.QuestionSet, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.QuestionSet{}
	for _, s := range r.sets {
		if s.IsPublic {
			out = append(out, *s)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return []entity.QuestionSet{}, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r fakeSetRepo) Update(_ context.Context, set *entity.QuestionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.sets {
		if s.ID == set.ID {
			cp := *set
			r.sets[i] = &cp
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r fakeSetRepo) DeleteWithAnswers(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sets := r.sets[:0]
	for _, s := range r.sets {
		if s.ID != id {
			sets = append(sets, s)
		}
	}
	r.sets = sets
	answers := r.answers[:0]
	for _, a := range r.answers {
		if a.QuestionSetID != id {
			answers = append(answers, a)
		}
	}
	r.answers = answers
	return nil
}

func (r fakeSetRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sets)), nil
}

type fakeAnswerRepo struct{ *fakeStore }

func (r fakeAnswerRepo) Create(_ context.Context, answer *entity.Answer) error {
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
	cp := *answer
	r.answers = append(r.answers, &cp)
	return nil
}

func (r fakeAnswerRepo) GetByID(_ context.Context, id uint) (*entity.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.answers {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r fakeAnswerRepo) ListBySet(_ context.Context, setID uint) ([]entity.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.Answer{}
	for _, a := range r.answers {
		if a.QuestionSetID == setID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r fakeAnswerRepo) ExistsForRespondent(_ context.Context, setID uint, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.answers {
		if a.QuestionSetID == setID && a.RespondentKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeAnswerRepo) UpdateScores(_ context.Context, answers []entity.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, upd := range answers {
		for _, a := range r.answers {
			if a.ID == upd.ID {
				a.Score, a.TotalQuestions, a.AnswerKey = upd.Score, upd.TotalQuestions, upd.AnswerKey
			}
		}
	}
	return nil
}

func (r fakeAnswerRepo) DeleteBySet(_ context.Context, setID uint) (int64, error) {
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

func (r fakeAnswerRepo) DeleteAll(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.answers))
	r.answers = nil
	return n, nil
}

func (r fakeAnswerRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.answers)), nil
}

// ============================================================================
// Тестовый сервер
// ============================================================================

type testServer struct {
	router *gin.Engine
	jwt    *auth.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := &fakeStore{}
	setRepo := fakeSetRepo{store}
	answerRepo := fakeAnswerRepo{store}

	jwtService, err := auth.NewJWTService("test-secret", "answerly")
	require.NoError(t, err)

	setService := service.NewQuestionSetService(setRepo, nil, service.NewRandomSlugGenerator(10), nil, service.QuestionSetConfig{
		MaxSlugRetries:      5,
		DefaultTimeLimitSec: 60,
	})
	answerService := service.NewAnswerService(setRepo, answerRepo, nil)

	router := gin.New()
	Routes{
		QuestionSets: NewQuestionSetHandler(setService),
		Answers:      NewAnswerHandler(answerService),
		Admin:        NewAdminHandler(answerService),
		Auth:         middleware.NewAuthMiddleware(jwtService),
	}.Register(router.Group("/api"))

	return &testServer{router: router, jwt: jwtService}
}

func (s *testServer) token(t *testing.T, userID uint, role string) string {
	t.Helper()
	token, err := s.jwt.GenerateToken(userID, "", role, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

func triviaBody() map[string]interface{} {
	return map[string]interface{}{
		"title": "Trivia",
		"questions": []map[string]interface{}{
			{"id": "q1", "text": "2+2?", "options": []string{"3", "4"}, "answer": "4"},
		},
		"time_limit_sec": 30,
	}
}

// createSet создает набор от имени владельца и возвращает slug и ID
func (s *testServer) createSet(t *testing.T, ownerToken string, body map[string]interface{}) (string, float64) {
	t.Helper()
	w := s.do(http.MethodPost, "/api/question-sets", ownerToken, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := parseJSONResponse(t, w)
	return resp["slug"].(string), resp["id"].(float64)
}

// ============================================================================
// Тесты
// ============================================================================

func TestCreateAndResolve(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, 1, auth.RoleUser)

	slug, _ := s.createSet(t, owner, triviaBody())
	assert.Len(t, slug, 10)

	// Анонимный респондент не видит правильных ответов
	w := s.do(http.MethodGet, "/api/question-sets/"+slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	questions := resp["questions"].([]interface{})
	require.Len(t, questions, 1)
	_, hasAnswer := questions[0].(map[string]interface{})["answer"]
	assert.False(t, hasAnswer)
	assert.Equal(t, false, resp["is_owner_view"])

	// Владелец видит
	w = s.do(http.MethodGet, "/api/question-sets/"+slug, owner, nil)
	resp = parseJSONResponse(t, w)
	q := resp["questions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "4", q["answer"])
	assert.Equal(t, true, resp["is_owner_view"])
}

func TestCreateSet_Errors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/question-sets", "", triviaBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	owner := s.token(t, 1, auth.RoleUser)
	body := triviaBody()
	body["questions"] = []interface{}{}
	w = s.do(http.MethodPost, "/api/question-sets", owner, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, parseJSONResponse(t, w)["error"], "at least one question")
}

func TestResolve_UnknownSlug(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/question-sets/doesnotexist", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, parseJSONResponse(t, w), "error")
}

func TestSubmitAnswers_Scenario(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, 1, auth.RoleUser)
	slug, _ := s.createSet(t, owner, triviaBody())

	submission := map[string]interface{}{
		"respondent_name": "Al",
		"answers":         map[string]interface{}{"q1": "4"},
	}
	w := s.do(http.MethodPost, "/api/question-sets/"+slug+"/answers", "", submission)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := parseJSONResponse(t, w)
	score := resp["score"].(map[string]interface{})
	assert.Equal(t, float64(1), score["correct_count"])
	assert.Equal(t, float64(1), score["total_questions"])
	assert.Equal(t, float64(100), score["percentage"])

	w = s.do(http.MethodPost, "/api/question-sets/"+slug+"/answers", "", submission)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/question-sets/"+slug+"/answers", "", map[string]interface{}{
		"respondent_name": "Bo",
		"answers":         map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/question-sets/"+slug+"/answers", "", map[string]interface{}{
		"answers": map[string]interface{}{"q1": "4"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/question-sets/"+slug+"/availability?name=Al", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, parseJSONResponse(t, w)["available"])
}

func TestSubmitAnswers_SurveyHasNoScore(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, 1, auth.RoleUser)
	body := triviaBody()
	body["title"] = "survey"
	slug, _ := s.createSet(t, owner, body)

	w := s.do(http.MethodPost, "/api/question-sets/"+slug+"/answers", "", map[string]interface{}{
		"respondent_name": "Al",
		"answers":         map[string]interface{}{"q1": "4"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	resp := parseJSONResponse(t, w)
	_, hasScore := resp["score"]
	assert.False(t, hasScore)
	assert.Nil(t, resp["answer"].(map[string]interface{})["score"])
}

func TestUpdateAndDeleteSet_Ownership(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, 1, auth.RoleUser)
	other := s.token(t, 2, auth.RoleUser)
	slug, id := s.createSet(t, owner, triviaBody())
	path := "/api/question-sets/" + formatID(id)

	w := s.do(http.MethodPut, path, other, map[string]interface{}{"title": "Hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, path, owner, map[string]interface{}{"title": "Renamed", "is_public": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "Renamed", resp["title"])
	assert.Equal(t, slug, resp["slug"])

	w = s.do(http.MethodGet, "/api/question-sets/public", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), parseJSONResponse(t, w)["total"])

	w = s.do(http.MethodPut, "/api/question-sets/abc", owner, map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, path, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/question-sets/"+slug, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMySetsAndOwnedByID(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, 1, auth.RoleUser)
	_, id := s.createSet(t, owner, triviaBody())
	s.createSet(t, s.token(t, 2, auth.RoleUser), triviaBody())

	w := s.do(http.MethodGet, "/api/question-sets", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = s.do(http.MethodGet, "/api/question-sets/id/"+formatID(id), owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/question-sets/id/"+formatID(id), s.token(t, 2, auth.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestResultsAndExport(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, 1, auth.RoleUser)
	slug, _ := s.createSet(t, owner, triviaBody())
	for name, value := range map[string]string{"Al": "4", "=Bo": "3", "Cy": "4"} {
		w := s.do(http.MethodPost, "/api/question-sets/"+slug+"/answers", "", map[string]interface{}{
			"respondent_name": name,
			"answers":         map[string]interface{}{"q1": value},
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	// Доступ только владельцу или администратору
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/question-sets/"+slug+"/results", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/question-sets/"+slug+"/results", s.token(t, 2, auth.RoleUser), nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/question-sets/"+slug+"/results", s.token(t, 3, auth.RoleAdmin), nil).Code)

	w := s.do(http.MethodGet, "/api/question-sets/"+slug+"/results?sort=name", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	summaries := resp["summaries"].([]interface{})
	require.Len(t, summaries, 3)
	assert.Equal(t, "=Bo", summaries[0].(map[string]interface{})["display_name"])
	assert.Equal(t, float64(3), resp["total_submissions"])

	w = s.do(http.MethodGet, "/api/question-sets/"+slug+"/results?sort=bogus", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// CSV
	w = s.do(http.MethodGet, "/api/question-sets/"+slug+"/results/export?format=csv&sort=name", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(w.Body.String(), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Respondent", records[0][0])
	assert.Equal(t, "'=Bo", records[1][0])
	assert.Equal(t, "0", records[1][1])

	// XLSX
	w = s.do(http.MethodGet, "/api/question-sets/"+slug+"/results/export?format=xlsx&sort=name", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Al", rows[2][0])

	w = s.do(http.MethodGet, "/api/question-sets/"+slug+"/results/export?format=pdf", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnswerDetailRegradeAndClear(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, 1, auth.RoleUser)
	slug, id := s.createSet(t, owner, triviaBody())
	w := s.do(http.MethodPost, "/api/question-sets/"+slug+"/answers", "", map[string]interface{}{
		"respondent_name": "Al",
		"answers":         map[string]interface{}{"q1": "3"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	answerID := parseJSONResponse(t, w)["answer"].(map[string]interface{})["id"].(float64)

	w = s.do(http.MethodGet, "/api/question-sets/"+slug+"/answers/"+formatID(answerID), owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	breakdown := parseJSONResponse(t, w)["breakdown"].([]interface{})
	require.Len(t, breakdown, 1)
	item := breakdown[0].(map[string]interface{})
	assert.Equal(t, "3", item["chosen"])
	assert.Equal(t, "4", item["correct"])
	assert.Equal(t, false, item["is_correct"])

	// Меняем правильный ответ и пересчитываем
	w = s.do(http.MethodPut, "/api/question-sets/"+formatID(id), owner, map[string]interface{}{
		"questions": []map[string]interface{}{{"id": "q1", "text": "2+2?", "options": []string{"3", "4"}, "answer": "3"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/question-sets/"+slug+"/regrade", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), parseJSONResponse(t, w)["updated"])

	w = s.do(http.MethodGet, "/api/question-sets/"+slug+"/answers", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	answers := parseJSONResponse(t, w)["answers"].([]interface{})
	require.Len(t, answers, 1)
	assert.Equal(t, float64(1), answers[0].(map[string]interface{})["score"])

	w = s.do(http.MethodDelete, "/api/question-sets/"+slug+"/answers", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), parseJSONResponse(t, w)["deleted"])
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, 1, auth.RoleUser)
	admin := s.token(t, 9, auth.RoleAdmin)
	slug, _ := s.createSet(t, owner, triviaBody())
	s.do(http.MethodPost, "/api/question-sets/"+slug+"/answers", "", map[string]interface{}{
		"respondent_name": "Al",
		"answers":         map[string]interface{}{"q1": "4"},
	})

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/stats", owner, nil).Code)

	w := s.do(http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, float64(1), resp["question_sets"])
	assert.Equal(t, float64(1), resp["answers"])

	w = s.do(http.MethodDelete, "/api/admin/answers", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), parseJSONResponse(t, w)["deleted"])
}

func TestSanitizeForExcel(t *testing.T) {
	assert.Equal(t, "", sanitizeForExcel(""))
	assert.Equal(t, "Al", sanitizeForExcel("Al"))
	assert.Equal(t, "'=SUM(A1)", sanitizeForExcel("=SUM(A1)"))
	assert.Equal(t, "'+1", sanitizeForExcel("+1"))
	assert.Equal(t, "'@x", sanitizeForExcel("@x"))
}

func formatID(id float64) string {
	return strconv.FormatFloat(id, 'f', 0, 64)
}
