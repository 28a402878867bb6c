package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"quiz_backend/internal/config"
	"quiz_backend/internal/model"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/database"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

type stepOrders struct{ n int }

func (s *stepOrders) Next() int {
	s.n += 10
	return s.n
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.InitDB(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.JWT.Secret = testSecret
	cfg.Quiz.DefaultMaxAttempts = 2
	cfg.Quiz.Locale = "en"

	a := New(cfg, Dependencies{DB: db, OptionOrders: &stepOrders{}})
	return &testServer{t: t, router: a.Router}
}

func token(t *testing.T, id uint, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(&model.User{
		BaseModel: model.BaseModel{ID: id},
		Username:  fmt.Sprintf("%s-%d", role, id),
		Role:      role,
	}, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(method, path, tok string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v), string(raw))
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"database":"up"`)

	code, _ = s.do(http.MethodGet, "/api/courses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodGet, "/api/courses", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/api/teacher/courses", token(t, 5, model.Student), map[string]string{"title": "Go"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodPost, "/api/teacher/courses", token(t, 6, model.Admin), map[string]string{"title": "Go"})
	assert.Equal(t, http.StatusCreated, code)
}

func TestQuizWorkflow(t *testing.T) {
	s := newTestServer(t)
	teacher := token(t, 1, model.Teacher)
	student := token(t, 2, model.Student)

	code, env := s.do(http.MethodPost, "/api/teacher/courses", teacher, map[string]string{"title": "Go"})
	require.Equal(t, http.StatusCreated, code)
	var course model.Course
	decode(t, env.Data, &course)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/teacher/courses/%d/quizzes", course.ID), teacher,
		map[string]string{"title": "Basics"})
	require.Equal(t, http.StatusCreated, code)
	var quiz model.Quiz
	decode(t, env.Data, &quiz)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/teacher/quizzes/%d/questions", quiz.ID), teacher, map[string]interface{}{
		"text": "Which are reference types?",
		"type": "MM",
		"options": []map[string]interface{}{
			{"text": "map", "isCorrect": true},
			{"text": "slice", "isCorrect": true},
			{"text": "array", "isCorrect": false, "feedback": "Arrays are values."},
		},
	})
	require.Equal(t, http.StatusCreated, code)
	var multi model.Question
	decode(t, env.Data, &multi)
	require.Len(t, multi.Options, 3)
	assert.Equal(t, 2, multi.MaxAttempts)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/teacher/quizzes/%d/questions", quiz.ID), teacher, map[string]interface{}{
		"text": "Explain goroutines.",
		"type": "LT",
	})
	require.Equal(t, http.StatusCreated, code)
	var text model.Question
	decode(t, env.Data, &text)

	optionIDs := map[string]uint{}
	for _, o := range multi.Options {
		optionIDs[o.Text] = o.ID
	}

	// learner view
	code, env = s.do(http.MethodGet, fmt.Sprintf("/api/questions/%d", multi.ID), student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "isCorrect")
	var view struct {
		Options           []struct{ ID uint } `json:"options"`
		NextQuestionID    *uint               `json:"nextQuestionId"`
		RemainingAttempts int                 `json:"remainingAttempts"`
	}
	decode(t, env.Data, &view)
	assert.Len(t, view.Options, 3)
	require.NotNil(t, view.NextQuestionID)
	assert.Equal(t, text.ID, *view.NextQuestionID)
	assert.Equal(t, 3, view.RemainingAttempts)

	type result struct {
		Points            float64 `json:"points"`
		IsCorrect         *bool   `json:"isCorrect"`
		RemainingAttempts int     `json:"remainingAttempts"`
		QuizCompleted     bool    `json:"quizCompleted"`
	}

	// ids may arrive as numbers or strings
	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/questions/%d/answers", multi.ID), student, map[string]interface{}{
		"optionIds": []interface{}{optionIDs["map"], fmt.Sprint(optionIDs["array"])},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var first result
	decode(t, env.Data, &first)
	assert.Equal(t, 0.17, first.Points)
	require.NotNil(t, first.IsCorrect)
	assert.False(t, *first.IsCorrect)
	assert.Equal(t, 2, first.RemainingAttempts)

	next := func() (*uint, bool) {
		code, env := s.do(http.MethodGet, fmt.Sprintf("/api/quizzes/%d/next-incomplete", quiz.ID), student, nil)
		require.Equal(t, http.StatusOK, code)
		var out struct {
			QuestionID    *uint `json:"questionId"`
			QuizCompleted bool  `json:"quizCompleted"`
		}
		decode(t, env.Data, &out)
		return out.QuestionID, out.QuizCompleted
	}

	id, done := next()
	require.NotNil(t, id)
	assert.Equal(t, multi.ID, *id)
	assert.False(t, done)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/questions/%d/answers", multi.ID), student, map[string]interface{}{
		"optionIds": []uint{optionIDs["map"], optionIDs["slice"]},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var second result
	decode(t, env.Data, &second)
	assert.Equal(t, 1.0, second.Points)
	assert.Equal(t, 0, second.RemainingAttempts)

	id, done = next()
	require.NotNil(t, id)
	assert.Equal(t, text.ID, *id)
	assert.False(t, done)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/questions/%d/answers", text.ID), student, map[string]string{
		"answerText": "Lightweight threads managed by the runtime.",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var written result
	decode(t, env.Data, &written)
	assert.True(t, written.QuizCompleted)

	id, done = next()
	assert.Nil(t, id)
	assert.True(t, done)

	code, env = s.do(http.MethodGet, fmt.Sprintf("/api/quizzes/%d/review", quiz.ID), student, nil)
	require.Equal(t, http.StatusOK, code)
	var review []struct {
		Answer        model.Answer `json:"answer"`
		IsLastAttempt bool         `json:"isLastAttempt"`
	}
	decode(t, env.Data, &review)
	require.Len(t, review, 3)

	code, _ = s.do(http.MethodGet, fmt.Sprintf("/api/teacher/quizzes/%d/feedback", quiz.ID), student, nil)
	assert.Equal(t, http.StatusForbidden, code)

	summary := func() []map[string]interface{} {
		code, env := s.do(http.MethodGet, fmt.Sprintf("/api/teacher/quizzes/%d/feedback", quiz.ID), teacher, nil)
		require.Equal(t, http.StatusOK, code)
		var rows []map[string]interface{}
		decode(t, env.Data, &rows)
		return rows
	}
	rows := summary()
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["total"])
	assert.EqualValues(t, 1, rows[0]["feedbackMissing"])
	assert.Equal(t, "student-2", rows[0]["username"])

	var textAnswerID uint
	for _, r := range review {
		if r.Answer.QuestionID == text.ID {
			textAnswerID = r.Answer.ID
		}
	}
	require.NotZero(t, textAnswerID)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/teacher/quizzes/%d/users/2/feedback", quiz.ID), teacher, map[string]interface{}{
		"feedback": map[string]string{fmt.Sprint(textAnswerID): "Good summary."},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var reviewed []model.Answer
	decode(t, env.Data, &reviewed)
	require.Len(t, reviewed, 1)
	require.NotNil(t, reviewed[0].AdminFeedback)
	assert.Equal(t, "Good summary.", *reviewed[0].AdminFeedback)

	rows = summary()
	require.Len(t, rows, 1)
	assert.EqualValues(t, 0, rows[0]["feedbackMissing"])

	// answered questions cannot be deleted
	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/teacher/courses/%d", course.ID), teacher, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestSubmitErrors(t *testing.T) {
	s := newTestServer(t)
	teacher := token(t, 1, model.Teacher)
	student := token(t, 2, model.Student)

	code, _ := s.do(http.MethodGet, "/api/questions/999", student, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, "/api/questions/abc", student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(http.MethodPost, "/api/teacher/courses", teacher, map[string]string{"title": "Go"})
	require.Equal(t, http.StatusCreated, code)
	var course model.Course
	decode(t, env.Data, &course)
	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/teacher/courses/%d/quizzes", course.ID), teacher, map[string]string{"title": "Q"})
	require.Equal(t, http.StatusCreated, code)
	var quiz model.Quiz
	decode(t, env.Data, &quiz)

	code, _ = s.do(http.MethodPost, fmt.Sprintf("/api/teacher/quizzes/%d/questions", quiz.ID), teacher, map[string]interface{}{
		"text": "Pick one", "type": "XX",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/api/teacher/quizzes/%d/questions", quiz.ID), teacher, map[string]interface{}{
		"text":        "Pick one",
		"type":        "MC",
		"maxAttempts": 1,
		"options": []map[string]interface{}{
			{"text": "yes", "isCorrect": true},
			{"text": "no"},
		},
	})
	require.Equal(t, http.StatusCreated, code)
	var single model.Question
	decode(t, env.Data, &single)
	var wrong uint
	for _, o := range single.Options {
		if !o.IsCorrect {
			wrong = o.ID
		}
	}

	path := fmt.Sprintf("/api/questions/%d/answers", single.ID)
	for i := 0; i < 2; i++ {
		code, env = s.do(http.MethodPost, path, student, map[string]interface{}{"optionId": wrong})
		require.Equal(t, http.StatusCreated, code, env.Message)
	}
	code, _ = s.do(http.MethodPost, path, student, map[string]interface{}{"optionId": wrong})
	assert.Equal(t, http.StatusConflict, code)
}
