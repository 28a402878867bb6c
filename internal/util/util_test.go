package util

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"quiz_backend/internal/model"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := ParseID("id", " 42 ")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := ParseID("id", bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}

	ids, err := ParseIDs("ids", []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, ids)
	_, err = ParseIDs("ids", []string{"1", "x"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		code int
	}{
		{NewValidationError("f", "bad"), http.StatusBadRequest},
		{NewNotFoundError("quiz", 1), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", NewNotFoundError("quiz", 1)), http.StatusNotFound},
		{&RestrictedDeleteError{Entity: "question", ID: 1, Dependents: 2}, http.StatusConflict},
		{ErrAttemptConflict, http.StatusConflict},
		{ErrOrderConflict, http.StatusConflict},
		{ErrNoAttemptsLeft, http.StatusConflict},
		{ErrPermissionDenied, http.StatusForbidden},
		{&FeedbackUnavailableError{AnswerID: 1, Err: errors.New("timeout")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		HandleError(c, tt.err)
		assert.Equal(t, tt.code, w.Code, tt.err.Error())
	}
}

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 9}, Username: "dave", Role: model.Teacher, Email: "d@example.com"}
	tok, err := GenerateJWT(user, "secret", time.Minute)
	require.NoError(t, err)

	claims, err := ParseJWT(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.UserID)
	assert.Equal(t, model.Teacher, claims.Role)
	assert.Equal(t, "dave", claims.Subject)

	_, err = ParseJWT(tok, "wrong")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)
}
