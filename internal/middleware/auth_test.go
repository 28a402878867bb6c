package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"quiz_backend/internal/config"
	"quiz_backend/internal/model"
	"quiz_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

type recordingStore struct {
	mu    sync.Mutex
	users []model.User
	err   error
}

func (s *recordingStore) EnsureUser(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, *user)
	return s.err
}

func newRouter(store UserStore, roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r := gin.New()
	r.Use(AuthMiddleware(cfg), UserSyncMiddleware(store))
	r.GET("/me", func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	r.GET("/teacher", RoleMiddleware(roles...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func token(t *testing.T, user *model.User, secret string) string {
	t.Helper()
	tok, err := util.GenerateJWT(user, secret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(&recordingStore{}, model.Teacher)
	student := &model.User{BaseModel: model.BaseModel{ID: 3}, Username: "s", Role: model.Student}

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", token(t, student, "other-secret")).Code)

	w := do(r, "/me", token(t, student, testSecret))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":200,"message":"success","data":3}`, w.Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter(&recordingStore{}, model.Teacher)

	student := &model.User{BaseModel: model.BaseModel{ID: 1}, Username: "s", Role: model.Student}
	teacher := &model.User{BaseModel: model.BaseModel{ID: 2}, Username: "t", Role: model.Teacher}
	admin := &model.User{BaseModel: model.BaseModel{ID: 3}, Username: "a", Role: model.Admin}

	assert.Equal(t, http.StatusForbidden, do(r, "/teacher", token(t, student, testSecret)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/teacher", token(t, teacher, testSecret)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/teacher", token(t, admin, testSecret)).Code)
}

func TestUserSyncMiddleware(t *testing.T) {
	store := &recordingStore{}
	r := newRouter(store)
	user := &model.User{BaseModel: model.BaseModel{ID: 7}, Username: "carol", Email: "c@example.com", Role: model.Student}
	auth := token(t, user, testSecret)

	do(r, "/me", auth)
	do(r, "/me", auth)

	require.Len(t, store.users, 1)
	assert.Equal(t, uint(7), store.users[0].ID)
	assert.Equal(t, "carol", store.users[0].Username)
	assert.Equal(t, model.Student, store.users[0].Role)

	// failures are retried on the next request
	failing := &recordingStore{err: errors.New("db down")}
	r = newRouter(failing)
	anon := &model.User{BaseModel: model.BaseModel{ID: 8}, Role: model.Student}
	assert.Equal(t, http.StatusOK, do(r, "/me", token(t, anon, testSecret)).Code)
	do(r, "/me", token(t, anon, testSecret))
	require.Len(t, failing.users, 2)
	assert.Equal(t, "user-8", failing.users[0].Username)
}
