package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/novel-engine/config"
	"github.com/d60-Lab/novel-engine/internal/api/handler"
	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/internal/service"
)

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.All()...))

	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	if mutate != nil {
		mutate(cfg)
	}

	users := repository.NewUserRepository(db)
	novels := repository.NewNovelRepository(db)
	chapters := repository.NewChapterRepository(db)
	relations := repository.NewRelationRepository(db)
	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), relations, novels, 100)
	auth := service.NewAuthService(users, "router-test-secret", time.Hour)

	h := handler.New(handler.Services{
		Auth:          auth,
		Users:         service.NewUserService(users, relations, nil),
		Novels:        service.NewNovelService(novels, nil),
		Chapters:      service.NewChapterService(chapters, service.NewPublisher(config.NotifyModeInline, notifier, nil, time.Second)),
		Interactions:  service.NewInteractionService(relations, nil),
		Progress:      service.NewProgressService(repository.NewProgressRepository(db)),
		Notifications: notifier,
		Admin:         service.NewAdminService(users, novels, chapters, relations),
	})
	return &testServer{t: t, db: db, router: NewRouter(cfg, h, auth, db)}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

// register 注册并登录，必要时直接在库里提升角色
func (s *testServer) register(email string, role model.Role) string {
	s.t.Helper()
	code, _ := s.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"full_name": "Reader " + email,
		"email":     email,
		"password":  "secret1",
	})
	require.Equal(s.t, http.StatusCreated, code)
	if role != model.RoleUser {
		require.NoError(s.t, s.db.Model(&model.User{}).Where("email = ?", email).Update("role", role).Error)
	}
	code, env := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": email, "password": "secret1"})
	require.Equal(s.t, http.StatusOK, code)
	var pair struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &pair))
	return pair.AccessToken
}

func novelBody(title string) map[string]any {
	return map[string]any{
		"title":         title,
		"author_name":   "Kalki",
		"novel_summary": "A long historical saga",
		"categories":    []string{"historical"},
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	code, _ := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "novel_http_requests_total")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(http.MethodGet, "/api/v1/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, http.StatusUnauthorized, env.Code)

	code, _ = s.do(http.MethodGet, "/api/v1/user/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	token := s.register("a@example.com", model.RoleUser)
	code, env = s.do(http.MethodGet, "/api/v1/user/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "a@example.com")
	assert.NotContains(t, string(env.Data), "password")
}

func TestSignupConflictAndBadLogin(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("dup@example.com", model.RoleUser)

	code, _ := s.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"full_name": "Again", "email": "dup@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "dup@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestNovelAccessControl(t *testing.T) {
	s := newTestServer(t, nil)
	reader := s.register("reader@example.com", model.RoleUser)
	owner := s.register("owner@example.com", model.RoleEditor)
	other := s.register("other@example.com", model.RoleEditor)
	admin := s.register("admin@example.com", model.RoleAdmin)

	code, _ := s.do(http.MethodPost, "/api/v1/novels", reader, novelBody("Blocked"))
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(http.MethodPost, "/api/v1/novels", owner, novelBody("Ponniyin Selvan"))
	require.Equal(t, http.StatusCreated, code)
	var novel model.Novel
	require.NoError(t, json.Unmarshal(env.Data, &novel))
	path := "/api/v1/novels/" + novel.PublicID

	code, _ = s.do(http.MethodPut, path, other, map[string]any{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodPut, path, admin, map[string]any{"title": "Ponniyin Selvan II"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Ponniyin Selvan II")

	code, _ = s.do(http.MethodGet, "/api/v1/novels/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, "/api/v1/admin/dashboard/stats", owner, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodGet, "/api/v1/admin/dashboard/stats", admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPublishReachesSubscriberInbox(t *testing.T) {
	s := newTestServer(t, nil)
	editor := s.register("editor@example.com", model.RoleEditor)
	a := s.register("a@example.com", model.RoleUser)
	b := s.register("b@example.com", model.RoleUser)

	_, env := s.do(http.MethodPost, "/api/v1/novels", editor, novelBody("Sivagamiyin Sabatham"))
	var novel model.Novel
	require.NoError(t, json.Unmarshal(env.Data, &novel))

	code, _ := s.do(http.MethodPost, "/api/v1/subscriptions", a, map[string]any{"novel_id": novel.PublicID})
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(http.MethodPost, "/api/v1/subscriptions", a, map[string]any{"novel_id": novel.PublicID})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, "/api/v1/chapters", editor, map[string]any{
		"novel_id":       novel.PublicID,
		"chapter_number": 1,
		"title":          "The Whirlpool",
		"content":        strings.Repeat("alai kadal ", 20),
	})
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(http.MethodGet, "/api/v1/notifications/unread-count", a, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"unread_count":1}`, string(env.Data))

	_, env = s.do(http.MethodGet, "/api/v1/notifications/unread-count", b, nil)
	assert.JSONEq(t, `{"unread_count":0}`, string(env.Data))

	code, _ = s.do(http.MethodPost, "/api/v1/notifications/mark-all-read", a, nil)
	require.Equal(t, http.StatusOK, code)
	_, env = s.do(http.MethodGet, "/api/v1/notifications/unread-count", a, nil)
	assert.JSONEq(t, `{"unread_count":0}`, string(env.Data))
}

func TestToggleStatusCodes(t *testing.T) {
	s := newTestServer(t, nil)
	editor := s.register("editor@example.com", model.RoleEditor)
	reader := s.register("reader@example.com", model.RoleUser)
	_, env := s.do(http.MethodPost, "/api/v1/novels", editor, novelBody("Kalki"))
	var novel model.Novel
	require.NoError(t, json.Unmarshal(env.Data, &novel))
	like := fmt.Sprintf("/api/v1/novels/%s/like", novel.PublicID)

	code, _ := s.do(http.MethodPost, like, reader, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodPost, like, reader, nil)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = s.do(http.MethodDelete, like, reader, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, like, reader, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(http.MethodPost, "/api/v1/novels/missing/like", reader, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}
	})
	for i := 0; i < 2; i++ {
		code, _ := s.do(http.MethodGet, "/api/v1/novels", "", nil)
		require.Equal(t, http.StatusOK, code)
	}
	code, env := s.do(http.MethodGet, "/api/v1/novels", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, http.StatusTooManyRequests, env.Code)

	// 健康检查不在限流范围内
	code, _ = s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
}
