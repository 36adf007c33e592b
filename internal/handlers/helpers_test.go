package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskmaster/internal/database"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/repository"
	"github.com/yukikurage/taskmaster/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv is a full router over an in-memory database
type testEnv struct {
	t           *testing.T
	db          *gorm.DB
	router      *gin.Engine
	authService *services.AuthService
	taskService *services.TaskService
	tokens      *services.TokenService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.MigrateDatabase(db))

	authService := services.NewAuthService(repository.NewUserRepository(db))
	taskService := services.NewTaskService(repository.NewTaskRepository(db), services.TaskServiceConfig{PerPage: 8})
	tokens := services.NewTokenService("test-jwt-secret", time.Hour)

	router, err := NewRouter(RouterConfig{
		SessionStore: cookie.NewStore([]byte("secret")),
		AuthService:  authService,
		TaskService:  taskService,
		TokenService: tokens,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return &testEnv{
		t:           t,
		db:          db,
		router:      router,
		authService: authService,
		taskService: taskService,
		tokens:      tokens,
	}
}

func (env *testEnv) createUser(name, email string) *models.User {
	env.t.Helper()
	user, err := env.authService.Register(context.Background(), services.RegisterInput{
		Name:     name,
		Email:    email,
		Password: "supersecret",
	})
	require.NoError(env.t, err)
	return user
}

func (env *testEnv) createTask(ownerID uint64, title string) *models.Task {
	env.t.Helper()
	task, err := env.taskService.CreateTask(context.Background(), services.CreateTaskInput{
		OwnerID: ownerID,
		Title:   title,
	})
	require.NoError(env.t, err)
	return task
}

// client is a browser-like caller that keeps the cookies it is given
type client struct {
	env     *testEnv
	cookies map[string]*http.Cookie
	bearer  string
}

func (env *testEnv) newClient() *client {
	return &client{env: env, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}
	if cl.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+cl.bearer)
	}

	w := httptest.NewRecorder()
	cl.env.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(cl.cookies, c.Name)
			continue
		}
		cl.cookies[c.Name] = c
	}
	return w
}

func (cl *client) json(method, path string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(cl.env.t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return cl.do(req)
}

func (cl *client) get(path string) *httptest.ResponseRecorder {
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (cl *client) form(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

// loginAPI starts a session through the JSON login endpoint
func (cl *client) loginAPI(email string) {
	w := cl.json(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "supersecret"})
	require.Equal(cl.env.t, http.StatusOK, w.Code, w.Body.String())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
