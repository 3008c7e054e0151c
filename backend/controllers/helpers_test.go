package controllers_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ailms/lms/backend/cache"
	"github.com/ailms/lms/backend/config"
	"github.com/ailms/lms/backend/controllers"
	"github.com/ailms/lms/backend/events"
	"github.com/ailms/lms/backend/middleware"
	"github.com/ailms/lms/backend/models"
	"github.com/ailms/lms/backend/routes"
	"github.com/ailms/lms/backend/services"
	"github.com/ailms/lms/backend/storage"
	"github.com/ailms/lms/backend/utils"
)

const testSecret = "test-secret"

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	store  *cache.MemoryStore
	events *events.Recorder
	deps   *controllers.Deps
}

func newTestEnv(t *testing.T, opts ...func(*controllers.Deps)) *testEnv {
	t.Helper()
	db, err := utils.OpenDB(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())))
	require.NoError(t, err)

	store := cache.NewMemoryStore()
	recorder := &events.Recorder{}
	deps := &controllers.Deps{
		DB: db,
		Cfg: &config.Config{
			JWTSecret:          testSecret,
			CacheFailurePolicy: config.PolicyIgnore,
			EventFailurePolicy: config.PolicyIgnore,
			UploadDir:          t.TempDir(),
		},
		Cache:       cache.NewAccessor(store, 3600),
		Events:      recorder,
		Files:       storage.Disabled{},
		Recommender: fakeRecommender{body: []byte(`{"recommended":[]}`)},
		Quizzes:     fakeQuizGenerator{},
		Logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(deps)
	}

	app := fiber.New(fiber.Config{
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: middleware.ErrorHandler(zerolog.Nop()),
	})
	routes.SetupRoutes(app, deps)

	return &testEnv{app: app, db: db, store: store, events: recorder, deps: deps}
}

// user creates an account and returns it with a signed token.
func (e *testEnv) user(t *testing.T, role, group string) (models.User, string) {
	t.Helper()
	u := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "unused",
		Name:         role + " " + group,
		Role:         role,
		Group:        group,
	}
	require.NoError(t, e.db.Create(&u).Error)
	token, err := utils.GenerateJWTToken(&u, testSecret)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) upload(t *testing.T, path, token, filename string, content []byte) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode(t *testing.T, body []byte, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, dst), string(body))
}

func (e *testEnv) cached(key string) bool {
	_, ok, _ := e.store.Get(context.Background(), key)
	return ok
}

func (e *testEnv) keysWithPrefix(prefix string) []string {
	var out []string
	for _, k := range e.store.Keys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// createCourse posts a course as the given instructor and returns it.
func (e *testEnv) createCourse(t *testing.T, token string, body map[string]interface{}) models.Course {
	t.Helper()
	status, out := e.do(t, http.MethodPost, "/api/courses", token, body)
	require.Equal(t, http.StatusCreated, status, string(out))
	var course models.Course
	decode(t, out, &course)
	return course
}

func (e *testEnv) createModule(t *testing.T, token, courseID string, order int) models.Module {
	t.Helper()
	status, out := e.do(t, http.MethodPost, "/api/courses/"+courseID+"/modules", token,
		map[string]interface{}{"title": fmt.Sprintf("Module %d", order), "order": order})
	require.Equal(t, http.StatusCreated, status, string(out))
	var module models.Module
	decode(t, out, &module)
	return module
}

func (e *testEnv) createLesson(t *testing.T, token, moduleID string, order int) models.Lesson {
	t.Helper()
	status, out := e.do(t, http.MethodPost, "/api/modules/"+moduleID+"/lessons", token, map[string]interface{}{
		"title":       fmt.Sprintf("Lesson %d", order),
		"contentType": models.ContentVideo,
		"contentUrl":  "https://example.com/video.mp4",
		"order":       order,
	})
	require.Equal(t, http.StatusCreated, status, string(out))
	var lesson models.Lesson
	decode(t, out, &lesson)
	return lesson
}

type fakeRecommender struct {
	body []byte
	err  error
	got  *services.RecommendRequest
}

func (f fakeRecommender) Recommend(req services.RecommendRequest) ([]byte, error) {
	if f.got != nil {
		*f.got = req
	}
	return f.body, f.err
}

type fakeQuizGenerator struct {
	err error
}

func (f fakeQuizGenerator) Generate(text string) (*models.Quiz, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Quiz{Questions: []models.QuizQuestion{{
		Question:      "What is in the document?",
		Options:       []string{text, "nothing"},
		CorrectAnswer: 0,
	}}}, nil
}

// fakeFiles records uploads instead of sending them anywhere.
type fakeFiles struct {
	names []string
	paths []string
}

func (f *fakeFiles) Upload(_ context.Context, localPath, name string) (string, error) {
	f.names = append(f.names, name)
	f.paths = append(f.paths, localPath)
	return "https://files.example.com/" + name, nil
}

// flakyStore is a cache backend that is reachable for writes but fails the chosen operations.
type flakyStore struct {
	*cache.MemoryStore
	failGet bool
	failDel bool
}

var errCacheDown = errors.New("cache down")

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.failGet {
		return nil, false, errCacheDown
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *flakyStore) Del(ctx context.Context, keys ...string) error {
	if s.failDel {
		return errCacheDown
	}
	return s.MemoryStore.Del(ctx, keys...)
}

func (s *flakyStore) DelPrefix(ctx context.Context, prefix string) (int, error) {
	if s.failDel {
		return 0, errCacheDown
	}
	return s.MemoryStore.DelPrefix(ctx, prefix)
}
