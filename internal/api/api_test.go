package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"recipebox/internal/account"
	"recipebox/internal/auth/authtest"
	"recipebox/internal/config"
	"recipebox/internal/database/dbtest"
	"recipebox/internal/recipe"
	"recipebox/internal/relation"
)

const testPassword = "Saffron-Risotto-7"

type fakeStorage struct {
	mu       sync.Mutex
	uploaded map[string][]byte
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded[objectName] = b
	return &minio.UploadInfo{Key: objectName, Size: int64(len(b))}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.example.invalid/" + objectKey + "?signed=1", nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (e *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: "task", Type: task.Type()}, nil
}

func (e *fakeEnqueuer) ofType(taskType string) []*asynq.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*asynq.Task
	for _, task := range e.tasks {
		if task.Type() == taskType {
			out = append(out, task)
		}
	}
	return out
}

type fakeScanner struct {
	err error
}

func (s fakeScanner) Scan(r io.Reader) error {
	_, _ = io.Copy(io.Discard, r)
	return s.err
}

type serverOptions struct {
	loginRateLimit int
	internalSecret string
	scanner        VirusScanner
}

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	db       *gorm.DB
	storage  *fakeStorage
	enqueuer *fakeEnqueuer
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	authService, redisClient := authtest.NewService(t, 5*time.Minute, time.Hour)

	likes := relation.NewStore(db, relation.Likes)
	bookmarks := relation.NewStore(db, relation.Bookmarks)
	accounts := account.NewStore(db, bookmarks)
	recipes := recipe.NewStore(db, likes, bookmarks)
	renderer, err := recipe.NewRenderer(64)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	storage := &fakeStorage{uploaded: map[string][]byte{}}
	enqueuer := &fakeEnqueuer{}

	router := NewRouter(config.APIConfig{InternalSecret: opts.internalSecret}, nil)
	RegisterRoutes(router, Handlers{
		Validator: authService,
		Accounts:  accounts,
		Auth:      NewAuthHandler(accounts, authService, redisClient, enqueuer, opts.loginRateLimit),
		Users:     NewUserHandler(accounts, recipes, likes, bookmarks, renderer, enqueuer),
		Avatars:   NewAvatarHandler(accounts, storage, opts.scanner, enqueuer),
		Recipes:   NewRecipeHandler(recipes, likes, bookmarks, renderer),
	})

	return &testServer{t: t, router: router, db: db, storage: storage, enqueuer: enqueuer}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
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

func (s *testServer) upload(path, token, filename string, content []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("avatar", filename)
	if err != nil {
		s.t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		s.t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		s.t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type authBody struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Tokens   struct {
		Refresh string `json:"refresh"`
		Access  string `json:"access"`
	} `json:"tokens"`
}

type errorBody struct {
	Error  string              `json:"error"`
	Code   int                 `json:"code"`
	Fields map[string][]string `json:"fields"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d body=%s", want, w.Code, w.Body.String())
	}
}

func (s *testServer) register(username string) authBody {
	s.t.Helper()
	w := s.do(http.MethodPost, "/users/register/", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": testPassword,
	})
	expectStatus(s.t, w, http.StatusCreated)
	return decode[authBody](s.t, w)
}

func (s *testServer) login(email, password string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(http.MethodPost, "/users/login/", "", map[string]string{"email": email, "password": password})
}

func recipeBody(title string) map[string]any {
	return map[string]any{
		"title":        title,
		"description":  "A weeknight favourite",
		"ingredients":  []string{"2 eggs", "salt"},
		"instructions": "Whisk **well** and cook.",
		"servings":     2,
		"difficulty":   "easy",
	}
}

func (s *testServer) createRecipe(token, title string) recipeResponse {
	s.t.Helper()
	w := s.do(http.MethodPost, "/recipes/", token, recipeBody(title))
	expectStatus(s.t, w, http.StatusCreated)
	return decode[recipeResponse](s.t, w)
}
