package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasknest/tasknest-api/internal/api/shared"
	"github.com/tasknest/tasknest-api/internal/domain"
	"github.com/tasknest/tasknest-api/internal/service"
	"github.com/tasknest/tasknest-api/internal/service/auth"
	"github.com/tasknest/tasknest-api/internal/store"
)

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *fakeTaskStore) Create(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *fakeTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *fakeTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*domain.Task
	for _, task := range s.tasks {
		if filter.OwnerID != uuid.Nil && task.UserID != filter.OwnerID {
			continue
		}
		if filter.Category != "" && task.Category != filter.Category {
			continue
		}
		if filter.Completed != nil && task.Completed != *filter.Completed {
			continue
		}
		if filter.Priority != nil && task.Priority != *filter.Priority {
			continue
		}
		if filter.DueOn != nil {
			if task.DueDate == nil {
				continue
			}
			day := filter.DueOn.UTC().Truncate(24 * time.Hour)
			due := task.DueDate.UTC()
			if due.Before(day) || !due.Before(day.AddDate(0, 0, 1)) {
				continue
			}
		}
		copied := *task
		matched = append(matched, &copied)
	}
	total := len(matched)
	if filter.Offset > len(matched) {
		matched = nil
	} else {
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *fakeTaskStore) Update(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *fakeTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeTaskStore) FindDueBetween(ctx context.Context, start, end time.Time) ([]*domain.Task, error) {
	return nil, nil
}

func (s *fakeTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return s }

func testSubject(role domain.Role) *auth.SubjectContext {
	return &auth.SubjectContext{
		UserID:    uuid.New(),
		Email:     "subject@example.com",
		Role:      role,
		IsActive:  true,
		TokenKind: domain.TokenKindAccess,
	}
}

// newTaskRouter mounts the task handler behind a middleware that injects the
// given subject, the way the auth middleware does in production.
func newTaskRouter(handler *TaskHandler, subject *auth.SubjectContext) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), shared.SubjectContextKey, subject)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{id}", handler.Get)
		r.Patch("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/complete", handler.Complete)
		r.Post("/{id}/incomplete", handler.Incomplete)
	})
	return r
}

func newTaskRig(t *testing.T, role domain.Role) (http.Handler, *auth.SubjectContext, *service.TaskService) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	// The fake store ignores the tx handle; every create is a begin/commit
	// pair against the mock connection.
	for i := 0; i < 16; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	svc := service.NewTaskService(db, newFakeTaskStore())
	handler := NewTaskHandler(svc, slog.Default())
	subject := testSubject(role)
	return newTaskRouter(handler, subject), subject, svc
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestTaskHandlerCreate(t *testing.T) {
	t.Parallel()

	t.Run("valid request creates a task", func(t *testing.T) {
		t.Parallel()
		router, subject, _ := newTaskRig(t, domain.RoleUser)

		req := jsonRequest(t, http.MethodPost, "/tasks", CreateTaskRequest{
			Title:    "write report",
			Category: "work",
			Priority: "high",
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "write report", resp.Title)
		assert.Equal(t, "high", resp.Priority)
		assert.Equal(t, subject.UserID, resp.UserID)
		assert.False(t, resp.Completed)
	})

	t.Run("missing title is a validation error", func(t *testing.T) {
		t.Parallel()
		router, _, _ := newTaskRig(t, domain.RoleUser)

		req := jsonRequest(t, http.MethodPost, "/tasks", CreateTaskRequest{Title: ""})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown priority is rejected", func(t *testing.T) {
		t.Parallel()
		router, _, _ := newTaskRig(t, domain.RoleUser)

		req := jsonRequest(t, http.MethodPost, "/tasks", CreateTaskRequest{
			Title:    "task",
			Priority: "urgent",
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		router, _, _ := newTaskRig(t, domain.RoleUser)

		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandlerGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("existing task", func(t *testing.T) {
		t.Parallel()
		router, subject, svc := newTaskRig(t, domain.RoleUser)

		task, err := svc.Create(ctx, subject, "fetch me", "", "", "", nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/tasks/"+task.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, task.ID, resp.ID)
	})

	t.Run("unknown task is 404", func(t *testing.T) {
		t.Parallel()
		router, _, _ := newTaskRig(t, domain.RoleUser)

		req := httptest.NewRequest(http.MethodGet, "/tasks/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Task not found")
	})

	t.Run("malformed task ID is 400", func(t *testing.T) {
		t.Parallel()
		router, _, _ := newTaskRig(t, domain.RoleUser)

		req := httptest.NewRequest(http.MethodGet, "/tasks/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandlerList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("pagination metadata in the response", func(t *testing.T) {
		t.Parallel()
		router, subject, svc := newTaskRig(t, domain.RoleUser)

		for i := 0; i < 3; i++ {
			_, err := svc.Create(ctx, subject, "task", "", "", "", nil)
			require.NoError(t, err)
		}

		req := httptest.NewRequest(http.MethodGet, "/tasks?page=1&page_size=2", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, 2, resp.PageSize)
		assert.Len(t, resp.Tasks, 2)
	})

	t.Run("bad completed filter is 400", func(t *testing.T) {
		t.Parallel()
		router, _, _ := newTaskRig(t, domain.RoleUser)

		req := httptest.NewRequest(http.MethodGet, "/tasks?completed=maybe", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("priority and due_date filters", func(t *testing.T) {
		t.Parallel()
		router, subject, svc := newTaskRig(t, domain.RoleUser)

		due := time.Date(2025, 9, 10, 9, 0, 0, 0, time.UTC)
		_, err := svc.Create(ctx, subject, "urgent errand", "", "", domain.PriorityHigh, &due)
		require.NoError(t, err)
		_, err = svc.Create(ctx, subject, "someday", "", "", domain.PriorityLow, nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/tasks?priority=high&due_date=2025-09-10", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Total)
		assert.Equal(t, "urgent errand", resp.Tasks[0].Title)
	})

	t.Run("bad priority filter is 400", func(t *testing.T) {
		t.Parallel()
		router, _, _ := newTaskRig(t, domain.RoleUser)

		req := httptest.NewRequest(http.MethodGet, "/tasks?priority=urgent", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad due_date filter is 400", func(t *testing.T) {
		t.Parallel()
		router, _, _ := newTaskRig(t, domain.RoleUser)

		req := httptest.NewRequest(http.MethodGet, "/tasks?due_date=tomorrow", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty list responds with an empty array, not null", func(t *testing.T) {
		t.Parallel()
		router, _, _ := newTaskRig(t, domain.RoleUser)

		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"tasks":[]`)
	})
}

func TestTaskHandlerUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	router, subject, svc := newTaskRig(t, domain.RoleUser)

	task, err := svc.Create(ctx, subject, "original", "", "", domain.PriorityLow, nil)
	require.NoError(t, err)

	title := "renamed"
	priority := "medium"
	req := jsonRequest(t, http.MethodPatch, "/tasks/"+task.ID.String(), UpdateTaskRequest{
		Title:    &title,
		Priority: &priority,
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "renamed", resp.Title)
	assert.Equal(t, "medium", resp.Priority)
}

func TestTaskHandlerDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	router, subject, svc := newTaskRig(t, domain.RoleUser)

	task, err := svc.Create(ctx, subject, "delete me", "", "", "", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/tasks/"+task.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = svc.Get(ctx, subject, task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskHandlerCompleteIncomplete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	router, subject, svc := newTaskRig(t, domain.RoleUser)

	task, err := svc.Create(ctx, subject, "toggle", "", "", "", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/tasks/"+task.ID.String()+"/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Completed)
	assert.NotNil(t, resp.CompletedAt)

	req = httptest.NewRequest(http.MethodPost, "/tasks/"+task.ID.String()+"/incomplete", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp = TaskResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Completed)
	assert.Nil(t, resp.CompletedAt)
}
