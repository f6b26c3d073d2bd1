package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-api/internal/domain"
	"github.com/tasknest/tasknest-api/internal/service/auth"
	"github.com/tasknest/tasknest-api/internal/store"
)

// TaskListFilter carries the caller-supplied list constraints. Nil pointer
// fields are not applied.
type TaskListFilter struct {
	Search    string
	Category  string
	Completed *bool
	Priority  *domain.Priority
	DueOn     *time.Time
	Page      int
	PageSize  int
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks    []*domain.Task
	Total    int
	Page     int
	PageSize int
}

// TaskService orchestrates task CRUD. Admins operate on all tasks; everyone
// else only on their own. Non-owned tasks are reported as not found rather
// than forbidden, so the API does not leak which IDs exist.
type TaskService struct {
	tasks    store.TaskStore
	timeFunc func() time.Time

	// runTx executes fn within a database transaction. Injectable for testing.
	runTx func(ctx context.Context, fn store.TxFn) error
}

// NewTaskService creates a TaskService.
func NewTaskService(db *sql.DB, tasks store.TaskStore) *TaskService {
	return &TaskService{
		tasks:    tasks,
		timeFunc: time.Now,
		runTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
	}
}

// Create adds a task owned by the subject. The insert runs in its own
// transaction.
func (s *TaskService) Create(
	ctx context.Context,
	subject *auth.SubjectContext,
	title, category, description string,
	priority domain.Priority,
	dueDate *time.Time,
) (*domain.Task, error) {
	task, err := domain.NewTask(subject.UserID, title, category, description, priority, dueDate)
	if err != nil {
		return nil, err
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	return task, nil
}

// List returns a page of tasks visible to the subject.
func (s *TaskService) List(ctx context.Context, subject *auth.SubjectContext, filter TaskListFilter) (*TaskPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	storeFilter := store.TaskFilter{
		Search:    filter.Search,
		Category:  filter.Category,
		Completed: filter.Completed,
		Priority:  filter.Priority,
		DueOn:     filter.DueOn,
		Limit:     filter.PageSize,
		Offset:    (filter.Page - 1) * filter.PageSize,
	}
	if subject.Role != domain.RoleAdmin {
		storeFilter.OwnerID = subject.UserID
	}

	tasks, total, err := s.tasks.List(ctx, storeFilter)
	if err != nil {
		return nil, err
	}

	return &TaskPage{
		Tasks:    tasks,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// Get returns a single task visible to the subject.
// Returns store.ErrTaskNotFound for missing and non-owned tasks alike.
func (s *TaskService) Get(ctx context.Context, subject *auth.SubjectContext, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if subject.Role != domain.RoleAdmin && task.UserID != subject.UserID {
		return nil, store.ErrTaskNotFound
	}

	return task, nil
}

// TaskUpdate carries the mutable task fields; nil pointers leave the field
// unchanged.
type TaskUpdate struct {
	Title       *string
	Category    *string
	Description *string
	Priority    *domain.Priority
	DueDate     *time.Time
	ClearDue    bool
}

// Update modifies a task visible to the subject.
func (s *TaskService) Update(ctx context.Context, subject *auth.SubjectContext, taskID uuid.UUID, update TaskUpdate) (*domain.Task, error) {
	task, err := s.Get(ctx, subject, taskID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Category != nil {
		task.Category = *update.Category
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	if update.ClearDue {
		task.DueDate = nil
	} else if update.DueDate != nil {
		task.DueDate = update.DueDate
	}
	task.UpdatedAt = s.timeFunc().UTC()

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// Delete removes a task visible to the subject.
func (s *TaskService) Delete(ctx context.Context, subject *auth.SubjectContext, taskID uuid.UUID) error {
	if _, err := s.Get(ctx, subject, taskID); err != nil {
		return err
	}

	return s.tasks.Delete(ctx, taskID)
}

// Complete marks a task visible to the subject as completed.
func (s *TaskService) Complete(ctx context.Context, subject *auth.SubjectContext, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.Get(ctx, subject, taskID)
	if err != nil {
		return nil, err
	}

	task.MarkComplete(s.timeFunc())
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// Incomplete reverts a completed task visible to the subject.
func (s *TaskService) Incomplete(ctx context.Context, subject *auth.SubjectContext, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.Get(ctx, subject, taskID)
	if err != nil {
		return nil, err
	}

	task.MarkIncomplete(s.timeFunc())
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}
