package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-api/internal/domain"
)

// TaskFilter narrows List results. Zero values mean "no constraint".
type TaskFilter struct {
	// OwnerID restricts results to tasks owned by this user. uuid.Nil means
	// all owners (admin listing).
	OwnerID uuid.UUID

	// Search matches case-insensitively against the task title.
	Search string

	// Category restricts to an exact category.
	Category string

	// Completed restricts to completed or incomplete tasks when non-nil.
	Completed *bool

	// Priority restricts to an exact priority level when non-nil.
	Priority *domain.Priority

	// DueOn restricts to tasks whose due date falls on this calendar day
	// (UTC) when non-nil.
	DueOn *time.Time

	// Limit and Offset implement pagination. Limit 0 means no limit.
	Limit  int
	Offset int
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns tasks matching the filter, newest first, together with
	// the total number of matching rows (ignoring Limit/Offset).
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, int, error)

	// Update modifies an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task from the store by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// FindDueBetween returns all tasks whose due date falls inside
	// [start, end), regardless of completion state.
	FindDueBetween(ctx context.Context, start, end time.Time) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) TaskStore
}
