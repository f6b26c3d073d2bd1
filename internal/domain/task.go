package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Task validation errors.
var (
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
	ErrEmptyTaskOwner   = errors.New("task owner cannot be empty")
	ErrEmptyTaskTitle   = errors.New("task title cannot be empty")
	ErrInvalidPriority  = errors.New("invalid priority level")
	ErrTaskNotCompleted = errors.New("task is not completed")
)

// Priority is the closed set of task priority levels.
type Priority string

// Known priority levels.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the priority is one of the known levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// String returns the priority label.
func (p Priority) String() string {
	return string(p)
}

// ParsePriority converts a label into a Priority, or fails with
// ErrInvalidPriority.
func ParsePriority(label string) (Priority, error) {
	p := Priority(label)
	if !p.Valid() {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// Task represents a single to-do item owned by a user.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority_level"`
	DueDate     *time.Time `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates a task for the given owner. Priority defaults to low when
// empty. The due date is optional.
func NewTask(userID uuid.UUID, title, category, description string, priority Priority, dueDate *time.Time) (*Task, error) {
	if priority == "" {
		priority = PriorityLow
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Category:    category,
		Description: description,
		Completed:   false,
		Priority:    priority,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTaskOwner
	}

	if t.Title == "" {
		return ErrEmptyTaskTitle
	}

	if !t.Priority.Valid() {
		return ErrInvalidPriority
	}

	return nil
}

// MarkComplete flips the task to completed and stamps the completion time.
func (t *Task) MarkComplete(now time.Time) {
	t.Completed = true
	completedAt := now.UTC()
	t.CompletedAt = &completedAt
	t.UpdatedAt = now.UTC()
}

// MarkIncomplete reverts a completed task and clears the completion time.
func (t *Task) MarkIncomplete(now time.Time) {
	t.Completed = false
	t.CompletedAt = nil
	t.UpdatedAt = now.UTC()
}
