package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tasknest/tasknest-api/internal/api/shared"
	"github.com/tasknest/tasknest-api/internal/domain"
	"github.com/tasknest/tasknest-api/internal/platform/logger"
	"github.com/tasknest/tasknest-api/internal/service"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	tasks  *service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler with the given dependencies.
func NewTaskHandler(tasks *service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	subject, ok := getSubject(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	priority := domain.Priority(req.Priority)

	task, err := h.tasks.Create(
		r.Context(), subject, req.Title, req.Category, req.Description, priority, req.DueDate)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// List handles GET /tasks with search, category, completed, priority,
// due_date and pagination query parameters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	subject, ok := getSubject(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	filter := service.TaskListFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}
	if v := r.URL.Query().Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid completed filter")
			return
		}
		filter.Completed = &completed
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		priority, err := domain.ParsePriority(v)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid priority filter")
			return
		}
		filter.Priority = &priority
	}
	if v := r.URL.Query().Get("due_date"); v != "" {
		dueOn, err := time.Parse("2006-01-02", v)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid due_date filter")
			return
		}
		filter.DueOn = &dueOn
	}
	if v := r.URL.Query().Get("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		filter.PageSize, _ = strconv.Atoi(v)
	}

	page, err := h.tasks.List(r.Context(), subject, filter)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	resp := TaskListResponse{
		Tasks:    make([]TaskResponse, 0, len(page.Tasks)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	for _, task := range page.Tasks {
		resp.Tasks = append(resp.Tasks, taskToResponse(task))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	subject, taskID, ok := handleSubjectAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), subject, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// Update handles PATCH /tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	subject, taskID, ok := handleSubjectAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	update := service.TaskUpdate{
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDueDate,
	}
	if req.Priority != nil {
		priority, err := domain.ParsePriority(*req.Priority)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		update.Priority = &priority
	}

	task, err := h.tasks.Update(r.Context(), subject, taskID, update)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// Delete handles DELETE /tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	subject, taskID, ok := handleSubjectAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), subject, taskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Complete handles POST /tasks/{id}/complete.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	subject, taskID, ok := handleSubjectAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.Complete(r.Context(), subject, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// Incomplete handles POST /tasks/{id}/incomplete.
func (h *TaskHandler) Incomplete(w http.ResponseWriter, r *http.Request) {
	subject, taskID, ok := handleSubjectAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.Incomplete(r.Context(), subject, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}
