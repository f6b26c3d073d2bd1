package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tasknest/tasknest-api/internal/config"
	"github.com/tasknest/tasknest-api/internal/domain"
	"github.com/tasknest/tasknest-api/internal/platform/mail"
	"github.com/tasknest/tasknest-api/internal/service/auth"
	"github.com/tasknest/tasknest-api/internal/store"
)

// In-memory store and mailer fakes shared by the service tests.

type memUserStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*domain.User
	withTxCalls int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *memUserStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *memUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memUserStore) List(ctx context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*domain.User, 0, len(s.users))
	for _, user := range s.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func (s *memUserStore) Update(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *memUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *memUserStore) WithTx(tx *sql.Tx) store.UserStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withTxCalls++
	return s
}

type memTokenStore struct {
	mu          sync.Mutex
	records     map[uuid.UUID]*domain.TokenRecord
	withTxCalls int
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{records: make(map[uuid.UUID]*domain.TokenRecord)}
}

func (s *memTokenStore) Record(ctx context.Context, userID uuid.UUID, token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	now := time.Now().UTC()
	s.records[id] = &domain.TokenRecord{
		ID: id, UserID: userID, Token: token, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	return id, nil
}

func (s *memTokenStore) Find(ctx context.Context, userID uuid.UUID, token string) (*domain.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.UserID == userID && record.Token == token {
			copied := *record
			return &copied, nil
		}
	}
	return nil, store.ErrTokenNotFound
}

func (s *memTokenStore) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok || !record.Active {
		return false, nil
	}
	record.Active = false
	return true, nil
}

func (s *memTokenStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *memTokenStore) WithTx(tx *sql.Tx) store.TokenStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withTxCalls++
	return s
}

type memTaskStore struct {
	mu          sync.Mutex
	tasks       map[uuid.UUID]*domain.Task
	createErr   error
	withTxCalls int
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *memTaskStore) Create(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *memTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, int, error) {
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

func (s *memTaskStore) Update(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) FindDueBetween(ctx context.Context, start, end time.Time) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*domain.Task
	for _, task := range s.tasks {
		if task.DueDate == nil {
			continue
		}
		if !task.DueDate.Before(start) && task.DueDate.Before(end) {
			copied := *task
			due = append(due, &copied)
		}
	}
	return due, nil
}

func (s *memTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withTxCalls++
	return s
}

type captureMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	sendErr  error
}

func (m *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *captureMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// passthroughTx runs the transactional function directly; the in-memory
// stores ignore the tx handle.
func passthroughTx(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

// testTaskService wires a TaskService over an in-memory store.
func testTaskService(tasks *memTaskStore) *TaskService {
	svc := NewTaskService(nil, tasks)
	svc.runTx = passthroughTx
	return svc
}

// testAccountService wires an AccountService over in-memory stores.
func testAccountService(t *testing.T) (*AccountService, *memUserStore, *memTokenStore, *captureMailer, *auth.SessionService) {
	t.Helper()

	users := newMemUserStore()
	tokens := newMemTokenStore()
	mailer := &captureMailer{}

	codec, err := auth.NewTokenCodec("test-secret-that-is-long-enough-for-testing")
	require.NoError(t, err)
	sessions := auth.NewSessionService(codec, tokens, users, 30*time.Minute)

	authCfg := config.AuthConfig{
		JWTSecret:                        "test-secret-that-is-long-enough-for-testing",
		AccessTokenLifetimeMinutes:       30,
		RefreshTokenLifetimeMinutes:      7 * 24 * 60,
		VerificationTokenLifetimeMinutes: 30,
		ResetTokenLifetimeMinutes:        30,
	}
	mailCfg := config.MailConfig{
		Host:        "smtp.example.com",
		Port:        587,
		FromAddress: "noreply@example.com",
		BaseURL:     "https://app.example.com",
	}

	svc := NewAccountService(nil, users, tokens, sessions, auth.NewBcryptVerifier(), mailer, authCfg, mailCfg)
	svc.runTx = passthroughTx
	return svc, users, tokens, mailer, sessions
}
