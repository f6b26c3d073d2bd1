package auth

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasknest/tasknest-api/internal/domain"
	"github.com/tasknest/tasknest-api/internal/store"
)

// fakeTokenStore is an in-memory revocation ledger for tests.
type fakeTokenStore struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*domain.TokenRecord
	recordErr error
	findErr   error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{records: make(map[uuid.UUID]*domain.TokenRecord)}
}

func (s *fakeTokenStore) Record(ctx context.Context, userID uuid.UUID, token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return uuid.Nil, s.recordErr
	}
	id := uuid.New()
	now := time.Now().UTC()
	s.records[id] = &domain.TokenRecord{
		ID:        id,
		UserID:    userID,
		Token:     token,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (s *fakeTokenStore) Find(ctx context.Context, userID uuid.UUID, token string) (*domain.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, record := range s.records {
		if record.UserID == userID && record.Token == token {
			copied := *record
			return &copied, nil
		}
	}
	return nil, store.ErrTokenNotFound
}

func (s *fakeTokenStore) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok || !record.Active {
		return false, nil
	}
	record.Active = false
	record.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *fakeTokenStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, record := range s.records {
		if !record.Active && record.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeTokenStore) WithTx(tx *sql.Tx) store.TokenStore { return s }

// fakeUserStore is an in-memory user store for tests.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, user := range users {
		s.users[user.ID] = user
	}
	return s
}

func (s *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
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

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
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

func (s *fakeUserStore) List(ctx context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*domain.User, 0, len(s.users))
	for _, user := range s.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func (s *fakeUserStore) Update(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *fakeUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) WithTx(tx *sql.Tx) store.UserStore { return s }

func newTestUser(role domain.Role) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:              uuid.New(),
		Email:           "user@example.com",
		FullName:        "Test User",
		Role:            role,
		HashedPassword:  "hashed",
		IsActive:        true,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newTestSessionService(t *testing.T, users *fakeUserStore, tokens *fakeTokenStore, now func() time.Time) *SessionService {
	t.Helper()
	codec, err := NewTokenCodecWithClock(testSecret, now)
	require.NoError(t, err)
	return NewSessionService(codec, tokens, users, 30*time.Minute)
}

func TestSessionServiceIssue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixedTime := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("records ledger entry before returning token", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		tokens := newFakeTokenStore()
		svc := newTestSessionService(t, newFakeUserStore(user), tokens, func() time.Time { return fixedTime })

		token, err := svc.Issue(ctx, user.Email, user.ID, time.Hour, domain.TokenKindAccess, user.Role)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		record, err := tokens.Find(ctx, user.ID, token)
		require.NoError(t, err)
		assert.True(t, record.Active)
	})

	t.Run("ledger write failure returns no token", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		tokens := newFakeTokenStore()
		tokens.recordErr = errors.New("disk full")
		svc := newTestSessionService(t, newFakeUserStore(user), tokens, func() time.Time { return fixedTime })

		token, err := svc.Issue(ctx, user.Email, user.ID, time.Hour, domain.TokenKindAccess, user.Role)
		assert.Error(t, err)
		assert.Empty(t, token)
	})
}

func TestSessionServiceVerify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixedTime := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("valid token yields subject with role and kind", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleAdmin)
		tokens := newFakeTokenStore()
		svc := newTestSessionService(t, newFakeUserStore(user), tokens, func() time.Time { return fixedTime })

		token, err := svc.Issue(ctx, user.Email, user.ID, time.Hour, domain.TokenKindRefresh, user.Role)
		require.NoError(t, err)

		subject, err := svc.Verify(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, subject.UserID)
		assert.Equal(t, user.Email, subject.Email)
		assert.Equal(t, domain.RoleAdmin, subject.Role)
		assert.Equal(t, domain.TokenKindRefresh, subject.TokenKind)
		assert.True(t, subject.IsActive)
	})

	t.Run("revoked token is rejected", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		tokens := newFakeTokenStore()
		svc := newTestSessionService(t, newFakeUserStore(user), tokens, func() time.Time { return fixedTime })

		token, err := svc.Issue(ctx, user.Email, user.ID, time.Hour, domain.TokenKindAccess, user.Role)
		require.NoError(t, err)

		revoked, err := svc.Revoke(ctx, user.ID, token)
		require.NoError(t, err)
		assert.True(t, revoked)

		subject, err := svc.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
		assert.Nil(t, subject)
	})

	t.Run("valid signature without ledger entry is rejected", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		svc := newTestSessionService(t, newFakeUserStore(user), newFakeTokenStore(), func() time.Time { return fixedTime })

		// Mint a well-signed token outside of Issue so the ledger never
		// hears about it.
		codec, err := NewTokenCodecWithClock(testSecret, func() time.Time { return fixedTime })
		require.NoError(t, err)
		token, err := codec.Encode(user.ID, user.Email, user.Role, domain.TokenKindAccess, time.Hour)
		require.NoError(t, err)

		_, err = svc.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("expired token is rejected before the ledger lookup", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		tokens := newFakeTokenStore()

		clock := fixedTime
		svc := newTestSessionService(t, newFakeUserStore(user), tokens, func() time.Time { return clock })

		token, err := svc.Issue(ctx, user.Email, user.ID, time.Hour, domain.TokenKindAccess, user.Role)
		require.NoError(t, err)

		clock = fixedTime.Add(2 * time.Hour)
		_, err = svc.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("deleted subject is rejected", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		users := newFakeUserStore(user)
		tokens := newFakeTokenStore()
		svc := newTestSessionService(t, users, tokens, func() time.Time { return fixedTime })

		token, err := svc.Issue(ctx, user.Email, user.ID, time.Hour, domain.TokenKindAccess, user.Role)
		require.NoError(t, err)

		require.NoError(t, users.Delete(ctx, user.ID))

		_, err = svc.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrSubjectNotFound)
	})
}

func TestSessionServiceRevoke(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixedTime := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("revoke is idempotent", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		tokens := newFakeTokenStore()
		svc := newTestSessionService(t, newFakeUserStore(user), tokens, func() time.Time { return fixedTime })

		token, err := svc.Issue(ctx, user.Email, user.ID, time.Hour, domain.TokenKindAccess, user.Role)
		require.NoError(t, err)

		revoked, err := svc.Revoke(ctx, user.ID, token)
		require.NoError(t, err)
		assert.True(t, revoked)

		// Second revocation reports false with no error.
		revoked, err = svc.Revoke(ctx, user.ID, token)
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("unknown token reports false without error", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		svc := newTestSessionService(t, newFakeUserStore(user), newFakeTokenStore(), func() time.Time { return fixedTime })

		revoked, err := svc.Revoke(ctx, user.ID, "never-issued")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revoking the access token leaves the refresh token live", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		tokens := newFakeTokenStore()
		svc := newTestSessionService(t, newFakeUserStore(user), tokens, func() time.Time { return fixedTime })

		accessToken, err := svc.Issue(ctx, user.Email, user.ID, time.Hour, domain.TokenKindAccess, user.Role)
		require.NoError(t, err)
		refreshToken, err := svc.Issue(ctx, user.Email, user.ID, 24*time.Hour, domain.TokenKindRefresh, user.Role)
		require.NoError(t, err)

		revoked, err := svc.Revoke(ctx, user.ID, accessToken)
		require.NoError(t, err)
		assert.True(t, revoked)

		_, err = svc.Verify(ctx, accessToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)

		subject, err := svc.Verify(ctx, refreshToken)
		require.NoError(t, err)
		assert.Equal(t, domain.TokenKindRefresh, subject.TokenKind)
	})
}

func TestSessionServiceRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixedTime := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("refresh token yields a usable access token", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		tokens := newFakeTokenStore()
		svc := newTestSessionService(t, newFakeUserStore(user), tokens, func() time.Time { return fixedTime })

		refreshToken, err := svc.Issue(ctx, user.Email, user.ID, 24*time.Hour, domain.TokenKindRefresh, user.Role)
		require.NoError(t, err)

		accessToken, err := svc.Refresh(ctx, refreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, accessToken)
		assert.NotEqual(t, refreshToken, accessToken)

		subject, err := svc.Verify(ctx, accessToken)
		require.NoError(t, err)
		assert.Equal(t, domain.TokenKindAccess, subject.TokenKind)

		// The refresh token is untouched by the exchange.
		_, err = svc.Verify(ctx, refreshToken)
		assert.NoError(t, err)
	})

	t.Run("access token cannot drive refresh", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		svc := newTestSessionService(t, newFakeUserStore(user), newFakeTokenStore(), func() time.Time { return fixedTime })

		accessToken, err := svc.Issue(ctx, user.Email, user.ID, time.Hour, domain.TokenKindAccess, user.Role)
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, accessToken)
		assert.ErrorIs(t, err, ErrWrongTokenKind)
	})

	t.Run("revoked refresh token cannot be exchanged", func(t *testing.T) {
		t.Parallel()
		user := newTestUser(domain.RoleUser)
		svc := newTestSessionService(t, newFakeUserStore(user), newFakeTokenStore(), func() time.Time { return fixedTime })

		refreshToken, err := svc.Issue(ctx, user.Email, user.ID, 24*time.Hour, domain.TokenKindRefresh, user.Role)
		require.NoError(t, err)

		_, err = svc.Revoke(ctx, user.ID, refreshToken)
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, refreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})
}
