package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-api/internal/domain"
	"github.com/tasknest/tasknest-api/internal/platform/logger"
	"github.com/tasknest/tasknest-api/internal/store"
)

// PostgresTokenStore implements the store.TokenStore revocation ledger
// using a PostgreSQL database as the storage backend. Entries are inserted
// active and flipped inactive on revocation; the hot path never deletes.
type PostgresTokenStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTokenStore creates a new PostgreSQL implementation of the
// TokenStore interface.
func NewPostgresTokenStore(db store.DBTX, logger *slog.Logger) *PostgresTokenStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTokenStore{
		db:     db,
		logger: logger.With(slog.String("component", "token_store")),
	}
}

// Ensure PostgresTokenStore implements store.TokenStore interface
var _ store.TokenStore = (*PostgresTokenStore)(nil)

// Record implements store.TokenStore.Record
// The insert runs in auto-commit mode (or the caller's transaction), so the
// entry is durable before Record returns.
func (s *PostgresTokenStore) Record(ctx context.Context, userID uuid.UUID, token string) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	id := uuid.New()
	now := time.Now().UTC()

	query := `
		INSERT INTO tokens (id, user_id, token, active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, id, userID, token, now); err != nil {
		log.Error("failed to record token",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return uuid.Nil, err
	}

	return id, nil
}

// Find implements store.TokenStore.Find
// Returns store.ErrTokenNotFound if no entry exists for the pair.
func (s *PostgresTokenStore) Find(ctx context.Context, userID uuid.UUID, token string) (*domain.TokenRecord, error) {
	query := `
		SELECT id, user_id, token, active, created_at, updated_at
		FROM tokens
		WHERE user_id = $1 AND token = $2
	`

	var record domain.TokenRecord
	err := s.db.QueryRowContext(ctx, query, userID, token).Scan(
		&record.ID,
		&record.UserID,
		&record.Token,
		&record.Active,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTokenNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to find token",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}

	return &record, nil
}

// Deactivate implements store.TokenStore.Deactivate
// Returns false when no row was updated.
func (s *PostgresTokenStore) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tokens
		SET active = FALSE, updated_at = $1
		WHERE id = $2
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to deactivate token",
			slog.String("error", err.Error()),
			slog.String("token_id", id.String()))
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// DeleteExpiredBefore implements store.TokenStore.DeleteExpiredBefore
// Removes inactive entries created before the cutoff. Maintenance only.
func (s *PostgresTokenStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM tokens WHERE active = FALSE AND created_at < $1`
	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		log.Error("failed to delete expired tokens",
			slog.String("error", err.Error()))
		return 0, err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		log.Info("deleted expired token ledger entries", slog.Int64("count", deleted))
	}

	return deleted, nil
}

// WithTx implements store.TokenStore.WithTx
func (s *PostgresTokenStore) WithTx(tx *sql.Tx) store.TokenStore {
	return &PostgresTokenStore{
		db:     tx,
		logger: s.logger,
	}
}
