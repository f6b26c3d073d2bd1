package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-api/internal/domain"
)

// TokenStore is the revocation ledger: a durable record of every issued
// token and its active/revoked status, keyed by (user, token string).
type TokenStore interface {
	// Record inserts an active ledger entry for a freshly issued token and
	// returns the entry ID. The write is committed before Record returns;
	// a token must never be handed to a caller before its entry is durable.
	Record(ctx context.Context, userID uuid.UUID, token string) (uuid.UUID, error)

	// Find looks up the ledger entry for the exact (user, token) pair.
	// Returns ErrTokenNotFound if no entry exists.
	Find(ctx context.Context, userID uuid.UUID, token string) (*domain.TokenRecord, error)

	// Deactivate flips the entry with the given ID to inactive.
	// Returns false if no row was updated.
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)

	// DeleteExpiredBefore removes inactive entries created before the cutoff.
	// Retention maintenance only; never called on the verify/revoke path.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// WithTx returns a new TokenStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) TokenStore
}
