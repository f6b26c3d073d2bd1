package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind is the purpose tag carried inside every issued token.
type TokenKind string

// Known token kinds.
const (
	TokenKindAccess            TokenKind = "access"
	TokenKindRefresh           TokenKind = "refresh"
	TokenKindEmailVerification TokenKind = "email_verification"
	TokenKindPasswordReset     TokenKind = "password_reset"
)

// Valid reports whether the kind is one of the known kinds.
func (k TokenKind) Valid() bool {
	switch k {
	case TokenKindAccess, TokenKindRefresh, TokenKindEmailVerification, TokenKindPasswordReset:
		return true
	}
	return false
}

// TokenRecord is a revocation-ledger entry for a single issued token.
// Rows are created active at issuance and flipped inactive on revocation;
// they are never deleted on the verify/revoke path, which keeps
// "is this exact token still valid" answerable deterministically.
type TokenRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"-"` // Exact issued token string; never exposed
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
