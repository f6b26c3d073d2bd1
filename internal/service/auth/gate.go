package auth

import (
	"github.com/google/uuid"
	"github.com/tasknest/tasknest-api/internal/domain"
)

// SubjectContext is the verified identity a request acts on behalf of.
// It is rebuilt from the token and a fresh user load on every request, so
// revocation and profile changes take effect on the very next call.
type SubjectContext struct {
	UserID          uuid.UUID
	Email           string
	FullName        string
	Role            domain.Role
	IsActive        bool
	IsEmailVerified bool
	TokenKind       domain.TokenKind
}

// RequireRole fails with ErrForbidden unless the subject's role is one of
// the allowed roles. A nil context or unknown role fails closed.
func RequireRole(subject *SubjectContext, allowed ...domain.Role) error {
	if subject == nil || !subject.Role.Valid() {
		return ErrForbidden
	}

	for _, role := range allowed {
		if subject.Role == role {
			return nil
		}
	}

	return ErrForbidden
}

// RequireActive fails with ErrNotActive unless the subject's account is
// active.
func RequireActive(subject *SubjectContext) error {
	if subject == nil || !subject.IsActive {
		return ErrNotActive
	}
	return nil
}

// RequireEmailVerified fails with ErrEmailNotVerified unless the subject has
// verified their email address.
func RequireEmailVerified(subject *SubjectContext) error {
	if subject == nil || !subject.IsEmailVerified {
		return ErrEmailNotVerified
	}
	return nil
}

// RequireKind fails with ErrWrongTokenKind unless the subject's token is one
// of the allowed kinds. Used by the flows that discriminate token purpose
// (refresh, email verification, password reset).
func RequireKind(subject *SubjectContext, allowed ...domain.TokenKind) error {
	if subject == nil {
		return ErrWrongTokenKind
	}

	for _, kind := range allowed {
		if subject.TokenKind == kind {
			return nil
		}
	}

	return ErrWrongTokenKind
}
