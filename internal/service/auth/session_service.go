package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-api/internal/domain"
	"github.com/tasknest/tasknest-api/internal/platform/logger"
	"github.com/tasknest/tasknest-api/internal/store"
)

// SessionService orchestrates issuance, verification, revocation and refresh
// of tokens. Every issued token gets a revocation-ledger row; a token is
// usable only while its signature is valid, its expiry has not passed, and
// its ledger row is still active.
type SessionService struct {
	codec          *TokenCodec
	tokens         store.TokenStore
	users          store.UserStore
	accessValidity time.Duration
}

// NewSessionService creates a SessionService with its injected dependencies.
// accessValidity is the lifetime applied to access tokens minted by Refresh.
func NewSessionService(
	codec *TokenCodec,
	tokens store.TokenStore,
	users store.UserStore,
	accessValidity time.Duration,
) *SessionService {
	return &SessionService{
		codec:          codec,
		tokens:         tokens,
		users:          users,
		accessValidity: accessValidity,
	}
}

// Issue mints a token of the given kind for the subject and durably records
// it in the revocation ledger before returning it. A ledger write failure is
// fatal to the call: a token is never handed back if its record did not
// persist.
func (s *SessionService) Issue(
	ctx context.Context,
	email string,
	userID uuid.UUID,
	validity time.Duration,
	kind domain.TokenKind,
	role domain.Role,
) (string, error) {
	log := logger.FromContext(ctx)

	token, err := s.codec.Encode(userID, email, role, kind, validity)
	if err != nil {
		log.Error("failed to encode token",
			"error", err,
			"user_id", userID,
			"kind", kind)
		return "", fmt.Errorf("failed to encode %s token: %w", kind, err)
	}

	if _, err := s.tokens.Record(ctx, userID, token); err != nil {
		log.Error("failed to record issued token in ledger",
			"error", err,
			"user_id", userID,
			"kind", kind)
		return "", fmt.Errorf("failed to record issued token: %w", err)
	}

	log.Debug("token issued",
		"user_id", userID,
		"kind", kind)

	return token, nil
}

// Verify decodes the token, checks the revocation ledger for the exact
// (subject, token) pair, and loads the live subject record. All checks are
// re-executed on every call so that revocation and profile changes take
// effect on the very next request.
//
// Verify is kind-agnostic: callers that need to discriminate token purpose
// use RequireKind on the returned context.
func (s *SessionService) Verify(ctx context.Context, token string) (*SubjectContext, error) {
	log := logger.FromContext(ctx)

	claims, err := s.codec.Decode(token)
	if err != nil {
		log.Debug("token verification failed at decode", "error", err)
		return nil, err
	}

	record, err := s.tokens.Find(ctx, claims.UserID, token)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			log.Debug("token verification failed: no ledger entry",
				"user_id", claims.UserID)
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("failed to look up token ledger entry: %w", err)
	}

	if !record.Active {
		log.Debug("token verification failed: token blacklisted",
			"user_id", claims.UserID)
		return nil, ErrTokenRevoked
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("token verification failed: subject not found",
				"user_id", claims.UserID)
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to load token subject: %w", err)
	}

	return &SubjectContext{
		UserID:          user.ID,
		Email:           user.Email,
		FullName:        user.FullName,
		Role:            user.Role,
		IsActive:        user.IsActive,
		IsEmailVerified: user.IsEmailVerified,
		TokenKind:       claims.Kind,
	}, nil
}

// Revoke flips the ledger entry for the exact (subject, token) pair to
// inactive. Returns (false, nil) when no entry exists; revoking an
// already-inactive entry is a no-op reported as false. Idempotent.
func (s *SessionService) Revoke(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	log := logger.FromContext(ctx)

	record, err := s.tokens.Find(ctx, userID, token)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up token ledger entry: %w", err)
	}

	if !record.Active {
		return false, nil
	}

	revoked, err := s.tokens.Deactivate(ctx, record.ID)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate token ledger entry: %w", err)
	}

	if revoked {
		log.Info("token revoked", "user_id", userID)
	}

	return revoked, nil
}

// Refresh verifies the refresh token and mints a new access token for its
// subject. The refresh token itself remains valid; refresh does not
// implicitly revoke. Only tokens of kind refresh are accepted.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	subject, err := s.Verify(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	if err := RequireKind(subject, domain.TokenKindRefresh); err != nil {
		return "", err
	}

	return s.Issue(
		ctx,
		subject.Email,
		subject.UserID,
		s.accessValidity,
		domain.TokenKindAccess,
		subject.Role,
	)
}
