package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-api/internal/config"
	"github.com/tasknest/tasknest-api/internal/domain"
	"github.com/tasknest/tasknest-api/internal/platform/logger"
	"github.com/tasknest/tasknest-api/internal/platform/mail"
	"github.com/tasknest/tasknest-api/internal/service/auth"
	"github.com/tasknest/tasknest-api/internal/store"
)

// TokenPair is the result of a successful login: one access and one refresh
// token, each with its own revocation-ledger row.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

// AccountService orchestrates registration, login, logout and the
// email-verification and password flows.
type AccountService struct {
	db       *sql.DB
	users    store.UserStore
	tokens   store.TokenStore
	sessions *auth.SessionService
	verifier auth.PasswordVerifier
	hasher   auth.PasswordHasher
	mailer   mail.Mailer

	// runTx executes fn within a database transaction. Injectable for testing.
	runTx func(ctx context.Context, fn store.TxFn) error

	accessValidity       time.Duration
	refreshValidity      time.Duration
	verificationValidity time.Duration
	resetValidity        time.Duration
	baseURL              string
}

// NewAccountService creates an AccountService with its injected dependencies.
func NewAccountService(
	db *sql.DB,
	users store.UserStore,
	tokens store.TokenStore,
	sessions *auth.SessionService,
	passwords *auth.BcryptVerifier,
	mailer mail.Mailer,
	authCfg config.AuthConfig,
	mailCfg config.MailConfig,
) *AccountService {
	return &AccountService{
		db:       db,
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		verifier: passwords,
		hasher:   passwords,
		mailer:   mailer,
		runTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
		accessValidity:       time.Duration(authCfg.AccessTokenLifetimeMinutes) * time.Minute,
		refreshValidity:      time.Duration(authCfg.RefreshTokenLifetimeMinutes) * time.Minute,
		verificationValidity: time.Duration(authCfg.VerificationTokenLifetimeMinutes) * time.Minute,
		resetValidity:        time.Duration(authCfg.ResetTokenLifetimeMinutes) * time.Minute,
		baseURL:              mailCfg.BaseURL,
	}
}

// Register creates a new user with a hashed password and sends the
// verification mail. A failed mail send does not fail registration; the
// verification can be re-requested.
func (s *AccountService) Register(ctx context.Context, email, fullName, password string) (*domain.User, error) {
	log := logger.FromContext(ctx)

	user, err := domain.NewUser(email, fullName, password)
	if err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendVerificationMail(ctx, user); err != nil {
		log.Warn("failed to send verification mail after registration",
			"error", err,
			"user_id", user.ID)
	}

	return user, nil
}

// Login verifies the credentials and issues an access and a refresh token.
// Unknown email and wrong password both fail with ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	accessToken, err := s.sessions.Issue(
		ctx, user.Email, user.ID, s.accessValidity, domain.TokenKindAccess, user.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.sessions.Issue(
		ctx, user.Email, user.ID, s.refreshValidity, domain.TokenKindRefresh, user.Role)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Logout revokes the access and refresh tokens independently. A failure to
// revoke one does not block revocation of the other; the first error is
// reported after both attempts.
func (s *AccountService) Logout(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string) error {
	log := logger.FromContext(ctx)

	var firstErr error
	for _, token := range []string{accessToken, refreshToken} {
		if token == "" {
			continue
		}
		if _, err := s.sessions.Revoke(ctx, userID, token); err != nil {
			log.Error("failed to revoke token during logout",
				"error", err,
				"user_id", userID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself stays usable until it expires or is revoked.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return s.sessions.Refresh(ctx, refreshToken)
}

// RequestEmailVerification issues a fresh verification token for the user
// and mails the verification link.
// Returns ErrEmailAlreadyVerified when the address is already verified.
func (s *AccountService) RequestEmailVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.IsEmailVerified {
		return ErrEmailAlreadyVerified
	}

	return s.sendVerificationMail(ctx, user)
}

// VerifyEmail consumes a verification token: marks the subject's email
// verified and revokes the token. Only tokens of kind email_verification are
// accepted. Returns ErrEmailAlreadyVerified when there is nothing to do.
// The flag update and the ledger flip commit together; the token is
// single-use exactly when the verification is durable.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	subject, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return err
	}

	if err := auth.RequireKind(subject, domain.TokenKindEmailVerification); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, subject.UserID)
	if err != nil {
		return err
	}

	if user.IsEmailVerified {
		return ErrEmailAlreadyVerified
	}

	user.IsEmailVerified = true
	user.UpdatedAt = time.Now().UTC()

	return s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.users.WithTx(tx).Update(ctx, user); err != nil {
			return err
		}
		return s.retireToken(ctx, s.tokens.WithTx(tx), user.ID, token)
	})
}

// RequestPasswordReset issues a reset token for the account with the given
// email and mails the reset link.
// Returns store.ErrUserNotFound for unknown addresses.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.sessions.Issue(
		ctx, user.Email, user.ID, s.resetValidity, domain.TokenKindPasswordReset, user.Role)
	if err != nil {
		return err
	}

	return s.mailer.Send(ctx, mail.Message{
		To:       user.Email,
		Subject:  "Password reset",
		Template: mail.TemplatePasswordReset,
		Data: map[string]string{
			"url":   s.baseURL + "/reset-password?token=" + url.QueryEscape(token),
			"email": user.Email,
		},
	})
}

// ResetPassword consumes a reset token: stores the new password hash and
// revokes the token. Password-reset and access kinds are both accepted.
// The hash update and the ledger flip commit together.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	subject, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return err
	}

	if err := auth.RequireKind(subject, domain.TokenKindPasswordReset, domain.TokenKindAccess); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, subject.UserID)
	if err != nil {
		return err
	}

	hashed, err := s.hashNewPassword(newPassword)
	if err != nil {
		return err
	}
	user.HashedPassword = hashed
	user.UpdatedAt = time.Now().UTC()

	return s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.users.WithTx(tx).Update(ctx, user); err != nil {
			return err
		}
		return s.retireToken(ctx, s.tokens.WithTx(tx), user.ID, token)
	})
}

// ChangePassword updates the password of an authenticated user after
// verifying the old one. Only access tokens may drive this flow.
func (s *AccountService) ChangePassword(ctx context.Context, subject *auth.SubjectContext, oldPassword, newPassword string) error {
	if err := auth.RequireKind(subject, domain.TokenKindAccess); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, subject.UserID)
	if err != nil {
		return err
	}

	if err := s.verifier.Compare(user.HashedPassword, oldPassword); err != nil {
		return auth.ErrInvalidCredentials
	}

	return s.updatePassword(ctx, user, newPassword)
}

// UpdateProfile updates the user's display name and email. An email change
// clears the verified flag and triggers a fresh verification mail.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, email string) (*domain.User, error) {
	log := logger.FromContext(ctx)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if fullName != "" {
		user.FullName = fullName
	}

	emailChanged := email != "" && email != user.Email
	if emailChanged {
		user.Email = email
		user.IsEmailVerified = false
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if emailChanged {
		if err := s.sendVerificationMail(ctx, user); err != nil {
			log.Warn("failed to send verification mail after email change",
				"error", err,
				"user_id", user.ID)
		}
	}

	return user, nil
}

// updatePassword validates, hashes and persists a new password.
func (s *AccountService) updatePassword(ctx context.Context, user *domain.User, newPassword string) error {
	hashed, err := s.hashNewPassword(newPassword)
	if err != nil {
		return err
	}

	user.HashedPassword = hashed
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

// hashNewPassword validates the new password and returns its bcrypt hash.
func (s *AccountService) hashNewPassword(newPassword string) (string, error) {
	if len(newPassword) < 8 {
		return "", domain.ErrPasswordTooShort
	}
	if len(newPassword) > 72 {
		return "", domain.ErrPasswordTooLong
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hashed, nil
}

// retireToken flips the ledger row for a consumed single-use token inside the
// caller's transaction.
func (s *AccountService) retireToken(ctx context.Context, tokens store.TokenStore, userID uuid.UUID, token string) error {
	record, err := tokens.Find(ctx, userID, token)
	if err != nil {
		return fmt.Errorf("failed to look up consumed token: %w", err)
	}

	if _, err := tokens.Deactivate(ctx, record.ID); err != nil {
		return fmt.Errorf("failed to retire consumed token: %w", err)
	}
	return nil
}

// sendVerificationMail issues an email-verification token and mails the
// verification link.
func (s *AccountService) sendVerificationMail(ctx context.Context, user *domain.User) error {
	token, err := s.sessions.Issue(
		ctx, user.Email, user.ID, s.verificationValidity, domain.TokenKindEmailVerification, user.Role)
	if err != nil {
		return err
	}

	return s.mailer.Send(ctx, mail.Message{
		To:       user.Email,
		Subject:  "Verify your email",
		Template: mail.TemplateEmailVerification,
		Data: map[string]string{
			"url":   s.baseURL + "/api/auth/verify-email?token=" + url.QueryEscape(token),
			"email": user.Email,
		},
	})
}
