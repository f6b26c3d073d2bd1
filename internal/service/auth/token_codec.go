package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tasknest/tasknest-api/internal/domain"
)

// TokenClaims is the decoded content of an issued token.
type TokenClaims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID

	// Email is the subject label embedded at mint time.
	Email string

	// Role is the role label embedded at mint time.
	Role domain.Role

	// Kind is the purpose tag of the token.
	Kind domain.TokenKind

	IssuedAt  time.Time
	ExpiresAt time.Time

	// ID is the unique token identifier (jti).
	ID string
}

// jwtCustomClaims defines the wire structure of the JWT claims we use.
type jwtCustomClaims struct {
	UserID uuid.UUID `json:"uid"`
	Role   string    `json:"role"`
	Kind   string    `json:"kind"`
	jwt.RegisteredClaims
}

// TokenCodec encodes and decodes compact, tamper-evident tokens using
// HMAC-SHA256 signing. It performs no I/O and is safe for concurrent use.
type TokenCodec struct {
	signingKey []byte
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration    // Leeway for clock drift during validation
}

// NewTokenCodec creates a TokenCodec with the given signing secret.
// The secret must be at least 32 bytes.
func NewTokenCodec(secret string) (*TokenCodec, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	return &TokenCodec{
		signingKey: []byte(secret),
		timeFunc:   time.Now,
		clockSkew:  2 * time.Minute,
	}, nil
}

// NewTokenCodecWithClock creates a TokenCodec with an injected time source.
// Used by tests and by callers that share a clock with the session service.
func NewTokenCodecWithClock(secret string, timeFunc func() time.Time) (*TokenCodec, error) {
	codec, err := NewTokenCodec(secret)
	if err != nil {
		return nil, err
	}
	codec.timeFunc = timeFunc
	return codec, nil
}

// Encode mints a signed token carrying the subject identity, role and kind,
// with an absolute expiry of now + validity.
func (c *TokenCodec) Encode(
	userID uuid.UUID,
	email string,
	role domain.Role,
	kind domain.TokenKind,
	validity time.Duration,
) (string, error) {
	now := c.timeFunc()

	claims := jwtCustomClaims{
		UserID: userID,
		Role:   string(role),
		Kind:   string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token with HMAC-SHA256: %w", kind, err)
	}

	return signedToken, nil
}

// Decode parses and validates a token string.
// Returns ErrExpiredToken when the signature is valid but the expiry has
// passed, and ErrMalformedToken for any structural or signature failure.
func (c *TokenCodec) Decode(tokenString string) (*TokenClaims, error) {
	now := c.timeFunc()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(c.clockSkew),
		jwt.WithTimeFunc(func() time.Time {
			return now
		}),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return c.signingKey, nil
		},
		parserOpts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrMalformedToken
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}

	if claims.UserID == uuid.Nil || claims.Subject == "" {
		return nil, ErrMalformedToken
	}

	return &TokenClaims{
		UserID:    claims.UserID,
		Email:     claims.Subject,
		Role:      domain.Role(claims.Role),
		Kind:      domain.TokenKind(claims.Kind),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}
