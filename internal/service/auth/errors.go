package auth

import "errors"

// Common authentication service errors. The HTTP layer collapses all of the
// token failures below into a single 401 response; the distinction exists
// for internal logging only.
var (
	// ErrMalformedToken indicates the token structure is invalid or the
	// signature doesn't match.
	ErrMalformedToken = errors.New("malformed authentication token")

	// ErrExpiredToken indicates the token signature is valid but the token
	// has expired.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenRevoked indicates the token's revocation-ledger entry has been
	// flipped inactive (logout, password change, email change).
	ErrTokenRevoked = errors.New("authentication token has been revoked")

	// ErrSubjectNotFound indicates a structurally valid token references a
	// user that no longer exists.
	ErrSubjectNotFound = errors.New("token subject not found")

	// ErrWrongTokenKind indicates a token of an unexpected kind was presented
	// to an operation that discriminates kinds.
	ErrWrongTokenKind = errors.New("wrong token kind")

	// ErrMissingToken indicates a token was expected but not provided.
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrInvalidCredentials indicates an email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotActive indicates the authenticated account is deactivated.
	ErrNotActive = errors.New("account is not active")

	// ErrEmailNotVerified indicates the authenticated account has not
	// verified its email address.
	ErrEmailNotVerified = errors.New("email is not verified")

	// ErrForbidden indicates the authenticated caller's role does not permit
	// the operation. Never returned by Verify itself.
	ErrForbidden = errors.New("operation not permitted for role")
)
