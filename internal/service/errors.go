package service

import "errors"

// Service-level errors.
var (
	// ErrSelfDelete is returned when an admin attempts to delete their own
	// account.
	ErrSelfDelete = errors.New("cannot delete your own account")

	// ErrEmailAlreadyVerified is returned when a verification flow is run
	// for an address that is already verified.
	ErrEmailAlreadyVerified = errors.New("email already verified")
)
