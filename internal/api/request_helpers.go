package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tasknest/tasknest-api/internal/api/middleware"
	"github.com/tasknest/tasknest-api/internal/domain"
	"github.com/tasknest/tasknest-api/internal/service/auth"
)

// getSubject extracts the authenticated subject from the request context.
// The subject is placed there by the authentication middleware.
func getSubject(r *http.Request) (*auth.SubjectContext, bool) {
	return middleware.GetSubject(r)
}

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// handleSubjectAndPathUUID extracts the subject and a UUID path parameter,
// writing the error response itself when either is missing.
func handleSubjectAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
) (*auth.SubjectContext, uuid.UUID, bool) {
	subject, ok := getSubject(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return nil, uuid.Nil, false
	}

	id, err := getPathUUID(r, paramName)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, uuid.Nil, false
	}

	return subject, id, true
}
