// Package handlers provides the HTTP handlers for the JSON API.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/recipesimplifier/api/internal/infrastructure/http/middleware"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/pkg/errors"
)

// MessageResponse is returned by endpoints that only report success.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// decodeJSON reads the request body into dst. An empty body leaves dst at
// its zero value.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.NewBadRequestError("Request body too large")
		}
		return errors.NewBadRequestError("Invalid JSON payload").WithCause(err)
	}
	return nil
}

// callerFrom returns the authenticated caller placed in the context by the
// auth middleware.
func callerFrom(r *http.Request) (inbound.Identity, error) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return inbound.Identity{}, errors.NewUnauthorizedError("Unauthorized")
	}
	return identity, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.NewBadRequestError("Invalid " + name)
	}
	return id, nil
}
