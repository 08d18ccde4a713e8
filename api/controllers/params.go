package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/neline/marketplace-backend/api/middleware"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
)

func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

// optionalUserID returns nil for anonymous callers.
func optionalUserID(r *http.Request) *uuid.UUID {
	if id, ok := middleware.UserIDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}
