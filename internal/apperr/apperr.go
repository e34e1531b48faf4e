package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// The four failure kinds the chat core distinguishes. Everything else is an
// internal error and surfaces as a 500.

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return e.Reason
}

// TransportUnavailable means a room broadcast could not be delivered. It is
// never fatal to an already-successful durable write; callers log it and move on.
type TransportUnavailable struct {
	Room string
}

func (e *TransportUnavailable) Error() string {
	return "broadcast transport unavailable for room " + e.Room
}

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func Unauthorized(reason string) error {
	return &AuthorizationError{Reason: reason}
}

// Status maps an error to the HTTP status handlers should respond with.
func Status(err error) int {
	var ve *ValidationError
	var nfe *NotFoundError
	var ae *AuthorizationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nfe):
		return http.StatusNotFound
	case errors.As(err, &ae):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
