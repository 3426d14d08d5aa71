package oauth

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error is a client-facing protocol error carrying an RFC 6749 error code.
// Everything else that can go wrong (storage failures, the remote
// authentication check being down) is reported as a plain error and surfaces
// as server_error at the boundary.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Status      int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// WithDescription returns a copy of the error with a human-readable detail.
func (e *Error) WithDescription(description string) *Error {
	return &Error{Code: e.Code, Description: description, Status: e.Status}
}

// Is matches on the RFC error code so callers can compare against the
// exported sentinels regardless of description.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

var (
	ErrInvalidRequest          = &Error{Code: "invalid_request", Status: fiber.StatusBadRequest}
	ErrInvalidClient           = &Error{Code: "invalid_client", Status: fiber.StatusUnauthorized}
	ErrUnauthorizedClient      = &Error{Code: "unauthorized_client", Status: fiber.StatusBadRequest}
	ErrAccessDenied            = &Error{Code: "access_denied", Status: fiber.StatusForbidden}
	ErrUnsupportedResponseType = &Error{Code: "unsupported_response_type", Status: fiber.StatusBadRequest}
	ErrUnsupportedGrantType    = &Error{Code: "unsupported_grant_type", Status: fiber.StatusBadRequest}
	ErrInvalidScope            = &Error{Code: "invalid_scope", Status: fiber.StatusBadRequest}
	ErrServerError             = &Error{Code: "server_error", Status: fiber.StatusInternalServerError}

	// ErrInvalidGrant deliberately carries no detail: a missing, expired,
	// revoked or mismatched code/token must all look the same to the caller.
	ErrInvalidGrant = &Error{Code: "invalid_grant", Status: fiber.StatusBadRequest}
)

// AsProtocolError extracts an *Error from err, or wraps err into a
// server_error if it is not one.
func AsProtocolError(err error) *Error {
	var oauthErr *Error
	if errors.As(err, &oauthErr) {
		return oauthErr
	}
	return ErrServerError
}
