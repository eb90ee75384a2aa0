// Package errors holds the error taxonomy shared by the API gateway, the
// local backend and the planner managers. Import it as apierrors.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is returned for 401 responses.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return "authentication failed: " + e.Message
}

// ValidationError carries a field -> messages map, usually from a 422 response.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

// NewValidationError builds an empty validation error with a summary message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: map[string][]string{}}
}

// Add records a message for field.
func (e *ValidationError) Add(field, msg string) *ValidationError {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
	return e
}

// HasErrors reports whether any field message was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Field returns the messages recorded for field.
func (e *ValidationError) Field(field string) []string {
	return e.Fields[field]
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message == "" {
			return "validation failed"
		}
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	msg := e.Message
	if msg == "" {
		msg = "validation failed"
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}

// ServerError covers 5xx and any other non-auth, non-validation status.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (status %d)", e.Status)
	}
	return fmt.Sprintf("server error (status %d): %s", e.Status, e.Message)
}

// NotFound reports whether the server answered 404.
func (e *ServerError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// NotFoundLocal means a referenced activity, tag or event is not in the
// in-memory cache. Callers degrade gracefully instead of failing a render.
type NotFoundLocal struct {
	Kind string
	ID   string
}

func (e *NotFoundLocal) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// MalformedResponseError is returned when a response decodes but fails schema
// validation at the gateway boundary.
type MalformedResponseError struct {
	Resource string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %s", e.Resource, e.Reason)
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var target *AuthError
	return stderrors.As(err, &target)
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var target *NetworkError
	return stderrors.As(err, &target)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

// IsNotFound reports whether err is a local miss or a 404 from the server.
func IsNotFound(err error) bool {
	var local *NotFoundLocal
	if stderrors.As(err, &local) {
		return true
	}
	var srv *ServerError
	return stderrors.As(err, &srv) && srv.NotFound()
}

// FromStatus maps an HTTP status and decoded error body to the taxonomy.
func FromStatus(status int, message string, fields map[string][]string) error {
	switch {
	case status == http.StatusUnauthorized:
		return &AuthError{Message: message}
	case status == http.StatusUnprocessableEntity || (status == http.StatusBadRequest && len(fields) > 0):
		ve := NewValidationError(message)
		for k, msgs := range fields {
			for _, m := range msgs {
				ve.Add(k, m)
			}
		}
		return ve
	default:
		return &ServerError{Status: status, Message: message}
	}
}

// ParseAPIError renders err as a single user-facing line.
func ParseAPIError(err error) string {
	if err == nil {
		return ""
	}
	var (
		authErr  *AuthError
		valErr   *ValidationError
		netErr   *NetworkError
		srvErr   *ServerError
		localErr *NotFoundLocal
		badErr   *MalformedResponseError
	)
	switch {
	case stderrors.As(err, &authErr):
		return "❌ Not authenticated. Run 'agenda setup login' first."
	case stderrors.As(err, &valErr):
		return "❌ " + valErr.Error()
	case stderrors.As(err, &netErr):
		return "❌ Could not reach the server. Check your connection or api_base_url."
	case stderrors.As(err, &srvErr):
		if srvErr.NotFound() {
			return "❌ Not found on the server."
		}
		return "❌ " + srvErr.Error()
	case stderrors.As(err, &localErr):
		return "❌ " + localErr.Error()
	case stderrors.As(err, &badErr):
		return "❌ " + badErr.Error()
	default:
		return "❌ " + err.Error()
	}
}
