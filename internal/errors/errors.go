package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies domain errors so the HTTP layer can map them to status codes.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindProximity    Kind = "proximity"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindUnavailable  Kind = "unavailable"
)

// Error is a typed domain error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and code, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Validation reports a missing or malformed field.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound reports a missing user, job, or session.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Conflict reports a uniqueness or state violation.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Unauthorized reports bad credentials or an invalid token.
func Unauthorized(code, message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: message}
}

// Forbidden reports an authenticated caller acting outside its role.
func Forbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

// Unavailable reports a failing external collaborator (SMS provider, storage).
func Unavailable(code, message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Code: code, Message: message, Err: err}
}

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = NotFound("USER_NOT_FOUND", "user not found")
	// ErrJobNotFound is returned when a referenced job does not exist.
	ErrJobNotFound = NotFound("JOB_NOT_FOUND", "job not found")
	// ErrInvalidCredentials is returned when the identifier or password is wrong.
	ErrInvalidCredentials = Unauthorized("INVALID_CREDENTIALS", "invalid credentials")
	// ErrInvalidToken is returned for expired, malformed or revoked tokens.
	ErrInvalidToken = Unauthorized("INVALID_TOKEN", "invalid or expired token")
	// ErrAdminOnly is returned when a non-admin calls an admin endpoint.
	ErrAdminOnly = Forbidden("ADMIN_ONLY", "access denied, admin only")
	// ErrUserExists is returned when registering a duplicate email or phone.
	ErrUserExists = Conflict("USER_ALREADY_EXISTS", "user already exists with that email or phone")
	// ErrInvalidPhone is returned for phone numbers outside the accepted formats.
	ErrInvalidPhone = Validation("INVALID_PHONE", "phone must be in format 07XXXXXXXX, 01XXXXXXXX or +254XXXXXXXXX")
	// ErrNotificationFailed is returned when the SMS provider call fails.
	ErrNotificationFailed = Unavailable("NOTIFICATION_FAILED", "notification failed", nil)
)

// ProximityError reports a check-in point that is missing or too far from the job site.
type ProximityError struct {
	Missing   bool
	Distance  float64
	MaxMeters float64
}

func (e *ProximityError) Error() string {
	if e.Missing {
		return "GPS coordinates required for technicians"
	}
	return fmt.Sprintf("technician too far from job location (%.0fm, max %.0fm)", e.Distance, e.MaxMeters)
}

// DuplicateJobError reports an open job already recorded for the same vehicle.
type DuplicateJobError struct {
	VehicleReg string
	JobID      uint
	Status     string
}

func (e *DuplicateJobError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("an open job already exists for vehicle %s", e.VehicleReg)
	}
	return fmt.Sprintf("an open job (%s) already exists for vehicle %s", e.Status, e.VehicleReg)
}

// TransitionError reports a job status change outside the transition table.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change job status from %s to %s", e.From, e.To)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Anything it does not
// recognise becomes a generic 500 so storage details never leak.
func MapErrorToHTTP(err error) *HTTPError {
	var (
		proximity  *ProximityError
		duplicate  *DuplicateJobError
		transition *TransitionError
		typed      *Error
	)

	switch {
	case err == nil:
		return nil
	case errors.As(err, &proximity):
		if proximity.Missing {
			return NewHTTPError(http.StatusBadRequest, proximity.Error(), "GPS_REQUIRED")
		}
		return NewHTTPError(http.StatusForbidden, proximity.Error(), "TOO_FAR_FROM_SITE")
	case errors.As(err, &duplicate):
		return NewHTTPError(http.StatusConflict, duplicate.Error(), "DUPLICATE_JOB")
	case errors.As(err, &transition):
		return NewHTTPError(http.StatusConflict, transition.Error(), "INVALID_TRANSITION")
	case errors.As(err, &typed):
		return NewHTTPError(statusFor(typed.Kind), typed.Message, typed.Code)
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

func statusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindProximity, KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
