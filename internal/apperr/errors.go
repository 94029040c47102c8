// Package apperr defines the closed set of failure kinds surfaced by the auth
// core. Handlers translate a Kind into an HTTP status and a stable code; the
// message carried by an Error is always safe to show to clients.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateUsername
	KindDuplicateEmail
	KindInvalidRole
	KindUnknownEmail
	KindInvalidCredentials
	KindTokenExpired
	KindTokenInvalid
	KindCsrfTokenInvalid
	KindRateLimited
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindSelfTargetForbidden
)

var kindMeta = map[Kind]struct {
	code   string
	status int
}{
	KindInternal:            {"internal_error", http.StatusInternalServerError},
	KindValidation:          {"validation_error", http.StatusBadRequest},
	KindDuplicateUsername:   {"duplicate_username", http.StatusConflict},
	KindDuplicateEmail:      {"duplicate_email", http.StatusConflict},
	KindInvalidRole:         {"invalid_role", http.StatusBadRequest},
	KindUnknownEmail:        {"invalid_credentials", http.StatusUnauthorized},
	KindInvalidCredentials:  {"invalid_credentials", http.StatusUnauthorized},
	KindTokenExpired:        {"token_expired", http.StatusUnauthorized},
	KindTokenInvalid:        {"token_invalid", http.StatusForbidden},
	KindCsrfTokenInvalid:    {"csrf_token_invalid", http.StatusForbidden},
	KindRateLimited:         {"rate_limited", http.StatusTooManyRequests},
	KindUnauthenticated:     {"unauthenticated", http.StatusUnauthorized},
	KindForbidden:           {"forbidden", http.StatusForbidden},
	KindNotFound:            {"not_found", http.StatusNotFound},
	KindSelfTargetForbidden: {"self_target_forbidden", http.StatusBadRequest},
}

// Code returns the stable client-facing code. UnknownEmail and
// InvalidCredentials share a code so responses do not reveal which accounts exist.
func (k Kind) Code() string {
	if m, ok := kindMeta[k]; ok {
		return m.code
	}
	return kindMeta[KindInternal].code
}

// Status returns the HTTP status for the kind.
func (k Kind) Status() int {
	if m, ok := kindMeta[k]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// Error is a classified failure. Msg is client safe; Err is the internal cause
// and is never rendered.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so errors.Is(err, ErrNotFound) holds for any
// NotFound error regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an Error of the given kind.
func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Wrap builds an Error of the given kind carrying an internal cause.
func Wrap(kind Kind, msg string, err error) *Error { return &Error{Kind: kind, Msg: msg, Err: err} }

// Validation returns a ValidationError with a field-specific message.
func Validation(msg string) *Error { return New(KindValidation, msg) }

// KindOf extracts the kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrValidation          = New(KindValidation, "invalid input")
	ErrDuplicateUsername   = New(KindDuplicateUsername, "username already exists")
	ErrDuplicateEmail      = New(KindDuplicateEmail, "email already registered")
	ErrInvalidRole         = New(KindInvalidRole, "invalid role")
	ErrUnknownEmail        = New(KindUnknownEmail, "invalid email or password")
	ErrInvalidCredentials  = New(KindInvalidCredentials, "invalid email or password")
	ErrTokenExpired        = New(KindTokenExpired, "token expired")
	ErrTokenInvalid        = New(KindTokenInvalid, "token invalid")
	ErrCsrfTokenInvalid    = New(KindCsrfTokenInvalid, "invalid csrf token")
	ErrRateLimited         = New(KindRateLimited, "too many attempts, try again later")
	ErrUnauthenticated     = New(KindUnauthenticated, "authentication required")
	ErrForbidden           = New(KindForbidden, "forbidden")
	ErrNotFound            = New(KindNotFound, "user not found")
	ErrSelfTargetForbidden = New(KindSelfTargetForbidden, "cannot change or delete your own account")
)
