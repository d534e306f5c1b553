package services

import (
	"errors"

	"github.com/bethelevents/assessor/internal/utils"
)

type ErrorCode string

const (
	ErrorInvalid          ErrorCode = "invalid"
	ErrorNotFound         ErrorCode = "not_found"
	ErrorExpired          ErrorCode = "expired"
	ErrorAlreadyAnswered  ErrorCode = "already_answered"
	ErrorConflict         ErrorCode = "conflict"
	ErrorUnauthorized     ErrorCode = "unauthorized"
	ErrorForbidden        ErrorCode = "forbidden"
	ErrorUpstreamDegraded ErrorCode = "upstream_degraded"
)

// ServiceError is the error taxonomy shared by every service. Key names the
// message catalog entry so the transport can localize Message.
type ServiceError struct {
	Code    ErrorCode
	Key     string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newError(code ErrorCode, key string) error {
	return &ServiceError{Code: code, Key: key, Message: utils.T(utils.DefaultLocale, key)}
}

func NewInvalidError(key string) error  { return newError(ErrorInvalid, key) }
func NewNotFoundError(key string) error { return newError(ErrorNotFound, key) }
func NewExpiredError() error            { return newError(ErrorExpired, "error.form_expired") }
func NewAlreadyAnsweredError() error    { return newError(ErrorAlreadyAnswered, "error.already_answered") }
func NewConflictError(key string) error { return newError(ErrorConflict, key) }
func NewUnauthorizedError() error       { return newError(ErrorUnauthorized, "error.unauthorized") }
func NewForbiddenError() error          { return newError(ErrorForbidden, "error.forbidden") }

// NewUpstreamDegradedError marks a failed call to the text-generation service.
// It is reported next to a result, never returned from a public operation.
func NewUpstreamDegradedError(cause error) error {
	return &ServiceError{Code: ErrorUpstreamDegraded, Key: "error.internal", Message: "narrative unavailable", Cause: cause}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCode reports whether err is a ServiceError carrying code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == code
}

var (
	// ErrDuplicateForm is returned by stores when a participant already owns a form.
	ErrDuplicateForm = errors.New("participant already has a form")
	// ErrDuplicateResponse is returned by stores when a form already has a response.
	ErrDuplicateResponse = errors.New("form already has a response")
	// ErrDuplicateIdentifier flags a token or short code collision on insert.
	ErrDuplicateIdentifier = errors.New("form identifier already in use")
)
