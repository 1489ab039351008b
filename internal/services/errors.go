package services

import (
	"errors"
	"fmt"

	"dotify/internal/media"
	"dotify/internal/repositories"
)

// Kind classifies a service failure
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUploadFailed
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUploadFailed:
		return "upload_failed"
	default:
		return "internal"
	}
}

// Error is the single failure a service operation surfaces to its caller.
// Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...interface{}) *Error {
	return newError(KindBadRequest, format, args...)
}

func unauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, format, args...)
}

func forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

func notFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

// KindOf extracts the classification of err. Upload errors that escaped
// wrapping are still reported as UploadFailed.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	var uploadErr *media.UploadError
	if errors.As(err, &uploadErr) {
		return KindUploadFailed
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// storeError classifies repository sentinels. entity names the document in
// NotFound and Conflict messages.
func storeError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return notFound("%s not found", entity)
	case errors.Is(err, repositories.ErrDuplicate):
		return conflict("%s already exists", entity)
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// uploadFailed wraps a media error
func uploadFailed(err error) error {
	return &Error{Kind: KindUploadFailed, Message: "Failed to upload file", Err: err}
}
