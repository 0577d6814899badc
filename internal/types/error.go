package types

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind tags a domain error at the point of detection. The HTTP status is
// derived from the kind only at the boundary; services never format responses.
type ErrorKind string

const (
	KindUserNotFound    ErrorKind = "user_not_found"
	KindLibraryNotFound ErrorKind = "library_not_found"
	KindAccessDenied    ErrorKind = "access_denied"
	KindDuplicate       ErrorKind = "duplicate"
	KindNotFound        ErrorKind = "not_found"
	KindDeleteFailed    ErrorKind = "delete_failed"
	KindInvalidInput    ErrorKind = "invalid_input"
	KindInternal        ErrorKind = "internal"
)

// DomainError carries a kind, a human message and an optional wrapped cause.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a DomainError with the given kind and message.
func NewError(kind ErrorKind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

// WrapError creates a DomainError wrapping an underlying cause.
func WrapError(kind ErrorKind, message string, err error) *DomainError {
	return &DomainError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the error kind, defaulting to KindInternal for untagged
// errors (store/network failures surface as generic 500s).
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error kind to its transport status.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindUserNotFound, KindLibraryNotFound, KindNotFound:
		return fiber.StatusNotFound
	case KindAccessDenied:
		return fiber.StatusForbidden
	case KindDuplicate:
		return fiber.StatusConflict
	case KindInvalidInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
