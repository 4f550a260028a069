package model

import "errors"

// Kind tags an error with one of the stable failure taxonomies a caller
// at an API or task boundary needs to distinguish. See spec.md §7.
type Kind string

const (
	KindNotFound           Kind = "NotFound"
	KindReadOnly           Kind = "ReadOnly"
	KindValidationError    Kind = "ValidationError"
	KindHandlerError       Kind = "HandlerError"
	KindMiddlewareViolation Kind = "MiddlewareViolation"
	KindRateLimited        Kind = "RateLimited"
	KindCancelled          Kind = "Cancelled"
	KindDead               Kind = "Dead"
	KindStorageUnavailable Kind = "StorageUnavailable"
)

// Error is a taxonomy-tagged error. Cause is optional and unwraps via
// errors.Unwrap so %w chains and errors.Is/As keep working.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, NotFound) match regardless of message/cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

var (
	NotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ReadOnly           = &Error{Kind: KindReadOnly, Message: "storage is read-only"}
	ValidationError    = &Error{Kind: KindValidationError, Message: "validation failed"}
	HandlerError       = &Error{Kind: KindHandlerError, Message: "handler failed"}
	MiddlewareViolation = &Error{Kind: KindMiddlewareViolation, Message: "middleware violation"}
	RateLimited        = &Error{Kind: KindRateLimited, Message: "rate limited"}
	Cancelled          = &Error{Kind: KindCancelled, Message: "cancelled"}
	Dead               = &Error{Kind: KindDead, Message: "dead"}
	StorageUnavailable = &Error{Kind: KindStorageUnavailable, Message: "storage unavailable"}
)

// KindOf extracts the Kind from err, or "" if err doesn't carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
