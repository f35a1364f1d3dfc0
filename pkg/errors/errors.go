package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches two domain errors by code so that cloned errors still compare
// equal to the predefined values below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// ErrCacheMiss signals that a cache key holds no value.
var ErrCacheMiss = errors.New("cache miss")

// Media library errors.
var (
	ErrUnknownSourceKind   = New("UNKNOWN_SOURCE_KIND", http.StatusBadRequest, "unknown source kind")
	ErrSourceNotConfigured = New("SOURCE_NOT_CONFIGURED", http.StatusInternalServerError, "media source is not configured")
	ErrDuplicateContent    = New("DUPLICATE_CONTENT", http.StatusConflict, "duplicate file content already exists")
	ErrDuplicateTapeNumber = New("DUPLICATE_TAPE_NUMBER", http.StatusConflict, "tape number already exists")
	ErrAlreadyTagged       = New("ALREADY_TAGGED", http.StatusConflict, "tag already associated with media")
	ErrMediaNotFound       = New("MEDIA_NOT_FOUND", http.StatusNotFound, "media not found")
	ErrFileMissing         = New("FILE_MISSING", http.StatusNotFound, "media file is missing")
	ErrTagNotOnMedia       = New("TAG_NOT_ON_MEDIA", http.StatusNotFound, "tag is not associated with media")
	ErrCommentNotFound     = New("COMMENT_NOT_FOUND", http.StatusNotFound, "comment not found")
	ErrStorageWriteFailed  = New("STORAGE_WRITE_FAILED", http.StatusInternalServerError, "failed to store media file")
	ErrInvalidRange        = New("INVALID_RANGE", http.StatusRequestedRangeNotSatisfiable, "requested range not satisfiable")
	ErrFileTooLarge        = New("FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WrapAs returns a copy of base carrying cause as its wrapped error.
func WrapAs(base *Error, cause error) *Error {
	if base == nil {
		return nil
	}
	clone := *base
	clone.Err = cause
	return &clone
}

// HasCode reports whether err is a domain error carrying the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
