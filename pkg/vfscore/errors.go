package vfscore

import "fmt"

// ErrorCode represents the category of a core error, per the taxonomy
// operations in this package propagate.
type ErrorCode int

const (
	ErrInvalidParameter ErrorCode = iota
	ErrNotFound
	ErrAlreadyExists
	ErrNotADirectory
	ErrPermissionDenied
	ErrNoSpace
	ErrSerialisation
	ErrParsing
	ErrCrypto
	ErrStore
	ErrUninitialised
	ErrNotEmpty
)

// kMaxAttempts bounds the retry budget for transient store errors on
// idempotent operations (get, delete). Put is never retried: a transient
// failure there must surface immediately, since retrying a non-idempotent
// write risks a duplicate side effect the store adapter does not promise
// to suppress.
const kMaxAttempts = 3

// Error is the concrete error type every core operation returns. Code
// selects the category; Message and Path carry detail for logs and
// callers that want to render something human-readable.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string

	// transient is only meaningful when Code == ErrStore. It marks
	// whether the underlying store adapter considers the failure
	// retryable (e.g. a timeout) as opposed to permanent (e.g. a
	// corrupt record).
	transient bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// Transient reports whether a StoreError-category Error is retryable.
func (e *Error) Transient() bool {
	return e.Code == ErrStore && e.transient
}

// ----------------------------------------------------------------------------
// Factory functions
// ----------------------------------------------------------------------------

func NewInvalidParameterError(message string) *Error {
	return &Error{Code: ErrInvalidParameter, Message: message}
}

func NewNotFoundError(path string) *Error {
	return &Error{Code: ErrNotFound, Message: "not found", Path: path}
}

func NewAlreadyExistsError(path string) *Error {
	return &Error{Code: ErrAlreadyExists, Message: "already exists", Path: path}
}

func NewNotADirectoryError(path string) *Error {
	return &Error{Code: ErrNotADirectory, Message: "not a directory", Path: path}
}

func NewPermissionDeniedError(path string) *Error {
	return &Error{Code: ErrPermissionDenied, Message: "permission denied", Path: path}
}

func NewNoSpaceError(path string) *Error {
	return &Error{Code: ErrNoSpace, Message: "no space available", Path: path}
}

func NewSerialisationError(message string) *Error {
	return &Error{Code: ErrSerialisation, Message: message}
}

func NewParsingError(message string) *Error {
	return &Error{Code: ErrParsing, Message: message}
}

func NewCryptoError(message string) *Error {
	return &Error{Code: ErrCrypto, Message: message}
}

func NewStoreError(message string, transient bool) *Error {
	return &Error{Code: ErrStore, Message: message, transient: transient}
}

func NewUninitialisedError(message string) *Error {
	return &Error{Code: ErrUninitialised, Message: message}
}

func NewNotEmptyError(path string) *Error {
	return &Error{Code: ErrNotEmpty, Message: "directory not empty", Path: path}
}

func NewStoreErrorf(transient bool, format string, args ...any) *Error {
	return &Error{Code: ErrStore, Message: fmt.Sprintf(format, args...), transient: transient}
}

// ----------------------------------------------------------------------------
// Predicates
// ----------------------------------------------------------------------------

// IsNotFound reports whether err is a core Error with code ErrNotFound.
func IsNotFound(err error) bool {
	return codeIs(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is a core Error with code ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return codeIs(err, ErrAlreadyExists)
}

// IsPermissionDenied reports whether err is a core Error with code ErrPermissionDenied.
func IsPermissionDenied(err error) bool {
	return codeIs(err, ErrPermissionDenied)
}

// IsNotEmpty reports whether err is a core Error with code ErrNotEmpty.
func IsNotEmpty(err error) bool {
	return codeIs(err, ErrNotEmpty)
}

// IsTransientStoreError reports whether err is a retryable store error.
func IsTransientStoreError(err error) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Transient()
}

func codeIs(err error, code ErrorCode) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Code == code
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
