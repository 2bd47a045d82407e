package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for HTTP mapping
type Kind int

const (
	Validation Kind = iota
	QuotaExceeded
	NotFound
	Storage
	ProtectedField
)

// Error carries a machine-readable kind plus human message(s).
// Validation errors collect every violation rather than only the first.
type Error struct {
	Kind    Kind
	Message string
	Details []string
}

func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strings.Join(e.Details, "; ")
	}
	return e.Message
}

func NewValidation(details ...string) *Error {
	return &Error{Kind: Validation, Message: "validation failed", Details: details}
}

func NewQuotaExceeded(message string) *Error {
	return &Error{Kind: QuotaExceeded, Message: message}
}

func NewNotFound(resource string) *Error {
	return &Error{Kind: NotFound, Message: resource + " not found"}
}

func NewStorage(err error) *Error {
	return &Error{Kind: Storage, Message: "storage failure: " + err.Error()}
}

func NewProtectedField(field string) *Error {
	return &Error{
		Kind:    ProtectedField,
		Message: fmt.Sprintf("field %q is server-managed and cannot be set", field),
	}
}

// As unwraps err into *Error, or nil if it is not one
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
