package utils

import (
	"errors"
	"fmt"
)

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorValidation     = errors.New("validation failed")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorInternal       = errors.New("internal error")
)

// MessageError carries a user-facing message while still matching its sentinel with errors.Is.
type MessageError struct {
	Kind    error
	Message string
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

func (e *MessageError) Unwrap() error {
	return e.Kind
}

func NewValidationError(msg string) error {
	return &MessageError{Kind: ErrorValidation, Message: msg}
}

func NewNotFoundError(msg string) error {
	return &MessageError{Kind: ErrorRecordNotFound, Message: msg}
}

func NewUnauthorizedError(msg string) error {
	return &MessageError{Kind: ErrorUnauthorized, Message: msg}
}

// UserMessage returns the message attached to err, or fallback when there is none.
func UserMessage(err error, fallback string) string {
	var me *MessageError
	if errors.As(err, &me) && me.Message != "" {
		return me.Message
	}
	return fallback
}

func NewInternalError(msg string) error {
	return &MessageError{Kind: ErrorInternal, Message: msg}
}
