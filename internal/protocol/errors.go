package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrIncompleteFrame  = errors.New("incomplete landmark frame")
	ErrInvalidGeometry  = errors.New("invalid geometry")
)

// DropError records why an inbound message was discarded.
type DropError struct {
	Op      string
	Err     error
	Details string
}

func (e *DropError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DropError) Unwrap() error {
	return e.Err
}

func NewDropError(op string, err error, details string) *DropError {
	return &DropError{Op: op, Err: err, Details: details}
}
