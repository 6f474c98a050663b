package lensapi

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("lens api: access token is required")
	ErrEmptyResponse   = errors.New("lens api: empty response")
)

// Error wraps a failed API operation with its name.
type Error struct {
	Operation string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("lens api %s: %v", e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Operation: operation, Err: err}
}
