// Package errors contains helper functions for wrapping errors with stack traces, classifying them by a stable kind
// and mapping fatal classes to process exit codes.
package errors

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// New creates a new error with a stack trace. If the given value is already an error carrying a stack trace it is
// returned unchanged.
func New(val any) error {
	if val == nil {
		return nil
	}

	if err, ok := val.(error); ok && ContainsStackTrace(err) {
		return err
	}

	return goerrors.Wrap(val, 1)
}

// Errorf creates a new error and wraps in an Error type that contains the stack trace.
func Errorf(message string, args ...any) error {
	err := fmt.Errorf(message, args...)
	return goerrors.Wrap(err, 1)
}

// WithStackTrace wraps the given error in an Error type that contains the stack trace. If the given error is nil,
// return nil.
func WithStackTrace(err error) error {
	if err == nil {
		return nil
	}

	if ContainsStackTrace(err) {
		return err
	}

	return goerrors.Wrap(err, 1)
}

// WithPrefix wraps the error with a stack trace and prepends the formatted message.
func WithPrefix(err error, message string, args ...any) error {
	if err == nil {
		return nil
	}

	return goerrors.WrapPrefix(err, fmt.Sprintf(message, args...), 1)
}

// ErrorWithExitCode is a custom error that is used to specify the app exit code.
type ErrorWithExitCode struct {
	Err      error
	ExitCode int
}

func (err ErrorWithExitCode) Error() string {
	return err.Err.Error()
}

func (err ErrorWithExitCode) Unwrap() error {
	return err.Err
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}
