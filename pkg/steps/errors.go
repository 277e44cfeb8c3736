package steps

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCommand is matched by every UnknownCommandError.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrDuplicateCommand is matched by every DuplicateCommandError.
	ErrDuplicateCommand = errors.New("duplicate command")

	ErrUnknownLabel    = errors.New("unknown label")
	ErrDuplicateLabel  = errors.New("duplicate label")
	ErrUnknownVariable = errors.New("unknown variable")
)

// UnknownCommandError is returned by Registry.Resolve when no factory is
// registered for a command name.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Command)
}

func (e *UnknownCommandError) Unwrap() error {
	return ErrUnknownCommand
}

// DuplicateCommandError is returned by NewRegistry when two sources provide
// the same command name.
type DuplicateCommandError struct {
	Command string
}

func (e *DuplicateCommandError) Error() string {
	return fmt.Sprintf("command '%s' is provided by more than one source", e.Command)
}

func (e *DuplicateCommandError) Unwrap() error {
	return ErrDuplicateCommand
}

// AssertionError signals that a step detected a violated condition and
// the test must not go on.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// VerificationError signals a violated condition that is recorded without
// necessarily stopping the test.
type VerificationError struct {
	Message string
}

func (e *VerificationError) Error() string {
	return e.Message
}

// IsDomainFailure reports whether err is an assertion or verification
// signal, as opposed to an unexpected fault.
func IsDomainFailure(err error) bool {
	var assertErr *AssertionError
	var verifyErr *VerificationError
	return errors.As(err, &assertErr) || errors.As(err, &verifyErr)
}
