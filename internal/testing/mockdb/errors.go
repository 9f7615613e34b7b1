package mockdb

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrOutcomeMismatch is returned when a command is executed in a way its
// scripted outcome cannot serve, such as Exec against a scripted row set
var ErrOutcomeMismatch = errors.New("scripted outcome does not match command")

// NoMoreScriptedCommandsError is returned when more commands run than were scripted
type NoMoreScriptedCommandsError struct {
	Index int
}

// Error implements the error interface
func (e *NoMoreScriptedCommandsError) Error() string {
	return fmt.Sprintf("command %d is not defined: no scripted outcome left", e.Index)
}

// CursorStateError is returned when a reader is accessed outside a valid row or column
type CursorStateError struct {
	Op     string
	Column int
	Reason string
}

// Error implements the error interface
func (e *CursorStateError) Error() string {
	if e.Column >= 0 {
		return fmt.Sprintf("%s(%d): %s", e.Op, e.Column, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// NoTypeInformationError is returned when a column type is neither scripted
// nor inferable from the first row
type NoTypeInformationError struct {
	Column string
}

// Error implements the error interface
func (e *NoTypeInformationError) Error() string {
	return fmt.Sprintf("no type information for column %q: first row value is nil", e.Column)
}

// UnverifiedExpectationsError lists the scripted commands that were never consumed
type UnverifiedExpectationsError struct {
	Indices []int
	err     error
}

func newUnverifiedExpectationsError(unused []*CommandData, indices []int) *UnverifiedExpectationsError {
	var err error
	for i, cmd := range unused {
		err = multierr.Append(err, fmt.Errorf("scripted %s command %d was not used", cmd.Kind, indices[i]))
	}
	return &UnverifiedExpectationsError{Indices: indices, err: err}
}

// Error implements the error interface. Only the first index is named.
func (e *UnverifiedExpectationsError) Error() string {
	if len(e.Indices) == 1 {
		return fmt.Sprintf("scripted command %d was not used", e.Indices[0])
	}
	return fmt.Sprintf("scripted command %d was not used (%d unused in total)", e.Indices[0], len(e.Indices))
}

// Unwrap returns one error per unused command
func (e *UnverifiedExpectationsError) Unwrap() []error {
	return multierr.Errors(e.err)
}

// IsNoMoreScriptedCommands returns true if err reports a command overrun
func IsNoMoreScriptedCommands(err error) bool {
	var e *NoMoreScriptedCommandsError
	return errors.As(err, &e)
}

// IsCursorState returns true if err reports invalid reader access
func IsCursorState(err error) bool {
	var e *CursorStateError
	return errors.As(err, &e)
}
