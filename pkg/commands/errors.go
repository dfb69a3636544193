package commands

import (
	"errors"
	"fmt"
)

// Dispatch errors.
var (
	// ErrEmptyInput indicates the line held no command token.
	ErrEmptyInput = errors.New("commands: empty input")

	// ErrUnknownCommand indicates no definition is registered under the name.
	ErrUnknownCommand = errors.New("commands: unknown command")

	// ErrArityMismatch indicates the argument count differs from the declared parameters.
	ErrArityMismatch = errors.New("commands: incorrect number of arguments")

	// ErrInvalidLiteral indicates a token could not be parsed as the declared type.
	ErrInvalidLiteral = errors.New("commands: invalid literal")

	// ErrUnsupportedType indicates a parameter type the coercer does not know.
	ErrUnsupportedType = errors.New("commands: unsupported argument type")

	// ErrHandler indicates the handler itself failed or panicked.
	ErrHandler = errors.New("commands: handler failed")

	// ErrInvalidDelimiter indicates the argument delimiter is empty or not a valid pattern.
	ErrInvalidDelimiter = errors.New("commands: invalid argument delimiter")
)

type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Command)
}

func (e *UnknownCommandError) Unwrap() error { return ErrUnknownCommand }

type ArityError struct {
	Command string
	Want    int
	Got     int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("incorrect number of arguments for %s: want %d, got %d", e.Command, e.Want, e.Got)
}

func (e *ArityError) Unwrap() error { return ErrArityMismatch }

// CoercionError reports the first argument that failed conversion.
// Index is zero-based. Err wraps ErrInvalidLiteral or ErrUnsupportedType.
type CoercionError struct {
	Command string
	Index   int
	Type    ParamType
	Token   string
	Err     error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("invalid argument %d for %s: expected %s, got %q", e.Index+1, e.Command, e.Type, e.Token)
}

func (e *CoercionError) Unwrap() error { return e.Err }

type HandlerError struct {
	Command string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *HandlerError) Unwrap() []error { return []error{ErrHandler, e.Err} }
