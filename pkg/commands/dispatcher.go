package commands

import (
	"context"
	"errors"
)

// Outcome is the terminal state of one dispatch.
type Outcome int

const (
	OutcomeHandled Outcome = iota
	OutcomeEmpty
	OutcomeUnknownCommand
	OutcomeArityMismatch
	OutcomeInvalidArgument
	OutcomeUnsupportedType
	OutcomeHandlerError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeEmpty:
		return "empty"
	case OutcomeUnknownCommand:
		return "unknown_command"
	case OutcomeArityMismatch:
		return "arity_mismatch"
	case OutcomeInvalidArgument:
		return "invalid_argument"
	case OutcomeUnsupportedType:
		return "unsupported_type"
	case OutcomeHandlerError:
		return "handler_error"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome Outcome
	Command string
	Args    []any
	Err     error
}

func (r Result) Handled() bool {
	return r.Outcome == OutcomeHandled
}

type Dispatcher struct {
	reg *Registry
	tok *Tokenizer
}

type Dispatching interface {
	Dispatch(ctx context.Context, req Request) Result
}

type DispatchFunc func(ctx context.Context, req Request) Result

func (f DispatchFunc) Dispatch(ctx context.Context, req Request) Result {
	return f(ctx, req)
}

func NewDispatcher(reg *Registry, tok *Tokenizer) *Dispatcher {
	return &Dispatcher{reg: reg, tok: tok}
}

// Dispatch tokenizes req.Line, resolves the command, checks arity, coerces
// every argument and only then invokes the handler. At most one handler
// runs per call. Every failure is reported in the Result, never panicked.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	in, err := d.tok.Tokenize(req.Line)
	if err != nil {
		return Result{Outcome: OutcomeEmpty, Err: err}
	}

	def, ok := d.reg.Lookup(in.Command)
	if !ok {
		return Result{
			Outcome: OutcomeUnknownCommand,
			Command: in.Command,
			Err:     &UnknownCommandError{Command: in.Command},
		}
	}

	if len(in.Args) != def.Arity() {
		return Result{
			Outcome: OutcomeArityMismatch,
			Command: def.Name,
			Err:     &ArityError{Command: def.Name, Want: def.Arity(), Got: len(in.Args)},
		}
	}

	args, err := coerceAll(def, in.Args)
	if err != nil {
		outcome := OutcomeInvalidArgument
		if errors.Is(err, ErrUnsupportedType) {
			outcome = OutcomeUnsupportedType
		}
		return Result{Outcome: outcome, Command: def.Name, Err: err}
	}

	req.Command = def.Name
	req.Args = args
	if err := invoke(ctx, def, req); err != nil {
		return Result{Outcome: OutcomeHandlerError, Command: def.Name, Args: args, Err: err}
	}
	return Result{Outcome: OutcomeHandled, Command: def.Name, Args: args}
}

// coerceAll stops at the first failing argument so a handler is only ever
// called with a complete, fully typed argument list.
func coerceAll(def Definition, tokens []string) ([]any, error) {
	args := make([]any, len(tokens))
	for i, p := range def.Params {
		v, err := Coerce(p, tokens[i])
		if err != nil {
			return nil, &CoercionError{Command: def.Name, Index: i, Type: p, Token: tokens[i], Err: err}
		}
		args[i] = v
	}
	return args, nil
}
