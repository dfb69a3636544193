package commands

import (
	"context"

	"github.com/sipeed/picoshell/pkg/config"
)

// Runtime exposes the running session to command handlers.
type Runtime interface {
	SessionID() string
	Config() config.ShellConfig
	Commands() []Definition
	// Stop asks the session to end after the current line. It must not block.
	Stop()
}

type runtimeContextKey struct{}

// WithRuntime attaches session capabilities to ctx for command handlers.
func WithRuntime(ctx context.Context, runtime Runtime) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runtimeContextKey{}, runtime)
}

func RuntimeFromContext(ctx context.Context) Runtime {
	if ctx == nil {
		return nil
	}
	runtime, _ := ctx.Value(runtimeContextKey{}).(Runtime)
	return runtime
}
