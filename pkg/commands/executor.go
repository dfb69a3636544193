package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sipeed/picoshell/pkg/logger"
)

// invoke runs the handler with panic recovery. Any failure comes back as
// a *HandlerError.
func invoke(ctx context.Context, def Definition, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			logger.ErrorCF("dispatcher", "Handler panic", map[string]any{
				"command": def.Name,
				"panic":   fmt.Sprint(r),
				"stack":   string(stack[:n]),
			})
			err = &HandlerError{Command: def.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if herr := def.Handler(ctx, req); herr != nil {
		return &HandlerError{Command: def.Name, Err: herr}
	}
	return nil
}
