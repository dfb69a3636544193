package demo

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/picoshell/pkg/commands"
)

func dispatch(t *testing.T, d commands.Dispatching, line string) (commands.Result, string) {
	t.Helper()
	var out strings.Builder
	res := d.Dispatch(context.Background(), commands.Request{
		Line: line,
		Reply: func(text string) error {
			out.WriteString(text)
			return nil
		},
	})
	return res, out.String()
}

func newDispatcher(t *testing.T) commands.Dispatching {
	t.Helper()
	tok, err := commands.NewTokenizer(" ")
	require.NoError(t, err)
	return commands.NewDispatcher(NewRegistry(), tok)
}

func TestDemoCommands(t *testing.T) {
	d := newDispatcher(t)

	tests := []struct {
		line string
		want string
	}{
		{"add 2 40", "42"},
		{"mul 3000000000 3", "9000000000"},
		{"greet world", "Hello, world!"},
		{"led 3 true", "LED 3 on"},
		{"status", "enabled=true leds=00010000"},
		{"enable false", "Device disabled"},
		{"status", "enabled=false leds=00010000"},
	}
	for _, tt := range tests {
		res, out := dispatch(t, d, tt.line)
		assert.Equal(t, commands.OutcomeHandled, res.Outcome, tt.line)
		assert.Equal(t, tt.want, out, tt.line)
	}
}

func TestDemoLed_Errors(t *testing.T) {
	d := newDispatcher(t)

	res, _ := dispatch(t, d, "led 9 true")
	assert.Equal(t, commands.OutcomeHandlerError, res.Outcome)
	assert.ErrorContains(t, res.Err, "out of range")

	res, _ = dispatch(t, d, "led 300 true")
	assert.Equal(t, commands.OutcomeInvalidArgument, res.Outcome, "300 overflows a byte")

	dispatch(t, d, "enable false")
	res, _ = dispatch(t, d, "led 1 true")
	assert.Equal(t, commands.OutcomeHandlerError, res.Outcome)
	assert.ErrorContains(t, res.Err, "device disabled")
}

func TestNewRegistry_IncludesBuiltins(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{"help", "exit", "add", "uptime"} {
		_, ok := reg.Lookup(name)
		assert.True(t, ok, name)
	}
}
