package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/picoshell/pkg/commands"
	"github.com/sipeed/picoshell/pkg/config"
)

// syncBuffer guards a bytes.Buffer written by the reader goroutine and
// read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type errReader struct{ err error }

func (r errReader) ReadLine(string) (string, error) { return "", r.err }
func (r errReader) Close() error                    { return nil }

func testRegistry(calls *[]string) *commands.Registry {
	record := func(name string) {
		if calls != nil {
			*calls = append(*calls, name)
		}
	}
	return commands.NewRegistry(append(commands.BuiltinDefinitions(),
		commands.Definition{
			Name:   "add",
			Params: []commands.ParamType{commands.TypeInt, commands.TypeInt},
			Handler: func(_ context.Context, req commands.Request) error {
				record("add")
				return req.Reply(strconv.Itoa(req.Int(0) + req.Int(1)))
			},
		},
		commands.Definition{
			Name: "fail",
			Handler: func(context.Context, commands.Request) error {
				record("fail")
				return errors.New("device offline")
			},
		},
		commands.Definition{
			Name: "ping",
			Handler: func(_ context.Context, req commands.Request) error {
				record("ping")
				return req.Reply("pong")
			},
		},
	))
}

func newTestShell(t *testing.T, input io.Reader, out io.Writer, calls *[]string, opts ...Option) *Shell {
	t.Helper()
	cfg := config.DefaultConfig().Shell
	opts = append([]Option{WithReader(NewStreamReader(input, out)), WithOutput(out)}, opts...)
	sh, err := New(&cfg, testRegistry(calls), opts...)
	require.NoError(t, err)
	return sh
}

func waitDone(t *testing.T, sh *Shell) {
	t.Helper()
	select {
	case <-sh.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestShell_ProcessesLinesUntilEOF(t *testing.T) {
	out := &syncBuffer{}
	input := strings.NewReader("add 3 4\nlaunch\nadd 1\nadd x 2\n\n")
	var calls []string
	sh := newTestShell(t, input, out, &calls)

	require.NoError(t, sh.Run(context.Background()))

	want := "> 7\n" +
		"> Unknown command: launch\n" +
		"> Incorrect number of arguments for add: want 2, got 1\n" +
		"> Invalid argument 1 for add: expected int, got \"x\"\n" +
		"> " + // blank line: no diagnostic
		"> "
	assert.Equal(t, want, out.String())
	assert.Equal(t, []string{"add"}, calls)
	assert.False(t, sh.Running())
}

func TestShell_HandlerErrorKeepsSessionAlive(t *testing.T) {
	out := &syncBuffer{}
	var calls []string
	sh := newTestShell(t, strings.NewReader("fail\nping\n"), out, &calls)

	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, "> Error: device offline\n> pong\n> ", out.String())
	assert.Equal(t, []string{"fail", "ping"}, calls)
}

func TestShell_TimestampPrompt(t *testing.T) {
	out := &syncBuffer{}
	cfg := config.DefaultConfig().Shell
	cfg.TimestampEnabled = true
	cfg.Prompt = "dev>"
	fixed := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	sh, err := New(&cfg, testRegistry(nil),
		WithReader(NewStreamReader(strings.NewReader("ping\n"), out)),
		WithOutput(out),
		WithClock(func() time.Time { return fixed }),
	)
	require.NoError(t, err)
	require.NoError(t, sh.Run(context.Background()))

	prompt := "2026-10-17T09:30:00.000 dev> "
	assert.Equal(t, prompt+"pong\n"+prompt, out.String())
}

func TestShell_TimestampFormatDefaultsWhenEmpty(t *testing.T) {
	out := &syncBuffer{}
	cfg := config.DefaultConfig().Shell
	cfg.TimestampEnabled = true
	cfg.TimestampFormat = ""
	fixed := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	sh, err := New(&cfg, testRegistry(nil),
		WithReader(NewStreamReader(strings.NewReader(""), out)),
		WithOutput(out),
		WithClock(func() time.Time { return fixed }),
	)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTimestampFormat, sh.Config().TimestampFormat)
	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, "2026-10-17T09:30:00.000 > ", out.String())
}

func TestShell_StopBeforeStartIsNoop(t *testing.T) {
	sh := newTestShell(t, strings.NewReader(""), &syncBuffer{}, nil)

	assert.NotPanics(t, func() {
		sh.Stop()
		sh.Stop()
	})
	assert.False(t, sh.Running())
	assert.NoError(t, sh.Err())

	select {
	case <-sh.Done():
	default:
		t.Fatal("Done should be closed before the first Start")
	}
}

func TestShell_StopInterruptsPendingRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	out := &syncBuffer{}
	sh := newTestShell(t, pr, out, nil)

	sh.Start(context.Background())
	sh.Start(context.Background()) // already running

	assert.Eventually(t, func() bool { return out.String() == "> " }, time.Second, 5*time.Millisecond)
	assert.True(t, sh.Running())

	sh.Stop()
	waitDone(t, sh)
	sh.Stop()

	assert.False(t, sh.Running())
	assert.NoError(t, sh.Err())
	assert.Equal(t, "> ", out.String(), "second Start must not spawn another loop")
}

func TestShell_RestartReusesPendingRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	out := &syncBuffer{}
	var calls []string
	sh := newTestShell(t, pr, out, &calls)

	sh.Start(context.Background())
	assert.Eventually(t, func() bool { return out.String() == "> " }, time.Second, 5*time.Millisecond)
	sh.Stop()
	waitDone(t, sh)

	sh.Start(context.Background())
	_, err := io.WriteString(pw, "ping\n")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "pong") }, time.Second, 5*time.Millisecond)
	sh.Stop()
	waitDone(t, sh)

	assert.Equal(t, []string{"ping"}, calls)
}

func TestShell_StartRightAfterStop(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	out := &syncBuffer{}
	var calls []string
	sh := newTestShell(t, pr, out, &calls)

	sh.Start(context.Background())
	assert.Eventually(t, func() bool { return out.String() == "> " }, time.Second, 5*time.Millisecond)

	sh.Stop()
	assert.False(t, sh.Running())
	sh.Start(context.Background())
	assert.True(t, sh.Running())

	_, err := io.WriteString(pw, "ping\n")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "pong") }, time.Second, 5*time.Millisecond)
	assert.True(t, sh.Running())
	sh.Stop()
	waitDone(t, sh)

	assert.Equal(t, []string{"ping"}, calls)
	assert.NoError(t, sh.Err())
}

func TestShell_ParentContextCancelsSession(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	sh := newTestShell(t, pr, &syncBuffer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sh.Start(ctx)
	cancel()

	waitDone(t, sh)
	assert.NoError(t, sh.Err())
}

func TestShell_ExitBuiltinEndsSession(t *testing.T) {
	out := &syncBuffer{}
	var calls []string
	sh := newTestShell(t, strings.NewReader("exit\nping\n"), out, &calls)

	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, "> Goodbye!\n", out.String())
	assert.Empty(t, calls)
}

func TestShell_HelpListsCommands(t *testing.T) {
	out := &syncBuffer{}
	sh := newTestShell(t, strings.NewReader("help\n"), out, nil)

	require.NoError(t, sh.Run(context.Background()))

	assert.Contains(t, out.String(), "add <int> <int> - No description")
	assert.Contains(t, out.String(), "ping - No description")
}

func TestShell_ReadErrorEndsSession(t *testing.T) {
	cfg := config.DefaultConfig().Shell
	sh, err := New(&cfg, testRegistry(nil),
		WithReader(errReader{err: errors.New("serial port disconnected")}),
		WithOutput(io.Discard),
	)
	require.NoError(t, err)

	err = sh.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serial port disconnected")
	assert.Equal(t, err, sh.Err())
}

func TestShell_NilConfigNeverStarts(t *testing.T) {
	sh, err := New(nil, testRegistry(nil), WithReader(errReader{err: io.EOF}), WithOutput(io.Discard))
	require.NoError(t, err)

	sh.Start(context.Background())
	assert.False(t, sh.Running())
	assert.ErrorIs(t, sh.Run(context.Background()), ErrNotConfigured)
}

func TestShell_InvalidDelimiter(t *testing.T) {
	cfg := config.DefaultConfig().Shell
	cfg.ArgumentDelimiter = "("

	_, err := New(&cfg, testRegistry(nil), WithOutput(io.Discard))
	assert.ErrorIs(t, err, commands.ErrInvalidDelimiter)
}

func TestShell_RequireLogin(t *testing.T) {
	t.Run("authenticator rejects", func(t *testing.T) {
		out := &syncBuffer{}
		cfg := config.DefaultConfig().Shell
		cfg.RequireLogin = true
		var calls []string

		sh, err := New(&cfg, testRegistry(&calls),
			WithReader(NewStreamReader(strings.NewReader("ping\n"), out)),
			WithOutput(out),
			WithAuthenticator(func(context.Context, LineReader, io.Writer) error {
				return errors.New("bad password")
			}),
		)
		require.NoError(t, err)

		err = sh.Run(context.Background())
		assert.ErrorContains(t, err, "bad password")
		assert.Equal(t, "Login failed.\n", out.String())
		assert.Empty(t, calls)
	})

	t.Run("authenticator accepts", func(t *testing.T) {
		out := &syncBuffer{}
		cfg := config.DefaultConfig().Shell
		cfg.RequireLogin = true

		sh, err := New(&cfg, testRegistry(nil),
			WithReader(NewStreamReader(strings.NewReader("secret\nping\n"), out)),
			WithOutput(out),
			WithAuthenticator(func(_ context.Context, r LineReader, _ io.Writer) error {
				pw, err := r.ReadLine("password: ")
				if err != nil {
					return err
				}
				if pw != "secret" {
					return errors.New("bad password")
				}
				return nil
			}),
		)
		require.NoError(t, err)
		require.NoError(t, sh.Run(context.Background()))

		assert.Equal(t, "password: > pong\n> ", out.String())
	})

	t.Run("no authenticator is not enforced", func(t *testing.T) {
		out := &syncBuffer{}
		cfg := config.DefaultConfig().Shell
		cfg.RequireLogin = true

		sh, err := New(&cfg, testRegistry(nil),
			WithReader(NewStreamReader(strings.NewReader("ping\n"), out)),
			WithOutput(out),
		)
		require.NoError(t, err)
		require.NoError(t, sh.Run(context.Background()))

		assert.Equal(t, "> pong\n> ", out.String())
	})
}

func TestShell_CustomDispatcher(t *testing.T) {
	out := &syncBuffer{}
	var lines []string
	cfg := config.DefaultConfig().Shell

	sh, err := New(&cfg, nil,
		WithReader(NewStreamReader(strings.NewReader("anything goes\n"), out)),
		WithOutput(out),
		WithDispatcher(commands.DispatchFunc(func(_ context.Context, req commands.Request) commands.Result {
			lines = append(lines, req.Line)
			return commands.Result{Outcome: commands.OutcomeHandled}
		})),
	)
	require.NoError(t, err)
	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, []string{"anything goes"}, lines)
}

func TestShell_RuntimeAccessors(t *testing.T) {
	sh := newTestShell(t, strings.NewReader(""), io.Discard, nil, WithSessionID("console-1"))

	assert.Equal(t, "console-1", sh.SessionID())
	assert.Equal(t, ">", sh.Config().Prompt)
	assert.Len(t, sh.Commands(), 5)
	assert.NoError(t, sh.Close())
}

func TestDiagnostic(t *testing.T) {
	tests := []struct {
		name string
		res  commands.Result
		want string
	}{
		{"handled", commands.Result{Outcome: commands.OutcomeHandled}, ""},
		{"empty", commands.Result{Outcome: commands.OutcomeEmpty}, ""},
		{"unknown", commands.Result{Outcome: commands.OutcomeUnknownCommand, Command: "x"}, "Unknown command: x"},
		{"arity without detail", commands.Result{Outcome: commands.OutcomeArityMismatch}, "Incorrect number of arguments."},
		{"unsupported", commands.Result{Outcome: commands.OutcomeUnsupportedType}, "Unsupported argument type."},
		{"handler", commands.Result{
			Outcome: commands.OutcomeHandlerError,
			Err:     &commands.HandlerError{Command: "x", Err: errors.New("boom")},
		}, "Error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diagnostic(tt.res))
		})
	}
}
