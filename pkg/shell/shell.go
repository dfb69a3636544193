// Package shell runs the read-dispatch-prompt loop of an interactive
// command session on top of pkg/commands.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/picoshell/pkg/commands"
	"github.com/sipeed/picoshell/pkg/config"
	"github.com/sipeed/picoshell/pkg/logger"
)

var ErrNotConfigured = errors.New("shell: no configuration loaded")

// Authenticator is invoked before the first prompt when RequireLogin is
// set. The shell does not interpret credentials; a non-nil error ends the
// session.
type Authenticator func(ctx context.Context, r LineReader, w io.Writer) error

type Option func(*Shell)

// WithReader sets the input source. Defaults to stdin.
func WithReader(r LineReader) Option {
	return func(s *Shell) { s.reader = r }
}

// WithOutput sets where replies and diagnostics go; prompts are rendered
// by the reader. Defaults to the reader's own writer, then stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Shell) { s.out = w }
}

func WithSessionID(id string) Option {
	return func(s *Shell) { s.id = id }
}

func WithAuthenticator(a Authenticator) Option {
	return func(s *Shell) { s.auth = a }
}

func WithDispatcher(d commands.Dispatching) Option {
	return func(s *Shell) { s.dispatcher = d }
}

// WithClock replaces time.Now for prompt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Shell) { s.now = now }
}

type readResult struct {
	line string
	err  error
}

// Shell is one operator session. The registry is shared and read-only;
// everything else belongs to the session.
type Shell struct {
	cfg         config.ShellConfig
	initialized bool
	reg         *commands.Registry
	dispatcher  commands.Dispatching
	reader      LineReader
	out         io.Writer
	auth        Authenticator
	id          string
	now         func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	// owned by whichever loop goroutine is active
	pending chan readResult
}

var _ commands.Runtime = (*Shell)(nil)

// New builds a session. A nil cfg yields a shell that never starts, and an
// invalid argument delimiter is reported here rather than per line.
func New(cfg *config.ShellConfig, reg *commands.Registry, opts ...Option) (*Shell, error) {
	done := make(chan struct{})
	close(done)

	s := &Shell{reg: reg, now: time.Now, done: done}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}

	if s.out == nil {
		if o, ok := s.reader.(outputter); ok {
			s.out = o.Writer()
		} else {
			s.out = os.Stdout
		}
	}
	if s.reader == nil {
		s.reader = NewStreamReader(os.Stdin, s.out)
	}

	if cfg == nil {
		logger.WarnCF("shell", "No shell configuration supplied, shell will not start", map[string]any{
			"session_id": s.id,
		})
		return s, nil
	}
	s.cfg = *cfg
	if s.cfg.TimestampEnabled && s.cfg.TimestampFormat == "" {
		s.cfg.TimestampFormat = config.DefaultTimestampFormat
	}

	if s.dispatcher == nil {
		tok, err := commands.NewTokenizer(cfg.ArgumentDelimiter)
		if err != nil {
			return nil, err
		}
		s.dispatcher = commands.NewDispatcher(reg, tok)
	}

	s.initialized = true
	return s, nil
}

// Start launches the loop in its own goroutine. It is a no-op when the
// shell has no configuration or is already running. After Stop it starts a
// new loop right away; that loop waits for the stopped one to exit before
// it reads.
func (s *Shell) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized || s.running {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	prev := s.done
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done
	s.err = nil

	logger.InfoCF("shell", "Session started", map[string]any{"session_id": s.id})
	go s.loop(loopCtx, cancel, prev, done)
}

// Stop cancels the loop, which exits after the line in progress or
// immediately if it is waiting for input. The shell reports not running as
// soon as Stop returns, so Start may follow at once. Safe to call at any
// time, from any goroutine, any number of times. It does not wait for the
// loop goroutine; use Done.
func (s *Shell) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
	s.cancel = nil
}

// Run starts the session and blocks until it ends.
func (s *Shell) Run(ctx context.Context) error {
	if !s.initialized {
		return ErrNotConfigured
	}
	s.Start(ctx)
	<-s.Done()
	return s.Err()
}

// Close stops the session and releases the reader.
func (s *Shell) Close() error {
	s.Stop()
	return s.reader.Close()
}

func (s *Shell) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done is closed when the current loop has exited. Before the first
// Start it is already closed.
func (s *Shell) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err reports why the last loop ended. Nil for EOF and Stop.
func (s *Shell) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Shell) SessionID() string {
	return s.id
}

func (s *Shell) Config() config.ShellConfig {
	return s.cfg
}

func (s *Shell) Commands() []commands.Definition {
	return s.reg.Definitions()
}

// loop owns s.pending only after prev is closed.
func (s *Shell) loop(ctx context.Context, cancel context.CancelFunc, prev <-chan struct{}, done chan struct{}) {
	<-prev

	var err error
	if ctx.Err() == nil {
		err = s.serve(ctx)
	}
	cancel()

	s.mu.Lock()
	if s.done == done {
		s.running = false
		s.cancel = nil
		s.err = err
	}
	s.mu.Unlock()
	close(done)

	fields := map[string]any{"session_id": s.id}
	if err != nil {
		fields["error"] = err.Error()
		logger.ErrorCF("shell", "Session ended with error", fields)
		return
	}
	logger.InfoCF("shell", "Session ended", fields)
}

func (s *Shell) serve(ctx context.Context) error {
	if s.cfg.RequireLogin {
		if err := s.login(ctx); err != nil {
			return err
		}
	}

	ctx = commands.WithRuntime(ctx, s)
	for {
		line, err := s.readLine(ctx, s.prompt())
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				logger.DebugCF("shell", "Input closed", map[string]any{"session_id": s.id})
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		s.handle(ctx, line)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// readLine waits for the reader or for cancellation. A read abandoned by
// cancellation stays pending and is collected by the next call, so a
// restarted loop never has two reads racing for the same input.
func (s *Shell) readLine(ctx context.Context, prompt string) (string, error) {
	if s.pending == nil {
		ch := make(chan readResult, 1)
		s.pending = ch
		go func() {
			line, err := s.reader.ReadLine(prompt)
			ch <- readResult{line: line, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-s.pending:
		s.pending = nil
		return r.line, r.err
	}
}

func (s *Shell) handle(ctx context.Context, line string) {
	res := s.dispatcher.Dispatch(ctx, commands.Request{Line: line, Reply: s.reply})

	fields := map[string]any{
		"session_id": s.id,
		"command":    res.Command,
		"outcome":    res.Outcome.String(),
	}
	switch res.Outcome {
	case commands.OutcomeHandled:
		logger.DebugCF("shell", "Command handled", fields)
		return
	case commands.OutcomeEmpty:
		return
	case commands.OutcomeHandlerError:
		fields["error"] = res.Err.Error()
		logger.WarnCF("shell", "Command failed", fields)
	default:
		logger.DebugCF("shell", "Command rejected", fields)
	}

	if msg := Diagnostic(res); msg != "" {
		s.reply(msg)
	}
}

func (s *Shell) prompt() string {
	if s.cfg.TimestampEnabled {
		return s.now().Format(s.cfg.TimestampFormat) + " " + s.cfg.Prompt + " "
	}
	return s.cfg.Prompt + " "
}

func (s *Shell) reply(text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(s.out, text)
	return err
}

func (s *Shell) login(ctx context.Context) error {
	if s.auth == nil {
		logger.WarnCF("shell", "Login required but no authenticator configured", map[string]any{
			"session_id": s.id,
		})
		return nil
	}
	if err := s.auth(ctx, s.reader, s.out); err != nil {
		s.reply("Login failed.")
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Diagnostic renders the operator-facing message for a failed dispatch.
// Handled and empty lines produce no message.
func Diagnostic(res commands.Result) string {
	switch res.Outcome {
	case commands.OutcomeUnknownCommand:
		return fmt.Sprintf("Unknown command: %s", res.Command)
	case commands.OutcomeArityMismatch:
		var ae *commands.ArityError
		if errors.As(res.Err, &ae) {
			return fmt.Sprintf("Incorrect number of arguments for %s: want %d, got %d", ae.Command, ae.Want, ae.Got)
		}
		return "Incorrect number of arguments."
	case commands.OutcomeInvalidArgument:
		var ce *commands.CoercionError
		if errors.As(res.Err, &ce) {
			return fmt.Sprintf("Invalid argument %d for %s: expected %s, got %q", ce.Index+1, ce.Command, ce.Type, ce.Token)
		}
		return "Invalid argument."
	case commands.OutcomeUnsupportedType:
		return "Unsupported argument type."
	case commands.OutcomeHandlerError:
		var he *commands.HandlerError
		if errors.As(res.Err, &he) {
			return fmt.Sprintf("Error: %v", he.Err)
		}
		return fmt.Sprintf("Error: %v", res.Err)
	}
	return ""
}
