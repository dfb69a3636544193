package shell

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// LineReader is the input side of a session. ReadLine shows prompt (if
// the reader renders prompts itself) and blocks until a full line or an
// error arrives. io.EOF ends the session gracefully.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// outputter is implemented by readers that own the terminal and want
// session output routed through them.
type outputter interface {
	Writer() io.Writer
}

type streamReader struct {
	r *bufio.Reader
	w io.Writer
}

// NewStreamReader reads newline-terminated lines from r and writes prompts
// to w. It suits pipes, files and tests. w may be nil to suppress prompts.
func NewStreamReader(r io.Reader, w io.Writer) LineReader {
	return &streamReader{r: bufio.NewReader(r), w: w}
}

func (s *streamReader) ReadLine(prompt string) (string, error) {
	if s.w != nil && prompt != "" {
		if _, err := io.WriteString(s.w, prompt); err != nil {
			return "", err
		}
	}

	line, err := s.r.ReadString('\n')
	if err != nil {
		// last line without a trailing newline
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *streamReader) Close() error {
	return nil
}

type terminalReader struct {
	rl *readline.Instance
}

// NewTerminalReader returns a readline-backed reader for interactive
// terminals. Line editing is available; history is not kept.
func NewTerminalReader() (LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return nil, err
	}
	return &terminalReader{rl: rl}, nil
}

func (t *terminalReader) ReadLine(prompt string) (string, error) {
	t.rl.SetPrompt(prompt)
	line, err := t.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (t *terminalReader) Close() error {
	return t.rl.Close()
}

func (t *terminalReader) Writer() io.Writer {
	return t.rl.Stdout()
}
