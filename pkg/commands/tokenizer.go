package commands

import (
	"fmt"
	"regexp"
	"strings"
)

// Input is one tokenized line.
type Input struct {
	Command string
	Args    []string
}

// Tokenizer splits lines into a command and delimiter-prefixed arguments.
//
// The command is the leading run of non-whitespace characters. Every later
// occurrence of the delimiter immediately followed by word characters
// ([0-9A-Za-z_]) yields one argument. There is no quoting or escaping, and
// text that is not delimiter+word is ignored, so "-3" or "1.5" cannot be
// passed whole with the default space delimiter.
//
// The delimiter is embedded in the pattern verbatim. A delimiter containing
// regex metacharacters must be escaped by the caller ("\\." for a dot);
// an unescaped "." would match any character.
type Tokenizer struct {
	delimiter string
	pattern   *regexp.Regexp
	cmdGroup  int
	argGroup  int
}

func NewTokenizer(delimiter string) (*Tokenizer, error) {
	if delimiter == "" {
		return nil, fmt.Errorf("%w: delimiter is empty", ErrInvalidDelimiter)
	}
	pattern, err := regexp.Compile(`(?P<cmd>^\S*)|(?:` + delimiter + `)(?P<arg>\w+)`)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidDelimiter, delimiter, err)
	}
	return &Tokenizer{
		delimiter: delimiter,
		pattern:   pattern,
		cmdGroup:  pattern.SubexpIndex("cmd"),
		argGroup:  pattern.SubexpIndex("arg"),
	}, nil
}

func (t *Tokenizer) Delimiter() string {
	return t.delimiter
}

// Tokenize returns ErrEmptyInput when the line has no command token.
func (t *Tokenizer) Tokenize(line string) (Input, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Input{}, ErrEmptyInput
	}

	var in Input
	for i, m := range t.pattern.FindAllStringSubmatchIndex(line, -1) {
		if i == 0 && m[2*t.cmdGroup] >= 0 {
			in.Command = line[m[2*t.cmdGroup]:m[2*t.cmdGroup+1]]
			continue
		}
		start, end := m[2*t.argGroup], m[2*t.argGroup+1]
		if start < 0 || start == end {
			continue
		}
		in.Args = append(in.Args, line[start:end])
	}

	if in.Command == "" {
		return Input{}, ErrEmptyInput
	}
	return in, nil
}

// Tokenize compiles a tokenizer for delimiter and applies it to line.
// Prefer NewTokenizer when tokenizing more than once.
func Tokenize(line, delimiter string) (Input, error) {
	t, err := NewTokenizer(delimiter)
	if err != nil {
		return Input{}, err
	}
	return t.Tokenize(line)
}
