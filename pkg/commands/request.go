package commands

import "context"

type Handler func(ctx context.Context, req Request) error

// Request is what a handler receives. Args holds one coerced value per
// declared parameter, in order; see Coerce for the Go type of each.
type Request struct {
	Line    string
	Command string
	Args    []any
	Reply   func(text string) error
}

func (r Request) arg(i int) any {
	if i < 0 || i >= len(r.Args) {
		return nil
	}
	return r.Args[i]
}

func (r Request) Bool(i int) bool {
	v, _ := r.arg(i).(bool)
	return v
}

func (r Request) String(i int) string {
	v, _ := r.arg(i).(string)
	return v
}

// Int64 widens any integer argument. Non-integer arguments yield 0.
func (r Request) Int64(i int) int64 {
	switch v := r.arg(i).(type) {
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

func (r Request) Int(i int) int {
	return int(r.Int64(i))
}

// Float64 widens any numeric argument.
func (r Request) Float64(i int) float64 {
	switch v := r.arg(i).(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int8, int16, int, int64:
		return float64(r.Int64(i))
	}
	return 0
}

func reply(req Request, text string) error {
	if req.Reply == nil {
		return nil
	}
	return req.Reply(text)
}
