package commands

import (
	"reflect"
	"runtime"
	"strings"
)

// Definition declares one shell command. Name may be left empty, in which
// case the handler's function name is used as the registry key.
type Definition struct {
	Name        string
	Description string
	Usage       string
	Params      []ParamType
	Handler     Handler
}

// Arity is the number of arguments the command expects.
func (d Definition) Arity() int {
	return len(d.Params)
}

// UsageLine returns Usage, or the name followed by one placeholder per
// parameter when no usage text was given.
func (d Definition) UsageLine() string {
	if d.Usage != "" {
		return d.Usage
	}
	parts := make([]string, 0, len(d.Params)+1)
	parts = append(parts, d.Name)
	for _, p := range d.Params {
		parts = append(parts, "<"+p.String()+">")
	}
	return strings.Join(parts, " ")
}

// registryKey derives the lookup key for d. Explicit names lose all
// embedded whitespace; handler-derived names are used as is.
func registryKey(d Definition) string {
	if d.Name != "" {
		return strings.Join(strings.Fields(d.Name), "")
	}
	return HandlerName(d.Handler)
}

// HandlerName reports the bare identifier of a handler function:
// "main.greet" becomes "greet" and a method value "(*Device).Reset-fm"
// becomes "Reset". Anonymous functions yield compiler names like "func1".
func HandlerName(h Handler) string {
	if h == nil {
		return ""
	}
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return ""
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
