package commands

import (
	"context"
	"testing"
)

func TestDefinition_UsageLine(t *testing.T) {
	def := Definition{Name: "led", Params: []ParamType{TypeByte, TypeBool}}
	if got := def.UsageLine(); got != "led <byte> <bool>" {
		t.Fatalf("UsageLine() = %q", got)
	}

	def.Usage = "led <index> <on>"
	if got := def.UsageLine(); got != "led <index> <on>" {
		t.Fatalf("UsageLine() = %q", got)
	}
}

func TestHandlerName(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
		want    string
	}{
		{"function", greetHandler, "greetHandler"},
		{"method value", (&device{}).Reset, "Reset"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		if got := HandlerName(tt.handler); got != tt.want {
			t.Errorf("%s: HandlerName() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestHandlerName_AnonymousFunction(t *testing.T) {
	got := HandlerName(func(context.Context, Request) error { return nil })
	if got == "" {
		t.Fatalf("expected a compiler-generated name for a closure")
	}
}
