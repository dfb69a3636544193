package commands

import (
	"context"
	"fmt"
	"strings"
)

// BuiltinDefinitions returns the commands every shell offers. Register
// them before host commands so a host definition with the same name wins.
func BuiltinDefinitions() []Definition {
	return []Definition{
		{
			Name:        "help",
			Description: "Show this help message",
			Handler: func(ctx context.Context, req Request) error {
				runtime := RuntimeFromContext(ctx)
				if runtime == nil {
					return reply(req, "Command unavailable in current context.")
				}
				return reply(req, FormatHelpMessage(runtime.Commands()))
			},
		},
		{
			Name:        "exit",
			Description: "End this session",
			Handler: func(ctx context.Context, req Request) error {
				runtime := RuntimeFromContext(ctx)
				if runtime == nil {
					return reply(req, "Command unavailable in current context.")
				}
				runtime.Stop()
				return reply(req, "Goodbye!")
			},
		},
	}
}

func FormatHelpMessage(defs []Definition) string {
	if len(defs) == 0 {
		return "No commands available."
	}

	lines := make([]string, 0, len(defs))
	for _, def := range defs {
		desc := def.Description
		if desc == "" {
			desc = "No description"
		}
		lines = append(lines, fmt.Sprintf("%s - %s", def.UsageLine(), desc))
	}
	return strings.Join(lines, "\n")
}
