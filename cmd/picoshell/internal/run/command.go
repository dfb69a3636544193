package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sipeed/picoshell/cmd/picoshell/internal"
	"github.com/sipeed/picoshell/cmd/picoshell/internal/demo"
	"github.com/sipeed/picoshell/pkg/shell"
)

func NewRunCommand(flags *internal.GlobalFlags) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"r"},
		Short:   "Start an interactive session on this terminal",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, flags, plain)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Read plain lines from stdin even on a terminal")

	return cmd
}

func runSession(ctx context.Context, flags *internal.GlobalFlags, plain bool) error {
	cfg, err := internal.LoadConfig(flags)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	reader, out, err := newReader(plain)
	if err != nil {
		return err
	}

	sh, err := shell.New(&cfg.Shell, demo.NewRegistry(), shell.WithReader(reader), shell.WithOutput(out))
	if err != nil {
		reader.Close()
		return err
	}
	defer sh.Close()

	if isTerminal() {
		fmt.Fprintf(out, "%s picoshell %s - type help for commands\n", internal.Logo, internal.FormatVersion())
	}
	return sh.Run(ctx)
}

func newReader(plain bool) (shell.LineReader, io.Writer, error) {
	if plain || !isTerminal() {
		return shell.NewStreamReader(os.Stdin, os.Stdout), os.Stdout, nil
	}

	reader, err := shell.NewTerminalReader()
	if err != nil {
		return nil, nil, fmt.Errorf("initializing terminal: %w", err)
	}
	if w, ok := reader.(interface{ Writer() io.Writer }); ok {
		return reader, w.Writer(), nil
	}
	return reader, os.Stdout, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
