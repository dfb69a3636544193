// PicoShell - Embeddable interactive command shell
// License: MIT
//
// Copyright (c) 2026 PicoShell contributors

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sipeed/picoshell/cmd/picoshell/internal"
	"github.com/sipeed/picoshell/cmd/picoshell/internal/configcmd"
	"github.com/sipeed/picoshell/cmd/picoshell/internal/run"
	"github.com/sipeed/picoshell/cmd/picoshell/internal/serve"
	"github.com/sipeed/picoshell/cmd/picoshell/internal/version"
)

func NewPicoshellCommand() *cobra.Command {
	var flags internal.GlobalFlags

	cmd := &cobra.Command{
		Use:           "picoshell",
		Short:         fmt.Sprintf("%s picoshell - interactive command shell v%s", internal.Logo, internal.GetVersion()),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	internal.AddGlobalFlags(cmd.PersistentFlags(), &flags)

	cmd.AddCommand(
		run.NewRunCommand(&flags),
		serve.NewServeCommand(&flags),
		configcmd.NewConfigCommand(&flags),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewPicoshellCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
