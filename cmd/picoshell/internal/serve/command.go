package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sipeed/picoshell/cmd/picoshell/internal"
	"github.com/sipeed/picoshell/cmd/picoshell/internal/demo"
	"github.com/sipeed/picoshell/pkg/config"
	"github.com/sipeed/picoshell/pkg/remote"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

func NewServeCommand(flags *internal.GlobalFlags) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Serve shell sessions over WebSocket",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig(flags)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyOverrides(cfg, opts)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "Listen host (overrides remote.host)")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "Listen port (overrides remote.port)")
	cmd.Flags().StringSliceVar(&opts.AllowedOrigins, "allow-origin", nil,
		"Browser origin allowed to connect, repeatable (adds to remote.allowed_origins)")

	return cmd
}

func applyOverrides(cfg *config.Config, opts serveOptions) {
	cfg.Remote.Enabled = true
	if opts.Host != "" {
		cfg.Remote.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Remote.Port = opts.Port
	}
	cfg.Remote.AllowedOrigins = append(cfg.Remote.AllowedOrigins, opts.AllowedOrigins...)
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := remote.NewServer(cfg, demo.NewRegistry())
	if err != nil {
		return err
	}

	fmt.Printf("%s picoshell console on ws://%s%s\n", internal.Logo, cfg.Remote.Addr(), cfg.Remote.Path)
	fmt.Println("Press Ctrl+C to stop")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	return g.Wait()
}
