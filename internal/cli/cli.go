// Package cli holds the swrcached commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/swrcache/internal/app"
	"github.com/unkn0wn-root/swrcache/internal/config"
)

type rootFlags struct {
	config string
}

// NewRoot builds the command tree.
func NewRoot() *cobra.Command {
	rf := new(rootFlags)
	root := &cobra.Command{
		Use:           "swrcached",
		Short:         "Cache-first football data daemon.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&rf.config, "config", "c", "", "config file (default ./swrcached.yaml)")

	root.AddCommand(newServeCmd(rf), newWarmCmd(rf), newConfigCmd(rf))
	return root
}

func Run() error {
	return NewRoot().Execute()
}

func newServeCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [-c config_file]",
		Short: "Serve the HTTP API until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rf.config)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, cfg)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			runErr := a.Run(ctx)

			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout+cfg.Cache.RefreshTimeout)
			defer cancel()
			if err := a.Close(closeCtx); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
		DisableFlagsInUseLine: true,
	}
}

func newWarmCmd(rf *rootFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Refresh the cached resources once and exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rf.config)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a, err := app.Build(ctx, cfg)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			warmErr := a.Warm(ctx)
			if err := a.Close(context.WithoutCancel(ctx)); err != nil && warmErr == nil {
				warmErr = err
			}
			return warmErr
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline")
	return cmd
}

func newConfigCmd(rf *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration.",
	}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration with secrets redacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rf.config)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cfgCmd
}
