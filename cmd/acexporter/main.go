package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"acexporter/internal/app"
	"acexporter/internal/config"
)

const (
	exitCodeFailure = 1
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// newRootCommand builds the CLI tree.
// Params: none.
// Returns: root cobra command with serve, check and version subcommands.
func newRootCommand() *cobra.Command {
	var (
		configPath string
		overrides  config.Overrides
	)

	root := &cobra.Command{
		Use:           "acexporter",
		Short:         "Prometheus exporter for a SmartThings air conditioner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML config file or directory (optional)")
	root.PersistentFlags().StringVarP(&overrides.Token, "token", "t", "", "SmartThings access token (overrides config)")
	root.PersistentFlags().StringVar(&overrides.Catalog, "catalog", "", "metric catalog file: .json, .yaml or .toml (overrides config)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve device metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.Run(ctx, app.Runtime{ConfigPath: configPath, Overrides: overrides})
		},
	}
	serveCmd.Flags().StringVarP(&overrides.Listen, "listen", "l", "", "HTTP listen address host:port (overrides config)")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate config and catalog without starting servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := app.Check(app.Runtime{ConfigPath: configPath, Overrides: overrides})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog %s: %d entries, device %s\n", result.CatalogPath, result.Entries, result.Selector)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "acexporter version=%s commit=%s date=%s\n", version, commit, date)
		},
	}

	root.AddCommand(serveCmd, checkCmd, versionCmd)
	return root
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCodeFailure)
	}
}
