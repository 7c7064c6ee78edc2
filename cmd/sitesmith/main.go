// Package main is the entry point for the sitesmith server and tools.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/sitesmith/internal/app"
	"github.com/dshills/sitesmith/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli holds state shared by every subcommand.
type cli struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "sitesmith",
		Short: "sitesmith - AI site builder backend",
		Long: `sitesmith serves the site builder API: newsletter signups, asset uploads,
credit packs, project sharing and collaborative editing workspaces with
undo/redo history.

Configuration is read from a TOML file (--config) and SITESMITH_* environment
variables. Environment variables win.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to the TOML configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(c),
		newRebuildCmd(c),
		newPacksCmd(c),
		newTokenCmd(c),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration and builds the logger before any subcommand runs.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := app.ParseLogLevel(cfg.Logging.Level)
	if c.verbose {
		level = zapcore.DebugLevel
	}
	logger, err := app.NewLogger(app.LoggerConfig{
		Level:  level,
		Format: cfg.Logging.Format,
		Name:   "sitesmith",
	})
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = logger
	return nil
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			application, err := app.New(ctx, app.Options{
				Config:     c.cfg,
				ConfigPath: c.configPath,
				Logger:     c.logger,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := application.Close(); err != nil {
					c.logger.Error("close failed", zap.Error(err))
				}
			}()

			if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sitesmith %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
