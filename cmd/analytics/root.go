package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"trading-analyticsv1/config"
	"trading-analyticsv1/internal/logger"
)

const version = "1.0.0"

// cli holds state shared by every subcommand.
type cli struct {
	cfgPath  string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "analytics",
		Short: "Multi-view market analytics cache and report engine",
		Long: `analytics computes seven cached technical views per symbol (long, swing,
short, micro, volume/pivot, slope/momentum, order book) from a market data
provider and aggregates them into one markdown report.

Providers: binance (REST), redis (streams), sqlite (local candle store).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Only the server logs to stdout; CLI output stays clean.
			out := cmd.ErrOrStderr()
			if cmd.Name() == "serve" {
				out = cmd.OutOrStdout()
			}
			return c.load(out)
		},
	}

	root.PersistentFlags().StringVarP(&c.cfgPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to YAML config (env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(c),
		newReportCmd(c),
		newViewCmd(c),
		newSyncCmd(c),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "analytics version %s\n", version)
			},
		},
	)
	return root
}

func (c *cli) load(out io.Writer) error {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg

	log := logger.Init("analytics", logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		File:   cfg.LogFile,
		Output: out,
	})
	log.Debug("config loaded",
		"provider", cfg.Provider,
		"path", c.cfgPath,
		"watch_symbols", cfg.WatchSymbols,
	)
	return nil
}
