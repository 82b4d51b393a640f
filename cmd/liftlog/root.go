package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "liftlog",
	Short: "Active-workout session runtime",
	Long: `liftlog keeps the clock, rest timer and exercise progression of one
workout session, survives restarts through a resume snapshot, and mirrors the
session to a live status board.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
}

// loadConfig reads the config file and builds the logger it describes.
func loadConfig(out io.Writer) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, closer := logging.New(cfg.Log, out)
	return cfg, log, closer, nil
}
