package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/logging"
	"github.com/claude/liftlog/internal/mcp"
)

var (
	mcpURL    string
	mcpAPIKey string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP over stdio",
	Long: `Serve the session tools and resources over stdio.

With --url the tools drive a running liftlog server through its REST API
(for example over Tailscale). Without it a runtime is built from the config
file in this process.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpURL, "url", "", "base URL of a running liftlog server")
	mcpCmd.Flags().StringVar(&mcpAPIKey, "api-key", os.Getenv("LIFTLOG_AUTH_API_KEY"), "API key for the remote server")

	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) (err error) {
	// stdout carries the protocol; logs go to stderr.
	if mcpURL != "" {
		log, closer := logging.New(config.LogConfig{Level: "info", Format: "text"}, os.Stderr)
		defer closer.Close()
		return server.ServeStdio(mcp.New(mcp.NewHTTPClient(mcpURL, mcpAPIKey), Version, log))
	}

	cfg, log, logCloser, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, logCloser.Close()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	if _, err := a.runtime.Recover(ctx); err != nil {
		log.Warn("session recovery failed", "error", err)
	}
	a.runtime.Attach(ctx)

	return server.ServeStdio(mcp.New(mcp.NewLocal(a.runtime, a.board), Version, log))
}
