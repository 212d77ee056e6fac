package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	taskmcp "github.com/taskmindhq/taskmind/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  predict_etc     — estimate time to completion for a described task
  recommend_task  — pick the pending task with the best predicted productivity
  user_insights   — aggregate analytics over completed-task history`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			a, err := newApp(logger)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			defer a.Close()

			// Tool calls go through the same serialized worker as the HTTP
			// API; it must be running before the transport accepts requests.
			go func() { _ = a.pipe.Run(cmd.Context()) }()

			srv := taskmcp.NewServer(a.etc, a.recommend, a.analytics, logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: taskmind MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
