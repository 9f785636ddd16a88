package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/probe/internal/cli"
	"github.com/aretw0/probe/internal/logging"
	"github.com/aretw0/probe/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the inspect_document and document_stats tools and the
probe://settings resource to MCP clients.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		opts := cliOptions(cmd)
		logger := logging.New(logging.Level(opts.Debug))

		inspector, closer, err := cli.NewInspector(cmd.Context(), opts, logger)
		defer closer()
		if err != nil {
			return err
		}
		srv := mcp.NewServer(inspector, logger)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			logger.Info("Starting probe MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting probe MCP server (SSE)", "port", port)
			ctx, stop := cli.Interrupted(cmd.Context())
			defer stop()
			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		}
		return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
