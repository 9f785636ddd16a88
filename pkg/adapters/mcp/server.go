// Package mcp exposes the probe analysis as Model Context Protocol tools, so
// an agent can inspect JSON documents with the same limits as the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/probe"
	"github.com/aretw0/probe/pkg/config"
	"github.com/aretw0/probe/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SettingsURI is the resource serving the effective settings.
const SettingsURI = "probe://settings"

// InspectResponse provides a unified structure across adapters.
type InspectResponse struct {
	Root        domain.Snapshot `json:"root" jsonschema_description:"The analysed document as a node tree"`
	Diagnostics []string        `json:"diagnostics,omitempty" jsonschema_description:"Errors recovered during the analysis"`
	Broken      bool            `json:"broken,omitempty" jsonschema_description:"True when the runtime or memory budget ran out"`
}

// Inspector defines what the MCP server needs from the probe library.
type Inspector interface {
	Analyse(v any, name string) *probe.Inspection
	Settings() config.Settings
}

// Server wraps the Inspector and exposes it as an MCP Server.
type Server struct {
	inspector Inspector
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(inspector Inspector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		inspector: inspector,
		logger:    logger,
		mcpServer: server.NewMCPServer("probe-mcp", strings.TrimSpace(probe.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: inspect_document
	inspectTool := mcp.NewTool("inspect_document",
		mcp.WithDescription("Analyse a JSON document and return it as a bounded node tree with types and metadata."),
		mcp.WithString("document", mcp.Required(), mcp.Description("The JSON document to analyse")),
		mcp.WithString("name", mcp.Description("Label of the root node (optional)")),
		mcp.WithNumber("budget", mcp.Description("Maximum number of nodes to return (optional)")),
		mcp.WithOutputSchema[InspectResponse](),
	)
	s.mcpServer.AddTool(inspectTool, mcp.NewStructuredToolHandler(s.handleInspect))

	// TOOL: document_stats
	statsTool := mcp.NewTool("document_stats",
		mcp.WithDescription("Count the nodes of a JSON document by type and status."),
		mcp.WithString("document", mcp.Required(), mcp.Description("The JSON document to analyse")),
		mcp.WithOutputSchema[domain.Stats](),
	)
	s.mcpServer.AddTool(statsTool, mcp.NewStructuredToolHandler(s.handleStats))
}

func (s *Server) analyse(args map[string]interface{}) (*probe.Inspection, error) {
	raw, _ := args["document"].(string)
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		s.logger.Warn("MCP Inspect: Invalid document", "error", err, "size", len(raw))
		return nil, fmt.Errorf("document is not valid JSON: %w", err)
	}
	name, _ := args["name"].(string)
	if name == "" {
		name = "document"
	}
	return s.inspector.Analyse(doc, name), nil
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (InspectResponse, error) {
	in, err := s.analyse(args)
	if err != nil {
		return InspectResponse{}, err
	}
	budget, _ := args["budget"].(float64)

	resp := InspectResponse{Root: in.Snapshot(int(budget))}
	for _, err := range in.Diagnostics() {
		resp.Diagnostics = append(resp.Diagnostics, err.Error())
	}
	resp.Broken = in.Broken()
	return resp, nil
}

func (s *Server) handleStats(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Stats, error) {
	in, err := s.analyse(args)
	if err != nil {
		return domain.Stats{}, err
	}
	return in.Stats(0), nil
}

func (s *Server) registerResources() {
	// EXPOSE: probe://settings
	s.mcpServer.AddResource(mcp.NewResource(SettingsURI, "Effective probe settings",
		mcp.WithMIMEType("application/json"),
	), s.readSettings)
}

func (s *Server) readSettings(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.inspector.Settings())
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SettingsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
