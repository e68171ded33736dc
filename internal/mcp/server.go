package mcp

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	rcidebug "github.com/standardbeagle/rci/internal/debug"
	"github.com/standardbeagle/rci/internal/selector"
	"github.com/standardbeagle/rci/internal/version"
)

// ServerName identifies the server to MCP clients
const ServerName = "rci-mcp-server"

// SelectorSource hands out the selector to answer a call with. A static
// selector and a watch.Reloader both satisfy it.
type SelectorSource interface {
	Current() *selector.Selector
}

// staticSource serves one selector for the server's lifetime
type staticSource struct{ sel *selector.Selector }

func (s staticSource) Current() *selector.Selector { return s.sel }

// Static wraps a fixed selector as a SelectorSource
func Static(sel *selector.Selector) SelectorSource {
	return staticSource{sel: sel}
}

// Server exposes candidate selection as MCP tools
type Server struct {
	source SelectorSource
	server *mcp.Server
}

// NewServer creates a server answering from src
func NewServer(src SelectorSource) (*Server, error) {
	if src == nil || src.Current() == nil {
		return nil, fmt.Errorf("mcp server requires a loaded catalog")
	}

	s := &Server{
		source: src,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "candidates",
		Description: "List the rules worth matching against a code unit, given the identifiers observed in it. Rules whose required identifiers are absent are never returned.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"identifiers": {
					Type:        "array",
					Description: "Identifiers observed in the unit, in any order; duplicates are ignored",
					Items:       &jsonschema.Schema{Type: "string"},
				},
				"details": {
					Type:        "boolean",
					Description: "Return full rule definitions instead of names",
				},
			},
			Required: []string{"identifiers"},
		},
	}, s.withRecovery("candidates", s.handleCandidates))

	s.server.AddTool(&mcp.Tool{
		Name:        "rule",
		Description: "Show one rule's definition. Unknown names return close matches.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Rule name",
				},
			},
			Required: []string{"name"},
		},
	}, s.withRecovery("rule", s.handleRule))

	s.server.AddTool(&mcp.Tool{
		Name:        "stats",
		Description: "Catalog size, index shape and cache counters",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.withRecovery("stats", s.handleStats))
}

// withRecovery turns a handler panic into an error result so one bad call
// cannot take down the session.
func (s *Server) withRecovery(operation string, handler mcp.ToolHandler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				rcidebug.LogMCP("PANIC RECOVERED in %s: %v\n%s", operation, r, debug.Stack())
				result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
			}
		}()
		return handler(ctx, req)
	}
}

// Run serves over stdio until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	rcidebug.LogMCP("starting MCP server with stdio transport\n")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over transport. Used by tests with
// in-memory transports.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}
