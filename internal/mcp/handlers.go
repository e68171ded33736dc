package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/rci/internal/catalog"
	"github.com/standardbeagle/rci/internal/debug"
	"github.com/standardbeagle/rci/internal/selector"
	"github.com/standardbeagle/rci/internal/version"
)

// maxSuggestions bounds the close matches offered for an unknown rule
const maxSuggestions = 5

// CandidatesParams is the argument object of the candidates tool
type CandidatesParams struct {
	Identifiers []string `json:"identifiers"`
	Details     bool     `json:"details,omitempty"`
}

// CandidatesResponse lists candidate rules for one set of identifiers
type CandidatesResponse struct {
	Identifiers int             `json:"identifiers"` // distinct identifiers queried
	Count       int             `json:"count"`
	Candidates  []string        `json:"candidates"`
	Rules       []*catalog.Rule `json:"rules,omitempty"`
}

// RuleParams is the argument object of the rule tool
type RuleParams struct {
	Name string `json:"name"`
}

func decodeArgs(req *mcp.CallToolRequest, v any) error {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

func (s *Server) handleCandidates(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params CandidatesParams
	if err := decodeArgs(req, &params); err != nil {
		return createErrorResponse("candidates", err)
	}
	if params.Identifiers == nil {
		return createErrorResponse("candidates", errors.New("identifiers is required"))
	}

	sel := s.source.Current()
	rules := sel.Candidates(params.Identifiers)

	resp := CandidatesResponse{
		Identifiers: distinct(params.Identifiers),
		Count:       len(rules),
		Candidates:  make([]string, len(rules)),
	}
	for i, r := range rules {
		resp.Candidates[i] = r.Name
	}
	if params.Details {
		resp.Rules = rules
	}

	debug.LogMCP("candidates: %d identifiers -> %d rules\n", resp.Identifiers, resp.Count)
	return createJSONResponse(resp)
}

func (s *Server) handleRule(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params RuleParams
	if err := decodeArgs(req, &params); err != nil {
		return createErrorResponse("rule", err)
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return createErrorResponse("rule", errors.New("name is required"))
	}

	cat := s.source.Current().Catalog()
	if rule, ok := cat.Lookup(name); ok {
		return createJSONResponse(rule)
	}
	return createSuggestionResponse("rule", fmt.Errorf("unknown rule %q", name), cat.Suggest(name, maxSuggestions))
}

// StatsResponse is the stats tool result. The build fields let a client
// notice that the server binary changed between sessions.
type StatsResponse struct {
	selector.Stats
	ServerVersion string `json:"server_version"`
	BuildID       string `json:"build_id"`
}

func (s *Server) handleStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return createJSONResponse(StatsResponse{
		Stats:         s.source.Current().Stats(),
		ServerVersion: version.FullInfo(),
		BuildID:       version.BuildID(),
	})
}

func distinct(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
