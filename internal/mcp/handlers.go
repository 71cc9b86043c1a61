package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/evodex/internal/evolution"
)

const minQueryLength = 2

// handleSearchSpecies lists species matching a query.
func (s *Server) handleSearchSpecies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return mcp.NewToolResultError(fmt.Sprintf("query must be at least %d characters", minQueryLength)), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	refs, err := s.searcher.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(refs) > limit {
		refs = refs[:limit]
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No species match %q.", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d species:\n", len(refs))
	for _, r := range refs {
		fmt.Fprintf(&b, "- %s\n", r.Name)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleEvolutionTree builds and renders the evolution tree of a species.
func (s *Server) handleEvolutionTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("species")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: species"), nil
	}

	var expanded evolution.ExpansionSet
	if request.GetBool("expand", false) {
		expanded = evolution.NewExpansionSet(name)
	}

	res, err := s.builder.Build(ctx, name, expanded)
	if err != nil {
		if errors.Is(err, evolution.ErrInvalidSpecies) {
			return mcp.NewToolResultError("species must not be blank"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("building evolution tree: %v", err)), nil
	}

	var b strings.Builder
	switch format := request.GetString("format", "tree"); format {
	case "tree", "":
		err = evolution.WriteTree(&b, res)
	case "levels":
		err = evolution.WriteLevels(&b, evolution.Flatten(res))
	case "json":
		enc := json.NewEncoder(&b)
		enc.SetIndent("", "  ")
		err = enc.Encode(res)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q: must be one of tree, levels, json", format)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rendering evolution tree: %v", err)), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}
