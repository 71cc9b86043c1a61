package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchSpeciesTool defines the search_species MCP tool.
var searchSpeciesTool = mcp.NewTool("search_species",
	mcp.WithDescription("Search species by name fragment or wildcard pattern (e.g. \"Agu*\")."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Name fragment, at least two characters"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
)

// evolutionTreeTool defines the evolution_tree MCP tool.
var evolutionTreeTool = mcp.NewTool("evolution_tree",
	mcp.WithDescription("Get what a species evolves from and into. Large, densely linked families are collapsed to direct neighbours unless expand is set."),
	mcp.WithString("species",
		mcp.Required(),
		mcp.Description("Exact species name"),
	),
	mcp.WithBoolean("expand",
		mcp.Description("Show the full depth for large families"),
	),
	mcp.WithString("format",
		mcp.Description("Output format (default tree)"),
		mcp.Enum("tree", "levels", "json"),
	),
)
