package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/flemzord/engram/internal/memory"
	"github.com/flemzord/engram/internal/tool"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

// registryTool builds the MCP definition for a registry capability.
// Capabilities are string in, string out, so every tool carries the
// same single-argument schema.
func registryTool(reg tool.Registration) mcp.Tool {
	return mcp.NewTool(reg.Name,
		mcp.WithDescription(reg.Description),
		mcp.WithString("argument",
			mcp.Required(),
			mcp.Description("Argument text passed to the capability."),
		),
	)
}

// registryToolHandler resolves the capability on every call, so a
// re-registered capability takes effect without rebuilding the server.
func registryToolHandler(registry *tool.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argument, err := req.RequireString("argument")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		capability, ok := registry.Resolve(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("tool %q is no longer registered", name)), nil
		}

		out, err := capability.Invoke(ctx, argument)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

func memorySearchTool() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription("Search the agent's durable memory entries by key or value substring."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Case-insensitive substring to match against entry keys and values."),
		),
		mcp.WithString("type",
			mcp.Description("Restrict results to one memory type (e.g. preference, general)."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return. Defaults to 5, capped at 50."),
		),
	)
}

func memorySearchHandler(store memory.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		memoryType := req.GetString("type", "")

		limit := int(req.GetFloat("limit", defaultSearchLimit))
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}

		entries, err := store.SearchEntries(ctx, query, memoryType, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("memory search failed: %v", err)), nil
		}
		if len(entries) == 0 {
			return mcp.NewToolResultText("No matching memories."), nil
		}

		var b strings.Builder
		for _, e := range entries {
			fmt.Fprintf(&b, "- %s (%s): %s\n", e.Key, e.MemoryType, e.Value)
		}
		return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
	}
}
