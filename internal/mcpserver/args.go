package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Argument coercion over the decoded JSON parameter map. Numbers arrive as
// float64, arrays as []any.

func intArg(req mcp.CallToolRequest, key string, def int) int {
	v, ok := req.GetArguments()[key]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok || f <= 0 {
		return def
	}
	return int(f)
}

func int64Arg(req mcp.CallToolRequest, key string) *int64 {
	v, ok := req.GetArguments()[key]
	if !ok {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	n := int64(f)
	return &n
}

func stringArg(req mcp.CallToolRequest, key, def string) string {
	v, ok := req.GetArguments()[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

func stringsArg(req mcp.CallToolRequest, key string) []string {
	v, ok := req.GetArguments()[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intsArg(req mcp.CallToolRequest, key string) []int {
	v, ok := req.GetArguments()[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		if f, ok := item.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}
