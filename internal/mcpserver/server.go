// Package mcpserver exposes the fetch and registry operations as MCP
// (Model Context Protocol) tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gzuuus/nostr-daily-news-mcp/internal/fetch"
	"github.com/gzuuus/nostr-daily-news-mcp/internal/format"
	"github.com/gzuuus/nostr-daily-news-mcp/internal/models"
	"github.com/gzuuus/nostr-daily-news-mcp/internal/registry"
)

// kindTextNote is the Nostr event kind for plain text notes; the note tools
// restrict their queries to it.
const kindTextNote = 1

// Error prefixes for the text payload contract: a domain failure is reported
// as a successful tool result whose text starts with one of these.
const (
	prefixNotes      = "Error fetching notes"
	prefixEvents     = "Error fetching events"
	prefixRelayGroup = "Error fetching events from relay group"
	prefixRSS        = "Error fetching RSS feed"
)

// Server wraps the MCP server with the news tools.
type Server struct {
	mcp      *server.MCPServer
	reg      *registry.Registry
	resolver *fetch.Resolver
}

// New creates an MCP server with every tool registered.
func New(reg *registry.Registry, resolver *fetch.Resolver) *Server {
	s := &Server{reg: reg, resolver: resolver}

	s.mcp = server.NewMCPServer(
		"nostr-daily-news",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("fetch-trending-notes",
		mcp.WithDescription("Fetch trending notes from the trending relay group, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes to return (default 10)")),
	), s.fetchTrendingNotes)

	s.mcp.AddTool(mcp.NewTool("fetch-news-notes",
		mcp.WithDescription("Fetch news notes from the news relay group, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes to return (default 10)")),
	), s.fetchNewsNotes)

	s.mcp.AddTool(mcp.NewTool("fetch-custom-events",
		mcp.WithDescription("Fetch events matching a filter from an explicit list of relays."),
		mcp.WithArray("relays", mcp.Required(), mcp.Description("Relay URLs to query"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events to return (default 10)")),
		mcp.WithArray("kinds", mcp.Description("Event kinds to include"),
			mcp.Items(map[string]any{"type": "integer"})),
		mcp.WithArray("authors", mcp.Description("Author public keys to include"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithNumber("since", mcp.Description("Unix timestamp lower bound")),
		mcp.WithNumber("until", mcp.Description("Unix timestamp upper bound")),
	), s.fetchCustomEvents)

	s.mcp.AddTool(mcp.NewTool("fetch-relay-group",
		mcp.WithDescription("Fetch notes from a named relay group."),
		mcp.WithString("relayGroup", mcp.Required(), mcp.Description("Name of the relay group")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes to return (default 10)")),
	), s.fetchRelayGroup)

	s.mcp.AddTool(mcp.NewTool("fetch-stacker-news",
		mcp.WithDescription("Fetch the latest entries from the Stacker News RSS feed."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries to return (default 10)")),
	), s.fetchStackerNews)

	s.mcp.AddTool(mcp.NewTool("fetch-hacker-news",
		mcp.WithDescription("Fetch entries from a Hacker News RSS feed."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries to return (default 10)")),
		mcp.WithString("type", mcp.Description("Feed type (default newest)"),
			mcp.Enum("newest", "frontpage", "bestComments", "ask", "show")),
	), s.fetchHackerNews)

	s.mcp.AddTool(mcp.NewTool("fetch-custom-rss",
		mcp.WithDescription("Fetch entries from a custom RSS feed registered with add-rss-feed."),
		mcp.WithString("feedName", mcp.Required(), mcp.Description("Name of the registered feed")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries to return (default 10)")),
	), s.fetchCustomRSS)

	s.mcp.AddTool(mcp.NewTool("get-config",
		mcp.WithDescription("Show the full source configuration: relay groups and RSS feeds."),
	), s.getConfig)

	s.mcp.AddTool(mcp.NewTool("add-relay-group",
		mcp.WithDescription("Create or replace a named relay group. Adding to 'custom' appends."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Group name")),
		mcp.WithArray("relays", mcp.Required(), mcp.Description("Relay URLs for the group"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.addRelayGroup)

	s.mcp.AddTool(mcp.NewTool("add-rss-feed",
		mcp.WithDescription("Register a custom RSS feed. The URL is fetched once to verify it parses."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Feed name")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Feed URL")),
	), s.addRSSFeed)

	s.mcp.AddTool(mcp.NewTool("list-relay-groups",
		mcp.WithDescription("List all relay groups and their relays."),
	), s.listRelayGroups)

	s.mcp.AddTool(mcp.NewTool("list-rss-feeds",
		mcp.WithDescription("List built-in and custom RSS feeds."),
	), s.listRSSFeeds)

	s.mcp.AddTool(mcp.NewTool("remove-relay-group",
		mcp.WithDescription("Remove a relay group. Built-in groups cannot be removed; 'custom' is cleared."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Group name")),
	), s.removeRelayGroup)

	s.mcp.AddTool(mcp.NewTool("remove-rss-feed",
		mcp.WithDescription("Remove a custom RSS feed. Built-in feeds cannot be removed."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Feed name")),
	), s.removeRSSFeed)

	return s
}

// ServeStdio runs the MCP server on stdin/stdout until ctx is cancelled or
// stdin closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server, for the SSE transport and tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) fetchTrendingNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.fetchNotes(ctx, req, registry.GroupTrending)
}

func (s *Server) fetchNewsNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.fetchNotes(ctx, req, registry.GroupNews)
}

func (s *Server) fetchNotes(ctx context.Context, req mcp.CallToolRequest, group string) (*mcp.CallToolResult, error) {
	f := models.Filter{
		Limit: intArg(req, "limit", models.DefaultLimit),
		Kinds: []int{kindTextNote},
	}
	events, err := s.resolver.RelayGroup(ctx, group, f)
	if err != nil {
		return errText(prefixNotes, err), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("No notes found"), nil
	}
	return mcp.NewToolResultText(format.RenderEvents(events)), nil
}

func (s *Server) fetchCustomEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	relays := stringsArg(req, "relays")
	if len(relays) == 0 {
		return mcp.NewToolResultError("relays is required"), nil
	}
	f := models.Filter{
		Limit:   intArg(req, "limit", models.DefaultLimit),
		Kinds:   intsArg(req, "kinds"),
		Authors: stringsArg(req, "authors"),
		Since:   int64Arg(req, "since"),
		Until:   int64Arg(req, "until"),
	}
	events, err := s.resolver.Events(ctx, relays, f)
	if err != nil {
		return errText(prefixEvents, err), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("No events found"), nil
	}
	return mcp.NewToolResultText(format.RenderEvents(events)), nil
}

func (s *Server) fetchRelayGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("relayGroup")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f := models.Filter{
		Limit: intArg(req, "limit", models.DefaultLimit),
		Kinds: []int{kindTextNote},
	}
	events, err := s.resolver.RelayGroup(ctx, name, f)
	if err != nil {
		return errText(prefixRelayGroup, err), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("No events found"), nil
	}
	return mcp.NewToolResultText(format.RenderEvents(events)), nil
}

func (s *Server) fetchStackerNews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.fetchFeed(ctx, req, registry.FeedStackerNews)
}

func (s *Server) fetchHackerNews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := stringArg(req, "type", "newest")
	return s.fetchFeed(ctx, req, registry.FeedHackerNews+"."+typ)
}

func (s *Server) fetchCustomRSS(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("feedName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.fetchFeed(ctx, req, name)
}

func (s *Server) fetchFeed(ctx context.Context, req mcp.CallToolRequest, name string) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", models.DefaultLimit)
	entries, err := s.resolver.Feed(ctx, name, limit)
	if err != nil {
		return errText(prefixRSS, err), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No items found in the feed"), nil
	}
	return mcp.NewToolResultText(format.RenderEntries(entries)), nil
}

func (s *Server) getConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snapshot := s.reg.Snapshot()
	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errText("Error getting config", err), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addRelayGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	relays := stringsArg(req, "relays")
	count, err := s.reg.AddRelayGroup(name, relays)
	if err != nil {
		return errText("Error adding relay group", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Relay group '%s' saved with %d relays", name, count)), nil
}

func (s *Server) addRSSFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.reg.AddFeed(ctx, name, url); err != nil {
		return errText("Error adding RSS feed", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added RSS feed '%s'", name)), nil
}

func (s *Server) listRelayGroups(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.reg.ListRelayGroups()), nil
}

func (s *Server) listRSSFeeds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.reg.ListFeeds()), nil
}

func (s *Server) removeRelayGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.reg.RemoveRelayGroup(name); err != nil {
		return errText("Error removing relay group", err), nil
	}
	if name == registry.GroupCustom {
		return mcp.NewToolResultText("Cleared relay group 'custom'"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed relay group '%s'", name)), nil
}

func (s *Server) removeRSSFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.reg.RemoveFeed(name); err != nil {
		return errText("Error removing RSS feed", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed RSS feed '%s'", name)), nil
}

// errText converts a typed domain error to the prefixed text payload. The
// result is a protocol-level success; failure detection is a text contract.
func errText(prefix string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultText(prefix + ": " + err.Error())
}
