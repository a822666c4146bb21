// Package mcptools exposes the standup operations as MCP tools over stdio
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Afrawles/standup/internal/activity"
	"github.com/Afrawles/standup/internal/config"
	perr "github.com/Afrawles/standup/internal/errors"
	"github.com/Afrawles/standup/internal/logger"
	"github.com/Afrawles/standup/internal/standup"
)

const (
	ToolSummary  = "get_standup_summary"
	ToolActivity = "get_github_activity"
	ToolDate     = "get_workday_date"
	ToolRender   = "format_standup_report"
)

const dateHelp = `Workday to report on: a weekday ("monday", "fri"), "last tuesday", "today", "yesterday", ` +
	`an ISO date (2024-07-22) or a long date (July 22, 2024). Omit for the last workday.`

// Tools holds the MCP handlers for one Application
type Tools struct {
	app *standup.Application
}

func New(app *standup.Application) *Tools {
	return &Tools{app: app}
}

// NewServer registers every tool on a fresh MCP server
func NewServer(app *standup.Application, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"standup",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	t := New(app)
	s.AddTool(summaryTool(), t.Summary)
	s.AddTool(activityTool(), t.Activity)
	s.AddTool(dateTool(), t.Date)
	s.AddTool(renderTool(), t.Render)
	return s
}

// Serve speaks MCP on in/out until ctx is done or in is closed
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	logger.Named("mcp").Info().Msg("mcp stdio server ready")
	return server.NewStdioServer(s).Listen(ctx, in, out)
}

func summaryTool() mcp.Tool {
	return mcp.NewTool(ToolSummary,
		mcp.WithDescription("Summarize a workday of GitHub activity as a standup report."),
		mcp.WithString("date", mcp.Description(dateHelp)),
		mcp.WithString("username", mcp.Description("Only include activity by this GitHub login.")),
		mcp.WithString("repos", mcp.Description("Comma separated owner/name list; defaults to the configured repositories or organization.")),
		mcp.WithString("format", mcp.Description("markdown (default), text or json."), mcp.Enum("markdown", "text", "json")),
	)
}

func activityTool() mcp.Tool {
	return mcp.NewTool(ToolActivity,
		mcp.WithDescription("Fetch the normalized, deduplicated GitHub events of a workday as JSON."),
		mcp.WithString("date", mcp.Description(dateHelp)),
		mcp.WithString("username", mcp.Description("Only include activity by this GitHub login.")),
		mcp.WithString("repos", mcp.Description("Comma separated owner/name list.")),
	)
}

func dateTool() mcp.Tool {
	return mcp.NewTool(ToolDate,
		mcp.WithDescription("Resolve a date expression to the ISO date of the workday it names."),
		mcp.WithString("expression", mcp.Description(dateHelp)),
	)
}

func renderTool() mcp.Tool {
	return mcp.NewTool(ToolRender,
		mcp.WithDescription("Render activity previously returned by "+ToolActivity+" as a standup report."),
		mcp.WithString("activity", mcp.Required(), mcp.Description("The JSON document returned by "+ToolActivity+".")),
		mcp.WithString("format", mcp.Description("markdown (default), text or json."), mcp.Enum("markdown", "text", "json")),
	)
}

func request(req mcp.CallToolRequest) standup.Request {
	return standup.Request{
		Date:     req.GetString("date", ""),
		Username: strings.TrimSpace(req.GetString("username", "")),
		Repos:    repoArgs(req.GetArguments()["repos"]),
	}
}

// repoArgs accepts a comma separated string or a list of strings
func repoArgs(v any) []string {
	switch r := v.(type) {
	case string:
		return config.SplitList(r)
	case []any:
		var out []string
		for _, item := range r {
			if s, ok := item.(string); ok {
				out = append(out, config.SplitList(s)...)
			}
		}
		return out
	case []string:
		return config.SplitList(strings.Join(r, ","))
	}
	return nil
}

// Summary handles get_standup_summary
func (t *Tools) Summary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := t.app.Summarize(ctx, request(req), req.GetString("format", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// Activity handles get_github_activity
func (t *Tools) Activity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	act, err := t.app.FetchActivity(ctx, request(req))
	if err != nil {
		return toolError(err), nil
	}
	data, err := json.MarshalIndent(act, "", "  ")
	if err != nil {
		return toolError(perr.Wrap(err, perr.ErrorCodeUnknown, "failed to encode activity")), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Date handles get_workday_date
func (t *Tools) Date(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := t.app.ResolveDate(req.GetString("expression", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(d), nil
}

// Render handles format_standup_report. The activity argument may arrive as a
// JSON string or, from lenient clients, as an object.
func (t *Tools) Render(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	act, err := activityArg(req.GetArguments()["activity"])
	if err != nil {
		return toolError(err), nil
	}
	out, err := t.app.Render(act, req.GetString("format", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func activityArg(v any) (*activity.Activity, error) {
	var raw string
	switch a := v.(type) {
	case nil:
		return nil, perr.New(perr.ErrorCodeInvalidArgument, "activity is required")
	case string:
		raw = a
	default:
		b, err := json.Marshal(a)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "invalid activity document")
		}
		raw = string(b)
	}
	return standup.DecodeActivity(strings.NewReader(raw))
}

// toolError reports failures in-band so the calling agent can read the code
func toolError(err error) *mcp.CallToolResult {
	w := perr.WireFrom(err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", w.Code, w.Message))
}
