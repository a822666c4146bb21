package mcptools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Afrawles/standup/internal/config"
	"github.com/Afrawles/standup/internal/standup"
)

const events = `[{
  "id": "1", "type": "PullRequestReviewEvent",
  "actor": {"login": "octo"}, "repo": {"name": "acme/api"},
  "created_at": "2024-07-23T14:00:00Z",
  "payload": {"action": "created", "review": {"state": "approved", "body": "Looks good", "html_url": "https://github.com/acme/api/pull/9#pullrequestreview-1"},
              "pull_request": {"number": 9, "title": "Speed up search"}}
}]`

func newTools(t *testing.T, repos ...string) *Tools {
	t.Helper()
	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/acme/api/events" && r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(events))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(gh.Close)

	app := standup.New(&config.Config{
		GitHub: config.GitHubConfig{Token: "tkn", BaseURL: gh.URL, Repos: repos},
		Fetch:  config.FetchConfig{PerPage: 100, MaxPages: 10, Workers: 2, RepoTimeout: 5 * time.Second, RequestTimeout: 5 * time.Second},
		Output: config.OutputConfig{Format: "markdown"},
	})
	app.Resolver.Now = func() time.Time { return time.Date(2024, 7, 24, 9, 0, 0, 0, time.UTC) }
	return New(app)
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func TestSummaryTool(t *testing.T) {
	tools := newTools(t, "acme/api")

	res, err := tools.Summary(context.Background(), call(map[string]any{"date": "yesterday"}))
	if err != nil {
		t.Fatal(err)
	}
	out := text(t, res)
	if res.IsError {
		t.Fatalf("tool error: %s", out)
	}
	if !strings.Contains(out, "Reviewed **[PR #9]") || !strings.Contains(out, "(Approved)") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestSummaryTool_ErrorsAreInBand(t *testing.T) {
	tools := newTools(t)

	res, err := tools.Summary(context.Background(), call(map[string]any{"date": "yesterday"}))
	if err != nil {
		t.Fatalf("errors should be tool results, got %v", err)
	}
	if !res.IsError || !strings.HasPrefix(text(t, res), "configuration_missing") {
		t.Fatalf("expected configuration_missing tool error, got %q", text(t, res))
	}

	res, _ = tools.Summary(context.Background(), call(map[string]any{"repos": "acme/api", "format": "xml"}))
	if !res.IsError || !strings.HasPrefix(text(t, res), "unsupported_format") {
		t.Fatalf("expected unsupported_format, got %q", text(t, res))
	}
}

func TestActivityThenRender(t *testing.T) {
	tools := newTools(t)
	ctx := context.Background()

	res, err := tools.Activity(ctx, call(map[string]any{"date": "2024-07-23", "repos": []any{"acme/api"}}))
	if err != nil || res.IsError {
		t.Fatalf("activity: %v %s", err, text(t, res))
	}
	actJSON := text(t, res)
	if !strings.Contains(actJSON, `"kind": "pull_request_review"`) {
		t.Fatalf("unexpected activity:\n%s", actJSON)
	}

	res, err = tools.Render(ctx, call(map[string]any{"activity": actJSON, "format": "text"}))
	if err != nil || res.IsError {
		t.Fatalf("render: %v %s", err, text(t, res))
	}
	if out := text(t, res); !strings.Contains(out, "Reviewed PR #9") {
		t.Fatalf("unexpected render:\n%s", out)
	}

	res, _ = tools.Render(ctx, call(map[string]any{"format": "text"}))
	if !res.IsError || !strings.HasPrefix(text(t, res), "invalid_argument") {
		t.Fatalf("missing activity should fail, got %q", text(t, res))
	}
}

func TestRender_ObjectArgument(t *testing.T) {
	tools := newTools(t)

	res, err := tools.Render(context.Background(), call(map[string]any{
		"activity": map[string]any{"date": "2024-07-23", "events": []any{}},
	}))
	if err != nil || res.IsError {
		t.Fatalf("render: %v %s", err, text(t, res))
	}
	if !strings.Contains(text(t, res), "No GitHub activity found for 2024-07-23") {
		t.Fatalf("unexpected render:\n%s", text(t, res))
	}
}

func TestDateTool(t *testing.T) {
	tools := newTools(t)

	res, _ := tools.Date(context.Background(), call(map[string]any{"expression": "tue"}))
	if res.IsError || text(t, res) != "2024-07-23" {
		t.Fatalf("date = %q", text(t, res))
	}
	res, _ = tools.Date(context.Background(), call(map[string]any{"expression": "the other day"}))
	if !res.IsError || !strings.HasPrefix(text(t, res), "invalid_date_expression") {
		t.Fatalf("expected invalid_date_expression, got %q", text(t, res))
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer(newTools(t).app, "test")
	if s == nil {
		t.Fatal("nil server")
	}
	for _, tool := range []mcp.Tool{summaryTool(), activityTool(), dateTool(), renderTool()} {
		if tool.Description == "" {
			t.Errorf("%s has no description", tool.Name)
		}
	}
}
