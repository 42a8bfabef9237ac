package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mindadmin/internal/aggregate"
	"github.com/starford/mindadmin/internal/export"
	"github.com/starford/mindadmin/internal/models"
	"github.com/starford/mindadmin/internal/storage"
	"github.com/starford/mindadmin/internal/store"
)

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	dataDir := t.TempDir()
	files, err := storage.NewFS(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(files, slog.Default())

	srv := New(st, aggregate.New(st), export.New(st))
	return srv, st
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handler functions
	// are exercised directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "overview_stats":
		result, err = srv.overviewStats(ctx, req)
	case "list_users":
		result, err = srv.listUsers(ctx, req)
	case "posts_by_day":
		result, err = srv.postsByDay(ctx, req)
	case "heart_rate_summary":
		result, err = srv.heartRateSummary(ctx, req)
	case "user_report":
		result, err = srv.userReport(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestOverviewStats(t *testing.T) {
	srv, st := testServer(t)
	if err := st.SaveUsers([]models.User{{"email": "a@x.com"}}); err != nil {
		t.Fatal(err)
	}
	if err := st.SavePosts([]models.Post{{"author": "a@x.com"}}); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "overview_stats", map[string]interface{}{})
	var got map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if got["total_users"] != float64(1) || got["total_posts"] != float64(1) {
		t.Errorf("overview = %v", got)
	}
	if got["posting_enabled"] != true {
		t.Errorf("posting_enabled = %v", got["posting_enabled"])
	}
}

func TestListUsersRedacts(t *testing.T) {
	srv, st := testServer(t)
	if err := st.SaveUsers([]models.User{
		{"email": "a@x.com", "password": "hunter2"},
	}); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "list_users", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "a@x.com") {
		t.Errorf("user missing from %q", text)
	}
	if strings.Contains(text, "hunter2") {
		t.Error("password leaked through the tool")
	}
}

func TestPostsByDayTool(t *testing.T) {
	srv, st := testServer(t)
	if err := st.SavePosts([]models.Post{
		{"author": "a@x.com", "timestamp": "2019-01-01T00:00:00Z"},
	}); err != nil {
		t.Fatal(err)
	}

	// Default 30-day window excludes the old post.
	r := callTool(t, srv, "posts_by_day", map[string]interface{}{})
	var days []aggregate.DayCount
	if err := json.Unmarshal([]byte(resultText(r)), &days); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("days = %v, want none in default window", days)
	}

	// A huge window reaches it.
	r = callTool(t, srv, "posts_by_day", map[string]interface{}{"window": 100000})
	if err := json.Unmarshal([]byte(resultText(r)), &days); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(days) != 1 || days[0].Count != 1 {
		t.Errorf("days = %v", days)
	}
}

func TestHeartRateSummaryTool(t *testing.T) {
	srv, st := testServer(t)

	r := callTool(t, srv, "heart_rate_summary", map[string]interface{}{})
	if got := resultText(r); got != "no heart rate data" {
		t.Errorf("empty store result = %q", got)
	}

	if err := st.SaveVitals(models.Vitals{
		"a@x.com": json.RawMessage(`{"vitals": [
			{"timestamp": "2024-01-01T00:00:00Z", "heartRate": 60},
			{"timestamp": "2024-01-01T01:00:00Z", "heartRate": 100}
		]}`),
	}); err != nil {
		t.Fatal(err)
	}

	r = callTool(t, srv, "heart_rate_summary", map[string]interface{}{})
	var summary aggregate.Summary
	if err := json.Unmarshal([]byte(resultText(r)), &summary); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if summary.Mean != 80 || summary.Min != 60 || summary.Max != 100 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestUserReportTool(t *testing.T) {
	srv, st := testServer(t)
	if err := st.SavePosts([]models.Post{
		{"author": "a@x.com", "content": "hi", "timestamp": "2024-01-01T00:00:00Z"},
	}); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "user_report", map[string]interface{}{"email": "a@x.com"})
	text := resultText(r)
	if !strings.HasPrefix(text, "type,timestamp,content,heartRate") {
		t.Errorf("csv header missing: %q", text)
	}

	r = callTool(t, srv, "user_report", map[string]interface{}{"email": "ghost@x.com"})
	if got := resultText(r); got != "no posts or vitals for ghost@x.com" {
		t.Errorf("no-data result = %q", got)
	}

	r = callTool(t, srv, "user_report", map[string]interface{}{})
	if !r.IsError {
		t.Error("missing email should be a tool error")
	}
}
