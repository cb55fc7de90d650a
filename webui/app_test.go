package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mattkuda/calendar-copilot/core/types"
	"github.com/mattkuda/calendar-copilot/pkg/oauth"
)

// stubQueries records the arguments each route forwarded.
type stubQueries struct {
	resp   types.QueryResponse
	status int

	handled    *types.QueryRequest
	listArgs   []string
	createArgs []string
}

func (s *stubQueries) Handle(_ context.Context, req types.QueryRequest) (types.QueryResponse, int) {
	s.handled = &req
	return s.resp, s.status
}

func (s *stubQueries) ExecuteList(_ context.Context, calendarID, startExpr, endExpr string) (types.QueryResponse, int) {
	s.listArgs = []string{calendarID, startExpr, endExpr}
	return s.resp, s.status
}

func (s *stubQueries) ExecuteCreate(_ context.Context, calendarID, title, datetime string, _ int, _ []string) (types.QueryResponse, int) {
	s.createArgs = []string{calendarID, title, datetime}
	return s.resp, s.status
}

func newTestApp(queries *stubQueries) *App {
	return NewApp(queries, oauth.NewTokenStore(), WithDefaultCalendarID("primary"))
}

func postJSON(t *testing.T, app *App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	return resp
}

func TestQueryForwardsRequestAndStatus(t *testing.T) {
	queries := &stubQueries{
		resp:   types.QueryResponse{Response: "Here is your schedule.", Intent: "get_events"},
		status: http.StatusOK,
	}
	app := newTestApp(queries)

	resp := postJSON(t, app, "/api/query", `{"prompt": "what's on today?", "calendarId": "work"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body types.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Response != queries.resp.Response {
		t.Errorf("Response = %q, want the orchestrator's answer", body.Response)
	}
	if queries.handled == nil || queries.handled.CalendarID != "work" {
		t.Errorf("forwarded request = %+v, want calendarId work", queries.handled)
	}
}

func TestQueryInjectsDefaultCalendar(t *testing.T) {
	queries := &stubQueries{status: http.StatusOK}
	app := newTestApp(queries)

	postJSON(t, app, "/api/query", `{"prompt": "what's on today?"}`)
	if queries.handled == nil || queries.handled.CalendarID != "primary" {
		t.Errorf("forwarded request = %+v, want the default calendar id", queries.handled)
	}
}

func TestQueryPropagatesElevatedStatus(t *testing.T) {
	queries := &stubQueries{
		resp:   types.QueryResponse{Error: types.ErrCodeNotAuthenticated},
		status: http.StatusUnauthorized,
	}
	app := newTestApp(queries)

	resp := postJSON(t, app, "/api/query", `{"prompt": "p", "calendarId": "primary"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestExecuteDispatchesTools(t *testing.T) {
	queries := &stubQueries{status: http.StatusOK}
	app := newTestApp(queries)

	postJSON(t, app, "/api/execute", `{
		"tool": "get-calendar-events",
		"arguments": {"startDate": "today", "endDate": "next week"}
	}`)
	want := []string{"primary", "today", "next week"}
	if len(queries.listArgs) != 3 || queries.listArgs[0] != want[0] || queries.listArgs[1] != want[1] || queries.listArgs[2] != want[2] {
		t.Errorf("ExecuteList args = %v, want %v", queries.listArgs, want)
	}

	postJSON(t, app, "/api/execute", `{
		"tool": "create-calendar-event",
		"arguments": {"calendarId": "work", "title": "Standup", "datetime": "2024-03-12T09:00:00", "duration": 15}
	}`)
	if len(queries.createArgs) != 3 || queries.createArgs[0] != "work" || queries.createArgs[1] != "Standup" {
		t.Errorf("ExecuteCreate args = %v", queries.createArgs)
	}
}

func TestExecuteRejectsUnknownTool(t *testing.T) {
	app := newTestApp(&stubQueries{status: http.StatusOK})

	resp := postJSON(t, app, "/api/execute", `{"tool": "delete-everything"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCalendarEventsReadsQueryParams(t *testing.T) {
	queries := &stubQueries{status: http.StatusOK}
	app := newTestApp(queries)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar/events?calendarId=work&startDate=today&endDate=tomorrow", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	want := []string{"work", "today", "tomorrow"}
	if len(queries.listArgs) != 3 || queries.listArgs[0] != want[0] || queries.listArgs[1] != want[1] || queries.listArgs[2] != want[2] {
		t.Errorf("ExecuteList args = %v, want %v", queries.listArgs, want)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(&stubQueries{status: http.StatusOK})

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestToolCatalogListsBothTools(t *testing.T) {
	app := newTestApp(&stubQueries{status: http.StatusOK})

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	var body struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range body.Tools {
		names[tool.Name] = true
	}
	if !names["get-calendar-events"] || !names["create-calendar-event"] {
		t.Errorf("tool catalog = %v, want both calendar tools", names)
	}
}
