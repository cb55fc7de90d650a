// Package webui exposes the assistant over HTTP: the conversational query
// endpoint, the structured tool-execution endpoints, and the OAuth capture
// flow that feeds the delegated credential strategy.
package webui

import (
	"context"
	"net/http"
	"sync"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/mattkuda/calendar-copilot/core/types"
	"github.com/mattkuda/calendar-copilot/pkg/oauth"
	"github.com/mattkuda/calendar-copilot/pkg/xlog"
)

// QueryService is the orchestration surface the routes need;
// *orchestrator.Orchestrator satisfies it.
type QueryService interface {
	Handle(ctx context.Context, req types.QueryRequest) (types.QueryResponse, int)
	ExecuteList(ctx context.Context, calendarID, startExpr, endExpr string) (types.QueryResponse, int)
	ExecuteCreate(ctx context.Context, calendarID, title, datetime string, durationMinutes int, attendees []string) (types.QueryResponse, int)
}

type App struct {
	config  *Config
	queries QueryService
	tokens  *oauth.TokenStore
	states  sync.Map
	*fiber.App
}

func NewApp(queries QueryService, tokens *oauth.TokenStore, opts ...Option) *App {
	config := NewConfig(opts...)

	webapp := fiber.New(fiber.Config{
		AppName:      "calendar-copilot",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	webapp.Use(cors.New(cors.Config{
		AllowOrigins: config.AllowedOrigin,
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	a := &App{
		config:  config,
		queries: queries,
		tokens:  tokens,
		App:     webapp,
	}

	a.registerRoutes(webapp)

	return a
}

func (a *App) registerRoutes(webapp *fiber.App) {
	webapp.Post("/api/query", a.Query())

	webapp.Get("/api/tools", a.ListTools())
	webapp.Post("/api/execute", a.ExecuteTool())

	webapp.Get("/api/test", a.Health())
	webapp.Post("/api/test", a.Health())

	webapp.Get("/api/calendar/events", a.GetEvents())
	webapp.Post("/api/calendar/create", a.CreateEvent())

	webapp.Get("/api/oauth/google", a.InitiateOAuth())
	webapp.Get("/api/oauth/google/callback", a.HandleOAuthCallback())
}

// Run blocks serving HTTP until the listener fails.
func (a *App) Run() error {
	xlog.Info("starting HTTP server", "addr", a.config.ListenAddr)
	return a.Listen(a.config.ListenAddr)
}

// Query is the conversational endpoint: free-text prompt in, prose answer
// plus structured results out.
func (a *App) Query() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		var req types.QueryRequest
		if err := c.BodyParser(&req); err != nil {
			return errorJSONMessage(c, http.StatusBadRequest, "Invalid request body")
		}
		if req.CalendarID == "" {
			req.CalendarID = a.config.DefaultCalendarID
		}

		resp, status := a.queries.Handle(c.Context(), req)
		return c.Status(status).JSON(resp)
	}
}

// ListTools describes the structured operations for tool-calling clients.
func (a *App) ListTools() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"tools": []fiber.Map{
				{
					"name":        "get-calendar-events",
					"description": "Get calendar events within a date range",
					"parameters": fiber.Map{
						"calendarId": "Calendar identifier (defaults to the configured calendar)",
						"startDate":  "Range start: ISO date or a phrase like 'today' or 'next monday'",
						"endDate":    "Range end: ISO date or a phrase like 'today' or 'next monday'",
					},
				},
				{
					"name":        "create-calendar-event",
					"description": "Create a new calendar event",
					"parameters": fiber.Map{
						"calendarId": "Calendar identifier (defaults to the configured calendar)",
						"title":      "Event title",
						"datetime":   "Event start as a full ISO datetime (YYYY-MM-DDTHH:MM:SS)",
						"duration":   "Duration in minutes",
						"attendees":  "Attendee email addresses",
					},
				},
			},
		})
	}
}

// ExecuteTool dispatches a named tool invocation to the structured
// orchestrator entry points.
func (a *App) ExecuteTool() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		var payload struct {
			Tool      string `json:"tool"`
			Arguments struct {
				CalendarID string   `json:"calendarId"`
				StartDate  string   `json:"startDate"`
				EndDate    string   `json:"endDate"`
				Title      string   `json:"title"`
				Datetime   string   `json:"datetime"`
				Duration   int      `json:"duration"`
				Attendees  []string `json:"attendees"`
			} `json:"arguments"`
		}
		if err := c.BodyParser(&payload); err != nil {
			return errorJSONMessage(c, http.StatusBadRequest, "Invalid request body")
		}

		args := payload.Arguments
		if args.CalendarID == "" {
			args.CalendarID = a.config.DefaultCalendarID
		}

		switch payload.Tool {
		case "get-calendar-events":
			resp, status := a.queries.ExecuteList(c.Context(), args.CalendarID, args.StartDate, args.EndDate)
			return c.Status(status).JSON(resp)
		case "create-calendar-event":
			resp, status := a.queries.ExecuteCreate(c.Context(), args.CalendarID, args.Title, args.Datetime, args.Duration, args.Attendees)
			return c.Status(status).JSON(resp)
		default:
			return errorJSONMessage(c, http.StatusBadRequest, "Unknown tool: "+payload.Tool)
		}
	}
}

// GetEvents is the dashboard read endpoint; range comes from query params.
func (a *App) GetEvents() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		calendarID := c.Query("calendarId", a.config.DefaultCalendarID)
		resp, status := a.queries.ExecuteList(c.Context(), calendarID, c.Query("startDate"), c.Query("endDate"))
		return c.Status(status).JSON(resp)
	}
}

// CreateEvent is the dashboard write endpoint.
func (a *App) CreateEvent() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		var payload struct {
			CalendarID string   `json:"calendarId"`
			Title      string   `json:"title"`
			Datetime   string   `json:"datetime"`
			Duration   int      `json:"duration"`
			Attendees  []string `json:"attendees"`
		}
		if err := c.BodyParser(&payload); err != nil {
			return errorJSONMessage(c, http.StatusBadRequest, "Invalid request body")
		}
		if payload.CalendarID == "" {
			payload.CalendarID = a.config.DefaultCalendarID
		}

		resp, status := a.queries.ExecuteCreate(c.Context(), payload.CalendarID, payload.Title, payload.Datetime, payload.Duration, payload.Attendees)
		return c.Status(status).JSON(resp)
	}
}

// Health answers liveness checks.
func (a *App) Health() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func errorJSONMessage(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(struct {
		Error string `json:"error"`
	}{Error: message})
}
