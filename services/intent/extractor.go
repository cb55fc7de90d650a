// Package intent turns a free-text utterance into a structured calendar
// intent using one schema-constrained LLM completion, then validates the
// result before the orchestrator sees it.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/mattkuda/calendar-copilot/core/types"
)

// The two failure modes are distinct so callers can surface different
// remediation text: ErrExtractionFailed is an infrastructure fault, while
// ErrMalformedIntent means the model produced content this package refuses
// to forward.
var (
	ErrExtractionFailed = errors.New("intent extraction failed")
	ErrMalformedIntent  = errors.New("extracted intent is malformed")
)

// Completer is the structured-completion capability the extractor needs;
// *llm.Client satisfies it.
type Completer interface {
	GenerateTypedJSON(ctx context.Context, system, user, name string, schema jsonschema.Definition, out any) error
}

type Extractor struct {
	llm Completer
}

func NewExtractor(c Completer) *Extractor {
	return &Extractor{llm: c}
}

const systemPromptFormat = `You are a calendar assistant that helps users query and manage their calendar events.
Your task is to understand what the user is asking for and extract structured information based on the provided JSON schema.

Today's date is %s.
When the user asks about their calendar or schedule, determine if they want to:
1. View existing events ('get_events'): Extract the date range (startDate, endDate). Use ISO format YYYY-MM-DD or phrases like "today" and "next week". Default to a single day if only one day is mentioned (e.g., "what's on my calendar today?").
2. Create a new event ('create_event'): Extract the title, full datetime, duration (in minutes), and attendees.
   - IMPORTANT: For the 'datetime' field, ALWAYS return a full ISO datetime string (YYYY-MM-DDTHH:MM:SS). If the user only specifies a time (e.g., "at 3pm", "8-9pm"), you MUST assume the date is today and construct the full ISO string accordingly. Do not return just the time component.
   - Convert durations like "1 hour" or "30 minutes" into total minutes.

If the user's request is unclear or doesn't fit these intents, use 'unknown'. Provide a helpful description in all cases.`

// rawIntent mirrors the completion schema before validation.
type rawIntent struct {
	Intent    string `json:"intent"`
	TimeRange struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"timeRange"`
	EventDetails struct {
		Title     string   `json:"title"`
		Datetime  string   `json:"datetime"`
		Duration  int      `json:"duration"`
		Attendees []string `json:"attendees"`
	} `json:"eventDetails"`
	Description string `json:"description"`
}

func intentSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"intent": {
				Type:        jsonschema.String,
				Enum:        []string{"get_events", "create_event", "unknown"},
				Description: "The type of calendar action the user wants to perform",
			},
			"timeRange": {
				Type:        jsonschema.Object,
				Description: "Time range for calendar query, required if intent is get_events",
				Properties: map[string]jsonschema.Definition{
					"startDate": {
						Type:        jsonschema.String,
						Description: "Start date in ISO format (YYYY-MM-DD) or a phrase like 'today' or 'next monday'",
					},
					"endDate": {
						Type:        jsonschema.String,
						Description: "End date in ISO format (YYYY-MM-DD) or a phrase like 'today' or 'next monday'",
					},
				},
				Required: []string{"startDate", "endDate"},
			},
			"eventDetails": {
				Type:        jsonschema.Object,
				Description: "Details for event creation, required if intent is create_event",
				Properties: map[string]jsonschema.Definition{
					"title": {
						Type:        jsonschema.String,
						Description: "The title of the event",
					},
					"datetime": {
						Type:        jsonschema.String,
						Description: "The full start date and time in ISO format (YYYY-MM-DDTHH:MM:SS). If the user provides only a time, assume the date is today and return the full ISO datetime string.",
					},
					"duration": {
						Type:        jsonschema.Integer,
						Description: "Duration in minutes (e.g., '1 hour' becomes 60)",
					},
					"attendees": {
						Type:        jsonschema.Array,
						Description: "Email addresses of attendees, if mentioned",
						Items:       &jsonschema.Definition{Type: jsonschema.String},
					},
				},
				Required: []string{"title", "datetime", "duration"},
			},
			"description": {
				Type:        jsonschema.String,
				Description: "Description of what the user is asking for",
			},
		},
		Required: []string{"intent", "description"},
	}
}

// Extract classifies the utterance and returns a validated intent. The
// model's output is never trusted blindly: a create_event start expression
// without a time component fails with ErrMalformedIntent instead of being
// silently defaulted.
func (e *Extractor) Extract(ctx context.Context, utterance string, now time.Time) (types.CalendarIntent, error) {
	var raw rawIntent
	system := fmt.Sprintf(systemPromptFormat, now.Format(time.RFC3339))
	if err := e.llm.GenerateTypedJSON(ctx, system, utterance, "calendarIntent", intentSchema(), &raw); err != nil {
		return types.CalendarIntent{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	description := raw.Description
	if description == "" {
		description = "I'm not sure what you're asking for. Try asking about your schedule or creating an event."
	}

	switch raw.Intent {
	case string(types.IntentGetEvents):
		if raw.TimeRange.StartDate == "" || raw.TimeRange.EndDate == "" {
			return types.CalendarIntent{}, fmt.Errorf("%w: get_events intent missing time range", ErrMalformedIntent)
		}
		return types.CalendarIntent{
			Kind: types.IntentGetEvents,
			ViewRange: &types.ViewRange{
				StartExpr: raw.TimeRange.StartDate,
				EndExpr:   raw.TimeRange.EndDate,
			},
			Description: description,
		}, nil

	case string(types.IntentCreateEvent):
		details := raw.EventDetails
		if details.Title == "" || details.Datetime == "" {
			return types.CalendarIntent{}, fmt.Errorf("%w: create_event intent missing title or datetime", ErrMalformedIntent)
		}
		if !strings.Contains(details.Datetime, "T") {
			// A bare date or time-of-day is ambiguous; refuse rather
			// than guess a default.
			return types.CalendarIntent{}, fmt.Errorf("%w: start expression %q has no time component", ErrMalformedIntent, details.Datetime)
		}
		return types.CalendarIntent{
			Kind: types.IntentCreateEvent,
			Create: &types.CreateEvent{
				Title:           details.Title,
				StartExpr:       details.Datetime,
				DurationMinutes: details.Duration,
				Attendees:       details.Attendees,
			},
			Description: description,
		}, nil

	default:
		return types.CalendarIntent{
			Kind:        types.IntentUnknown,
			Description: description,
		}, nil
	}
}
