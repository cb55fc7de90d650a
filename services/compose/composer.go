// Package compose turns calendar results into conversational prose. Each
// summary makes one LLM call and falls back to a deterministic string when
// that call fails; composition never returns an error.
package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattkuda/calendar-copilot/core/types"
	"github.com/mattkuda/calendar-copilot/pkg/xlog"
)

const (
	querySystemPrompt    = "You are a helpful calendar assistant. Generate a natural, conversational response about the user's calendar based on the events data provided. Be concise but friendly."
	creationSystemPrompt = "You are a helpful calendar assistant. Generate a natural, conversational response confirming an event has been created. Be concise but friendly."

	queryMaxTokens    = 350
	creationMaxTokens = 200
	proseTemperature  = 0.7
)

// Completer is the free-text completion capability; *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

type Composer struct {
	llm Completer
}

func NewComposer(c Completer) *Composer {
	return &Composer{llm: c}
}

// QuerySummary describes the events found in [start, end] for the user.
func (c *Composer) QuerySummary(ctx context.Context, events []types.CalendarEvent, prompt string, start, end time.Time) string {
	payload, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return queryFallback(events)
	}

	user := fmt.Sprintf(`User asked: %q

Date range: %s to %s

Calendar events (%d total):
%s

Please provide a natural, conversational response summarizing these events. If there are no events, mention that. Include key details like event titles, times, and dates in a readable format.`,
		prompt, start.Format(time.RFC3339), end.Format(time.RFC3339), len(events), payload)

	summary, err := c.llm.Complete(ctx, querySystemPrompt, user, proseTemperature, queryMaxTokens)
	if err != nil {
		xlog.Warn("query summary generation failed, using fallback", "error", err)
		return queryFallback(events)
	}
	return summary
}

// CreationSummary confirms a created event for the user.
func (c *Composer) CreationSummary(ctx context.Context, event types.CalendarEvent, prompt string) string {
	user := fmt.Sprintf(`User requested: %q

Created event details:
Summary: %s
Starts: %s
Ends: %s
Attendees: %d

Please provide a natural, conversational response confirming the event creation based only on the details provided above. Mention the title, date, and time.`,
		prompt, event.Title, event.Start.Format(time.RFC1123), event.End.Format(time.RFC1123), len(event.Attendees))

	summary, err := c.llm.Complete(ctx, creationSystemPrompt, user, proseTemperature, creationMaxTokens)
	if err != nil {
		xlog.Warn("creation summary generation failed, using fallback", "error", err)
		return creationFallback(event)
	}
	return summary
}

func queryFallback(events []types.CalendarEvent) string {
	if len(events) == 0 {
		return "You don't have any events scheduled in the specified time period."
	}
	return fmt.Sprintf("You have %d event(s) scheduled in the specified time period.", len(events))
}

func creationFallback(event types.CalendarEvent) string {
	title := event.Title
	if title == "" {
		title = "event"
	}
	return fmt.Sprintf("I've created a new event %q for %s.", title, event.Start.Format("Monday, January 2, 2006 at 3:04 PM"))
}
