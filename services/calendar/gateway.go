// Package calendar wraps the Google Calendar backend behind the EventSource
// interface and provides a sample-data source plus the degradation policy
// that decides when the sample source answers instead of the real one.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mattkuda/calendar-copilot/core/types"
	"github.com/mattkuda/calendar-copilot/pkg/oauth"
)

const (
	// One page of results per query; wide ranges are truncated rather
	// than paginated.
	eventPageSize = 100

	// Per-call deadline so a stalled backend cannot hang a request.
	backendTimeout = 10 * time.Second
)

// Backend failure taxonomy. Callers branch with errors.Is.
var (
	ErrBackendUnavailable = errors.New("calendar backend unavailable")
	ErrCalendarNotFound   = errors.New("calendar not found or not shared with the active credential")
	ErrPermissionDenied   = errors.New("credential cannot write to this calendar")
	ErrInvalidDuration    = errors.New("event duration must be a positive number of minutes")
)

// CreateEventRequest describes the event to insert. End time is derived
// from Start plus DurationMinutes.
type CreateEventRequest struct {
	Title           string
	Start           time.Time
	DurationMinutes int
	Attendees       []string
	Description     string
}

// EventSource is the read/write capability shared by the real gateway and
// the sample-data fallback, so the orchestrator's logic is identical
// regardless of which implementation answered.
type EventSource interface {
	// ListEvents returns events starting within [start, end), expanded to
	// single occurrences, ordered by start time ascending, capped at
	// eventPageSize results.
	ListEvents(ctx context.Context, calendarID string, start, end time.Time) ([]types.CalendarEvent, error)
	// CreateEvent inserts one event and returns the stored value,
	// including its backend-assigned id and viewing link.
	CreateEvent(ctx context.Context, calendarID string, req CreateEventRequest) (types.CalendarEvent, error)
}

// Gateway is the EventSource backed by the real Google Calendar API. Build
// one per request from the credential the provider resolved.
type Gateway struct {
	cred *oauth.Credential
}

func NewGateway(cred *oauth.Credential) *Gateway {
	return &Gateway{cred: cred}
}

func (g *Gateway) service(ctx context.Context) (*gcal.Service, error) {
	srv, err := gcal.NewService(ctx, option.WithTokenSource(g.cred.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("%w: create calendar service: %v", ErrBackendUnavailable, err)
	}
	return srv, nil
}

func (g *Gateway) ListEvents(ctx context.Context, calendarID string, start, end time.Time) ([]types.CalendarEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	srv, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Events.List(calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(eventPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapAPIError(err)
	}

	var events []types.CalendarEvent
	for _, item := range resp.Items {
		event, ok := convertEvent(item)
		if ok {
			events = append(events, event)
		}
	}
	return events, nil
}

func (g *Gateway) CreateEvent(ctx context.Context, calendarID string, req CreateEventRequest) (types.CalendarEvent, error) {
	if req.DurationMinutes <= 0 {
		return types.CalendarEvent{}, fmt.Errorf("%w: got %d", ErrInvalidDuration, req.DurationMinutes)
	}

	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	srv, err := g.service(ctx)
	if err != nil {
		return types.CalendarEvent{}, err
	}

	end := req.Start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	event := &gcal.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start: &gcal.EventDateTime{
			DateTime: req.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: end.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}
	for _, email := range req.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	created, err := srv.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return types.CalendarEvent{}, mapAPIError(err)
	}

	converted, ok := convertEvent(created)
	if !ok {
		return types.CalendarEvent{}, fmt.Errorf("%w: backend returned an unusable event", ErrBackendUnavailable)
	}
	return converted, nil
}

// mapAPIError translates provider responses into the package taxonomy:
// 404 means the calendar does not exist or is not shared, 403 means the
// credential cannot act on it, everything else is a generic backend fault.
func mapAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrCalendarNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

// convertEvent normalizes a provider event into the internal model.
// Cancelled events and events whose times cannot be parsed are dropped.
func convertEvent(item *gcal.Event) (types.CalendarEvent, bool) {
	if item == nil || item.Status == "cancelled" {
		return types.CalendarEvent{}, false
	}

	start, startOK := parseEventTime(item.Start)
	end, endOK := parseEventTime(item.End)
	if !startOK || !endOK {
		return types.CalendarEvent{}, false
	}

	event := types.CalendarEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Start:       start,
		End:         end,
		Location:    item.Location,
		Description: item.Description,
		HTMLLink:    item.HtmlLink,
	}
	if item.Start != nil {
		event.TimeZone = item.Start.TimeZone
	}

	seen := make(map[string]bool)
	for _, attendee := range item.Attendees {
		if attendee.Email == "" || seen[attendee.Email] {
			continue
		}
		seen[attendee.Email] = true
		event.Attendees = append(event.Attendees, attendee.Email)
	}
	return event, true
}

func parseEventTime(t *gcal.EventDateTime) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		return parsed, err == nil
	}
	if t.Date != "" {
		// All-day events carry a bare date; midnight stands in for the
		// missing time component.
		parsed, err := time.Parse("2006-01-02", t.Date)
		return parsed, err == nil
	}
	return time.Time{}, false
}
