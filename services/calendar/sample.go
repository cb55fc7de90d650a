package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattkuda/calendar-copilot/core/types"
	"github.com/mattkuda/calendar-copilot/pkg/xlog"
)

// SampleSource is the fallback EventSource used when the real backend
// fails. Reads answer with a fixed two-event set; writes echo the
// would-be-created event without touching any backend. Results from this
// source are always disclosed to the user as sample data.
type SampleSource struct {
	// Now is a clock hook for tests; defaults to time.Now.
	Now func() time.Time
}

func NewSampleSource() *SampleSource {
	return &SampleSource{Now: time.Now}
}

// ListEvents returns two fixed events, one tomorrow and one a week out,
// clipped to the requested range so the result still respects [start, end).
func (s *SampleSource) ListEvents(_ context.Context, _ string, start, end time.Time) ([]types.CalendarEvent, error) {
	now := s.Now()
	fixtures := []types.CalendarEvent{
		{
			ID:          "sample-event-1",
			Title:       "Team standup",
			Start:       now.AddDate(0, 0, 1).Truncate(time.Hour),
			End:         now.AddDate(0, 0, 1).Truncate(time.Hour).Add(30 * time.Minute),
			Description: "Sample event shown because your calendar could not be reached",
		},
		{
			ID:          "sample-event-2",
			Title:       "Project review",
			Start:       now.AddDate(0, 0, 7).Truncate(time.Hour),
			End:         now.AddDate(0, 0, 7).Truncate(time.Hour).Add(time.Hour),
			Description: "Sample event shown because your calendar could not be reached",
		},
	}

	var events []types.CalendarEvent
	for _, event := range fixtures {
		if !event.Start.Before(start) && event.Start.Before(end) {
			events = append(events, event)
		}
	}
	if len(events) == 0 {
		// A degraded response with an empty list reads like a real empty
		// calendar; keep the fixtures so the disclosure has something to
		// point at.
		events = fixtures
	}
	return events, nil
}

// CreateEvent echoes the requested event back as if it had been stored.
func (s *SampleSource) CreateEvent(_ context.Context, _ string, req CreateEventRequest) (types.CalendarEvent, error) {
	if req.DurationMinutes <= 0 {
		return types.CalendarEvent{}, fmt.Errorf("%w: got %d", ErrInvalidDuration, req.DurationMinutes)
	}
	return types.CalendarEvent{
		ID:          fmt.Sprintf("sample-created-%d", s.Now().UnixNano()),
		Title:       req.Title,
		Start:       req.Start,
		End:         req.Start.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Attendees:   req.Attendees,
		Description: req.Description,
	}, nil
}

// Degradable reports whether a backend failure should be absorbed by the
// fallback source instead of failing the request.
func Degradable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, ErrCalendarNotFound) ||
		errors.Is(err, ErrPermissionDenied)
}

// CreateResult is a created event plus its degradation marker, mirroring
// types.CalendarQueryResult for the write path.
type CreateResult struct {
	Event          types.CalendarEvent
	Synthetic      bool
	DegradedReason string
}

// FallbackPolicy runs operations against a primary source and substitutes
// the fallback on degradable failures, marking the result synthetic.
type FallbackPolicy struct {
	fallback EventSource
}

func NewFallbackPolicy(fallback EventSource) *FallbackPolicy {
	return &FallbackPolicy{fallback: fallback}
}

func (p *FallbackPolicy) ListEvents(ctx context.Context, primary EventSource, calendarID string, start, end time.Time) (types.CalendarQueryResult, error) {
	events, err := primary.ListEvents(ctx, calendarID, start, end)
	if err == nil {
		return types.CalendarQueryResult{Events: events}, nil
	}
	if !Degradable(err) {
		return types.CalendarQueryResult{}, err
	}

	xlog.Warn("calendar read degraded to sample data", "calendar", calendarID, "error", err)
	events, fallbackErr := p.fallback.ListEvents(ctx, calendarID, start, end)
	if fallbackErr != nil {
		return types.CalendarQueryResult{}, fallbackErr
	}
	return types.CalendarQueryResult{
		Events:         events,
		Synthetic:      true,
		DegradedReason: err.Error(),
	}, nil
}

func (p *FallbackPolicy) CreateEvent(ctx context.Context, primary EventSource, calendarID string, req CreateEventRequest) (CreateResult, error) {
	event, err := primary.CreateEvent(ctx, calendarID, req)
	if err == nil {
		return CreateResult{Event: event}, nil
	}
	if !Degradable(err) {
		return CreateResult{}, err
	}

	xlog.Warn("calendar write degraded to local echo", "calendar", calendarID, "error", err)
	event, fallbackErr := p.fallback.CreateEvent(ctx, calendarID, req)
	if fallbackErr != nil {
		return CreateResult{}, fallbackErr
	}
	return CreateResult{
		Event:          event,
		Synthetic:      true,
		DegradedReason: err.Error(),
	}, nil
}
