package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mattkuda/calendar-copilot/core/types"
)

var sampleNow = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

func fixedSampleSource() *SampleSource {
	return &SampleSource{Now: func() time.Time { return sampleNow }}
}

// stubSource fails or succeeds on demand, standing in for the real gateway.
type stubSource struct {
	listErr   error
	createErr error
	events    []types.CalendarEvent
	created   types.CalendarEvent
	calls     int
}

func (s *stubSource) ListEvents(context.Context, string, time.Time, time.Time) ([]types.CalendarEvent, error) {
	s.calls++
	return s.events, s.listErr
}

func (s *stubSource) CreateEvent(context.Context, string, CreateEventRequest) (types.CalendarEvent, error) {
	s.calls++
	return s.created, s.createErr
}

func TestSampleSourceListIsNeverEmpty(t *testing.T) {
	t.Parallel()

	src := fixedSampleSource()
	events, err := src.ListEvents(context.Background(), "primary", sampleNow, sampleNow.AddDate(0, 0, 14))
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ListEvents() returned %d events, want 2", len(events))
	}
	for _, event := range events {
		if !event.Start.Before(event.End) {
			t.Errorf("event %q start %v not before end %v", event.Title, event.Start, event.End)
		}
	}

	// Even a range that misses both fixtures still yields events, so a
	// degraded response never masquerades as an empty calendar.
	events, err = src.ListEvents(context.Background(), "primary", sampleNow.AddDate(-1, 0, 0), sampleNow.AddDate(-1, 0, 1))
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) == 0 {
		t.Error("ListEvents() outside fixture range returned no events")
	}
}

func TestSampleSourceCreateEchoesDuration(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC)
	event, err := fixedSampleSource().CreateEvent(context.Background(), "primary", CreateEventRequest{
		Title:           "Meeting with Joe",
		Start:           start,
		DurationMinutes: 30,
		Attendees:       []string{"joe@x.com"},
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if got := event.End.Sub(event.Start); got != 30*time.Minute {
		t.Errorf("End-Start = %v, want 30m", got)
	}
	if event.ID == "" {
		t.Error("CreateEvent() returned empty id")
	}
}

func TestFallbackPolicyList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		listErr       error
		wantSynthetic bool
		wantErr       bool
	}{
		{"healthy backend passes through", nil, false, false},
		{"backend unavailable degrades", ErrBackendUnavailable, true, false},
		{"calendar not found degrades", ErrCalendarNotFound, true, false},
		{"permission denied degrades", ErrPermissionDenied, true, false},
		{"context cancellation propagates", context.Canceled, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &stubSource{
				listErr: tt.listErr,
				events:  []types.CalendarEvent{{ID: "real-1", Title: "Real event"}},
			}
			policy := NewFallbackPolicy(fixedSampleSource())

			result, err := policy.ListEvents(context.Background(), primary, "primary", sampleNow, sampleNow.AddDate(0, 0, 14))
			if tt.wantErr {
				if err == nil {
					t.Fatal("ListEvents() = nil error, want failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("ListEvents() error = %v", err)
			}
			if result.Synthetic != tt.wantSynthetic {
				t.Errorf("Synthetic = %v, want %v", result.Synthetic, tt.wantSynthetic)
			}
			if tt.wantSynthetic {
				if len(result.Events) == 0 {
					t.Error("degraded result has no events")
				}
				if result.DegradedReason == "" {
					t.Error("degraded result missing reason")
				}
			} else if len(result.Events) != 1 || result.Events[0].ID != "real-1" {
				t.Errorf("healthy result = %+v, want the primary's events", result.Events)
			}
		})
	}
}

func TestFallbackPolicyCreate(t *testing.T) {
	t.Parallel()

	req := CreateEventRequest{
		Title:           "Planning",
		Start:           time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 45,
	}
	policy := NewFallbackPolicy(fixedSampleSource())

	primary := &stubSource{createErr: ErrBackendUnavailable}
	result, err := policy.CreateEvent(context.Background(), primary, "primary", req)
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if !result.Synthetic {
		t.Error("Synthetic = false after backend failure, want true")
	}
	if got := result.Event.End.Sub(result.Event.Start); got != 45*time.Minute {
		t.Errorf("echoed duration = %v, want 45m", got)
	}

	// Validation failures are not degradable; no echo is produced.
	primary = &stubSource{createErr: ErrInvalidDuration}
	if _, err := policy.CreateEvent(context.Background(), primary, "primary", req); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("CreateEvent() error = %v, want ErrInvalidDuration", err)
	}
}
