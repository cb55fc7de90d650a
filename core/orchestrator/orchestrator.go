// Package orchestrator ties the intent extractor, temporal resolver,
// credential provider, calendar gateway and response composer into one
// state machine per incoming prompt. Every failure point yields a degraded
// but normal-shaped response; nothing escapes the Handle boundary as an
// error.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mattkuda/calendar-copilot/core/types"
	"github.com/mattkuda/calendar-copilot/pkg/oauth"
	"github.com/mattkuda/calendar-copilot/pkg/timeexpr"
	"github.com/mattkuda/calendar-copilot/pkg/xlog"
	"github.com/mattkuda/calendar-copilot/services/calendar"
	"github.com/mattkuda/calendar-copilot/services/intent"
)

// Request lifecycle states, used for logging the machine's progress.
type state string

const (
	stateReceived       state = "received"
	stateIntentResolved state = "intent_resolved"
	stateAuthorizing    state = "authorizing"
	stateExecuting      state = "executing"
	stateComposing      state = "composing"
	stateDone           state = "done"
	stateFailed         state = "failed"
)

// Disclosure sentences appended whenever sample data substitutes for the
// real backend. The system must never imply a real read or write happened
// when it did not.
const (
	readDisclosure  = " (Note: your calendar could not be reached, so this is sample data rather than your real schedule.)"
	writeDisclosure = " (Note: the event could not be saved to your calendar; this is a local preview only.)"
)

// IntentExtractor resolves an utterance into a structured intent.
type IntentExtractor interface {
	Extract(ctx context.Context, utterance string, now time.Time) (types.CalendarIntent, error)
}

// CredentialSource acquires a backend credential; *oauth.Provider satisfies it.
type CredentialSource interface {
	Acquire(ctx context.Context) (*oauth.Credential, error)
}

// SummaryComposer renders results as prose; *compose.Composer satisfies it.
type SummaryComposer interface {
	QuerySummary(ctx context.Context, events []types.CalendarEvent, prompt string, start, end time.Time) string
	CreationSummary(ctx context.Context, event types.CalendarEvent, prompt string) string
}

// SourceFactory builds the event source for a resolved credential. Tests
// swap this for a stub; production wires calendar.NewGateway.
type SourceFactory func(cred *oauth.Credential) calendar.EventSource

type Orchestrator struct {
	intents  IntentExtractor
	creds    CredentialSource
	sources  SourceFactory
	policy   *calendar.FallbackPolicy
	composer SummaryComposer

	// now is a clock hook for tests; defaults to time.Now.
	now func() time.Time
}

func New(intents IntentExtractor, creds CredentialSource, sources SourceFactory, policy *calendar.FallbackPolicy, composer SummaryComposer) *Orchestrator {
	return &Orchestrator{
		intents:  intents,
		creds:    creds,
		sources:  sources,
		policy:   policy,
		composer: composer,
		now:      time.Now,
	}
}

// Handle runs one prompt through the machine and returns the response plus
// the HTTP status the transport should use. Only validation and
// authentication failures elevate the status; every other failure mode
// still answers 200 with a human-readable response.
func (o *Orchestrator) Handle(ctx context.Context, req types.QueryRequest) (types.QueryResponse, int) {
	requestID := uuid.NewString()
	xlog.Info("query received", "id", requestID, "state", stateReceived)

	if req.Prompt == "" {
		return validationFailure("Prompt is required")
	}
	if req.CalendarID == "" {
		return validationFailure("Calendar ID is required. Please connect your Google Calendar first.")
	}

	now := o.now()
	resolved, err := o.intents.Extract(ctx, req.Prompt, now)
	if err != nil {
		return o.intentFailure(requestID, err)
	}
	xlog.Info("intent resolved", "id", requestID, "state", stateIntentResolved, "intent", resolved.Kind)

	switch resolved.Kind {
	case types.IntentUnknown:
		// No calendar access; the description is shown verbatim.
		xlog.Info("request complete", "id", requestID, "state", stateDone)
		return types.QueryResponse{
			Response: resolved.Description,
			Intent:   string(types.IntentUnknown),
		}, http.StatusOK

	case types.IntentGetEvents:
		return o.handleGetEvents(ctx, requestID, req, resolved, now)

	case types.IntentCreateEvent:
		return o.handleCreateEvent(ctx, requestID, req, resolved, now)

	default:
		xlog.Error("extractor produced unexpected intent kind", "id", requestID, "kind", resolved.Kind)
		return internalFailure()
	}
}

func (o *Orchestrator) handleGetEvents(ctx context.Context, requestID string, req types.QueryRequest, resolved types.CalendarIntent, now time.Time) (types.QueryResponse, int) {
	start, end, resp, status := resolveRange(resolved.ViewRange.StartExpr, resolved.ViewRange.EndExpr, now)
	if status != 0 {
		xlog.Info("request failed on date resolution", "id", requestID, "state", stateFailed)
		return resp, status
	}

	xlog.Debug("authorizing", "id", requestID, "state", stateAuthorizing)
	cred, err := o.creds.Acquire(ctx)
	if err != nil {
		return o.authFailure(requestID, err, types.IntentGetEvents)
	}

	xlog.Debug("listing events", "id", requestID, "state", stateExecuting, "strategy", cred.Strategy, "start", start, "end", end)
	result, err := o.policy.ListEvents(ctx, o.sources(cred), req.CalendarID, start, end)
	if err != nil {
		xlog.Error("event listing failed past degradation", "id", requestID, "state", stateFailed, "error", err)
		return internalFailure()
	}

	xlog.Debug("composing", "id", requestID, "state", stateComposing, "events", len(result.Events), "synthetic", result.Synthetic)
	response := o.composer.QuerySummary(ctx, result.Events, req.Prompt, start, end)
	if result.Synthetic {
		response += readDisclosure
	}

	xlog.Info("request complete", "id", requestID, "state", stateDone, "synthetic", result.Synthetic)
	return types.QueryResponse{
		Response: response,
		Intent:   string(types.IntentGetEvents),
		Events:   result.Events,
		MockData: result.Synthetic,
	}, http.StatusOK
}

func (o *Orchestrator) handleCreateEvent(ctx context.Context, requestID string, req types.QueryRequest, resolved types.CalendarIntent, now time.Time) (types.QueryResponse, int) {
	create := resolved.Create

	start, err := timeexpr.Resolve(create.StartExpr, now)
	if err != nil {
		xlog.Info("request failed on date resolution", "id", requestID, "state", stateFailed, "error", err)
		return clarificationFailure(create.StartExpr, types.IntentCreateEvent)
	}
	if create.DurationMinutes <= 0 {
		return validationFailure("The event duration must be a positive number of minutes.")
	}

	xlog.Debug("authorizing", "id", requestID, "state", stateAuthorizing)
	cred, err := o.creds.Acquire(ctx)
	if err != nil {
		return o.authFailure(requestID, err, types.IntentCreateEvent)
	}

	xlog.Debug("creating event", "id", requestID, "state", stateExecuting, "strategy", cred.Strategy, "start", start)
	result, err := o.policy.CreateEvent(ctx, o.sources(cred), req.CalendarID, calendar.CreateEventRequest{
		Title:           create.Title,
		Start:           start,
		DurationMinutes: create.DurationMinutes,
		Attendees:       create.Attendees,
		Description:     resolved.Description,
	})
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidDuration) {
			return validationFailure("The event duration must be a positive number of minutes.")
		}
		xlog.Error("event creation failed past degradation", "id", requestID, "state", stateFailed, "error", err)
		return internalFailure()
	}

	xlog.Debug("composing", "id", requestID, "state", stateComposing, "synthetic", result.Synthetic)
	response := o.composer.CreationSummary(ctx, result.Event, req.Prompt)
	if result.Synthetic {
		response += writeDisclosure
	}

	event := result.Event
	xlog.Info("request complete", "id", requestID, "state", stateDone, "synthetic", result.Synthetic)
	return types.QueryResponse{
		Response: response,
		Intent:   string(types.IntentCreateEvent),
		Event:    &event,
		MockData: result.Synthetic,
	}, http.StatusOK
}

// ExecuteList is the structured (non-LLM) read entry point used by the
// tool-execution and dashboard routes. Date expressions accept the same
// vocabulary as the conversational path.
func (o *Orchestrator) ExecuteList(ctx context.Context, calendarID, startExpr, endExpr string) (types.QueryResponse, int) {
	if calendarID == "" {
		return validationFailure("Calendar ID is required. Please connect your Google Calendar first.")
	}
	if startExpr == "" || endExpr == "" {
		return validationFailure("startDate and endDate are required")
	}

	now := o.now()
	start, end, resp, status := resolveRange(startExpr, endExpr, now)
	if status != 0 {
		return resp, status
	}

	cred, err := o.creds.Acquire(ctx)
	if err != nil {
		return o.authFailure("", err, types.IntentGetEvents)
	}

	result, err := o.policy.ListEvents(ctx, o.sources(cred), calendarID, start, end)
	if err != nil {
		return internalFailure()
	}

	response := fmt.Sprintf("Found %d event(s) between %s and %s.", len(result.Events), start.Format(time.RFC3339), end.Format(time.RFC3339))
	if result.Synthetic {
		response += readDisclosure
	}
	return types.QueryResponse{
		Response: response,
		Intent:   string(types.IntentGetEvents),
		Events:   result.Events,
		MockData: result.Synthetic,
	}, http.StatusOK
}

// ExecuteCreate is the structured (non-LLM) write entry point.
func (o *Orchestrator) ExecuteCreate(ctx context.Context, calendarID, title, datetime string, durationMinutes int, attendees []string) (types.QueryResponse, int) {
	if calendarID == "" {
		return validationFailure("Calendar ID is required. Please connect your Google Calendar first.")
	}
	if title == "" || datetime == "" {
		return validationFailure("title and datetime are required")
	}
	if durationMinutes <= 0 {
		return validationFailure("The event duration must be a positive number of minutes.")
	}

	start, err := timeexpr.Resolve(datetime, o.now())
	if err != nil {
		return clarificationFailure(datetime, types.IntentCreateEvent)
	}

	cred, err := o.creds.Acquire(ctx)
	if err != nil {
		return o.authFailure("", err, types.IntentCreateEvent)
	}

	result, err := o.policy.CreateEvent(ctx, o.sources(cred), calendarID, calendar.CreateEventRequest{
		Title:           title,
		Start:           start,
		DurationMinutes: durationMinutes,
		Attendees:       attendees,
	})
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidDuration) {
			return validationFailure("The event duration must be a positive number of minutes.")
		}
		return internalFailure()
	}

	response := fmt.Sprintf("Event %q created for %s.", result.Event.Title, result.Event.Start.Format(time.RFC1123))
	if result.Synthetic {
		response += writeDisclosure
	}
	event := result.Event
	return types.QueryResponse{
		Response: response,
		Intent:   string(types.IntentCreateEvent),
		Event:    &event,
		MockData: result.Synthetic,
	}, http.StatusOK
}

// resolveRange resolves both expressions and widens them to whole days so a
// single-day query covers the full calendar day. A zero status means
// success.
func resolveRange(startExpr, endExpr string, now time.Time) (start, end time.Time, resp types.QueryResponse, status int) {
	start, err := timeexpr.Resolve(startExpr, now)
	if err != nil {
		resp, status = clarificationFailure(startExpr, types.IntentGetEvents)
		return
	}
	end, err = timeexpr.Resolve(endExpr, now)
	if err != nil {
		resp, status = clarificationFailure(endExpr, types.IntentGetEvents)
		return
	}
	start = timeexpr.StartOfDay(start)
	end = timeexpr.EndOfDay(end)
	return start, end, types.QueryResponse{}, 0
}

func (o *Orchestrator) intentFailure(requestID string, err error) (types.QueryResponse, int) {
	// The raw error stays in the logs; users get remediation text only.
	xlog.Warn("intent resolution failed", "id", requestID, "state", stateFailed, "error", err)

	if errors.Is(err, intent.ErrMalformedIntent) {
		return types.QueryResponse{
			Response: "I couldn't pin down the date and time for that. Could you be more specific, including both a date and a time?",
			Intent:   string(types.IntentUnknown),
			Error:    types.ErrCodeMalformedIntent,
		}, http.StatusOK
	}
	return types.QueryResponse{
		Response: "Sorry, I couldn't process that request. Please try again later.",
		Intent:   string(types.IntentUnknown),
		Error:    types.ErrCodeIntentFailed,
	}, http.StatusOK
}

func (o *Orchestrator) authFailure(requestID string, err error, kind types.IntentKind) (types.QueryResponse, int) {
	xlog.Warn("no credential available", "id", requestID, "state", stateFailed, "error", err)
	return types.QueryResponse{
		Response: "I can't reach your calendar because no Google credential is set up. Connect your Google account or configure service credentials, then try again.",
		Intent:   string(kind),
		Error:    types.ErrCodeNotAuthenticated,
	}, http.StatusUnauthorized
}

func clarificationFailure(expr string, kind types.IntentKind) (types.QueryResponse, int) {
	return types.QueryResponse{
		Response: fmt.Sprintf("I couldn't understand the date %q. Try a phrase like \"today\" or \"next monday\", or an ISO date such as 2024-03-15.", expr),
		Intent:   string(kind),
		Error:    types.ErrCodeInvalidDate,
	}, http.StatusOK
}

func validationFailure(message string) (types.QueryResponse, int) {
	return types.QueryResponse{
		Response: message,
		Intent:   string(types.IntentUnknown),
		Error:    types.ErrCodeValidation,
	}, http.StatusBadRequest
}

func internalFailure() (types.QueryResponse, int) {
	return types.QueryResponse{
		Response: "Sorry, I couldn't process that request. Please try again later.",
		Intent:   string(types.IntentUnknown),
		Error:    types.ErrCodeInternal,
	}, http.StatusOK
}
