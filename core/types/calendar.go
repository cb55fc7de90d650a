// Package types holds the domain model shared by the calendar services,
// the orchestrator and the web API.
package types

import "time"

// CalendarEvent is one event on the backend calendar, normalized from the
// provider's wire representation. Values are never mutated in place; the
// gateway builds a fresh value on every read or write.
type CalendarEvent struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TimeZone    string    `json:"timeZone,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
}

// CalendarQueryResult carries the outcome of a read or write against an
// event source. Synthetic results are shaped exactly like real ones so the
// composition path has no special cases.
type CalendarQueryResult struct {
	Events         []CalendarEvent
	Synthetic      bool
	DegradedReason string
}

// QueryRequest is the orchestrator's entry point payload.
type QueryRequest struct {
	Prompt     string `json:"prompt"`
	CalendarID string `json:"calendarId"`
}

// QueryResponse is the JSON shape returned for every request, including
// failures. Response is always a human-readable string; Error carries a
// machine-readable code when something went wrong.
type QueryResponse struct {
	Response string          `json:"response"`
	Intent   string          `json:"intent"`
	Events   []CalendarEvent `json:"events,omitempty"`
	Event    *CalendarEvent  `json:"event,omitempty"`
	MockData bool            `json:"mockData,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Error codes used in QueryResponse.Error.
const (
	ErrCodeValidation       = "validation_error"
	ErrCodeNotAuthenticated = "not_authenticated"
	ErrCodeIntentFailed     = "intent_extraction_failed"
	ErrCodeMalformedIntent  = "malformed_intent"
	ErrCodeInvalidDate      = "invalid_date_expression"
	ErrCodeInternal         = "internal_error"
)
