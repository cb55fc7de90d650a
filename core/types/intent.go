package types

// IntentKind tags the structured interpretation of a user's utterance.
type IntentKind string

const (
	IntentGetEvents   IntentKind = "get_events"
	IntentCreateEvent IntentKind = "create_event"
	IntentUnknown     IntentKind = "unknown"
)

// ViewRange asks for events between two date expressions. The expressions
// are still unresolved natural-language or ISO strings at this point.
type ViewRange struct {
	StartExpr string
	EndExpr   string
}

// CreateEvent asks for a new event. StartExpr must be a full date-time
// expression; the extractor rejects bare times-of-day before this value is
// ever built.
type CreateEvent struct {
	Title           string
	StartExpr       string
	DurationMinutes int
	Attendees       []string
}

// CalendarIntent is the tagged union produced by the intent extractor and
// consumed once by the orchestrator. Exactly one of ViewRange and Create is
// set, matching Kind; Description is always present and is shown to the
// user verbatim when Kind is IntentUnknown.
type CalendarIntent struct {
	Kind        IntentKind
	ViewRange   *ViewRange
	Create      *CreateEvent
	Description string
}
