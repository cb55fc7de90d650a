// Package timeexpr resolves date expressions to absolute instants. It
// understands a small closed vocabulary of relative phrases ("today",
// "tomorrow", "next week", "next monday") plus ISO-8601 literals; anything
// else is rejected with an InvalidExpressionError the caller can surface to
// the user.
package timeexpr

import (
	"fmt"
	"strings"
	"time"
)

// InvalidExpressionError reports a date expression that is neither a
// recognized relative phrase nor a parseable ISO-8601 date or date-time.
type InvalidExpressionError struct {
	Expr string
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("could not parse date expression %q: expected a phrase like \"today\" or an ISO date (YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS)", e.Expr)
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Naive layouts are interpreted in now's location.
var layouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Resolve converts expr to an absolute instant relative to now. Relative
// phrases keep now's time of day; "next <weekday>" is strictly in the
// future, so asking for next monday on a monday lands a full week ahead.
func Resolve(expr string, now time.Time) (time.Time, error) {
	normalized := strings.ToLower(strings.TrimSpace(expr))
	if normalized == "" {
		return time.Time{}, &InvalidExpressionError{Expr: expr}
	}

	switch normalized {
	case "today":
		return now, nil
	case "tomorrow":
		return now.AddDate(0, 0, 1), nil
	case "next week":
		return now.AddDate(0, 0, 7), nil
	}

	if dayName, ok := strings.CutPrefix(normalized, "next "); ok {
		if target, known := weekdays[dayName]; known {
			days := (int(target) - int(now.Weekday()) + 7) % 7
			if days == 0 {
				days = 7
			}
			return now.AddDate(0, 0, days), nil
		}
	}

	trimmed := strings.TrimSpace(expr)
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, trimmed, now.Location()); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &InvalidExpressionError{Expr: expr}
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last represented millisecond of t's calendar day,
// so a range ending "today" covers the whole day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Millisecond)
}
