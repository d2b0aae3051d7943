package event

import "time"

// QueryDateLayout is the date layout used for the start_date__gt filter
const QueryDateLayout = "2006-01-02"

// timeLayouts are the timestamp shapes seen in OCD start_date/end_date values
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	QueryDateLayout,
}

// FormatQueryDate formats t as the date used in listing queries (e.g. "2026-10-19")
func FormatQueryDate(t time.Time) string {
	return t.Format(QueryDateLayout)
}

// ParseTime attempts to parse an ISO-8601 timestamp from the upstream API.
// Returns time.Time{} (zero value) if parsing fails.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

// Start returns the parsed start time, or the zero time if it cannot be parsed
func (e *Event) Start() time.Time {
	return ParseTime(e.StartTime)
}

// End returns the parsed end time, or the zero time if it is empty or unparseable
func (e *Event) End() time.Time {
	return ParseTime(e.EndTime)
}

// IsUpcoming checks if an event starts in the future.
// Returns true if the date cannot be parsed (safer default).
func (e *Event) IsUpcoming(now time.Time) bool {
	start := e.Start()
	if start.IsZero() {
		return true
	}
	return start.After(now)
}

// IsWithinDays checks if an event starts within N days from now.
// Returns true if days <= 0 (feature disabled) or date is unparseable.
func (e *Event) IsWithinDays(now time.Time, days int) bool {
	if days <= 0 {
		return true
	}
	start := e.Start()
	if start.IsZero() {
		return true
	}
	cutoff := now.AddDate(0, 0, days)
	return start.After(now) && start.Before(cutoff)
}
