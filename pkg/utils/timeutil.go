package utils

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar-day layout used for buckets and filters.
const DateLayout = "2006-01-02"

// timestampLayouts lists the formats upstream services are known to emit.
// Layouts without a zone are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	DateLayout,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
}

// ParseTimestamp parses an upstream timestamp. The boolean is false when the
// value is empty or in no known layout.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DayKey returns the UTC calendar day of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DayStart parses a YYYY-MM-DD value as midnight UTC.
func DayStart(day string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(day))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DayEnd parses a YYYY-MM-DD value as 23:59:59 UTC of that day.
func DayEnd(day string) (time.Time, bool) {
	t, ok := DayStart(day)
	if !ok {
		return time.Time{}, false
	}
	return t.Add(23*time.Hour + 59*time.Minute + 59*time.Second), true
}

// FormatDuration formats a duration for CLI output, e.g. "1.2s" or "350ms".
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
