package utils

import "time"

// TimestampLayout is the ISO-8601 layout used on the wire, with millisecond
// precision in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// parseTimestamp parses any RFC3339 timestamp, with or without fractional seconds
func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// ParseTimestampOr parses s and returns fallback when s is empty or invalid
func ParseTimestampOr(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := parseTimestamp(s)
	if err != nil {
		return fallback
	}
	return t
}
