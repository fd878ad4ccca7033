package handraise

import (
	"strconv"
	"time"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders a raise time as ISO-8601 with millisecond
// precision, the wire format peers expect in the handRaised attribute.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// ParseTimestamp turns a raw attribute value into unix milliseconds.
// ISO-8601 is tried first; older peers send a bare integer epoch value
// (seconds or milliseconds). Anything unparseable degrades to 0 so the
// update is still accepted, just with default ordering.
func ParseTimestamp(s string) int64 {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UnixMilli()
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		// Heuristic: values this large are already milliseconds.
		if v > 1_000_000_000_000 {
			return v
		}
		return v * 1000
	}
	return 0
}
