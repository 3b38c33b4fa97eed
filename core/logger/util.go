package logger

import (
	"strings"
	"time"
)

// Status renders err as the "status" attribute: "fail" or "ok".
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	return "fail"
}

// Took is the time since start, rounded for logging.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to whole milliseconds; non-positive values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values with ", " and reports whether
// some were left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	switch {
	case limit <= 0:
		return "", len(values) > 0
	case len(values) > limit:
		return strings.Join(values[:limit], ", "), true
	}
	return strings.Join(values, ", "), false
}
