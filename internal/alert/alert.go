// Package alert defines the inbound security event model and the fixed
// priority scale shared by the admission filters and the correlation engine.
package alert

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is one inbound security alert. It lives for a single pipeline pass.
type Event struct {
	Rule         string         `json:"rule"`
	Priority     string         `json:"priority"`
	Output       string         `json:"output"`
	Time         string         `json:"time"`
	Source       string         `json:"source"`
	OutputFields map[string]any `json:"output_fields"`
}

// priorityOrder is the fixed 8-level scale, lowest first. Comparisons always
// use rank within this slice, never lexical order.
var priorityOrder = []string{
	"debug",
	"informational",
	"notice",
	"warning",
	"error",
	"critical",
	"alert",
	"emergency",
}

// Rank returns the position of priority on the 8-level scale and whether the
// string is a recognized priority. Matching is case-insensitive.
func Rank(priority string) (int, bool) {
	p := strings.ToLower(strings.TrimSpace(priority))
	for i, name := range priorityOrder {
		if name == p {
			return i, true
		}
	}
	return 0, false
}

// Weight maps a priority onto the 2..16 linear scale used for risk scoring.
// Unrecognized priorities weigh the same as the lowest level.
func Weight(priority string) float64 {
	rank, ok := Rank(priority)
	if !ok {
		return 2
	}
	return float64(rank*2 + 2)
}

// Priorities returns the scale in ascending order.
func Priorities() []string {
	out := make([]string, len(priorityOrder))
	copy(out, priorityOrder)
	return out
}

// ErrInvalidPayload marks a webhook body that cannot enter the pipeline.
var ErrInvalidPayload = errors.New("invalid alert payload")

// Decode parses and validates a webhook body. The payload must be well-formed
// JSON carrying at least rule, priority, and output.
func Decode(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if ev.Rule == "" || ev.Priority == "" || ev.Output == "" {
		return nil, fmt.Errorf("%w: rule, priority, and output are required", ErrInvalidPayload)
	}
	return &ev, nil
}

// ParseTime parses the event timestamp as RFC3339, assuming UTC when the
// value carries no zone. The second return is false for malformed or missing
// timestamps; callers treat that as fail-open.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, true
	}
	// no zone suffix: assume UTC
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05", raw, time.UTC); err == nil {
		return ts, true
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", raw, time.UTC); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
