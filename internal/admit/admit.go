// Package admit decides whether an inbound alert enters the pipeline at all:
// a priority/age ingest filter followed by windowed deduplication.
package admit

import (
	"time"

	"github.com/linnemanlabs/argus/internal/alert"
)

// Reason codes for skipped alerts.
const (
	ReasonPriorityTooLow = "priority_too_low"
	ReasonTooOld         = "too_old"
	ReasonDuplicate      = "duplicate"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Accept bool
	Reason string

	// UnknownPriority is set when the event priority was not on the scale
	// and the check failed open. Callers log it for triage.
	UnknownPriority bool
}

// Filter applies priority and age admission control. It is a pure function
// of (event, config, now) and keeps no state.
type Filter struct {
	minPriority   string
	maxAgeMinutes int
}

// NewFilter builds a filter. maxAgeMinutes <= 0 disables the age check.
func NewFilter(minPriority string, maxAgeMinutes int) *Filter {
	return &Filter{minPriority: minPriority, maxAgeMinutes: maxAgeMinutes}
}

// Check evaluates the event against the configured minimum priority and
// maximum age. Unrecognized priorities and unparseable timestamps fail open.
func (f *Filter) Check(ev *alert.Event, now time.Time) Decision {
	minRank, minOK := alert.Rank(f.minPriority)
	evRank, evOK := alert.Rank(ev.Priority)

	if !evOK {
		// fail open, but surface it so the caller can log
		return f.checkAge(ev, now, true)
	}
	if minOK && evRank < minRank {
		return Decision{Reason: ReasonPriorityTooLow}
	}
	return f.checkAge(ev, now, false)
}

func (f *Filter) checkAge(ev *alert.Event, now time.Time, unknownPriority bool) Decision {
	if f.maxAgeMinutes <= 0 {
		return Decision{Accept: true, UnknownPriority: unknownPriority}
	}
	ts, ok := alert.ParseTime(ev.Time)
	if !ok {
		// malformed or missing timestamp fails open
		return Decision{Accept: true, UnknownPriority: unknownPriority}
	}
	if now.Sub(ts) > time.Duration(f.maxAgeMinutes)*time.Minute {
		return Decision{Reason: ReasonTooOld, UnknownPriority: unknownPriority}
	}
	return Decision{Accept: true, UnknownPriority: unknownPriority}
}
