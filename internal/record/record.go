// Package record defines the persisted alert entity and its store contract.
package record

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/argus/internal/explain"
)

// Status is the read-state of a stored alert.
type Status string

const (
	StatusUnread    Status = "unread"
	StatusRead      Status = "read"
	StatusDismissed Status = "dismissed"
)

// ValidStatus reports whether s is one of the three record statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusUnread, StatusRead, StatusDismissed:
		return true
	}
	return false
}

// Record is one persisted alert. The ID is assigned before insert and stays
// stable for the record's lifetime; the record is mutated only via status
// updates or reprocessing.
type Record struct {
	ID          string               `json:"id"`
	Timestamp   time.Time            `json:"timestamp"`
	Rule        string               `json:"rule"`
	Priority    string               `json:"priority"`
	Output      string               `json:"output"`
	Source      string               `json:"source"`
	Fields      map[string]any       `json:"fields,omitempty"`
	Explanation *explain.Explanation `json:"explanation,omitempty"`
	Processed   bool                 `json:"processed"`
	Status      Status               `json:"status"`
}

// Filter narrows a List call. Zero values mean "any".
type Filter struct {
	Status   Status
	Priority string
	Rule     string
	Limit    int
}

// Stats summarizes stored alerts for the statistics query.
type Stats struct {
	Total      int            `json:"total"`
	ByPriority map[string]int `json:"by_priority"`
	ByRule     map[string]int `json:"by_rule"`
	Since      time.Time      `json:"since,omitzero"`
}

// ErrNotFound is returned for operations against an unknown record id.
var ErrNotFound = fmt.Errorf("alert record not found")

// ErrDuplicateID is returned when inserting a record whose id already exists.
var ErrDuplicateID = fmt.Errorf("alert record id already exists")

// Store is the persistence interface for alert records.
type Store interface {
	// Insert creates the record. Inserting an existing id is an error.
	Insert(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, bool, error)
	// SetExplanation replaces the explanation and processed flag for an
	// existing record. The record's other fields are untouched.
	SetExplanation(ctx context.Context, id string, ex *explain.Explanation, processed bool) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	// BulkUpdateStatus updates every listed id and returns how many rows
	// matched.
	BulkUpdateStatus(ctx context.Context, ids []string, status Status) (int, error)
	List(ctx context.Context, f Filter) ([]*Record, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}
