// Package deliver persists enriched alerts and fans them out to
// notification channels.
package deliver

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/argus/internal/notify"
	"github.com/linnemanlabs/argus/internal/record"
	"github.com/linnemanlabs/argus/internal/similarity"
)

// Status describes the overall outcome of a delivery attempt.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusPartial      Status = "partial_success"
	StatusNoChannel    Status = "no_channel"
	StatusChannelError Status = "channel_error"
)

// Outcome records the result of one channel attempt.
type Outcome struct {
	Channel   string    `json:"channel"`
	OK        bool      `json:"ok"`
	Err       string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is the aggregate of a delivery fan-out.
type Result struct {
	Status   Status    `json:"status"`
	Outcomes []Outcome `json:"outcomes"`
}

// Coordinator persists records and notifies every configured channel.
type Coordinator struct {
	store     record.Store
	notifiers []notify.Notifier
	indexer   similarity.Provider // optional, best-effort
	logger    log.Logger
}

// New creates a Coordinator. indexer may be nil; logger may be nil.
func New(store record.Store, notifiers []notify.Notifier, indexer similarity.Provider, logger log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Coordinator{
		store:     store,
		notifiers: notifiers,
		indexer:   indexer,
		logger:    logger,
	}
}

// Deliver persists the record, then fans the message out to every channel.
// Persistence failure is the only fatal error; channel failures are folded
// into the result status. An empty record ID is assigned here.
func (c *Coordinator) Deliver(ctx context.Context, msg *notify.Message) (*Result, error) {
	r := msg.Record
	if r.ID == "" {
		r.ID = ulid.Make().String()
	}
	if r.Status == "" {
		r.Status = record.StatusUnread
	}

	if err := c.store.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("persist alert %s: %w", r.ID, err)
	}

	c.index(ctx, r)

	if len(c.notifiers) == 0 {
		return &Result{Status: StatusNoChannel}, nil
	}

	res := &Result{Outcomes: make([]Outcome, 0, len(c.notifiers))}
	failed := 0
	for _, n := range c.notifiers {
		out := Outcome{Channel: n.Name(), Timestamp: time.Now().UTC()}
		if err := n.Notify(ctx, msg); err != nil {
			out.Err = err.Error()
			failed++
			c.logger.Warn(ctx, "channel delivery failed",
				"channel", n.Name(), "alert_id", r.ID, "error", err.Error())
		} else {
			out.OK = true
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	switch {
	case failed == len(c.notifiers):
		res.Status = StatusChannelError
	case failed > 0 || msg.Err != nil:
		res.Status = StatusPartial
	default:
		res.Status = StatusSuccess
	}
	return res, nil
}

// index stores the alert in the similarity backend so later events can
// correlate against it. Failures are logged, never fatal.
func (c *Coordinator) index(ctx context.Context, r *record.Record) {
	if c.indexer == nil {
		return
	}
	doc := &similarity.Document{
		Rule:      r.Rule,
		Priority:  r.Priority,
		Source:    r.Source,
		Output:    r.Output,
		CreatedAt: r.Timestamp,
	}
	if err := c.indexer.Insert(ctx, doc); err != nil {
		c.logger.Warn(ctx, "similarity index insert failed",
			"alert_id", r.ID, "error", err.Error())
	}
}
