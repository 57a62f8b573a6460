// Package notify defines the delivery channel abstraction for enriched
// alerts.
package notify

import (
	"context"

	"github.com/linnemanlabs/argus/internal/correlate"
	"github.com/linnemanlabs/argus/internal/record"
)

// Message carries an enriched alert to a channel. Analysis is nil when
// enrichment did not run, and Err holds the enrichment failure when the
// pipeline degraded.
type Message struct {
	Record   *record.Record
	Analysis *correlate.Context
	Err      error
}

// Notifier delivers a message to a single external channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg *Message) error
}
