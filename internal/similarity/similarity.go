// Package similarity defines the nearest-neighbor search contract the
// correlation engine consumes. The engine only ever sees ranked neighbors;
// the vector store itself is an external collaborator.
package similarity

import (
	"context"
	"time"
)

// Neighbor is one historical alert returned by a similarity search.
type Neighbor struct {
	Rule      string
	Priority  string
	Source    string
	Output    string
	CreatedAt time.Time
	Certainty float64
}

// Document is an alert record pushed into the corpus after persistence.
type Document struct {
	Rule      string
	Priority  string
	Source    string
	Output    string
	CreatedAt time.Time
}

// Provider searches and grows the historical alert corpus.
type Provider interface {
	// Search returns up to limit neighbors for the query text, ranked by
	// certainty, dropping results below the threshold.
	Search(ctx context.Context, query string, limit int, certainty float64) ([]Neighbor, error)
	// Insert adds a stored alert to the corpus. Best effort; callers treat
	// failures as non-fatal.
	Insert(ctx context.Context, doc *Document) error
}
