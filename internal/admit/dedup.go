package admit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// dedupKeyOutputLen is how much of the alert output participates in the
// dedup key. Matches the upstream event format where the leading output text
// identifies the event and the tail carries variable fields.
const dedupKeyOutputLen = 50

// defaultDedupCapacity bounds the number of live dedup entries.
const defaultDedupCapacity = 8192

// DedupEntry tracks occurrences of one dedup key inside the window.
type DedupEntry struct {
	Key       string
	Count     int
	FirstSeen time.Time
	LastSeen  time.Time
}

// Deduper suppresses repeat alerts sharing a key within a time window.
// Entries expire with the window, so a key seen again after expiry starts a
// fresh count. Safe for concurrent callers.
type Deduper struct {
	enabled bool
	window  time.Duration

	mu      sync.Mutex
	entries *expirable.LRU[string, *DedupEntry]
}

// NewDeduper builds a deduper with the given window. A disabled deduper
// accepts everything.
func NewDeduper(enabled bool, window time.Duration) *Deduper {
	d := &Deduper{enabled: enabled, window: window}
	if enabled {
		d.entries = expirable.NewLRU[string, *DedupEntry](defaultDedupCapacity, nil, window)
	}
	return d
}

// Key derives the dedup key from rule and the leading output text.
func Key(rule, output string) string {
	if len(output) > dedupKeyOutputLen {
		output = output[:dedupKeyOutputLen]
	}
	return rule + "-" + output
}

// Observe records one occurrence of (rule, output) and reports whether the
// alert should proceed. The second return is the running occurrence count for
// the key. The read-modify-write per key is atomic under a single lock.
func (d *Deduper) Observe(rule, output string, now time.Time) (Decision, int) {
	if !d.enabled {
		return Decision{Accept: true}, 0
	}

	key := Key(rule, output)

	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.entries.Get(key); ok {
		// Mutating through the pointer keeps the entry's expiry anchored at
		// first occurrence; a re-Add would slide the window.
		e.Count++
		e.LastSeen = now
		return Decision{Reason: ReasonDuplicate}, e.Count
	}

	d.entries.Add(key, &DedupEntry{
		Key:       key,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	})
	return Decision{Accept: true}, 1
}

// Len reports the number of live dedup entries.
func (d *Deduper) Len() int {
	if !d.enabled {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries.Len()
}
