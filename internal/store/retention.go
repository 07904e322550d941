package store

import (
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
)

// DefaultMaxAge is how long events are retained when no MaxAge is set.
const DefaultMaxAge = 7 * 24 * time.Hour

// Retention decides which events are too old to keep.
type Retention struct {
	MaxAge time.Duration
	Now    func() time.Time
}

func (r Retention) cutoff() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	age := r.MaxAge
	if age <= 0 {
		age = DefaultMaxAge
	}
	return now().Add(-age)
}

// Expired reports whether an event stamped ts falls before the cutoff.
// Unparsable timestamps never expire.
func (r Retention) Expired(ts string) bool {
	t, ok := event.ParseTimestamp(ts)
	if !ok {
		return false
	}
	return t.Before(r.cutoff())
}

// Split partitions items into those to keep and those past the cutoff,
// preserving order in both.
func Split[T Record](r Retention, items []T) (kept, removed []T) {
	cut := r.cutoff()
	kept = make([]T, 0, len(items))
	for _, it := range items {
		t, ok := event.ParseTimestamp(it.EventTime())
		if ok && t.Before(cut) {
			removed = append(removed, it)
			continue
		}
		kept = append(kept, it)
	}
	return kept, removed
}
