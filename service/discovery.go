package service

import (
	"sync"

	"github.com/findrandomevents/harvest"
)

// DiscoverySet records every event ID seen during a run. It is safe for
// concurrent use.
type DiscoverySet struct {
	mu   sync.Mutex
	seen map[harvest.EventID]struct{}
}

// NewDiscoverySet returns an empty DiscoverySet.
func NewDiscoverySet() *DiscoverySet {
	return &DiscoverySet{seen: make(map[harvest.EventID]struct{})}
}

// Claim adds id to the set and reports whether it was new. Exactly one
// caller claims each ID, however many sources rediscover it.
func (d *DiscoverySet) Claim(id harvest.EventID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

// Len is the number of IDs claimed so far.
func (d *DiscoverySet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Results collects harvested events in completion order. Tasks only get to
// append; the orchestrator reads the collection once every task is done.
type Results struct {
	mu     sync.Mutex
	events []harvest.EventRecord
}

// Append adds event to the collection.
func (r *Results) Append(event harvest.EventRecord) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of the collected events.
func (r *Results) Events() []harvest.EventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]harvest.EventRecord, len(r.events))
	copy(events, r.events)
	return events
}
