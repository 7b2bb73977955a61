// Package loopcount holds the per-handler recursion counters of a unit of work.
//
// Each handler identity owns one Counter. The count only ever goes up within
// a unit of work; Reset zeroes every count when the unit ends. Limits belong
// to the identity rather than the unit, so Reset keeps them.
package loopcount

import (
	"github.com/randalmurphal/triggerflow/pkg/triggerflow/registry"
)

// Counter is the loop count and limit of one handler identity.
// A Max of 0 means unlimited.
type Counter struct {
	Count int
	Max   int
}

// Exceeded reports whether the count is above a configured limit.
func (c Counter) Exceeded() bool {
	return c.Max > 0 && c.Count > c.Max
}

// Entry is a named Counter, as returned by Counters.Snapshot.
type Entry struct {
	Identity string
	Counter
}

// Counters maps handler identities to their counters.
type Counters struct {
	entries *registry.Registry[string, Counter]
}

// New returns an empty set of counters.
func New() *Counters {
	return &Counters{entries: registry.New[string, Counter]()}
}

// Get returns the counter for id.
func (c *Counters) Get(id string) (Counter, bool) {
	return c.entries.Get(id)
}

// Ensure creates the counter for id with the given max if it does not exist
// yet. An existing counter is returned unchanged.
func (c *Counters) Ensure(id string, limit int) Counter {
	return c.entries.GetOrCreate(id, func() Counter {
		return Counter{Max: normalize(limit)}
	})
}

// Increment adds one to the count of id and returns the updated counter.
func (c *Counters) Increment(id string) Counter {
	return c.entries.Update(id, func(old Counter, _ bool) Counter {
		old.Count++
		return old
	})
}

// SetMax sets the limit for id. Values <= 0 clear the limit.
func (c *Counters) SetMax(id string, limit int) {
	c.entries.Update(id, func(old Counter, _ bool) Counter {
		old.Max = normalize(limit)
		return old
	})
}

// ClearMax removes the limit for id, keeping its count.
func (c *Counters) ClearMax(id string) {
	c.SetMax(id, 0)
}

// Reset zeroes every count and keeps each identity's Max.
func (c *Counters) Reset() {
	c.entries.Locked(func(tx *registry.Tx[string, Counter]) {
		for _, id := range tx.Keys() {
			ctr, _ := tx.Get(id)
			tx.Register(id, Counter{Max: ctr.Max})
		}
	})
}

// Len returns the number of identities with a counter.
func (c *Counters) Len() int {
	return c.entries.Len()
}

// Snapshot returns every counter in the order identities were first seen.
func (c *Counters) Snapshot() []Entry {
	out := make([]Entry, 0, c.entries.Len())
	c.entries.Range(func(id string, ctr Counter) bool {
		out = append(out, Entry{Identity: id, Counter: ctr})
		return true
	})
	return out
}

func normalize(limit int) int {
	if limit < 0 {
		return 0
	}
	return limit
}
