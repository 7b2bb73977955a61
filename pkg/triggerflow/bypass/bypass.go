// Package bypass tracks which handlers are suppressed for the rest of a unit
// of work.
//
// A Registry holds an ordered set of suppressed handler identities and one
// global flag that suppresses every handler. Both are scoped to a single unit
// of work: create one Registry per unit (or call ClearAllBypasses between
// units) and never share it across concurrent units.
//
//	reg := bypass.New()
//	reg.Bypass("AccountHandler")
//	reg.IsBypassed("AccountHandler") // true
//	reg.IsBypassed("LeadHandler")    // false
//
//	reg.SetGlobalBypass()
//	reg.IsBypassed("LeadHandler")    // true
//	reg.BypassList()                 // [AccountHandler bypassAll]
//
// To suppress a handler temporarily and put it back the way it was:
//
//	prev := reg.IsBypassed("AccountHandler")
//	reg.Bypass("AccountHandler")
//	// ... work that must not fire AccountHandler ...
//	reg.SetBypass("AccountHandler", prev)
//
// Suppress wraps that pattern.
package bypass

import (
	"slices"
	"strings"
	"sync"

	"github.com/randalmurphal/triggerflow/pkg/triggerflow/registry"
)

// AllToken is the synthetic entry BypassList reports when the global flag is set.
const AllToken = "bypassAll"

// ValidID reports whether id can be suppressed by name. Blank identities and
// AllToken are rejected; AllToken in BypassList always means the global flag.
func ValidID(id string) bool {
	return strings.TrimSpace(id) != "" && id != AllToken
}

// Registry is the set of suppressed handler identities plus the global flag.
// The zero value is not usable; call New.
type Registry struct {
	mu     sync.RWMutex
	ids    *registry.Registry[string, struct{}]
	global bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{ids: registry.New[string, struct{}]()}
}

// Bypass suppresses id. Suppressing an already suppressed id is a no-op and
// does not change its position in BypassList. Ids that fail ValidID are
// ignored; use SetGlobalBypass to suppress everything.
func (r *Registry) Bypass(id string) {
	if !ValidID(id) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids.Register(id, struct{}{})
}

// ClearBypass lifts the suppression of id. No-op if id is not suppressed.
func (r *Registry) ClearBypass(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids.Delete(id)
}

// IsBypassed reports whether id is suppressed, either by name or because the
// global flag is set.
func (r *Registry) IsBypassed(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.global || r.ids.Has(id)
}

// SetBypass suppresses id when desired is true and lifts it otherwise.
// It is the restore half of a snapshot taken with IsBypassed.
func (r *Registry) SetBypass(id string, desired bool) {
	if desired {
		r.Bypass(id)
		return
	}
	r.ClearBypass(id)
}

// SetGlobalBypass suppresses every handler. Per-identity entries are untouched.
func (r *Registry) SetGlobalBypass() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = true
}

// ClearGlobalBypass lifts the global suppression. Per-identity entries keep
// whatever state they had.
func (r *Registry) ClearGlobalBypass() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = false
}

// GlobalBypass reports whether the global flag is set.
func (r *Registry) GlobalBypass() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.global
}

// ClearAllBypasses empties the suppressed set and clears the global flag in
// one step.
func (r *Registry) ClearAllBypasses() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids.Clear()
	r.global = false
}

// BypassList returns the suppressed identities in the order they were
// bypassed, followed by AllToken when the global flag is set.
func (r *Registry) BypassList() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.ids.Keys()
	if r.global {
		list = append(list, AllToken)
	}
	return list
}

// Len returns the number of individually suppressed identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ids.Len()
}

// BypassAll captures the current state and then sets the global flag.
// Pass the returned snapshot to Restore to undo exactly this call.
func (r *Registry) BypassAll() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.snapshotLocked()
	r.global = true
	return snap
}

// Snapshot captures the current state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() Snapshot {
	return Snapshot{ids: r.ids.Keys(), global: r.global}
}

// Restore replaces the registry state with snap, including the order of
// suppressed identities.
func (r *Registry) Restore(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids.Locked(func(tx *registry.Tx[string, struct{}]) {
		tx.Clear()
		for _, id := range snap.ids {
			tx.Register(id, struct{}{})
		}
	})
	r.global = snap.global
}

// Suppress bypasses ids while fn runs and then restores each id to the
// state it had before, whether fn returns normally, fails or panics.
// The global flag is not touched.
func (r *Registry) Suppress(fn func() error, ids ...string) error {
	prev := make([]bool, len(ids))
	r.mu.Lock()
	for i, id := range ids {
		if !ValidID(id) {
			continue
		}
		prev[i] = r.ids.Has(id)
		r.ids.Register(id, struct{}{})
	}
	r.mu.Unlock()

	defer func() {
		// Restore in reverse so a duplicated id ends in its original state.
		for i := len(ids) - 1; i >= 0; i-- {
			r.SetBypass(ids[i], prev[i])
		}
	}()
	return fn()
}

// Snapshot is an immutable copy of a Registry's state.
type Snapshot struct {
	ids    []string
	global bool
}

// IDs returns the individually suppressed identities in order.
func (s Snapshot) IDs() []string {
	return slices.Clone(s.ids)
}

// Global reports whether the global flag was set.
func (s Snapshot) Global() bool {
	return s.global
}

// List returns the snapshot in BypassList form.
func (s Snapshot) List() []string {
	list := slices.Clone(s.ids)
	if s.global {
		list = append(list, AllToken)
	}
	return list
}
