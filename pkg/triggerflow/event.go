package triggerflow

// EventContext is what the platform tells a supervisor about the current
// invocation. The supervisor only reads it.
type EventContext interface {
	// Phase is the lifecycle phase that fired.
	Phase() Phase

	// IsOuter reports whether this is the outermost invocation of the unit
	// of work, as opposed to one caused by another handler's changes.
	IsOuter() bool
}

// Event is a plain EventContext value.
type Event struct {
	On    Phase
	Outer bool
}

// Compile-time interface check.
var _ EventContext = Event{}

// Phase implements EventContext.
func (e Event) Phase() Phase { return e.On }

// IsOuter implements EventContext.
func (e Event) IsOuter() bool { return e.Outer }

// OuterEvent returns an Event for the outermost invocation of phase p.
func OuterEvent(p Phase) Event {
	return Event{On: p, Outer: true}
}

// NestedEvent returns an Event for a re-entrant invocation of phase p.
func NestedEvent(p Phase) Event {
	return Event{On: p}
}
