package triggerflow

import (
	"fmt"
	"strings"
)

// Phase is the lifecycle moment at which a handler runs.
type Phase int

const (
	// PhaseUnknown is the zero value. Runs with it dispatch nothing.
	PhaseUnknown Phase = iota
	BeforeInsert
	BeforeUpdate
	BeforeDelete
	AfterInsert
	AfterUpdate
	AfterDelete
	AfterUndelete
)

// Timing says whether a phase fires before or after the change is saved.
type Timing int

const (
	Before Timing = iota + 1
	After
)

// String returns "before" or "after".
func (t Timing) String() string {
	switch t {
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "unknown"
	}
}

// Operation is the kind of record change.
type Operation int

const (
	Insert Operation = iota + 1
	Update
	Delete
	Undelete
)

// String returns the lower-case operation name.
func (o Operation) String() string {
	switch o {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case Undelete:
		return "undelete"
	default:
		return "unknown"
	}
}

var phaseParts = map[Phase]struct {
	timing Timing
	op     Operation
}{
	BeforeInsert:  {Before, Insert},
	BeforeUpdate:  {Before, Update},
	BeforeDelete:  {Before, Delete},
	AfterInsert:   {After, Insert},
	AfterUpdate:   {After, Update},
	AfterDelete:   {After, Delete},
	AfterUndelete: {After, Undelete},
}

// Phases returns every valid phase in declaration order.
func Phases() []Phase {
	return []Phase{
		BeforeInsert, BeforeUpdate, BeforeDelete,
		AfterInsert, AfterUpdate, AfterDelete, AfterUndelete,
	}
}

// PhaseFor combines a timing and an operation. There is no before-undelete
// phase, so PhaseFor(Before, Undelete) reports false.
func PhaseFor(t Timing, op Operation) (Phase, bool) {
	for p, parts := range phaseParts {
		if parts.timing == t && parts.op == op {
			return p, true
		}
	}
	return PhaseUnknown, false
}

// Valid reports whether p is one of the seven lifecycle phases.
func (p Phase) Valid() bool {
	_, ok := phaseParts[p]
	return ok
}

// Timing returns whether p fires before or after the change.
func (p Phase) Timing() Timing {
	return phaseParts[p].timing
}

// Operation returns the change kind of p.
func (p Phase) Operation() Operation {
	return phaseParts[p].op
}

// String returns the snake_case name, e.g. "after_update".
func (p Phase) String() string {
	parts, ok := phaseParts[p]
	if !ok {
		return "unknown"
	}
	return parts.timing.String() + "_" + parts.op.String()
}

// ParsePhase accepts the names produced by String. Case, dashes and a
// missing underscore are tolerated: "AfterUpdate", "after-update" and
// "afterupdate" all parse.
func ParsePhase(s string) (Phase, error) {
	norm := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range Phases() {
		if strings.ReplaceAll(p.String(), "_", "") == norm {
			return p, nil
		}
	}
	return PhaseUnknown, fmt.Errorf("unknown phase %q", s)
}
