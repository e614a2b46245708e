// Package wound implements the great-wound coordination protocol: threshold
// detection on proposed hit-point mutations, the authority rule that elects a
// single resolver among the connected nodes, delegation over the shared
// broadcast channel, the Constitution saving throw, and the at-most-once
// application of a drawn table result back onto the actor document.
//
// The central correctness property: for a single flagged event, the saving
// throw runs at most once and the result is applied at most once across the
// entire set of connected nodes, not per node. The protocol trades delivery
// strength for simplicity: a lost delegation silently means the wound is
// never resolved, and misconfigured permissions can yield zero or duplicate
// resolvers. Neither case is detected or reported.
package wound

import (
	"github.com/cory-johannsen/greatwound/internal/actor"
)

// Event is the transient data bundle for one flagged hit-point drop. It is
// never persisted; it is consumed synchronously by the confirmation gate.
//
// Invariant: Delta == PriorHP - ProposedHP.
type Event struct {
	Actor      *actor.Actor
	PriorHP    int
	ProposedHP int
	Delta      int
}

// Threshold returns the minimum single-mutation hit-point loss that qualifies
// as a great wound: ceil(maxHP / 2).
//
// Precondition: maxHP must be >= 1.
func Threshold(maxHP int) int {
	return (maxHP + 1) / 2
}

// Detect inspects a proposed mutation against the actor's current hit points
// and reports whether the drop qualifies as a great wound. A mutation that
// does not touch hit points has delta zero and never flags; healing never
// flags; an actor with no positive hit-point maximum never flags.
//
// Detect is a pure predicate plus derived data. Feature enablement is the
// caller's concern.
//
// Postcondition: the returned Event satisfies Delta == PriorHP - ProposedHP.
func Detect(a *actor.Actor, upd actor.Update) (Event, bool) {
	proposed := upd.HPOr(a.CurrentHP)
	event := Event{
		Actor:      a,
		PriorHP:    a.CurrentHP,
		ProposedHP: proposed,
		Delta:      a.CurrentHP - proposed,
	}
	if a.MaxHP <= 0 {
		return event, false
	}
	return event, event.Delta >= Threshold(a.MaxHP)
}
