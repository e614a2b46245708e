package wound

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/greatwound/internal/actor"
	"github.com/cory-johannsen/greatwound/internal/dice"
	"github.com/cory-johannsen/greatwound/internal/settings"
)

// Outcome classifies one completed saving throw. Produced by SaveResolver,
// consumed immediately by the applier; never persisted.
type Outcome struct {
	Actor  *actor.Actor
	Passed bool
	Roll   dice.RollResult
	DC     int
}

// SaveResolver performs the Constitution saving throw against the configured
// difficulty. The roll is a suspension point; the classification given the
// roll is pure: total >= difficulty passes, anything less fails. A missing
// difficulty setting resolves to settings.MissingSaveDC, forcing near-certain
// failure on a misconfigured table.
type SaveResolver struct {
	settings settings.Store
	roller   *dice.Roller
}

// NewSaveResolver creates a SaveResolver.
//
// Precondition: store and roller must be non-nil.
func NewSaveResolver(store settings.Store, roller *dice.Roller) *SaveResolver {
	return &SaveResolver{settings: store, roller: roller}
}

// Resolve rolls the actor's Constitution save and classifies the outcome.
//
// Postcondition: Returns an Outcome with Passed == (Roll.Total() >= DC), or a
// non-nil error when the setting read or the roll fails.
func (r *SaveResolver) Resolve(ctx context.Context, a *actor.Actor) (Outcome, error) {
	dc, err := r.settings.SaveDC(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("reading save difficulty: %w", err)
	}
	roll, err := a.RollSave(r.roller)
	if err != nil {
		return Outcome{}, fmt.Errorf("rolling save for %s: %w", a.Name, err)
	}
	return Outcome{
		Actor:  a,
		Passed: roll.Total() >= dc,
		Roll:   roll,
		DC:     dc,
	}, nil
}
