package wound

import (
	"context"

	"github.com/cory-johannsen/greatwound/internal/actor"
	"github.com/cory-johannsen/greatwound/internal/settings"
)

// DisplayName returns the name used for a in announcements. When a is an NPC
// and masking is enabled, the configured feature name stands in for the
// actor's real name so announcements do not spoil hidden identities.
func DisplayName(ctx context.Context, store settings.Store, a *actor.Actor) (string, error) {
	if !a.NPC {
		return a.Name, nil
	}
	masked, err := store.MaskNPCNames(ctx)
	if err != nil {
		return "", err
	}
	if !masked {
		return a.Name, nil
	}
	return store.FeatureName(ctx)
}
