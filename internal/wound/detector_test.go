package wound_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/greatwound/internal/actor"
	"github.com/cory-johannsen/greatwound/internal/wound"
)

func intPtr(v int) *int { return &v }

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		max      int
		proposed *int
		flagged  bool
		delta    int
	}{
		{name: "exactly half of max flags", current: 40, max: 50, proposed: intPtr(15), flagged: true, delta: 25},
		{name: "large drop flags", current: 40, max: 50, proposed: intPtr(10), flagged: true, delta: 30},
		{name: "just below half does not flag", current: 40, max: 50, proposed: intPtr(16), flagged: false, delta: 24},
		{name: "moderate drop does not flag", current: 40, max: 50, proposed: intPtr(25), flagged: false, delta: 15},
		{name: "odd max rounds the threshold up", current: 30, max: 51, proposed: intPtr(4), flagged: true, delta: 26},
		{name: "odd max, one short of threshold", current: 30, max: 51, proposed: intPtr(5), flagged: false, delta: 25},
		{name: "healing never flags", current: 10, max: 50, proposed: intPtr(40), flagged: false, delta: -30},
		{name: "untouched resource never flags", current: 40, max: 50, proposed: nil, flagged: false, delta: 0},
		{name: "zero max never flags", current: 40, max: 0, proposed: intPtr(0), flagged: false, delta: 40},
		{name: "negative max never flags", current: 40, max: -5, proposed: intPtr(0), flagged: false, delta: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &actor.Actor{ID: "a1", Name: "Vex", CurrentHP: tt.current, MaxHP: tt.max}
			event, flagged := wound.Detect(a, actor.Update{HP: tt.proposed})

			assert.Equal(t, tt.flagged, flagged)
			assert.Equal(t, tt.delta, event.Delta)
			assert.Equal(t, tt.current, event.PriorHP)
			assert.Equal(t, event.PriorHP-event.Delta, event.ProposedHP)
		})
	}
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 25, wound.Threshold(50))
	assert.Equal(t, 26, wound.Threshold(51))
	assert.Equal(t, 1, wound.Threshold(1))
}

func TestDetect_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		current := rapid.IntRange(0, 300).Draw(t, "current")
		max := rapid.IntRange(1, 300).Draw(t, "max")
		proposed := rapid.IntRange(-100, 300).Draw(t, "proposed")

		a := &actor.Actor{ID: "a1", Name: "Vex", CurrentHP: current, MaxHP: max}
		event, flagged := wound.Detect(a, actor.Update{HP: &proposed})

		assert.Equal(t, current-proposed, event.Delta)
		assert.Equal(t, current-proposed >= wound.Threshold(max), flagged)
		if proposed >= current {
			assert.False(t, flagged, "healing or no-op must never flag")
		}
	})
}
