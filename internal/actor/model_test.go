package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/greatwound/internal/dice"
)

type fixedSource struct{ value int }

func (s fixedSource) Intn(n int) int { return s.value % n }

func playerRoles(gmIDs ...string) func(string) Role {
	gms := make(map[string]bool, len(gmIDs))
	for _, id := range gmIDs {
		gms[id] = true
	}
	return func(userID string) Role {
		if gms[userID] {
			return RoleGameMaster
		}
		return RolePlayer
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("gamemaster")
	require.NoError(t, err)
	assert.Equal(t, RoleGameMaster, r)

	r, err = ParseRole("player")
	require.NoError(t, err)
	assert.Equal(t, RolePlayer, r)

	_, err = ParseRole("spectator")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	a := New("Brynna", 50, 14, false)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, 50, a.CurrentHP)
	assert.Equal(t, 50, a.MaxHP)
	assert.False(t, a.NPC)
	assert.NotNil(t, a.Permissions)
}

func TestSaveModifier(t *testing.T) {
	tests := []struct {
		con  int
		want int
	}{
		{10, 0},
		{14, 2},
		{15, 2},
		{16, 3},
		{8, -1},
	}
	for _, tt := range tests {
		a := New("x", 10, tt.con, false)
		assert.Equal(t, tt.want, a.SaveModifier(), "con %d", tt.con)
	}
}

func TestHasPlayerOwner(t *testing.T) {
	a := New("Brynna", 50, 14, false)
	roleOf := playerRoles("user-gm")

	assert.False(t, a.HasPlayerOwner(roleOf), "no permissions at all")

	a.Permissions["user-alice"] = PermissionObserver
	assert.False(t, a.HasPlayerOwner(roleOf), "observer is not an owner")

	a.Permissions["user-gm"] = PermissionOwner
	assert.False(t, a.HasPlayerOwner(roleOf), "a game master owner is not a player owner")

	a.Permissions["user-alice"] = PermissionOwner
	assert.True(t, a.HasPlayerOwner(roleOf))
}

func TestRollSave(t *testing.T) {
	a := New("Brynna", 50, 14, false) // modifier +2
	roller := dice.NewLoggedRoller(fixedSource{value: 9}, zap.NewNop())

	result, err := a.RollSave(roller)
	require.NoError(t, err)
	assert.Equal(t, 12, result.Total(), "die shows 10, +2 modifier")
	assert.Equal(t, "1d20+2", result.Expression)
}

func TestAttachItem_CopiesWithFreshID(t *testing.T) {
	a := New("Brynna", 50, 14, false)
	item := Item{ID: "itm-lingering-injury", Name: "Lingering Injury"}

	attached := a.AttachItem(item)
	require.Len(t, a.Items, 1)
	assert.NotEqual(t, item.ID, attached.ID)
	assert.Equal(t, item.Name, attached.Name)

	// A second attachment of the same source item is a second embedded copy.
	a.AttachItem(item)
	assert.Len(t, a.Items, 2)
}

func TestAttachEffect_CopiesWithFreshID(t *testing.T) {
	a := New("Brynna", 50, 14, false)
	effect := Effect{ID: "eff-limp", Name: "Limp"}

	attached := a.AttachEffect(effect)
	require.Len(t, a.Effects, 1)
	assert.NotEqual(t, effect.ID, attached.ID)
	assert.Equal(t, "Limp", attached.Name)
}

func TestItemFirstEffect(t *testing.T) {
	item := Item{ID: "i", Name: "Scarred Hide"}
	_, ok := item.FirstEffect()
	assert.False(t, ok)

	item.Effects = []Effect{{ID: "e1", Name: "Scar"}, {ID: "e2", Name: "Ache"}}
	eff, ok := item.FirstEffect()
	require.True(t, ok)
	assert.Equal(t, "e1", eff.ID)
}

func TestUpdateHPOr(t *testing.T) {
	var u Update
	assert.Equal(t, 40, u.HPOr(40), "update without HP falls back to current")

	hp := 10
	u = Update{HP: &hp}
	assert.Equal(t, 10, u.HPOr(40))
}
