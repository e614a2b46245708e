package wound_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/greatwound/internal/actor"
	"github.com/cory-johannsen/greatwound/internal/channel"
	"github.com/cory-johannsen/greatwound/internal/dice"
	"github.com/cory-johannsen/greatwound/internal/settings"
	"github.com/cory-johannsen/greatwound/internal/tables"
	"github.com/cory-johannsen/greatwound/internal/wound"
)

// tableNode bundles one node's service with its observable collaborators.
type tableNode struct {
	svc      *wound.Service
	queues   *actor.QueueSet
	notes    *recordingNotifier
	prompter *recordingPrompter
	src      *scriptedSource
}

func newTableNode(t *testing.T, bus *channel.Bus, ident wound.Context, store settings.Store, registry *tables.Registry, lookup wound.Lookup, faces ...int) *tableNode {
	t.Helper()

	logger := zap.NewNop()
	src := &scriptedSource{faces: faces}
	roller := dice.NewLoggedRoller(src, logger)
	queues := actor.NewQueueSet(8)
	t.Cleanup(queues.Close)
	notes := &recordingNotifier{}
	prompter := &recordingPrompter{accept: true}

	svc := wound.NewService(wound.ServiceConfig{
		Identity: ident,
		Settings: store,
		Resolver: wound.NewSaveResolver(store, roller),
		Applier: wound.NewApplier(wound.ApplierConfig{
			Settings: store,
			Tables:   registry,
			Roller:   roller,
			Queues:   queues,
			Notifier: notes,
			Logger:   logger,
		}),
		Messenger: bus.Endpoint(),
		Prompter:  prompter,
		Actors:    lookup,
		Logger:    logger,
	})
	svc.Start()
	return &tableNode{svc: svc, queues: queues, notes: notes, prompter: prompter, src: src}
}

// woundSettings returns a store configured for item-attaching resolutions.
func woundSettings() *settings.MemoryStore {
	store := settings.NewMemoryStore()
	store.SetEnabled(true)
	store.SetSaveDC(15)
	store.SetTableName("wounds")
	store.SetItemMode(settings.ItemModeAttachItem)
	return store
}

func TestService_GameMasterResolvesLocally(t *testing.T) {
	store := woundSettings()
	registry := scarTable(t)
	roles := roleMap(map[string]actor.Role{"gm": actor.RoleGameMaster})

	a := actor.New("Vex", 50, 10, false)
	a.CurrentHP = 40
	a.Permissions["bob"] = actor.PermissionOwner
	lookup := mapLookup{a.ID: a}

	bus := channel.NewBus()
	gm := newTableNode(t, bus, wound.Context{UserID: "gm", Role: actor.RoleGameMaster, RoleOf: roles}, store, registry, lookup, 10)
	bob := newTableNode(t, bus, wound.Context{UserID: "bob", Role: actor.RolePlayer, RoleOf: roles}, store, registry, lookup)

	gm.svc.PreUpdate(a, actor.Update{HP: intPtr(10)})
	gm.svc.Wait()
	gm.queues.Get(a.ID).Flush()

	require.Equal(t, 1, gm.prompter.asked())
	assert.Contains(t, gm.prompter.questions[0], "Vex")
	assert.Contains(t, gm.prompter.questions[0], "15")

	// Roll total 10 vs DC 15: failed, one item attached, exactly once
	// across the table even though a player owner exists.
	require.Len(t, a.Items, 1)
	assert.Equal(t, 1, gm.src.rolls(), "one save roll on the game master's node")
	assert.Zero(t, bob.src.rolls(), "no delegation reached the owner")
	assert.Equal(t, 1, gm.notes.containing("fails"))
}

func TestService_BelowThresholdNeverPrompts(t *testing.T) {
	store := woundSettings()
	a := actor.New("Vex", 50, 10, false)
	a.CurrentHP = 40

	bus := channel.NewBus()
	node := newTableNode(t, bus, wound.Context{UserID: "gm", Role: actor.RoleGameMaster}, store, scarTable(t), mapLookup{a.ID: a})

	node.svc.PreUpdate(a, actor.Update{HP: intPtr(25)})
	node.svc.Wait()

	assert.Zero(t, node.prompter.asked())
	assert.Empty(t, node.notes.all())
	assert.Empty(t, a.Items)
}

func TestService_PassedSaveDoesNotDraw(t *testing.T) {
	store := woundSettings()
	a := actor.New("Vex", 50, 10, false)
	a.CurrentHP = 40

	bus := channel.NewBus()
	node := newTableNode(t, bus, wound.Context{UserID: "gm", Role: actor.RoleGameMaster}, store, scarTable(t), mapLookup{a.ID: a}, 20)

	node.svc.PreUpdate(a, actor.Update{HP: intPtr(10)})
	node.svc.Wait()
	node.queues.Get(a.ID).Flush()

	assert.Equal(t, 1, node.notes.containing("passes"))
	assert.Zero(t, node.notes.containing("draws"))
	assert.Equal(t, 1, node.src.rolls(), "the save rolls, the table never does")
	assert.Empty(t, a.Items)
}

func TestService_DisabledFeatureDoesNothing(t *testing.T) {
	store := woundSettings()
	store.SetEnabled(false)
	a := actor.New("Vex", 50, 10, false)
	a.CurrentHP = 40

	bus := channel.NewBus()
	node := newTableNode(t, bus, wound.Context{UserID: "gm", Role: actor.RoleGameMaster}, store, scarTable(t), mapLookup{a.ID: a})

	node.svc.PreUpdate(a, actor.Update{HP: intPtr(10)})
	node.svc.Wait()

	assert.Zero(t, node.prompter.asked())
	assert.Empty(t, a.Items)
}

func TestService_DeclinedConfirmationDoesNothing(t *testing.T) {
	store := woundSettings()
	a := actor.New("Vex", 50, 10, false)
	a.CurrentHP = 40

	bus := channel.NewBus()
	node := newTableNode(t, bus, wound.Context{UserID: "gm", Role: actor.RoleGameMaster}, store, scarTable(t), mapLookup{a.ID: a})
	node.prompter.accept = false

	node.svc.PreUpdate(a, actor.Update{HP: intPtr(10)})
	node.svc.Wait()

	assert.Equal(t, 1, node.prompter.asked())
	assert.Zero(t, node.src.rolls())
	assert.Empty(t, node.notes.all())
	assert.Empty(t, a.Items)
}

func TestService_DelegationSelectsOwningPlayer(t *testing.T) {
	store := woundSettings()
	registry := scarTable(t)
	roles := roleMap(map[string]actor.Role{"gm": actor.RoleGameMaster})

	a := actor.New("Vex", 50, 10, false)
	a.CurrentHP = 40
	a.Permissions["bob"] = actor.PermissionOwner
	a.Permissions["gm"] = actor.PermissionOwner
	a.Permissions["alice"] = actor.PermissionObserver
	lookup := mapLookup{a.ID: a}

	bus := channel.NewBus()
	alice := newTableNode(t, bus, wound.Context{UserID: "alice", Role: actor.RolePlayer, RoleOf: roles}, store, registry, lookup)
	bob := newTableNode(t, bus, wound.Context{UserID: "bob", Role: actor.RolePlayer, RoleOf: roles}, store, registry, lookup, 3)
	gm := newTableNode(t, bus, wound.Context{UserID: "gm", Role: actor.RoleGameMaster, RoleOf: roles}, store, registry, lookup)

	alice.svc.PreUpdate(a, actor.Update{HP: intPtr(10)})
	alice.svc.Wait()
	bob.queues.Get(a.ID).Flush()

	// Only the owning player's node rolls and applies; the triggering node
	// and the game master both discard the delegation.
	require.Len(t, a.Items, 1)
	assert.Equal(t, 1, bob.src.rolls())
	assert.Zero(t, alice.src.rolls())
	assert.Zero(t, gm.src.rolls())
	assert.Zero(t, bob.prompter.asked(), "the receive side never re-prompts")
}

func TestService_OwnerResolvesOwnDelegation(t *testing.T) {
	store := woundSettings()
	a := actor.New("Vex", 50, 10, false)
	a.CurrentHP = 40
	a.Permissions["bob"] = actor.PermissionOwner

	bus := channel.NewBus()
	bob := newTableNode(t, bus, wound.Context{UserID: "bob", Role: actor.RolePlayer}, store, scarTable(t), mapLookup{a.ID: a}, 3)

	// A player-owner delegates rather than resolving inline; the broadcast
	// comes back to their own node, which is the authority.
	bob.svc.PreUpdate(a, actor.Update{HP: intPtr(10)})
	bob.svc.Wait()
	bob.queues.Get(a.ID).Flush()

	require.Len(t, a.Items, 1)
	assert.Equal(t, 1, bob.src.rolls())
	assert.Equal(t, 1, bob.prompter.asked())
}

func TestService_ForeignAndMalformedEnvelopesIgnored(t *testing.T) {
	store := woundSettings()
	a := actor.New("Vex", 50, 10, false)
	a.Permissions["bob"] = actor.PermissionOwner

	bus := channel.NewBus()
	bob := newTableNode(t, bus, wound.Context{UserID: "bob", Role: actor.RolePlayer}, store, scarTable(t), mapLookup{a.ID: a})
	other := bus.Endpoint()

	marker, err := channel.NewEnvelope(channel.KindActionMarker, map[string]string{"tokenId": "t1"})
	require.NoError(t, err)
	require.NoError(t, other.Send(context.Background(), marker))

	garbled, err := channel.NewEnvelope(channel.KindGreatWound, "not a delegation")
	require.NoError(t, err)
	require.NoError(t, other.Send(context.Background(), garbled))

	assert.Zero(t, bob.src.rolls())
	assert.Empty(t, a.Items)
	assert.Empty(t, bob.notes.all())
}
