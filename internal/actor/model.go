// Package actor defines the shared character document model: hit points,
// ability scores, the identity→permission map, and the embedded item and
// effect collections that wound resolutions mutate.
package actor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/greatwound/internal/dice"
)

// PermissionLevel is the access level an identity holds on an actor document.
type PermissionLevel int

// Permission levels, lowest to highest. Owner is the level that makes a
// client eligible to resolve a delegated wound for this actor.
const (
	PermissionNone     PermissionLevel = 0
	PermissionLimited  PermissionLevel = 1
	PermissionObserver PermissionLevel = 2
	PermissionOwner    PermissionLevel = 3
)

// Role is a user's table-wide privilege level.
type Role string

const (
	RolePlayer     Role = "player"
	RoleGameMaster Role = "gamemaster"
)

// ParseRole converts a configuration string into a Role.
//
// Postcondition: Returns a valid Role or a non-nil error.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePlayer, RoleGameMaster:
		return Role(s), nil
	default:
		return "", fmt.Errorf("actor: unknown role %q", s)
	}
}

// Effect is a status effect embedded in an actor document or carried by an item.
type Effect struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Item is an item embedded in an actor document. Items may carry effects;
// effect-mode wound application attaches the first one.
type Item struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Effects []Effect `yaml:"effects" json:"effects"`
}

// FirstEffect returns the item's first carried effect, or false if it has none.
func (i Item) FirstEffect() (Effect, bool) {
	if len(i.Effects) == 0 {
		return Effect{}, false
	}
	return i.Effects[0], true
}

// Actor represents a character document shared by all connected clients.
//
// ID is a UUID string; zero-value timestamps indicate an unsaved actor.
type Actor struct {
	ID   string
	Name string
	NPC  bool

	CurrentHP int
	MaxHP     int

	// Constitution is the ability score backing the great-wound saving throw.
	Constitution int

	// Permissions maps user identity → access level. The full map travels
	// inside every delegation message so each receiving client can evaluate
	// its own eligibility.
	Permissions map[string]PermissionLevel

	Items   []Item
	Effects []Effect

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an unsaved Actor with a fresh UUID and an empty permission map.
//
// Precondition: name must be non-empty; maxHP must be >= 0.
func New(name string, maxHP int, constitution int, npc bool) *Actor {
	return &Actor{
		ID:           uuid.New().String(),
		Name:         name,
		NPC:          npc,
		CurrentHP:    maxHP,
		MaxHP:        maxHP,
		Constitution: constitution,
		Permissions:  make(map[string]PermissionLevel),
	}
}

// SaveModifier returns the Constitution saving-throw modifier: (score - 10) / 2.
func (a *Actor) SaveModifier() int {
	return (a.Constitution - 10) / 2
}

// HasPlayerOwner reports whether any identity with the Owner permission level
// is a player (not a game master). roleOf resolves an identity to its role;
// identities it cannot resolve are treated as players.
//
// Precondition: roleOf must be non-nil.
func (a *Actor) HasPlayerOwner(roleOf func(userID string) Role) bool {
	for userID, level := range a.Permissions {
		if level == PermissionOwner && roleOf(userID) != RoleGameMaster {
			return true
		}
	}
	return false
}

// RollSave performs the Constitution saving throw: 1d20 plus the save modifier.
// This is the wound protocol's first suspension point.
//
// Precondition: roller must be non-nil.
// Postcondition: Returns the roll result or a non-nil error.
func (a *Actor) RollSave(roller *dice.Roller) (dice.RollResult, error) {
	return roller.RollExpr(fmt.Sprintf("1d20%+d", a.SaveModifier()))
}

// AttachItem appends a copy of item with a fresh instance ID to the actor's
// embedded item collection.
//
// Postcondition: len(a.Items) grows by one; the copy's ID differs from item.ID.
func (a *Actor) AttachItem(item Item) Item {
	attached := item
	attached.ID = uuid.New().String()
	a.Items = append(a.Items, attached)
	return attached
}

// AttachEffect appends a copy of effect with a fresh instance ID to the
// actor's embedded effect collection.
//
// Postcondition: len(a.Effects) grows by one; the copy's ID differs from effect.ID.
func (a *Actor) AttachEffect(effect Effect) Effect {
	attached := effect
	attached.ID = uuid.New().String()
	a.Effects = append(a.Effects, attached)
	return attached
}

// Update is a proposed mutation fragment for an actor document. A nil HP
// pointer means the mutation does not touch the resource.
type Update struct {
	HP *int
}

// HPOr returns the update's proposed HP, or fallback when the update does not
// touch the resource.
func (u Update) HPOr(fallback int) int {
	if u.HP == nil {
		return fallback
	}
	return *u.HP
}
