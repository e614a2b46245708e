package wound

import (
	"github.com/cory-johannsen/greatwound/internal/actor"
	"github.com/cory-johannsen/greatwound/internal/channel"
)

// Context carries the local node's identity for authority decisions. All
// authority rules are pure functions of a Context plus message or document
// content; nothing reads ambient per-process state.
type Context struct {
	// UserID is the local user's identity key in actor permission maps.
	UserID string
	// Role is the local user's table-wide privilege level.
	Role actor.Role
	// RoleOf resolves another identity to its role. Identities it cannot
	// resolve, and all identities when RoleOf is nil, are treated as players.
	RoleOf func(userID string) actor.Role
}

func (c Context) roleOf(userID string) actor.Role {
	if c.RoleOf == nil {
		return actor.RolePlayer
	}
	return c.RoleOf(userID)
}

// ResolvesLocally reports whether the node that triggered and confirmed a
// flagged event resolves it itself instead of delegating. That holds when the
// local user is the game master, or when the actor has no player owner at
// all; in every other case the resolution must be delegated to the owning
// player's node.
func ResolvesLocally(c Context, a *actor.Actor) bool {
	return c.Role == actor.RoleGameMaster || !a.HasPlayerOwner(c.roleOf)
}

// Authority reports whether the local node is the authoritative resolver for
// a received delegation: the message's recipient set records the Owner level
// for the local identity, and the local user is not the game master. The
// game master never auto-resolves a delegation; only a genuine player-owner
// does. Every node failing this check must discard the message.
//
// Under correct permission configuration exactly one connected node satisfies
// this. Zero or multiple satisfying nodes yield a missed or duplicated
// resolution; neither is detected.
func Authority(c Context, msg channel.DelegationMessage) bool {
	return msg.Recipients[c.UserID] == actor.PermissionOwner && c.Role != actor.RoleGameMaster
}
