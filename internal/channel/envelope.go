// Package channel implements the shared broadcast channel used to delegate
// wound resolution between table nodes. The channel is shared with unrelated
// features, so every message travels inside an Envelope carrying a kind
// discriminant; consumers must filter on Kind before decoding the payload.
//
// Delivery semantics are deliberately weak: unordered relative to local
// events, at-most-once, no acknowledgement, no retry. A lost delegation means
// the wound is silently never resolved.
package channel

import (
	"encoding/json"
	"fmt"

	"github.com/cory-johannsen/greatwound/internal/actor"
)

// Message kinds multiplexed over the shared channel.
const (
	// KindGreatWound delegates a wound resolution to the owning client.
	KindGreatWound = "great-wound"
	// KindChat is a fire-and-forget chat announcement.
	KindChat = "chat"
	// KindActionMarker belongs to the token visual-state feature. It shares
	// the channel but is foreign to wound resolution and must be ignored by
	// the wound handler.
	KindActionMarker = "action-marker"
)

// Envelope is the wire frame for every message on the shared channel.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload under the given kind.
//
// Precondition: kind must be non-empty; payload must be JSON-marshalable.
func NewEnvelope(kind string, payload any) (Envelope, error) {
	if kind == "" {
		return Envelope{}, fmt.Errorf("channel: empty envelope kind")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshalling %s payload: %w", kind, err)
	}
	return Envelope{Kind: kind, Payload: raw}, nil
}

// DelegationMessage asks the authoritative peer to resolve a wound. The full
// permission map rides along so every receiving client can evaluate its own
// eligibility without a document lookup race.
type DelegationMessage struct {
	// Recipients is the actor's identity → permission level map at send time.
	Recipients map[string]actor.PermissionLevel `json:"recipients"`
	// ActorID identifies the wounded actor document.
	ActorID string `json:"actorId"`
	// HP is the proposed resource value carried from the triggering mutation.
	HP int `json:"hp"`
}

// Encode wraps the message in a KindGreatWound envelope.
func (m DelegationMessage) Encode() (Envelope, error) {
	return NewEnvelope(KindGreatWound, m)
}

// DecodeDelegation unpacks a KindGreatWound envelope.
//
// Precondition: env.Kind == KindGreatWound.
func DecodeDelegation(env Envelope) (DelegationMessage, error) {
	if env.Kind != KindGreatWound {
		return DelegationMessage{}, fmt.Errorf("channel: expected kind %q, got %q", KindGreatWound, env.Kind)
	}
	var m DelegationMessage
	if err := json.Unmarshal(env.Payload, &m); err != nil {
		return DelegationMessage{}, fmt.Errorf("decoding delegation message: %w", err)
	}
	return m, nil
}

// ChatMessage is a human-readable announcement broadcast to every node.
type ChatMessage struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// Encode wraps the message in a KindChat envelope.
func (m ChatMessage) Encode() (Envelope, error) {
	return NewEnvelope(KindChat, m)
}

// DecodeChat unpacks a KindChat envelope.
//
// Precondition: env.Kind == KindChat.
func DecodeChat(env Envelope) (ChatMessage, error) {
	if env.Kind != KindChat {
		return ChatMessage{}, fmt.Errorf("channel: expected kind %q, got %q", KindChat, env.Kind)
	}
	var m ChatMessage
	if err := json.Unmarshal(env.Payload, &m); err != nil {
		return ChatMessage{}, fmt.Errorf("decoding chat message: %w", err)
	}
	return m, nil
}
