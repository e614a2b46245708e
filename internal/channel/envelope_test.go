package channel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/greatwound/internal/actor"
	"github.com/cory-johannsen/greatwound/internal/channel"
)

func TestDelegationMessage_RoundTrip(t *testing.T) {
	msg := channel.DelegationMessage{
		Recipients: map[string]actor.PermissionLevel{
			"user-alice": actor.PermissionOwner,
			"user-gm":    actor.PermissionOwner,
			"user-bob":   actor.PermissionObserver,
		},
		ActorID: "actor-1",
		HP:      10,
	}

	env, err := msg.Encode()
	require.NoError(t, err)
	assert.Equal(t, channel.KindGreatWound, env.Kind)

	decoded, err := channel.DecodeDelegation(env)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestDecodeDelegation_WrongKind(t *testing.T) {
	env, err := channel.ChatMessage{Sender: "gm", Content: "hi"}.Encode()
	require.NoError(t, err)

	_, err = channel.DecodeDelegation(env)
	assert.Error(t, err, "a chat envelope must never decode as a delegation")
}

func TestDecodeChat_WrongKind(t *testing.T) {
	env, err := channel.DelegationMessage{ActorID: "a"}.Encode()
	require.NoError(t, err)

	_, err = channel.DecodeChat(env)
	assert.Error(t, err)
}

func TestNewEnvelope_EmptyKind(t *testing.T) {
	_, err := channel.NewEnvelope("", struct{}{})
	assert.Error(t, err)
}
