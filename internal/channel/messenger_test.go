package channel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/greatwound/internal/channel"
)

func TestBus_EveryClientConsumesOnce(t *testing.T) {
	bus := channel.NewBus()
	a := bus.Endpoint()
	b := bus.Endpoint()

	var aGot, bGot []channel.Envelope
	a.Subscribe(channel.KindGreatWound, func(env channel.Envelope) { aGot = append(aGot, env) })
	b.Subscribe(channel.KindGreatWound, func(env channel.Envelope) { bGot = append(bGot, env) })

	env, err := channel.DelegationMessage{ActorID: "actor-1"}.Encode()
	require.NoError(t, err)
	require.NoError(t, a.Send(context.Background(), env))

	require.Len(t, aGot, 1, "the sender consumes its own broadcast exactly once")
	require.Len(t, bGot, 1)
	assert.Equal(t, channel.KindGreatWound, bGot[0].Kind)
}

func TestBus_KindFiltering(t *testing.T) {
	bus := channel.NewBus()
	a := bus.Endpoint()
	b := bus.Endpoint()

	var wounds, markers int
	b.Subscribe(channel.KindGreatWound, func(channel.Envelope) { wounds++ })
	b.Subscribe(channel.KindActionMarker, func(channel.Envelope) { markers++ })

	wound, err := channel.DelegationMessage{ActorID: "actor-1"}.Encode()
	require.NoError(t, err)
	marker, err := channel.NewEnvelope(channel.KindActionMarker, map[string]string{"tokenId": "t1"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Send(ctx, wound))
	require.NoError(t, a.Send(ctx, marker))
	require.NoError(t, a.Send(ctx, marker))

	assert.Equal(t, 1, wounds, "wound handler sees only wound envelopes")
	assert.Equal(t, 2, markers, "marker handler sees only marker envelopes")
}

func TestBus_AllPeersReceive(t *testing.T) {
	bus := channel.NewBus()
	sender := bus.Endpoint()

	received := make([]int, 3)
	for i := 0; i < 3; i++ {
		i := i
		bus.Endpoint().Subscribe(channel.KindChat, func(channel.Envelope) { received[i]++ })
	}

	env, err := channel.ChatMessage{Sender: "gm", Content: "a great wound opens"}.Encode()
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), env))

	for i, n := range received {
		assert.Equal(t, 1, n, "peer %d must receive exactly one delivery", i)
	}
}
