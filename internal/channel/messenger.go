package channel

import (
	"context"
	"sync"
)

// Handler consumes one envelope. Handlers run on the messenger's delivery
// goroutine and must not block indefinitely.
type Handler func(Envelope)

// Messenger is the point-to-point broadcast surface used by wound delegation
// and chat. Send is fire-and-forget: delivery is at-most-once with no
// acknowledgement, and loss is not detected.
type Messenger interface {
	// Send broadcasts env to every connected node, the sender included.
	Send(ctx context.Context, env Envelope) error
	// Subscribe registers a handler for envelopes of the given kind.
	// Envelopes of other kinds never reach the handler.
	Subscribe(kind string, h Handler)
}

// Bus is an in-process Messenger connecting multiple local endpoints. It
// mirrors relay semantics: every endpoint, the sender included, consumes
// each envelope exactly once. Exists for tests and headless single-process
// tables.
type Bus struct {
	mu        sync.Mutex
	endpoints []*BusEndpoint
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Endpoint creates and attaches a new endpoint.
func (b *Bus) Endpoint() *BusEndpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	ep := &BusEndpoint{bus: b, handlers: make(map[string][]Handler)}
	b.endpoints = append(b.endpoints, ep)
	return ep
}

// broadcast delivers env to every endpoint, the sender included. The
// delegation protocol depends on this: a player-owner who delegates their own
// wound is also its authoritative resolver and must consume the message.
func (b *Bus) broadcast(env Envelope) {
	b.mu.Lock()
	endpoints := make([]*BusEndpoint, len(b.endpoints))
	copy(endpoints, b.endpoints)
	b.mu.Unlock()

	for _, ep := range endpoints {
		ep.deliver(env)
	}
}

// BusEndpoint is one node's view of a Bus.
type BusEndpoint struct {
	bus      *Bus
	mu       sync.Mutex
	handlers map[string][]Handler
}

// Send implements Messenger.
func (e *BusEndpoint) Send(_ context.Context, env Envelope) error {
	e.bus.broadcast(env)
	return nil
}

// Subscribe implements Messenger.
func (e *BusEndpoint) Subscribe(kind string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[kind] = append(e.handlers[kind], h)
}

func (e *BusEndpoint) deliver(env Envelope) {
	e.mu.Lock()
	handlers := make([]Handler, len(e.handlers[env.Kind]))
	copy(handlers, e.handlers[env.Kind])
	e.mu.Unlock()

	for _, h := range handlers {
		h(env)
	}
}

var _ Messenger = (*BusEndpoint)(nil)
