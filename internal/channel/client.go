package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is a node's connection to the relay. It implements Messenger:
// envelopes sent here fan out to every other node, and envelopes read from
// the relay are dispatched to kind-filtered subscribers on a single read
// goroutine (one delivery per message per node, in channel order).
type Client struct {
	conn         *websocket.Conn
	logger       *zap.Logger
	writeTimeout time.Duration

	writeMu sync.Mutex

	handlerMu sync.Mutex
	handlers  map[string][]Handler

	done chan struct{}
}

// Dial connects to the relay at url and starts the read pump.
//
// Precondition: logger must be non-nil; url must be a ws:// or wss:// URL.
// Postcondition: Returns a connected Client or a non-nil error.
func Dial(ctx context.Context, url string, writeTimeout time.Duration, logger *zap.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialling relay %s: %w", url, err)
	}

	c := &Client{
		conn:         conn,
		logger:       logger,
		writeTimeout: writeTimeout,
		handlers:     make(map[string][]Handler),
		done:         make(chan struct{}),
	}
	go c.readPump()
	return c, nil
}

// Send implements Messenger. Fire-and-forget: a write error is returned to
// the caller but the envelope is never retried.
func (c *Client) Send(_ context.Context, env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("setting write deadline: %w", err)
		}
	}
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("sending %s envelope: %w", env.Kind, err)
	}
	return nil
}

// Subscribe implements Messenger. Handlers registered for a kind run on the
// read goroutine in registration order.
func (c *Client) Subscribe(kind string, h Handler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handlers[kind] = append(c.handlers[kind], h)
}

// Done is closed when the read pump exits (connection lost or Close called).
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close tears down the connection; the read pump exits shortly after.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) readPump() {
	defer close(c.done)
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.logger.Info("relay connection closed", zap.Error(err))
			return
		}

		c.handlerMu.Lock()
		handlers := make([]Handler, len(c.handlers[env.Kind]))
		copy(handlers, c.handlers[env.Kind])
		c.handlerMu.Unlock()

		if len(handlers) == 0 {
			// Foreign kinds on the shared channel are expected; drop quietly.
			c.logger.Debug("ignoring envelope", zap.String("kind", env.Kind))
			continue
		}
		for _, h := range handlers {
			h(env)
		}
	}
}

var _ Messenger = (*Client)(nil)
