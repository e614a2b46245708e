package channel

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/greatwound/internal/config"
)

// Relay is the shared broadcast hub. Every envelope received from one node is
// re-broadcast verbatim to every connected node. The relay does not
// inspect payloads, keeps no history, and never retries: a node that is
// disconnected when an envelope passes through simply never sees it.
type Relay struct {
	cfg      config.RelayConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*subscriber]bool

	server   *http.Server
	listener net.Listener
}

// subscriber is one connected node. The write mutex guards the connection's
// single-writer requirement; every write carries a deadline.
type subscriber struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
}

// writeMessage sends one frame guarded by the write mutex and deadline.
func (s *subscriber) writeMessage(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

// NewRelay creates a Relay for the given configuration.
//
// Precondition: logger must be non-nil.
func NewRelay(cfg config.RelayConfig, logger *zap.Logger) *Relay {
	return &Relay{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The relay fronts trusted table nodes, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		subscribers: make(map[*subscriber]bool),
	}
}

// Start listens on the configured address and serves the /channel endpoint.
// Blocks until Stop is called or the listener fails.
//
// Postcondition: Returns nil on graceful shutdown, or the listener error.
func (r *Relay) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/channel", r.handleChannel)

	listener, err := net.Listen("tcp", r.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", r.cfg.Addr(), err)
	}
	r.mu.Lock()
	r.listener = listener
	r.server = &http.Server{Handler: mux}
	r.mu.Unlock()

	r.logger.Info("relay listening", zap.String("addr", listener.Addr().String()))

	if err := r.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving relay: %w", err)
	}
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (r *Relay) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// Stop closes the server and every subscriber connection.
func (r *Relay) Stop() {
	r.mu.Lock()
	server := r.server
	subs := make([]*subscriber, 0, len(r.subscribers))
	for s := range r.subscribers {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		_ = s.conn.Close()
	}
	if server != nil {
		_ = server.Close()
	}
}

// handleChannel upgrades a node connection and runs its read loop. Every
// well-formed envelope read from the node is broadcast to all other nodes.
func (r *Relay) handleChannel(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := &subscriber{conn: conn, writeTimeout: r.cfg.WriteTimeout}
	r.register(sub)
	defer r.unregister(sub)

	r.logger.Info("node connected", zap.String("remote", conn.RemoteAddr().String()))

	if r.cfg.PingInterval > 0 {
		stopPings := r.startPinger(sub)
		defer stopPings()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.logger.Info("node disconnected",
				zap.String("remote", conn.RemoteAddr().String()),
				zap.Error(err),
			)
			return
		}

		// Frames must at least parse as an envelope with a kind; the payload
		// stays opaque to the relay.
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Kind == "" {
			r.logger.Warn("dropping malformed frame",
				zap.String("remote", conn.RemoteAddr().String()),
			)
			continue
		}

		r.broadcast(env.Kind, data)
	}
}

// broadcast writes data to every subscriber, the sender included: each
// connected node consumes each envelope exactly once, and the delegation
// protocol relies on senders receiving their own broadcasts. A failed write
// only logs: the channel's contract is at-most-once with silent loss.
func (r *Relay) broadcast(kind string, data []byte) {
	r.mu.Lock()
	subs := make([]*subscriber, 0, len(r.subscribers))
	for s := range r.subscribers {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		if err := s.writeMessage(websocket.TextMessage, data); err != nil {
			r.logger.Warn("broadcast write failed",
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
	}
}

func (r *Relay) register(s *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[s] = true
}

func (r *Relay) unregister(s *subscriber) {
	r.mu.Lock()
	delete(r.subscribers, s)
	r.mu.Unlock()
	_ = s.conn.Close()
}

// startPinger launches a keepalive ticker for sub and returns its stop func.
func (r *Relay) startPinger(sub *subscriber) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(r.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sub.writeMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
