// Package api exposes the node's local mutation surface. The hosting UI
// posts proposed actor mutations here; the server runs the wound pre-update
// trigger and then commits the mutation through the actor's serialized
// update queue.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/greatwound/internal/actor"
)

// Actors is the actor store surface the API needs.
type Actors interface {
	GetByID(ctx context.Context, id string) (*actor.Actor, error)
	UpdateHP(ctx context.Context, id string, currentHP int) error
}

// Trigger is the pre-update inspection hook. It must not block the commit.
type Trigger interface {
	PreUpdate(a *actor.Actor, upd actor.Update)
}

// Server is the local HTTP server accepting actor mutations.
type Server struct {
	addr    string
	actors  Actors
	trigger Trigger
	queues  *actor.QueueSet
	logger  *zap.Logger

	server   *http.Server
	listener net.Listener
}

// NewServer creates a Server bound to addr.
//
// Precondition: all arguments must be non-nil/non-empty.
func NewServer(addr string, actors Actors, trigger Trigger, queues *actor.QueueSet, logger *zap.Logger) *Server {
	return &Server{
		addr:    addr,
		actors:  actors,
		trigger: trigger,
		queues:  queues,
		logger:  logger,
	}
}

// Start listens on the configured address and serves until Stop.
//
// Postcondition: Returns nil on graceful shutdown, or the listener error.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /actors/{id}", s.handleGetActor)
	mux.HandleFunc("POST /actors/{id}/hp", s.handleUpdateHP)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.server = &http.Server{Handler: mux}

	s.logger.Info("api listening", zap.String("addr", listener.Addr().String()))

	if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving api: %w", err)
	}
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes the server.
func (s *Server) Stop() {
	if s.server != nil {
		_ = s.server.Close()
	}
}

func (s *Server) handleGetActor(w http.ResponseWriter, r *http.Request) {
	a, err := s.actors.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "actor not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a); err != nil {
		s.logger.Warn("encoding actor response", zap.Error(err))
	}
}

// handleUpdateHP runs the pre-update trigger, then commits the mutation on
// the actor's exclusive queue. The trigger only inspects; the commit never
// waits for any resolution flow it may have started.
func (s *Server) handleUpdateHP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HP *int `json:"hp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HP == nil {
		http.Error(w, "body must be {\"hp\": <int>}", http.StatusBadRequest)
		return
	}

	a, err := s.actors.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "actor not found", http.StatusNotFound)
		return
	}

	s.trigger.PreUpdate(a, actor.Update{HP: req.HP})

	hp := *req.HP
	if err := s.queues.Get(a.ID).Enqueue(func() {
		a.CurrentHP = hp
		if err := s.actors.UpdateHP(context.Background(), a.ID, hp); err != nil {
			s.logger.Error("committing hp update",
				zap.String("actor_id", a.ID),
				zap.Error(err),
			)
		}
	}); err != nil {
		http.Error(w, "node is shutting down", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
