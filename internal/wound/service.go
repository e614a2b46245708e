package wound

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/greatwound/internal/actor"
	"github.com/cory-johannsen/greatwound/internal/channel"
	"github.com/cory-johannsen/greatwound/internal/settings"
)

// Prompter presents the begin-resolution confirmation to the acting user and
// reports their choice. Declining performs no action of any kind.
type Prompter interface {
	Confirm(ctx context.Context, question string) bool
}

// ConfirmFunc adapts a function to the Prompter interface.
type ConfirmFunc func(ctx context.Context, question string) bool

// Confirm implements Prompter.
func (f ConfirmFunc) Confirm(ctx context.Context, question string) bool {
	return f(ctx, question)
}

// AcceptAll returns a Prompter that accepts every confirmation; used by
// headless nodes with no dialog surface.
func AcceptAll() Prompter {
	return ConfirmFunc(func(context.Context, string) bool { return true })
}

// Lookup resolves an actor document by ID when a delegation arrives.
// Implemented by the in-memory roster and the Postgres actor repository.
type Lookup interface {
	GetByID(ctx context.Context, id string) (*actor.Actor, error)
}

// OutcomeHook runs after a resolution completes. resultID is the drawn
// item's ID, or "" when no draw happened. Hook errors only log; they never
// affect the resolution itself.
type OutcomeHook interface {
	OnOutcome(ctx context.Context, actorName string, passed bool, resultID string) error
}

// Service wires the wound protocol to one node: the pre-update trigger, the
// confirmation gate, the authority decision, the delegation channel, and the
// resolve path. One Service runs per node.
type Service struct {
	ident     Context
	settings  settings.Store
	resolver  *SaveResolver
	applier   *Applier
	messenger channel.Messenger
	prompter  Prompter
	actors    Lookup
	hook      OutcomeHook
	logger    *zap.Logger

	wg sync.WaitGroup
}

// ServiceConfig collects the service's collaborators.
type ServiceConfig struct {
	Identity  Context
	Settings  settings.Store
	Resolver  *SaveResolver
	Applier   *Applier
	Messenger channel.Messenger
	Prompter  Prompter
	Actors    Lookup
	// Hook is optional; nil disables outcome hooks.
	Hook   OutcomeHook
	Logger *zap.Logger
}

// NewService creates a Service.
//
// Precondition: every field of cfg except Hook must be non-nil.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		ident:     cfg.Identity,
		settings:  cfg.Settings,
		resolver:  cfg.Resolver,
		applier:   cfg.Applier,
		messenger: cfg.Messenger,
		prompter:  cfg.Prompter,
		actors:    cfg.Actors,
		hook:      cfg.Hook,
		logger:    cfg.Logger,
	}
}

// Start subscribes the service to delegation envelopes on the shared channel.
// Envelopes of any other kind never reach the wound logic.
func (s *Service) Start() {
	s.messenger.Subscribe(channel.KindGreatWound, s.onDelegation)
}

// Wait blocks until every in-flight resolution flow started by PreUpdate has
// finished. Queued attachment mutations may still be draining; flush the
// actor's queue to observe them.
func (s *Service) Wait() {
	s.wg.Wait()
}

// PreUpdate inspects a proposed mutation before the document commit. It
// never blocks the commit: when the drop qualifies, the confirmation and
// resolution flow runs out of band. Nothing panics out of this hook.
func (s *Service) PreUpdate(a *actor.Actor, upd actor.Update) {
	event, flagged := Detect(a, upd)
	if !flagged {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.begin(context.Background(), event)
	}()
}

// begin runs the confirmation gate and the authority decision for one
// flagged event.
func (s *Service) begin(ctx context.Context, event Event) {
	enabled, err := s.settings.Enabled(ctx)
	if err != nil {
		s.logger.Error("reading enable flag", zap.Error(err))
		return
	}
	if !enabled {
		return
	}

	feature, err := s.settings.FeatureName(ctx)
	if err != nil {
		s.logger.Error("reading feature name", zap.Error(err))
		return
	}
	dc, err := s.settings.SaveDC(ctx)
	if err != nil {
		s.logger.Error("reading save difficulty", zap.Error(err))
		return
	}
	name, err := DisplayName(ctx, s.settings, event.Actor)
	if err != nil {
		s.logger.Error("resolving display name", zap.Error(err))
		return
	}

	question := fmt.Sprintf("%s: %s lost %d hit points in one blow. Begin resolution (save DC %d)?",
		feature, name, event.Delta, dc)
	if !s.prompter.Confirm(ctx, question) {
		return
	}

	if ResolvesLocally(s.ident, event.Actor) {
		s.resolve(ctx, event.Actor)
		return
	}
	s.delegate(ctx, event)
}

// delegate broadcasts the event to the actor's full permission set. Delivery
// is fire-and-forget: a send failure logs and the wound stays unresolved.
func (s *Service) delegate(ctx context.Context, event Event) {
	env, err := channel.DelegationMessage{
		Recipients: event.Actor.Permissions,
		ActorID:    event.Actor.ID,
		HP:         event.ProposedHP,
	}.Encode()
	if err != nil {
		s.logger.Error("encoding delegation", zap.String("actor_id", event.Actor.ID), zap.Error(err))
		return
	}
	if err := s.messenger.Send(ctx, env); err != nil {
		s.logger.Warn("sending delegation",
			zap.String("actor_id", event.Actor.ID),
			zap.Error(err),
		)
	}
}

// onDelegation handles one received delegation envelope. Every node runs the
// authority check independently; non-authoritative nodes discard the message
// with no further action.
func (s *Service) onDelegation(env channel.Envelope) {
	msg, err := channel.DecodeDelegation(env)
	if err != nil {
		s.logger.Warn("dropping malformed delegation", zap.Error(err))
		return
	}
	if !Authority(s.ident, msg) {
		return
	}

	ctx := context.Background()
	a, err := s.actors.GetByID(ctx, msg.ActorID)
	if err != nil {
		s.logger.Warn("delegated actor not found",
			zap.String("actor_id", msg.ActorID),
			zap.Error(err),
		)
		return
	}
	s.resolve(ctx, a)
}

// resolve runs the save and the application for one event on this node.
func (s *Service) resolve(ctx context.Context, a *actor.Actor) {
	out, err := s.resolver.Resolve(ctx, a)
	if err != nil {
		s.logger.Error("resolving save", zap.String("actor_id", a.ID), zap.Error(err))
		return
	}
	result, err := s.applier.Apply(ctx, out)
	if err != nil {
		s.logger.Error("applying outcome", zap.String("actor_id", a.ID), zap.Error(err))
		return
	}

	if s.hook != nil {
		resultID := ""
		if result != nil {
			resultID = result.Item.ID
		}
		if err := s.hook.OnOutcome(ctx, a.Name, out.Passed, resultID); err != nil {
			s.logger.Warn("outcome hook failed", zap.String("actor_id", a.ID), zap.Error(err))
		}
	}
}
