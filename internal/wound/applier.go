package wound

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/greatwound/internal/actor"
	"github.com/cory-johannsen/greatwound/internal/dice"
	"github.com/cory-johannsen/greatwound/internal/notify"
	"github.com/cory-johannsen/greatwound/internal/settings"
	"github.com/cory-johannsen/greatwound/internal/tables"
)

// Store persists attachments after they land on the in-memory document.
// Implemented by the Postgres actor repository; a nil Store means the table
// runs without persistence.
type Store interface {
	AttachItem(ctx context.Context, actorID string, item actor.Item) error
	AttachEffect(ctx context.Context, actorID string, effect actor.Effect) error
}

// Applier applies a classified saving-throw outcome back onto the actor.
// A passed save only announces. A failed save announces, draws once from the
// configured roll table (a second suspension point), and per the configured
// item mode enqueues exactly one exclusive mutation attaching a copy of the
// drawn item or of its first effect. All misconfiguration surfaces as a
// user-visible announcement, never as a failure out of the protocol.
//
// The mutation goes through the actor's serialized update queue: no two
// attachments for the same actor interleave. The queue orders, it does not
// deduplicate; a duplicated resolution still attaches twice.
type Applier struct {
	settings settings.Store
	tables   *tables.Registry
	roller   *dice.Roller
	queues   *actor.QueueSet
	store    Store
	notifier notify.Notifier
	logger   *zap.Logger
}

// ApplierConfig collects the applier's collaborators.
type ApplierConfig struct {
	Settings settings.Store
	Tables   *tables.Registry
	Roller   *dice.Roller
	Queues   *actor.QueueSet
	// Store is optional; nil disables persistence of attachments.
	Store    Store
	Notifier notify.Notifier
	Logger   *zap.Logger
}

// NewApplier creates an Applier.
//
// Precondition: every field of cfg except Store must be non-nil.
func NewApplier(cfg ApplierConfig) *Applier {
	return &Applier{
		settings: cfg.Settings,
		tables:   cfg.Tables,
		roller:   cfg.Roller,
		queues:   cfg.Queues,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}
}

// Apply announces the outcome and, on a failed save, draws and attaches the
// result. Returns the drawn table result, or nil when nothing was drawn.
//
// Postcondition: at most one table draw and at most one attachment enqueue
// per call.
func (ap *Applier) Apply(ctx context.Context, out Outcome) (*tables.Result, error) {
	feature, err := ap.settings.FeatureName(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading feature name: %w", err)
	}
	name, err := DisplayName(ctx, ap.settings, out.Actor)
	if err != nil {
		return nil, fmt.Errorf("resolving display name: %w", err)
	}

	if out.Passed {
		ap.post(ctx, fmt.Sprintf("%s: %s passes the Constitution save (%s vs DC %d).",
			feature, name, out.Roll, out.DC))
		return nil, nil
	}
	ap.post(ctx, fmt.Sprintf("%s: %s fails the Constitution save (%s vs DC %d).",
		feature, name, out.Roll, out.DC))

	tableName, err := ap.settings.TableName(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading table name: %w", err)
	}
	if tableName == "" {
		ap.post(ctx, fmt.Sprintf("%s: no roll table is configured; cannot draw a result.", feature))
		return nil, nil
	}
	table, ok := ap.tables.GetName(tableName)
	if !ok {
		ap.post(ctx, fmt.Sprintf("%s: roll table %q is not loaded.", feature, tableName))
		return nil, nil
	}

	result, err := table.Draw(ap.roller)
	if err != nil {
		return nil, fmt.Errorf("drawing wound result: %w", err)
	}
	ap.post(ctx, fmt.Sprintf("%s: %s draws %s (%s).",
		feature, name, result.Item.Name, result.Roll))

	mode, err := ap.settings.ItemMode(ctx)
	if err != nil {
		return &result, fmt.Errorf("reading item mode: %w", err)
	}
	switch mode {
	case settings.ItemModeAttachItem:
		ap.enqueue(out.Actor, func(a *actor.Actor) {
			attached := a.AttachItem(result.Item)
			ap.persistItem(ctx, a.ID, attached)
		})
	case settings.ItemModeAttachEffect:
		effect, ok := result.Item.FirstEffect()
		if !ok {
			ap.post(ctx, fmt.Sprintf("%s: result %q carries no effect to attach.", feature, result.Item.Name))
			return &result, nil
		}
		ap.enqueue(out.Actor, func(a *actor.Actor) {
			attached := a.AttachEffect(effect)
			ap.persistEffect(ctx, a.ID, attached)
		})
	}
	return &result, nil
}

// enqueue submits one exclusive mutation for a onto its serialized queue.
func (ap *Applier) enqueue(a *actor.Actor, mutate func(*actor.Actor)) {
	queue := ap.queues.Get(a.ID)
	if err := queue.Enqueue(func() { mutate(a) }); err != nil {
		ap.logger.Warn("dropping attachment for closed queue",
			zap.String("actor_id", a.ID),
			zap.Error(err),
		)
	}
}

func (ap *Applier) persistItem(ctx context.Context, actorID string, item actor.Item) {
	if ap.store == nil {
		return
	}
	if err := ap.store.AttachItem(ctx, actorID, item); err != nil {
		ap.logger.Error("persisting attached item",
			zap.String("actor_id", actorID),
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
	}
}

func (ap *Applier) persistEffect(ctx context.Context, actorID string, effect actor.Effect) {
	if ap.store == nil {
		return
	}
	if err := ap.store.AttachEffect(ctx, actorID, effect); err != nil {
		ap.logger.Error("persisting attached effect",
			zap.String("actor_id", actorID),
			zap.String("effect_id", effect.ID),
			zap.Error(err),
		)
	}
}

// post fires an announcement; delivery failures only log.
func (ap *Applier) post(ctx context.Context, text string) {
	if err := ap.notifier.Post(ctx, text); err != nil {
		ap.logger.Warn("posting announcement", zap.Error(err))
	}
}
