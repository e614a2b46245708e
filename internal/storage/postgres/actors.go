package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/greatwound/internal/actor"
)

// ErrActorNotFound is returned when an actor lookup yields no results.
var ErrActorNotFound = errors.New("actor not found")

// ErrActorExists is returned when creating an actor whose ID already exists.
var ErrActorExists = errors.New("actor already exists")

// ActorRepository provides actor document persistence. The embedded item and
// effect collections live in actor_items and actor_effects; the permission
// map in actor_permissions.
type ActorRepository struct {
	db *pgxpool.Pool
}

// NewActorRepository creates an ActorRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewActorRepository(db *pgxpool.Pool) *ActorRepository {
	return &ActorRepository{db: db}
}

// Create inserts a new actor together with its permission map.
//
// Precondition: a.ID and a.Name must be non-empty.
// Postcondition: Returns the stored actor with timestamps set, or
// ErrActorExists on a duplicate ID.
func (r *ActorRepository) Create(ctx context.Context, a *actor.Actor) (*actor.Actor, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := *a
	err = tx.QueryRow(ctx, `
		INSERT INTO actors (id, name, npc, current_hp, max_hp, constitution)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		a.ID, a.Name, a.NPC, a.CurrentHP, a.MaxHP, a.Constitution,
	).Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrActorExists
		}
		return nil, fmt.Errorf("inserting actor: %w", err)
	}

	for userID, level := range a.Permissions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO actor_permissions (actor_id, user_id, level)
			VALUES ($1,$2,$3)`,
			a.ID, userID, int(level),
		); err != nil {
			return nil, fmt.Errorf("inserting permission for %s: %w", userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing actor: %w", err)
	}
	return &out, nil
}

// GetByID retrieves an actor with its permission map and embedded
// collections.
//
// Precondition: id must be non-empty.
// Postcondition: Returns the Actor or ErrActorNotFound.
func (r *ActorRepository) GetByID(ctx context.Context, id string) (*actor.Actor, error) {
	var a actor.Actor
	err := r.db.QueryRow(ctx, `
		SELECT id, name, npc, current_hp, max_hp, constitution, created_at, updated_at
		FROM actors WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Name, &a.NPC, &a.CurrentHP, &a.MaxHP, &a.Constitution, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActorNotFound
		}
		return nil, fmt.Errorf("querying actor: %w", err)
	}

	a.Permissions = make(map[string]actor.PermissionLevel)
	if err := r.loadPermissions(ctx, &a); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &a); err != nil {
		return nil, err
	}
	if err := r.loadEffects(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateHP persists a new current hit-point value.
//
// Postcondition: Returns nil on success, ErrActorNotFound if no row updated.
func (r *ActorRepository) UpdateHP(ctx context.Context, id string, currentHP int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE actors SET current_hp = $2, updated_at = NOW()
		WHERE id = $1`,
		id, currentHP,
	)
	if err != nil {
		return fmt.Errorf("updating actor hp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrActorNotFound
	}
	return nil
}

// AttachItem persists one attached item row, effects included.
//
// Precondition: item.ID must be the fresh instance ID, not the source ID.
// Postcondition: Returns nil on success, ErrActorNotFound for an unknown actor.
func (r *ActorRepository) AttachItem(ctx context.Context, actorID string, item actor.Item) error {
	effects := item.Effects
	if effects == nil {
		effects = []actor.Effect{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO actor_items (id, actor_id, name, effects)
		VALUES ($1,$2,$3,$4)`,
		item.ID, actorID, item.Name, effects,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrActorNotFound
		}
		return fmt.Errorf("inserting actor item: %w", err)
	}
	return nil
}

// AttachEffect persists one attached effect row.
//
// Precondition: effect.ID must be the fresh instance ID, not the source ID.
// Postcondition: Returns nil on success, ErrActorNotFound for an unknown actor.
func (r *ActorRepository) AttachEffect(ctx context.Context, actorID string, effect actor.Effect) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO actor_effects (id, actor_id, name)
		VALUES ($1,$2,$3)`,
		effect.ID, actorID, effect.Name,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrActorNotFound
		}
		return fmt.Errorf("inserting actor effect: %w", err)
	}
	return nil
}

func (r *ActorRepository) loadPermissions(ctx context.Context, a *actor.Actor) error {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, level FROM actor_permissions WHERE actor_id = $1`,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("querying actor permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var level int
		if err := rows.Scan(&userID, &level); err != nil {
			return fmt.Errorf("scanning permission row: %w", err)
		}
		a.Permissions[userID] = actor.PermissionLevel(level)
	}
	return rows.Err()
}

func (r *ActorRepository) loadItems(ctx context.Context, a *actor.Actor) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, effects FROM actor_items
		WHERE actor_id = $1 ORDER BY created_at ASC`,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("querying actor items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item actor.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Effects); err != nil {
			return fmt.Errorf("scanning item row: %w", err)
		}
		a.Items = append(a.Items, item)
	}
	return rows.Err()
}

func (r *ActorRepository) loadEffects(ctx context.Context, a *actor.Actor) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, name FROM actor_effects
		WHERE actor_id = $1 ORDER BY created_at ASC`,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("querying actor effects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var effect actor.Effect
		if err := rows.Scan(&effect.ID, &effect.Name); err != nil {
			return fmt.Errorf("scanning effect row: %w", err)
		}
		a.Effects = append(a.Effects, effect)
	}
	return rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

// isForeignKeyError checks if a pgx error is a foreign key violation.
func isForeignKeyError(err error) bool {
	// SQLSTATE 23503 (foreign_key_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23503"
	}
	return false
}
