package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/greatwound/internal/config"
)

// KeyPrefix is prepended to every settings key in Redis.
const KeyPrefix = "greatwound:settings:"

// RedisStore reads great-wound settings from a shared Redis instance. The
// store is read-only by design: the table's configuration UI (out of scope
// here) owns the writes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects a RedisStore using the given configuration.
//
// Postcondition: Returns a connected store or a non-nil error (ping failure).
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client; used by tests.
//
// Precondition: client must be non-nil.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// get returns the raw value for key, with ok=false when the key is absent.
func (s *RedisStore) get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, KeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %q: %w", key, err)
	}
	return val, true, nil
}

// Enabled implements Store.
func (s *RedisStore) Enabled(ctx context.Context) (bool, error) {
	raw, ok, err := s.get(ctx, keyEnabled)
	if err != nil || !ok {
		return false, err
	}
	return parseBool(raw)
}

// FeatureName implements Store.
func (s *RedisStore) FeatureName(ctx context.Context) (string, error) {
	raw, ok, err := s.get(ctx, keyFeatureName)
	if err != nil {
		return "", err
	}
	if !ok || raw == "" {
		return DefaultFeatureName, nil
	}
	return raw, nil
}

// TableName implements Store.
func (s *RedisStore) TableName(ctx context.Context) (string, error) {
	raw, _, err := s.get(ctx, keyTableName)
	return raw, err
}

// MaskNPCNames implements Store.
func (s *RedisStore) MaskNPCNames(ctx context.Context) (bool, error) {
	raw, ok, err := s.get(ctx, keyMaskNPCNames)
	if err != nil || !ok {
		return false, err
	}
	return parseBool(raw)
}

// SaveDC implements Store. A missing key yields MissingSaveDC, forcing
// near-certain failure until the table is configured.
func (s *RedisStore) SaveDC(ctx context.Context) (int, error) {
	raw, ok, err := s.get(ctx, keySaveDC)
	if err != nil {
		return 0, err
	}
	if !ok {
		return MissingSaveDC, nil
	}
	dc, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("settings: invalid save DC %q: %w", raw, err)
	}
	return dc, nil
}

// ItemMode implements Store.
func (s *RedisStore) ItemMode(ctx context.Context) (ItemMode, error) {
	raw, ok, err := s.get(ctx, keyItemMode)
	if err != nil || !ok {
		return ItemModeDisabled, err
	}
	return ParseItemMode(raw)
}

var _ Store = (*RedisStore)(nil)
