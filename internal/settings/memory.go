package settings

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore is a map-backed Store for tests and headless single-node play.
// Unlike the production store it exposes setters; the zero value of every
// setting matches the missing-key behavior of RedisStore.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore: feature disabled, no table,
// save DC missing (⇒ MissingSaveDC), item mode disabled.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Set stores a raw value under the given settings key.
func (s *MemoryStore) set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// SetEnabled toggles the feature flag.
func (s *MemoryStore) SetEnabled(v bool) { s.set(keyEnabled, strconv.FormatBool(v)) }

// SetFeatureName sets the display name.
func (s *MemoryStore) SetFeatureName(v string) { s.set(keyFeatureName, v) }

// SetTableName sets the roll-table name.
func (s *MemoryStore) SetTableName(v string) { s.set(keyTableName, v) }

// SetMaskNPCNames toggles NPC name masking.
func (s *MemoryStore) SetMaskNPCNames(v bool) { s.set(keyMaskNPCNames, strconv.FormatBool(v)) }

// SetSaveDC sets the saving-throw difficulty.
func (s *MemoryStore) SetSaveDC(v int) { s.set(keySaveDC, strconv.Itoa(v)) }

// SetItemMode sets the result-application mode.
func (s *MemoryStore) SetItemMode(v ItemMode) { s.set(keyItemMode, v.String()) }

// Enabled implements Store.
func (s *MemoryStore) Enabled(_ context.Context) (bool, error) {
	raw, ok := s.get(keyEnabled)
	if !ok {
		return false, nil
	}
	return parseBool(raw)
}

// FeatureName implements Store.
func (s *MemoryStore) FeatureName(_ context.Context) (string, error) {
	raw, ok := s.get(keyFeatureName)
	if !ok || raw == "" {
		return DefaultFeatureName, nil
	}
	return raw, nil
}

// TableName implements Store.
func (s *MemoryStore) TableName(_ context.Context) (string, error) {
	raw, _ := s.get(keyTableName)
	return raw, nil
}

// MaskNPCNames implements Store.
func (s *MemoryStore) MaskNPCNames(_ context.Context) (bool, error) {
	raw, ok := s.get(keyMaskNPCNames)
	if !ok {
		return false, nil
	}
	return parseBool(raw)
}

// SaveDC implements Store.
func (s *MemoryStore) SaveDC(_ context.Context) (int, error) {
	raw, ok := s.get(keySaveDC)
	if !ok {
		return MissingSaveDC, nil
	}
	return strconv.Atoi(raw)
}

// ItemMode implements Store.
func (s *MemoryStore) ItemMode(_ context.Context) (ItemMode, error) {
	raw, ok := s.get(keyItemMode)
	if !ok {
		return ItemModeDisabled, nil
	}
	return ParseItemMode(raw)
}

var _ Store = (*MemoryStore)(nil)
