// Package settings exposes the table-wide great-wound settings as a read-only
// typed store. The raw values live in a shared key/value backend (Redis in
// production, an in-memory map in tests); this package owns the decoding so
// use sites never dispatch on raw strings.
package settings

import (
	"context"
	"fmt"
)

// MissingSaveDC is the difficulty used when no save DC is configured at all.
// A missing value forces near-certain failure on purpose: a misconfigured
// table should surface loudly, not silently pass every save.
const MissingSaveDC = 100

// DefaultFeatureName is the display name used when none is configured.
const DefaultFeatureName = "Great Wound"

// ItemMode is the closed enumeration for wound-result application, decided
// once at read time.
type ItemMode int

const (
	// ItemModeDisabled draws and announces a table result but attaches nothing.
	ItemModeDisabled ItemMode = iota
	// ItemModeAttachItem attaches a copy of the drawn item to the actor.
	ItemModeAttachItem
	// ItemModeAttachEffect attaches a copy of the drawn item's first effect.
	ItemModeAttachEffect
)

// String returns the canonical configuration spelling of the mode.
func (m ItemMode) String() string {
	switch m {
	case ItemModeAttachItem:
		return "item"
	case ItemModeAttachEffect:
		return "effect"
	default:
		return "off"
	}
}

// ParseItemMode decodes a raw configuration value into an ItemMode. Both the
// canonical names and the legacy numeric spellings ("0", "1", "2") are
// accepted; an empty value means disabled.
//
// Postcondition: Returns a valid ItemMode or a non-nil error.
func ParseItemMode(raw string) (ItemMode, error) {
	switch raw {
	case "", "off", "0", "false":
		return ItemModeDisabled, nil
	case "item", "1":
		return ItemModeAttachItem, nil
	case "effect", "2":
		return ItemModeAttachEffect, nil
	default:
		return ItemModeDisabled, fmt.Errorf("settings: unknown item mode %q", raw)
	}
}

// Store is the read-only view of the great-wound settings surface.
//
// Implementations MUST be safe for concurrent use.
type Store interface {
	// Enabled reports whether the great-wound feature is on. Missing ⇒ false.
	Enabled(ctx context.Context) (bool, error)
	// FeatureName returns the display name. Missing ⇒ DefaultFeatureName.
	FeatureName(ctx context.Context) (string, error)
	// TableName returns the configured roll-table name. Missing ⇒ "".
	TableName(ctx context.Context) (string, error)
	// MaskNPCNames reports whether NPC names are masked in announcements.
	// Missing ⇒ false.
	MaskNPCNames(ctx context.Context) (bool, error)
	// SaveDC returns the saving-throw difficulty. Missing ⇒ MissingSaveDC.
	SaveDC(ctx context.Context) (int, error)
	// ItemMode returns the result-application mode. Missing ⇒ ItemModeDisabled.
	ItemMode(ctx context.Context) (ItemMode, error)
}

// Keys under which the raw values are stored, relative to the key prefix.
const (
	keyEnabled      = "enabled"
	keyFeatureName  = "feature_name"
	keyTableName    = "table_name"
	keyMaskNPCNames = "mask_npc_names"
	keySaveDC       = "save_dc"
	keyItemMode     = "item_mode"
)

func parseBool(raw string) (bool, error) {
	switch raw {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off", "":
		return false, nil
	default:
		return false, fmt.Errorf("settings: invalid boolean %q", raw)
	}
}
