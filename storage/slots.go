package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/teilomillet/chatline/config"
	"go.uber.org/zap"
)

// Slot names a persisted value.
type Slot string

const (
	SlotAPIKey      Slot = "api_key"
	SlotSettings    Slot = "settings"
	SlotTheme       Slot = "theme"
	SlotHistory     Slot = "history"
	SlotPreferences Slot = "preferences"
)

// AllSlots lists every slot in a fixed order.
var AllSlots = []Slot{SlotAPIKey, SlotSettings, SlotTheme, SlotHistory, SlotPreferences}

// ParseSlot validates a slot name.
func ParseSlot(name string) (Slot, error) {
	for _, s := range AllSlots {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown storage slot %q", name)
}

// KeyFor returns the configured key of slot.
func KeyFor(slot Slot, cfg config.StorageConfig) string {
	switch slot {
	case SlotAPIKey:
		return cfg.APIKey
	case SlotSettings:
		return cfg.Settings
	case SlotTheme:
		return cfg.Theme
	case SlotHistory:
		return cfg.ChatHistory
	case SlotPreferences:
		return cfg.UserPreferences
	default:
		return ""
	}
}

// Slots reads and writes slots as JSON. Failures are logged and reported
// as false; callers fall back to their defaults.
type Slots struct {
	store  Store
	cfg    config.StorageConfig
	logger *zap.Logger

	// historyMu serialises read-modify-write of the history slot
	historyMu sync.Mutex
}

// NewSlots binds store to the configured slot keys.
func NewSlots(store Store, cfg config.StorageConfig, logger *zap.Logger) *Slots {
	return &Slots{store: store, cfg: cfg, logger: logger}
}

// Get decodes slot into dst. It returns false when the slot is unset or its
// value does not decode; dst is then left as the caller's default.
func (s *Slots) Get(ctx context.Context, slot Slot, dst any) bool {
	raw, ok := s.GetRaw(ctx, slot)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Error("Storage get error",
			zap.String("slot", string(slot)),
			zap.Error(err),
		)
		return false
	}
	return true
}

// GetRaw returns the stored JSON of slot.
func (s *Slots) GetRaw(ctx context.Context, slot Slot) (json.RawMessage, bool) {
	raw, ok, err := s.store.Get(ctx, KeyFor(slot, s.cfg))
	if err != nil {
		s.logger.Error("Storage get error",
			zap.String("slot", string(slot)),
			zap.Error(err),
		)
		return nil, false
	}
	if !ok || !json.Valid(raw) {
		return nil, false
	}
	return raw, true
}

// Set encodes value as JSON and stores it in slot.
func (s *Slots) Set(ctx context.Context, slot Slot, value any) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("Storage set error",
			zap.String("slot", string(slot)),
			zap.Error(err),
		)
		return false
	}
	if err := s.store.Set(ctx, KeyFor(slot, s.cfg), raw); err != nil {
		s.logger.Error("Storage set error",
			zap.String("slot", string(slot)),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Remove deletes slot.
func (s *Slots) Remove(ctx context.Context, slot Slot) bool {
	if err := s.store.Remove(ctx, KeyFor(slot, s.cfg)); err != nil {
		s.logger.Error("Storage remove error",
			zap.String("slot", string(slot)),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Clear removes every slot. It keeps going after a failure and reports
// whether all removals succeeded.
func (s *Slots) Clear(ctx context.Context) bool {
	ok := true
	for _, slot := range AllSlots {
		if !s.Remove(ctx, slot) {
			ok = false
		}
	}
	return ok
}
