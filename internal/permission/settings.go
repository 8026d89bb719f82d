package permission

import (
	"context"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/store"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// SettingsSource returns the current authorization document.
type SettingsSource interface {
	LoadSettings(ctx context.Context) (*domain.BotSettings, error)
}

// KVSettings reads and writes BotSettings under the bot-settings key.
type KVSettings struct {
	store  *store.Store
	logger *slog.Logger
}

// NewKVSettings creates a KVSettings.
func NewKVSettings(st *store.Store, logger *slog.Logger) *KVSettings {
	return &KVSettings{store: st, logger: logger}
}

// LoadSettings fetches the document; a missing key yields errors.ErrNotFound.
func (s *KVSettings) LoadSettings(ctx context.Context) (*domain.BotSettings, error) {
	var settings domain.BotSettings
	found, err := s.store.Get(ctx, constants.StoreKeys.Settings, &settings)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.ErrNotFound
	}
	return &settings, nil
}

// SaveSettings replaces the document after checking entry ids are unique.
func (s *KVSettings) SaveSettings(ctx context.Context, settings *domain.BotSettings) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	if err := s.store.Save(ctx, constants.StoreKeys.Settings, store.TypeSettings, settings, 0); err != nil {
		return err
	}
	s.logger.Info("SETTINGS_SAVED",
		slog.String("host", settings.Host.ID),
		slog.Int("others", len(settings.Other)),
	)
	return nil
}

// ValidateSettings enforces at most one entry per chat id.
func ValidateSettings(settings *domain.BotSettings) error {
	if settings == nil {
		return errors.NewValidationError("settings document is empty", "")
	}
	seen := make(map[string]struct{})
	for _, entry := range settings.Entries() {
		if entry.ID == "" {
			return errors.NewValidationError("entry without id", "id")
		}
		if _, dup := seen[entry.ID]; dup {
			return errors.NewValidationError("duplicate entry "+entry.ID, "id")
		}
		seen[entry.ID] = struct{}{}
	}
	return nil
}

// LoadSettingsFile parses a YAML (or JSON) settings document from disk.
func LoadSettingsFile(path string) (*domain.BotSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var settings domain.BotSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, errors.NewValidationError("invalid settings file: "+err.Error(), "")
	}
	if err := ValidateSettings(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}
