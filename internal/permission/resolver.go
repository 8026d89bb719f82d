// Package permission decides which chats may use a command or receive a scheduled event.
package permission

import (
	"context"
	"log/slog"
	"slices"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// Resolver: evaluates the BotSettings document, fetched fresh on every call
type Resolver struct {
	source SettingsSource
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(source SettingsSource, logger *slog.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// ResolveTargets lists the active entries whose key list contains value, host first and then
// "other" in declaration order. An unreadable or missing document yields an empty list, which
// callers treat as nothing to do.
func (r *Resolver) ResolveTargets(ctx context.Context, key domain.PermissionKey, value string) []domain.Target {
	settings, err := r.source.LoadSettings(ctx)
	if err != nil {
		if errors.IsNotFound(err) {
			r.logger.Warn("SETTINGS_MISSING", slog.String("key", string(key)), slog.String("value", value))
		} else {
			r.logger.Error("SETTINGS_LOAD_FAILED", slog.String("key", string(key)), slog.Any("error", err))
		}
		return nil
	}
	return Targets(settings, key, value)
}

// Targets is the pure evaluation behind ResolveTargets.
func Targets(settings *domain.BotSettings, key domain.PermissionKey, value string) []domain.Target {
	var targets []domain.Target
	for _, entry := range settings.Entries() {
		if entry.MakeInactive || !entry.Allows(key, value) {
			continue
		}
		targets = append(targets, domain.Target{ID: entry.ID, AllowInbox: entry.AllowInbox})
	}
	return targets
}

// AuthorizeCommand reports whether command may run in chatID.
// Group chats must be an active entry granting the command. Private chats use the allow_inbox
// list of the entry matching the chat, else that of the host entry.
func (r *Resolver) AuthorizeCommand(ctx context.Context, chatID string, isGroup bool, command string) bool {
	settings, err := r.source.LoadSettings(ctx)
	if err != nil {
		if errors.IsNotFound(err) {
			r.logger.Warn("SETTINGS_MISSING", slog.String("command", command))
		} else {
			r.logger.Error("SETTINGS_LOAD_FAILED", slog.String("command", command), slog.Any("error", err))
		}
		return false
	}
	return Authorize(settings, chatID, isGroup, command)
}

// Authorize applies the command rules to a settings snapshot.
func Authorize(settings *domain.BotSettings, chatID string, isGroup bool, command string) bool {
	if settings == nil {
		return false
	}
	entry, found := settings.Find(chatID)
	if !found {
		if isGroup || settings.Host.ID == "" {
			return false
		}
		entry = settings.Host
	}
	if entry.MakeInactive {
		return false
	}
	if isGroup {
		return entry.Allows(domain.AllowedCommand, command)
	}
	return slices.Contains(entry.AllowInbox, command)
}
