package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

// BaseCommand: common dependency checks and send helpers embedded by every command.
type BaseCommand struct {
	deps *Dependencies
}

// NewBaseCommand creates a BaseCommand and fills unset optional dependencies.
// Commands are built once at startup, before any of them runs.
func NewBaseCommand(deps *Dependencies) BaseCommand {
	deps.applyDefaults()
	return BaseCommand{deps: deps}
}

func (d *Dependencies) applyDefaults() {
	if d == nil {
		return
	}
	if d.Messages == nil {
		d.Messages = messages.Default()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = util.CampaignLocation()
	}
}

// EnsureBaseDeps checks the callbacks every command needs. It never writes to the shared
// dependencies.
func (b *BaseCommand) EnsureBaseDeps() error {
	if b == nil || b.deps == nil {
		return fmt.Errorf("command dependencies not configured")
	}
	if b.deps.SendMessage == nil {
		return fmt.Errorf("message callback not configured")
	}
	return nil
}

// Deps returns the dependencies.
func (b *BaseCommand) Deps() *Dependencies {
	if b == nil {
		return nil
	}
	return b.deps
}

func (b *BaseCommand) sendText(ctx context.Context, chatID, text string, mentions ...string) error {
	return b.deps.SendMessage(ctx, chatID, domain.TextPayload{Text: text, Mentions: mentions})
}

func (b *BaseCommand) msg(key string, params ...messages.Param) string {
	return b.deps.Messages.Get(key, params...)
}

// typing shows the composing indicator and returns the func that clears it.
func (b *BaseCommand) typing(ctx context.Context, chatID string) func() {
	if b.deps.SendPresence == nil {
		return func() {}
	}
	if err := b.deps.SendPresence(ctx, chatID, domain.PresenceComposing); err != nil {
		b.deps.Logger.Debug("PRESENCE_FAILED", slog.String("chat", chatID), slog.Any("error", err))
	}
	return func() {
		if err := b.deps.SendPresence(context.WithoutCancel(ctx), chatID, domain.PresencePaused); err != nil {
			b.deps.Logger.Debug("PRESENCE_FAILED", slog.String("chat", chatID), slog.Any("error", err))
		}
	}
}

// loadPage reads an upstream page through the short-lived cache.
func loadPage[T any](ctx context.Context, deps *Dependencies, key string, load func(context.Context) (T, error)) (T, error) {
	if deps.Pages == nil {
		return load(ctx)
	}
	value, err := deps.Pages.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		page, err := load(ctx)
		return page, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return load(ctx)
	}
	return typed, nil
}

// senderMentions mentions the sender in group replies.
func senderMentions(cmdCtx *domain.CommandContext) []string {
	if cmdCtx.IsGroup() && cmdCtx.SenderID != "" && cmdCtx.SenderID != cmdCtx.ChatID {
		return []string{cmdCtx.SenderID}
	}
	return nil
}
