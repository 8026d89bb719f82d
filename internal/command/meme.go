package command

import (
	"context"
	"log/slog"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
)

// MemeCommand generates a developer meme and sends it as an image.
type MemeCommand struct {
	BaseCommand
}

// NewMemeCommand creates the meme command.
func NewMemeCommand(deps *Dependencies) *MemeCommand {
	return &MemeCommand{BaseCommand: NewBaseCommand(deps)}
}

// Name implements Command.
func (c *MemeCommand) Name() string { return "meme" }

// Description implements Command.
func (c *MemeCommand) Description() string { return "meme generator chatbot" }

// Access implements Command.
func (c *MemeCommand) Access() Access { return AccessPermission }

// Execute implements Command.
func (c *MemeCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	if c.deps.Memes == nil {
		return c.sendText(ctx, cmdCtx.ChatID, c.msg("meme.failed"))
	}
	defer c.typing(ctx, cmdCtx.ChatID)()

	meme, err := c.deps.Memes.RandomMeme(ctx)
	if err != nil || meme == nil || meme.URL == "" {
		c.deps.Logger.Warn("MEME_GENERATION_FAILED", slog.String("chat", cmdCtx.ChatID), slog.Any("error", err))
		return c.sendText(ctx, cmdCtx.ChatID, c.msg("meme.failed"))
	}

	return c.deps.SendMessage(ctx, cmdCtx.ChatID, domain.ImagePayload{
		ImageURL: meme.URL,
		Caption:  c.msg("meme.footer"),
	})
}
