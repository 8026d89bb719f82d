package command

import (
	"context"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
)

// HelpCommand lists commands; the text depends on where it is asked.
type HelpCommand struct {
	BaseCommand
}

// NewHelpCommand creates the help command.
func NewHelpCommand(deps *Dependencies) *HelpCommand {
	return &HelpCommand{BaseCommand: NewBaseCommand(deps)}
}

// Name implements Command.
func (c *HelpCommand) Name() string { return "help" }

// Description implements Command.
func (c *HelpCommand) Description() string { return "List available commands." }

// Access implements Command.
func (c *HelpCommand) Access() Access { return AccessPublic }

// Execute implements Command.
func (c *HelpCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}

	key := "help.inbox"
	switch {
	case cmdCtx.IsGroup() || cmdCtx.ChatID == c.deps.Bot.GroupTarget:
		key = "help.group"
	case c.deps.Bot.AuthorJID != "" && cmdCtx.ChatID == c.deps.Bot.AuthorJID:
		key = "help.author"
	}
	return c.sendText(ctx, cmdCtx.ChatID, c.msg(key))
}
