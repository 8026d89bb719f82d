package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
)

// AskCommand forwards a question to the text generator with the GNDC assistant prompt.
type AskCommand struct {
	BaseCommand
}

// NewAskCommand creates the ask command.
func NewAskCommand(deps *Dependencies) *AskCommand {
	return &AskCommand{BaseCommand: NewBaseCommand(deps)}
}

// Name implements Command.
func (c *AskCommand) Name() string { return "ask" }

// Description implements Command.
func (c *AskCommand) Description() string { return "Posez une question au chatbot" }

// Access implements Command.
func (c *AskCommand) Access() Access { return AccessPermission }

// Execute implements Command.
func (c *AskCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	if c.deps.Asker == nil {
		return fmt.Errorf("text generator not configured")
	}

	if len(cmdCtx.Args) == 0 {
		return c.sendText(ctx, cmdCtx.ChatID, c.msg("ask.usage", messages.P("prefix", c.deps.Bot.Prefix)))
	}

	defer c.typing(ctx, cmdCtx.ChatID)()

	answer, err := c.deps.Asker.Complete(ctx, c.msg("ask.system"), strings.Join(cmdCtx.Args, " "))
	if err != nil {
		return fmt.Errorf("ask generator: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		answer = c.msg("error.no_answer")
	}
	return c.sendText(ctx, cmdCtx.ChatID, answer)
}
