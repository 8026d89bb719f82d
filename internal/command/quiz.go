package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

const quizboardSize = 10

// QuizboardCommand shows the daily quiz ranking.
type QuizboardCommand struct {
	BaseCommand
}

// NewQuizboardCommand creates the quizboard command.
func NewQuizboardCommand(deps *Dependencies) *QuizboardCommand {
	return &QuizboardCommand{BaseCommand: NewBaseCommand(deps)}
}

// Name implements Command.
func (c *QuizboardCommand) Name() string { return "quizboard" }

// Description implements Command.
func (c *QuizboardCommand) Description() string { return "Classement du quiz quotidien" }

// Access implements Command.
func (c *QuizboardCommand) Access() Access { return AccessPermission }

// Execute implements Command.
func (c *QuizboardCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	if c.deps.Scores == nil {
		return fmt.Errorf("score board not configured")
	}

	entries, err := c.deps.Scores.Leaderboard(ctx, quizboardSize)
	if err != nil {
		return fmt.Errorf("load quiz leaderboard: %w", err)
	}
	if len(entries) == 0 {
		return c.sendText(ctx, cmdCtx.ChatID, c.msg("quizboard.empty"))
	}

	mentions := make([]string, 0, len(entries))
	var sb strings.Builder
	sb.WriteString(c.msg("quizboard.header"))
	for i, entry := range entries {
		mentions = append(mentions, entry.Member)
		sb.WriteString(c.msg("quizboard.item",
			messages.P("index", i+1),
			messages.P("member", util.Mention(entry.Member)),
			messages.P("points", strconv.FormatFloat(entry.Score, 'f', -1, 64)),
		))
	}
	return c.sendText(ctx, cmdCtx.ChatID, sb.String(), mentions...)
}
