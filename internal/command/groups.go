package command

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
)

// GroupsCommand lists the groups the bot is in. Author only.
type GroupsCommand struct {
	BaseCommand
}

// NewGroupsCommand creates the groups command.
func NewGroupsCommand(deps *Dependencies) *GroupsCommand {
	return &GroupsCommand{BaseCommand: NewBaseCommand(deps)}
}

// Name implements Command.
func (c *GroupsCommand) Name() string { return "groups" }

// Description implements Command.
func (c *GroupsCommand) Description() string { return "List all groups you are currently in." }

// Access implements Command.
func (c *GroupsCommand) Access() Access { return AccessAuthor }

// Execute implements Command.
func (c *GroupsCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	if c.deps.Groups == nil {
		return c.sendText(ctx, cmdCtx.ChatID, c.msg("groups.error"))
	}

	groups, err := c.deps.Groups.Groups(ctx)
	if err != nil {
		c.deps.Logger.Error("GROUPS_FETCH_FAILED", slog.Any("error", err))
		return c.sendText(ctx, cmdCtx.ChatID, c.msg("groups.error"))
	}
	if len(groups) == 0 {
		return c.sendText(ctx, cmdCtx.ChatID, c.msg("groups.empty"))
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Subject < groups[j].Subject })

	var sb strings.Builder
	sb.WriteString(c.msg("groups.header"))
	for i, group := range groups {
		sb.WriteString(c.msg("groups.item",
			messages.P("index", i+1),
			messages.P("subject", group.Subject),
			messages.P("members", len(group.Participants)),
			messages.P("id", group.ID),
		))
	}
	sb.WriteString(c.msg("groups.footer", messages.P("count", len(groups))))

	return c.sendText(ctx, cmdCtx.ChatID, sb.String())
}
