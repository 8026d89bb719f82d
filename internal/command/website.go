package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

// NewsCommand lists the latest blog posts of the community website.
type NewsCommand struct {
	BaseCommand
}

// NewNewsCommand creates the news command.
func NewNewsCommand(deps *Dependencies) *NewsCommand {
	return &NewsCommand{BaseCommand: NewBaseCommand(deps)}
}

// Name implements Command.
func (c *NewsCommand) Name() string { return "news" }

// Description implements Command.
func (c *NewsCommand) Description() string { return "Recuperez les 5 dernières news de GNDC" }

// Access implements Command.
func (c *NewsCommand) Access() Access { return AccessPermission }

// Execute implements Command.
func (c *NewsCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.ensureWebsite(); err != nil {
		return err
	}
	defer c.typing(ctx, cmdCtx.ChatID)()

	posts, err := loadPage(ctx, c.deps, constants.ContentConfig.NewsCacheKey, c.deps.Website.Blogs)
	if err != nil {
		return fmt.Errorf("load blogs: %w", err)
	}

	base := c.deps.Website.BaseURL()
	var sb strings.Builder
	sb.WriteString(c.msg("news.header"))
	for i, post := range topN(posts) {
		author := post.Author.AuthorName()
		if author == "" {
			author = c.msg("news.unknown_author")
		}
		sb.WriteString(c.msg("news.item",
			messages.P("index", i+1),
			messages.P("title", strings.TrimRight(post.Title, " \t\n")),
			messages.P("author", author),
			messages.P("link", base+"/blog/"+post.Slug),
		))
	}
	sb.WriteString(c.msg("news.footer", messages.P("link", base+"/blog")))

	return c.sendText(ctx, cmdCtx.ChatID, sb.String(), senderMentions(cmdCtx)...)
}

func (c *NewsCommand) ensureWebsite() error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	if c.deps.Website == nil {
		return fmt.Errorf("website client not configured")
	}
	return nil
}

// ForumsCommand lists questions asked on the community forum.
type ForumsCommand struct {
	BaseCommand
}

// Forum filters accepted as first argument.
var forumFilters = []string{"all", "no-answer", "answered"}

// NewForumsCommand creates the forums command.
func NewForumsCommand(deps *Dependencies) *ForumsCommand {
	return &ForumsCommand{BaseCommand: NewBaseCommand(deps)}
}

// Name implements Command.
func (c *ForumsCommand) Name() string { return "forums" }

// Description implements Command.
func (c *ForumsCommand) Description() string { return "Consultez les questions posées sur le forum GNDC" }

// Access implements Command.
func (c *ForumsCommand) Access() Access { return AccessPermission }

// Execute implements Command.
func (c *ForumsCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	if c.deps.Website == nil {
		return fmt.Errorf("website client not configured")
	}

	if len(cmdCtx.Args) == 0 {
		return c.sendText(ctx, cmdCtx.ChatID, c.msg("forums.usage", messages.P("prefix", c.deps.Bot.Prefix)))
	}
	filter := util.Normalize(cmdCtx.Args[0])
	if !util.Contains(forumFilters, filter) {
		return c.sendText(ctx, cmdCtx.ChatID, c.msg("forums.invalid"))
	}

	defer c.typing(ctx, cmdCtx.ChatID)()

	key := fmt.Sprintf(constants.ContentConfig.ForumsCacheKey, filter)
	posts, err := loadPage(ctx, c.deps, key, func(ctx context.Context) ([]domain.ForumPost, error) {
		return c.deps.Website.Forums(ctx, filter)
	})
	if err != nil {
		return fmt.Errorf("load forums: %w", err)
	}

	base := c.deps.Website.BaseURL()
	var sb strings.Builder
	sb.WriteString(c.msg("forums.header"))
	for i, post := range topN(posts) {
		author := post.Author.AuthorName()
		if author == "" {
			author = c.msg("news.unknown_author")
		}
		sb.WriteString(c.msg("forums.item",
			messages.P("index", i+1),
			messages.P("title", strings.TrimRight(post.Title, " \t\n")),
			messages.P("author", author),
			messages.P("link", base+"/forum/"+post.ID),
		))
	}
	sb.WriteString(c.msg("forums.footer", messages.P("link", base+"/forum")))

	return c.sendText(ctx, cmdCtx.ChatID, sb.String(), senderMentions(cmdCtx)...)
}

// LeaderboardCommand shows the top website contributors by experience.
type LeaderboardCommand struct {
	BaseCommand
}

// NewLeaderboardCommand creates the leaderboard command.
func NewLeaderboardCommand(deps *Dependencies) *LeaderboardCommand {
	return &LeaderboardCommand{BaseCommand: NewBaseCommand(deps)}
}

// Name implements Command.
func (c *LeaderboardCommand) Name() string { return "leaderboard" }

// Description implements Command.
func (c *LeaderboardCommand) Description() string { return "Top 5 utilisateurs GNDC" }

// Access implements Command.
func (c *LeaderboardCommand) Access() Access { return AccessPermission }

// Execute implements Command.
func (c *LeaderboardCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	if c.deps.Website == nil {
		return fmt.Errorf("website client not configured")
	}
	defer c.typing(ctx, cmdCtx.ChatID)()

	board, err := loadPage(ctx, c.deps, constants.ContentConfig.LeaderboardCacheKey, c.deps.Website.Leaderboard)
	if err != nil {
		return fmt.Errorf("load leaderboard: %w", err)
	}

	base := c.deps.Website.BaseURL()
	var sb strings.Builder
	sb.WriteString(c.msg("leaderboard.header"))
	if board != nil {
		for i, user := range topN(board.Users) {
			sb.WriteString(c.msg("leaderboard.item",
				messages.P("index", i+1),
				messages.P("name", user.Name),
				messages.P("xp", user.ExperiencePoints),
				messages.P("link", base+"/user/"+user.Username),
			))
		}
	}
	sb.WriteString(c.msg("leaderboard.footer", messages.P("link", base+"/leaderboard")))

	return c.sendText(ctx, cmdCtx.ChatID, sb.String())
}

// EventsCommand lists upcoming community events.
type EventsCommand struct {
	BaseCommand
}

// NewEventsCommand creates the events command.
func NewEventsCommand(deps *Dependencies) *EventsCommand {
	return &EventsCommand{BaseCommand: NewBaseCommand(deps)}
}

// Name implements Command.
func (c *EventsCommand) Name() string { return "events" }

// Description implements Command.
func (c *EventsCommand) Description() string { return "La liste des prochains évènements GNDC" }

// Access implements Command.
func (c *EventsCommand) Access() Access { return AccessPermission }

// Execute implements Command.
func (c *EventsCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	if c.deps.Website == nil {
		return fmt.Errorf("website client not configured")
	}
	defer c.typing(ctx, cmdCtx.ChatID)()

	events, err := loadPage(ctx, c.deps, constants.ContentConfig.EventsCacheKey, c.deps.Website.Events)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	base := c.deps.Website.BaseURL()
	var sb strings.Builder
	sb.WriteString(c.msg("events.header"))
	if len(events) == 0 {
		sb.WriteString(c.msg("events.empty"))
	}
	for i, event := range topN(events) {
		sb.WriteString(c.msg("events.item",
			messages.P("index", i+1),
			messages.P("title", event.Title),
			messages.P("description", event.Description),
			messages.P("location", event.Location),
			messages.P("link", event.Link),
		))
	}
	sb.WriteString(c.msg("events.footer", messages.P("link", base+"/events")))

	return c.sendText(ctx, cmdCtx.ChatID, sb.String())
}

func topN[T any](items []T) []T {
	if len(items) > constants.ContentConfig.TopItems {
		return items[:constants.ContentConfig.TopItems]
	}
	return items
}
