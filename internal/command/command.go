package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/shortcache"
)

// Access: who may invoke a command
type Access int

// Access levels.
const (
	// AccessPublic runs for anyone.
	AccessPublic Access = iota
	// AccessPermission requires an allowedcommand grant in the bot settings.
	AccessPermission
	// AccessAuthor is reserved to the configured bot author.
	AccessAuthor
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessPermission:
		return "permission"
	case AccessAuthor:
		return "author"
	default:
		return "unknown"
	}
}

// Command: chat command handler (name, description, access level, execution logic)
type Command interface {
	Name() string
	Description() string
	Access() Access
	Execute(ctx context.Context, cmdCtx *domain.CommandContext) error
}

// Website reads community content from the GNDC website API.
type Website interface {
	Blogs(ctx context.Context) ([]domain.BlogPost, error)
	Forums(ctx context.Context, filter string) ([]domain.ForumPost, error)
	Leaderboard(ctx context.Context) (*domain.Leaderboard, error)
	Events(ctx context.Context) ([]domain.CommunityEvent, error)
	BaseURL() string
}

// Asker answers free-form questions.
type Asker interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// MemeMaker renders a meme on a topic of its choice.
type MemeMaker interface {
	RandomMeme(ctx context.Context) (*domain.Meme, error)
}

// GroupLister lists the groups the bot participates in.
type GroupLister interface {
	Groups(ctx context.Context) ([]domain.GroupMetadata, error)
}

// ScoreBoard reads the quiz leaderboard.
type ScoreBoard interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.ScoreEntry, error)
}

// Dependencies: services and callbacks shared by every command
type Dependencies struct {
	Bot          config.BotConfig
	Messages     *messages.Provider
	Website      Website
	Asker        Asker
	Memes        MemeMaker
	Groups       GroupLister
	Scores       ScoreBoard
	Pages        *shortcache.Cache[any]
	SendMessage  func(ctx context.Context, chatID string, payload domain.Payload) error
	SendPresence func(ctx context.Context, chatID, state string) error
	Location     *time.Location
	Now          func() time.Time
	Logger       *slog.Logger
}
