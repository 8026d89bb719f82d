package command

import (
	"context"
	"strings"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
)

// HiCommand greets the chat.
type HiCommand struct {
	BaseCommand
}

// NewHiCommand creates the hi command.
func NewHiCommand(deps *Dependencies) *HiCommand {
	return &HiCommand{BaseCommand: NewBaseCommand(deps)}
}

func (c *HiCommand) Name() string        { return "hi" }
func (c *HiCommand) Description() string { return "Say hello." }
func (c *HiCommand) Access() Access      { return AccessPublic }

func (c *HiCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	return c.sendText(ctx, cmdCtx.ChatID, c.msg("hi.greeting", messages.P("description", c.deps.Bot.Description)))
}

// PingCommand answers and reports the send round-trip.
type PingCommand struct {
	BaseCommand
}

// NewPingCommand creates the ping command.
func NewPingCommand(deps *Dependencies) *PingCommand {
	return &PingCommand{BaseCommand: NewBaseCommand(deps)}
}

func (c *PingCommand) Name() string { return "ping" }
func (c *PingCommand) Description() string {
	return "Check if the bot is alive and measure response time."
}
func (c *PingCommand) Access() Access { return AccessPublic }

func (c *PingCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	start := c.deps.Now()
	if err := c.sendText(ctx, cmdCtx.ChatID, c.msg("ping.pong")); err != nil {
		return err
	}
	latency := c.deps.Now().Sub(start).Milliseconds()
	return c.sendText(ctx, cmdCtx.ChatID, c.msg("ping.latency", messages.P("ms", latency)))
}

// TimeCommand prints the server time in the community timezone.
type TimeCommand struct {
	BaseCommand
}

// NewTimeCommand creates the time command.
func NewTimeCommand(deps *Dependencies) *TimeCommand {
	return &TimeCommand{BaseCommand: NewBaseCommand(deps)}
}

func (c *TimeCommand) Name() string        { return "time" }
func (c *TimeCommand) Description() string { return "Get the current server time." }
func (c *TimeCommand) Access() Access      { return AccessPublic }

func (c *TimeCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	now := c.deps.Now().In(c.deps.Location).Format("02/01/2006 15:04:05")
	return c.sendText(ctx, cmdCtx.ChatID, c.msg("time.now", messages.P("now", now)))
}

// ImageCommand sends the community logo.
type ImageCommand struct {
	BaseCommand
}

// NewImageCommand creates the image command.
func NewImageCommand(deps *Dependencies) *ImageCommand {
	return &ImageCommand{BaseCommand: NewBaseCommand(deps)}
}

func (c *ImageCommand) Name() string        { return "image" }
func (c *ImageCommand) Description() string { return "Send an image." }
func (c *ImageCommand) Access() Access      { return AccessPublic }

func (c *ImageCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	return c.deps.SendMessage(ctx, cmdCtx.ChatID, domain.ImagePayload{
		ImageURL: c.msg("image.url"),
		Caption:  c.msg("image.caption"),
	})
}

// PollCommand creates a poll from "Question? A; B; C".
type PollCommand struct {
	BaseCommand
}

// NewPollCommand creates the poll command.
func NewPollCommand(deps *Dependencies) *PollCommand {
	return &PollCommand{BaseCommand: NewBaseCommand(deps)}
}

func (c *PollCommand) Name() string { return "poll" }
func (c *PollCommand) Description() string {
	return "Create a poll. Usage: !poll Question? Option1; Option2; Option3"
}
func (c *PollCommand) Access() Access { return AccessPublic }

func (c *PollCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	if err := c.EnsureBaseDeps(); err != nil {
		return err
	}
	if len(cmdCtx.Args) == 0 {
		return c.sendText(ctx, cmdCtx.ChatID, c.msg("poll.usage", messages.P("prefix", c.deps.Bot.Prefix)))
	}

	question, options, errKey := ParsePoll(strings.Join(cmdCtx.Args, " "))
	if errKey != "" {
		return c.sendText(ctx, cmdCtx.ChatID, c.msg(errKey))
	}

	return c.deps.SendMessage(ctx, cmdCtx.ChatID, domain.PollPayload{
		Question:        question,
		Options:         options,
		SelectableCount: 1,
	})
}

// ParsePoll splits "Question? A; B" into its question and options. On bad input it returns the
// message key describing the problem.
func ParsePoll(input string) (question string, options []string, errKey string) {
	head, tail, found := strings.Cut(input, "?")
	if !found {
		return "", nil, "poll.missing_question"
	}
	question = strings.TrimSpace(head) + "?"
	for _, option := range strings.Split(tail, ";") {
		if option = strings.TrimSpace(option); option != "" {
			options = append(options, option)
		}
	}
	if len(options) < 2 {
		return "", nil, "poll.missing_options"
	}
	return question, options, ""
}
