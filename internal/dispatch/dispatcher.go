// Package dispatch turns inbound gateway traffic into handler invocations: the Router orders
// events per chat, and the MessageDispatcher maps chat messages to commands.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/command"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/metrics"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

// Authorizer decides whether a permission-scoped command may run in a chat.
type Authorizer interface {
	AuthorizeCommand(ctx context.Context, chatID string, isGroup bool, command string) bool
}

// Config: dispatcher settings
type Config struct {
	Prefix         string
	AuthorJID      string
	CommandTimeout time.Duration
}

// MessageDispatcher: parses prefixed messages, checks access, and runs the matching command
// inside a failure boundary.
type MessageDispatcher struct {
	cfg        Config
	registry   *command.Registry
	authorizer Authorizer
	send       func(ctx context.Context, chatID string, payload domain.Payload) error
	messages   *messages.Provider
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewMessageDispatcher creates a MessageDispatcher.
func NewMessageDispatcher(
	cfg Config,
	registry *command.Registry,
	authorizer Authorizer,
	send func(ctx context.Context, chatID string, payload domain.Payload) error,
	msgs *messages.Provider,
	m *metrics.Metrics,
	logger *slog.Logger,
) *MessageDispatcher {
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = constants.RequestTimeout.BotCommand
	}
	if msgs == nil {
		msgs = messages.Default()
	}
	return &MessageDispatcher{
		cfg:        cfg,
		registry:   registry,
		authorizer: authorizer,
		send:       send,
		messages:   msgs,
		metrics:    m,
		logger:     logger,
	}
}

// Parse extracts the command name (lower-cased) and its arguments from text.
// ok is false when text does not start with prefix or names no command.
func Parse(text, prefix string) (name string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// HandleMessage processes one inbound message. It never returns an error: unknown commands,
// denied access and command failures all end here.
func (d *MessageDispatcher) HandleMessage(ctx context.Context, msg *domain.InboundMessage) {
	text := msg.Text()
	if text == "" {
		return
	}
	name, args, ok := Parse(text, d.cfg.Prefix)
	if !ok {
		return
	}

	cmd, found := d.registry.Resolve(name)
	if !found {
		d.logger.Debug("COMMAND_UNKNOWN", slog.String("command", name), slog.String("chat", msg.ChatID()))
		return
	}

	cmdCtx := &domain.CommandContext{
		ChatID:   msg.ChatID(),
		SenderID: msg.SenderID(),
		Command:  cmd.Name(),
		Args:     args,
		Message:  msg,
	}

	if !d.allowed(ctx, cmd, cmdCtx) {
		d.logger.Debug("COMMAND_DENIED",
			slog.String("command", cmd.Name()),
			slog.String("access", cmd.Access().String()),
			slog.String("chat", cmdCtx.ChatID),
		)
		d.metrics.ObserveCommand(cmd.Name(), metrics.StatusDenied, 0)
		return
	}

	d.logger.Info("COMMAND_RECEIVED",
		slog.String("command", cmd.Name()),
		slog.String("chat", cmdCtx.ChatID),
		slog.String("sender", cmdCtx.SenderID),
		slog.Int("args", len(args)),
	)
	d.execute(ctx, cmd, cmdCtx)
}

func (d *MessageDispatcher) allowed(ctx context.Context, cmd command.Command, cmdCtx *domain.CommandContext) bool {
	switch cmd.Access() {
	case command.AccessPublic:
		return true
	case command.AccessAuthor:
		author := util.JIDUser(d.cfg.AuthorJID)
		return author != "" && (util.JIDUser(cmdCtx.SenderID) == author || util.JIDUser(cmdCtx.ChatID) == author)
	case command.AccessPermission:
		if d.authorizer == nil {
			return false
		}
		return d.authorizer.AuthorizeCommand(ctx, cmdCtx.ChatID, cmdCtx.IsGroup(), cmd.Name())
	default:
		return false
	}
}

func (d *MessageDispatcher) execute(ctx context.Context, cmd command.Command, cmdCtx *domain.CommandContext) {
	start := time.Now()
	status := metrics.StatusOK

	defer func() {
		if r := recover(); r != nil {
			status = metrics.StatusPanic
			d.logger.Error("COMMAND_PANIC",
				slog.String("command", cmd.Name()),
				slog.String("chat", cmdCtx.ChatID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			d.apologize(ctx, cmdCtx.ChatID)
		}
		d.metrics.ObserveCommand(cmd.Name(), status, time.Since(start))
	}()

	execCtx, cancel := context.WithTimeout(ctx, d.cfg.CommandTimeout)
	defer cancel()

	if err := cmd.Execute(execCtx, cmdCtx); err != nil {
		status = metrics.StatusError
		d.logger.Error("COMMAND_FAILED",
			slog.String("command", cmd.Name()),
			slog.String("chat", cmdCtx.ChatID),
			slog.Any("error", err),
		)
		d.apologize(ctx, cmdCtx.ChatID)
		return
	}

	d.logger.Info("COMMAND_EXECUTED",
		slog.String("command", cmd.Name()),
		slog.Duration("elapsed", time.Since(start)),
	)
}

func (d *MessageDispatcher) apologize(ctx context.Context, chatID string) {
	if d.send == nil {
		return
	}
	err := d.send(context.WithoutCancel(ctx), chatID, domain.TextPayload{Text: d.messages.Get("error.generic")})
	if err != nil {
		d.logger.Warn("APOLOGY_SEND_FAILED", slog.String("chat", chatID), slog.Any("error", err))
	}
}

// String describes the dispatcher for startup logs.
func (d *MessageDispatcher) String() string {
	return fmt.Sprintf("dispatcher(prefix=%q, commands=%d)", d.cfg.Prefix, d.registry.Count())
}
