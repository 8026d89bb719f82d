package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
)

// SessionState records what the HTTP API exposes about the gateway session.
type SessionState interface {
	SetQR(ctx context.Context, qr string) error
	SetPairingCode(ctx context.Context, code string) error
	SetConnection(ctx context.Context, update domain.ConnectionUpdate) error
}

// Reconnector asks the gateway to reconnect after a non-terminal close.
type Reconnector interface {
	ScheduleReconnect(ctx context.Context, statusCode int)
	Reset()
}

// ConnectionHandler reacts to connection.update: QR and pairing state, reconnects, and the
// self greeting once the session opens.
type ConnectionHandler struct {
	session     SessionState
	reconnector Reconnector
	send        func(ctx context.Context, chatID string, payload domain.Payload) error
	requestCode func(ctx context.Context, number string) error
	messages    *messages.Provider
	botName     string
	botNumber   string
	location    *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

// ConnectionDeps groups the collaborators of ConnectionHandler.
type ConnectionDeps struct {
	Session     SessionState
	Reconnector Reconnector
	Send        func(ctx context.Context, chatID string, payload domain.Payload) error
	RequestCode func(ctx context.Context, number string) error
	Messages    *messages.Provider
	BotName     string
	BotNumber   string
	Location    *time.Location
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewConnectionHandler creates a ConnectionHandler.
func NewConnectionHandler(deps ConnectionDeps) *ConnectionHandler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Messages == nil {
		deps.Messages = messages.Default()
	}
	return &ConnectionHandler{
		session:     deps.Session,
		reconnector: deps.Reconnector,
		send:        deps.Send,
		requestCode: deps.RequestCode,
		messages:    deps.Messages,
		botName:     deps.BotName,
		botNumber:   deps.BotNumber,
		location:    deps.Location,
		now:         deps.Now,
		logger:      deps.Logger,
	}
}

func (h *ConnectionHandler) Event() string { return domain.EventConnectionUpdate }

func (h *ConnectionHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var update domain.ConnectionUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return fmt.Errorf("decode connection.update: %w", err)
	}

	if h.session != nil {
		if err := h.session.SetConnection(ctx, update); err != nil {
			h.logger.Warn("SESSION_STATE_SAVE_FAILED", slog.Any("error", err))
		}
		if update.QR != "" {
			if err := h.session.SetQR(ctx, update.QR); err != nil {
				h.logger.Warn("SESSION_QR_SAVE_FAILED", slog.Any("error", err))
			}
		}
		if update.PairingCode != "" {
			h.logger.Info("PAIRING_CODE_RECEIVED", slog.String("code", update.PairingCode))
			if err := h.session.SetPairingCode(ctx, update.PairingCode); err != nil {
				h.logger.Warn("SESSION_PAIRING_SAVE_FAILED", slog.Any("error", err))
			}
		}
	}

	if !update.Registered && update.Connection != domain.ConnectionOpen {
		return h.requestPairing(ctx, update)
	}

	switch update.Connection {
	case domain.ConnectionClose:
		if update.LoggedOut() {
			h.logger.Error("GATEWAY_LOGGED_OUT",
				slog.Int("status", update.StatusCode),
				slog.String("hint", "session revoked, re-authentication required"),
			)
			return nil
		}
		h.logger.Warn("GATEWAY_CONNECTION_CLOSED",
			slog.Int("status", update.StatusCode),
			slog.String("reason", update.Reason),
		)
		if h.reconnector != nil {
			h.reconnector.ScheduleReconnect(ctx, update.StatusCode)
		}
	case domain.ConnectionOpen:
		h.logger.Info("GATEWAY_CONNECTED", slog.String("self", update.SelfJID))
		if h.reconnector != nil {
			h.reconnector.Reset()
		}
		h.greet(ctx, update.SelfJID)
	}
	return nil
}

func (h *ConnectionHandler) requestPairing(ctx context.Context, update domain.ConnectionUpdate) error {
	if update.PairingCode != "" || update.QR != "" {
		return nil
	}
	if h.botNumber == "" {
		h.logger.Warn("PAIRING_NUMBER_MISSING", slog.String("hint", "set bot.bot_number in bot.yml"))
		return nil
	}
	if h.requestCode == nil {
		return nil
	}
	if err := h.requestCode(ctx, h.botNumber); err != nil {
		return fmt.Errorf("request pairing code: %w", err)
	}
	return nil
}

func (h *ConnectionHandler) greet(ctx context.Context, selfJID string) {
	if selfJID == "" {
		h.logger.Warn("SELF_JID_UNKNOWN")
		return
	}
	if h.send == nil {
		return
	}
	text := h.messages.Get("connection.greeting",
		messages.P("name", h.botName),
		messages.P("now", h.now().In(h.location).Format("02/01/2006 15:04:05")),
	)
	if err := h.send(ctx, selfJID, domain.TextPayload{Text: text}); err != nil {
		h.logger.Error("SELF_GREETING_FAILED", slog.Any("error", err))
	}
}
