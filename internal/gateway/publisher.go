package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/valkey-io/valkey-go"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/metrics"
)

// Socket operations published on the command stream.
const (
	OpSend        = "send"
	OpPin         = "pin"
	OpUnpin       = "unpin"
	OpPresence    = "presence"
	OpReconnect   = "reconnect"
	OpPairingCode = "pairing-code"
)

// PublisherConfig: command stream settings
type PublisherConfig struct {
	StreamKey string
	MaxLen    int64
}

// Publisher writes socket commands to the gateway command stream.
type Publisher struct {
	cfg     PublisherConfig
	client  valkey.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher creates a Publisher.
func NewPublisher(cfg PublisherConfig, client valkey.Client, m *metrics.Metrics, logger *slog.Logger) *Publisher {
	if cfg.StreamKey == "" {
		cfg.StreamKey = constants.GatewayConfig.CommandStreamKey
	}
	if cfg.MaxLen == 0 {
		cfg.MaxLen = constants.GatewayConfig.CommandStreamMaxLen
	}
	return &Publisher{cfg: cfg, client: client, metrics: m, logger: logger, now: time.Now}
}

// NewMessageID returns a client-side message id in the WhatsApp web format.
func NewMessageID() (string, error) {
	suffix, err := gonanoid.Generate(constants.GatewayConfig.MessageIDAlphabet, constants.GatewayConfig.MessageIDLength)
	if err != nil {
		return "", fmt.Errorf("generate message id: %w", err)
	}
	return constants.GatewayConfig.MessageIDPrefix + suffix, nil
}

// Send publishes payload for chatID and returns the reference the gateway will use for it.
func (p *Publisher) Send(ctx context.Context, chatID string, payload domain.Payload) (domain.MessageRef, error) {
	if payload == nil {
		return domain.MessageRef{}, fmt.Errorf("send to %s: nil payload", chatID)
	}
	id, err := NewMessageID()
	if err != nil {
		return domain.MessageRef{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("encode %s payload: %w", payload.Kind(), err)
	}

	err = p.publish(ctx, OpSend,
		"id", id,
		"chatId", chatID,
		"kind", string(payload.Kind()),
		"payload", string(body),
	)
	if err != nil {
		return domain.MessageRef{}, err
	}
	return domain.MessageRef{ChatID: chatID, ID: id, FromMe: true}, nil
}

// Pin pins ref for ttl.
func (p *Publisher) Pin(ctx context.Context, ref domain.MessageRef, ttl time.Duration) error {
	return p.publish(ctx, OpPin,
		"id", ref.ID,
		"chatId", ref.ChatID,
		"ttl", strconv.FormatInt(int64(ttl/time.Second), 10),
	)
}

// Unpin removes the pin of ref.
func (p *Publisher) Unpin(ctx context.Context, ref domain.MessageRef) error {
	return p.publish(ctx, OpUnpin, "id", ref.ID, "chatId", ref.ChatID)
}

// SendPresence updates the presence shown in chatID (composing, paused).
func (p *Publisher) SendPresence(ctx context.Context, chatID, state string) error {
	return p.publish(ctx, OpPresence, "chatId", chatID, "state", state)
}

// Reconnect asks the gateway to reopen its socket.
func (p *Publisher) Reconnect(ctx context.Context) error {
	return p.publish(ctx, OpReconnect)
}

// RequestPairingCode asks the gateway for a phone pairing code for number.
func (p *Publisher) RequestPairingCode(ctx context.Context, number string) error {
	return p.publish(ctx, OpPairingCode, "number", number)
}

// Ping checks the Valkey connection.
func (p *Publisher) Ping(ctx context.Context) bool {
	return p.client.Do(ctx, p.client.B().Ping().Build()).Error() == nil
}

func (p *Publisher) publish(ctx context.Context, op string, fieldValues ...string) error {
	args := make([]string, 0, len(fieldValues)+8)
	if p.cfg.MaxLen > 0 {
		args = append(args, "MAXLEN", "~", strconv.FormatInt(p.cfg.MaxLen, 10))
	}
	args = append(args, "*", "op", op, "ts", strconv.FormatInt(p.now().UnixMilli(), 10))
	args = append(args, fieldValues...)

	cmd := p.client.B().Arbitrary("XADD").Keys(p.cfg.StreamKey).Args(args...).Build()
	if err := p.client.Do(ctx, cmd).Error(); err != nil {
		p.metrics.ObserveSend(op, metrics.StatusFailed)
		p.logger.Error("GATEWAY_PUBLISH_FAILED",
			slog.String("stream", p.cfg.StreamKey),
			slog.String("op", op),
			slog.Any("error", err),
		)
		return fmt.Errorf("publish %s: %w", op, err)
	}

	p.metrics.ObserveSend(op, metrics.StatusOK)
	p.logger.Debug("GATEWAY_PUBLISHED", slog.String("stream", p.cfg.StreamKey), slog.String("op", op))
	return nil
}
