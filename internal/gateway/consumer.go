// Package gateway links the bot to the WhatsApp gateway process over Valkey streams: gateway
// events are consumed from one stream and socket commands are published to another.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
)

// Sink receives decoded gateway events. done must be called once the event is handled.
type Sink interface {
	Submit(ctx context.Context, ev domain.GatewayEvent, done func()) error
}

// ConsumerConfig: event stream consumer settings
type ConsumerConfig struct {
	StreamKey     string
	ConsumerGroup string
	ConsumerName  string
	ReadCount     int64
	BlockTimeout  time.Duration
}

// Consumer reads the gateway event stream through a consumer group and hands each entry to a
// Sink. Entries are marked processing before hand-off and completed (ACK) when the sink is done.
type Consumer struct {
	cfg    ConsumerConfig
	client valkey.Client
	sink   Sink
	logger *slog.Logger
}

// NewConsumer creates a Consumer and preloads its Lua scripts.
func NewConsumer(ctx context.Context, cfg ConsumerConfig, client valkey.Client, sink Sink, logger *slog.Logger) *Consumer {
	if cfg.StreamKey == "" {
		cfg.StreamKey = constants.GatewayConfig.EventStreamKey
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = constants.GatewayConfig.ConsumerGroup
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = "gndc-bot"
	}
	if cfg.ReadCount <= 0 {
		cfg.ReadCount = constants.GatewayConfig.ReadCount
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = constants.GatewayConfig.BlockTimeout
	}
	if err := gatewayLuaRegistry.Preload(ctx, client); err != nil {
		logger.Warn("GATEWAY_LUA_PRELOAD_FAILED", slog.Any("error", err))
	}
	return &Consumer{cfg: cfg, client: client, sink: sink, logger: logger}
}

// Start runs the read loop in its own goroutine.
func (c *Consumer) Start(ctx context.Context) {
	go c.Run(ctx)
}

// Run reads until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) {
	c.EnsureGroup(ctx)

	for {
		if ctx.Err() != nil {
			c.logger.Info("GATEWAY_CONSUMER_STOPPED", slog.String("stream", c.cfg.StreamKey))
			return
		}

		_, err := c.Poll(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			c.logger.Info("GATEWAY_CONSUMER_STOPPING",
				slog.String("stream", c.cfg.StreamKey),
				slog.String("reason", "parent context canceled"),
			)
			return
		}

		switch {
		case isNogroupErr(err):
			c.logger.Warn("GATEWAY_NOGROUP_DETECTED",
				slog.String("stream", c.cfg.StreamKey),
				slog.String("group", c.cfg.ConsumerGroup),
			)
			c.EnsureGroup(ctx)
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
			c.logger.Warn("GATEWAY_READ_TIMEOUT", slog.String("stream", c.cfg.StreamKey))
			continue
		default:
			c.logger.Error("GATEWAY_READ_ERROR", slog.String("stream", c.cfg.StreamKey), slog.Any("error", err))
		}
		if !sleepWithContext(ctx, constants.GatewayConfig.RetryDelay) {
			return
		}
	}
}

// EnsureGroup creates the consumer group (and the stream) when missing.
func (c *Consumer) EnsureGroup(ctx context.Context) {
	cmd := c.client.B().XgroupCreate().Key(c.cfg.StreamKey).Group(c.cfg.ConsumerGroup).Id("$").Mkstream().Build()
	err := c.client.Do(ctx, cmd).Error()
	if err != nil && !isBusyGroupErr(err) {
		c.logger.Warn("GATEWAY_GROUP_CREATE_FAILED",
			slog.String("stream", c.cfg.StreamKey),
			slog.String("group", c.cfg.ConsumerGroup),
			slog.Any("error", err),
		)
		return
	}
	c.logger.Info("GATEWAY_GROUP_READY",
		slog.String("stream", c.cfg.StreamKey),
		slog.String("group", c.cfg.ConsumerGroup),
	)
}

// Poll performs one XREADGROUP and submits what it read, in stream order.
// It returns the number of entries read.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	cmd := c.client.B().Xreadgroup().
		Group(c.cfg.ConsumerGroup, c.cfg.ConsumerName).
		Count(c.cfg.ReadCount).
		Block(c.cfg.BlockTimeout.Milliseconds()).
		Streams().
		Key(c.cfg.StreamKey).
		Id(">").
		Build()

	// detached from ctx so a shutdown does not cut a reply in half
	readTimeout := c.cfg.BlockTimeout + 2*time.Second
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readTimeout)
	resp := c.client.Do(readCtx, cmd)
	cancel()

	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, err
	}

	streams, err := resp.AsXRead()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("parse xreadgroup reply: %w", err)
	}

	read := 0
	for _, entries := range streams {
		for _, entry := range entries {
			read++
			c.handleEntry(ctx, entry)
		}
	}
	return read, nil
}

func (c *Consumer) handleEntry(ctx context.Context, entry valkey.XRangeEntry) {
	name := entry.FieldValues["event"]
	if name == "" {
		c.logger.Warn("GATEWAY_ENTRY_SKIPPED", slog.String("id", entry.ID), slog.String("reason", "missing event"))
		if err := c.ack(ctx, entry.ID); err != nil {
			c.logger.Warn("GATEWAY_ACK_FAILED", slog.String("id", entry.ID), slog.Any("error", err))
		}
		return
	}

	if c.checkIdempotency(ctx, entry.ID) != 1 {
		return
	}

	ev := domain.GatewayEvent{
		StreamID: entry.ID,
		Name:     name,
		Payload:  json.RawMessage(entry.FieldValues["payload"]),
	}
	done := func() { c.markComplete(context.WithoutCancel(ctx), entry.ID) }

	if err := c.sink.Submit(ctx, ev, done); err != nil {
		c.logger.Error("GATEWAY_SUBMIT_FAILED",
			slog.String("id", entry.ID),
			slog.String("event", name),
			slog.Any("error", err),
		)
		// release the processing mark so a redelivery is not mistaken for a duplicate
		release := c.client.B().Del().Key(idempotencyKey(entry.ID)).Build()
		_ = c.client.Do(context.WithoutCancel(ctx), release).Error()
	}
}

// checkIdempotency: 1 = process, 0 = already completed, -1 = in progress elsewhere
func (c *Consumer) checkIdempotency(ctx context.Context, id string) int64 {
	ttl := strconv.FormatInt(int64(constants.GatewayConfig.IdempotencyProcessingTTL.Seconds()), 10)
	resp, err := gatewayLuaRegistry.Exec(ctx, c.client, scriptProcessWithIdempotency,
		[]string{idempotencyKey(id), c.cfg.StreamKey},
		[]string{c.cfg.ConsumerGroup, id, ttl},
	)
	if err != nil {
		c.logger.Error("GATEWAY_IDEMPOTENCY_SCRIPT_MISSING", slog.String("id", id), slog.Any("error", err))
		return 0
	}
	state, err := resp.AsInt64()
	if err != nil {
		c.logger.Error("GATEWAY_IDEMPOTENCY_CHECK_FAILED", slog.String("id", id), slog.Any("error", err))
		return 0
	}
	switch state {
	case 0:
		c.logger.Debug("GATEWAY_ENTRY_ALREADY_PROCESSED", slog.String("id", id))
	case -1:
		c.logger.Debug("GATEWAY_ENTRY_IN_PROGRESS", slog.String("id", id))
	}
	return state
}

func (c *Consumer) markComplete(ctx context.Context, id string) {
	ttl := strconv.FormatInt(int64(constants.GatewayConfig.IdempotencyTTL.Seconds()), 10)
	resp, err := gatewayLuaRegistry.Exec(ctx, c.client, scriptCompleteProcessing,
		[]string{idempotencyKey(id), c.cfg.StreamKey},
		[]string{c.cfg.ConsumerGroup, id, ttl},
	)
	if err != nil {
		c.logger.Error("GATEWAY_COMPLETE_SCRIPT_MISSING", slog.String("id", id), slog.Any("error", err))
		return
	}
	if err := resp.Error(); err != nil {
		c.logger.Error("GATEWAY_COMPLETE_FAILED", slog.String("id", id), slog.Any("error", err))
	}
}

func (c *Consumer) ack(ctx context.Context, id string) error {
	cmd := c.client.B().Xack().Key(c.cfg.StreamKey).Group(c.cfg.ConsumerGroup).Id(id).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("xack %s: %w", id, err)
	}
	return nil
}

func idempotencyKey(id string) string {
	return "gateway:processed:" + id
}

func isBusyGroupErr(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isNogroupErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "NOGROUP")
}

// sleepWithContext waits for delay; false when ctx ended first.
func sleepWithContext(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
