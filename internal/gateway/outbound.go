package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
)

// Sender is the socket surface the bot writes to.
type Sender interface {
	Send(ctx context.Context, chatID string, payload domain.Payload) (domain.MessageRef, error)
	Pin(ctx context.Context, ref domain.MessageRef, ttl time.Duration) error
	Unpin(ctx context.Context, ref domain.MessageRef) error
	SendPresence(ctx context.Context, chatID, state string) error
}

// SendFunc adapts s to the fire-and-forget callback used by commands and handlers.
func SendFunc(s Sender) func(ctx context.Context, chatID string, payload domain.Payload) error {
	return func(ctx context.Context, chatID string, payload domain.Payload) error {
		_, err := s.Send(ctx, chatID, payload)
		return err
	}
}

// RateLimited paces outbound operations with a token bucket.
type RateLimited struct {
	next    Sender
	limiter *rate.Limiter
}

// NewRateLimited wraps next. perSecond <= 0 uses the default rate.
func NewRateLimited(next Sender, perSecond float64, burst int) *RateLimited {
	if perSecond <= 0 {
		perSecond = constants.GatewayConfig.SendRatePerSecond
	}
	if burst <= 0 {
		burst = constants.GatewayConfig.SendBurst
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Send implements Sender.
func (r *RateLimited) Send(ctx context.Context, chatID string, payload domain.Payload) (domain.MessageRef, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.MessageRef{}, err
	}
	return r.next.Send(ctx, chatID, payload)
}

// Pin implements Sender.
func (r *RateLimited) Pin(ctx context.Context, ref domain.MessageRef, ttl time.Duration) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.next.Pin(ctx, ref, ttl)
}

// Unpin implements Sender.
func (r *RateLimited) Unpin(ctx context.Context, ref domain.MessageRef) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.next.Unpin(ctx, ref)
}

// SendPresence implements Sender. Presence updates are not paced.
func (r *RateLimited) SendPresence(ctx context.Context, chatID, state string) error {
	return r.next.SendPresence(ctx, chatID, state)
}

// Retrying retries failed publishes with exponential backoff.
type Retrying struct {
	next       Sender
	maxRetries uint64
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetrying wraps next.
func NewRetrying(next Sender, maxRetries uint64, baseDelay time.Duration, logger *slog.Logger) *Retrying {
	if baseDelay <= 0 {
		baseDelay = constants.RetryConfig.BaseDelay
	}
	return &Retrying{next: next, maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

// Send implements Sender.
func (r *Retrying) Send(ctx context.Context, chatID string, payload domain.Payload) (domain.MessageRef, error) {
	var ref domain.MessageRef
	err := r.retry(ctx, "send", func() error {
		var err error
		ref, err = r.next.Send(ctx, chatID, payload)
		return err
	})
	return ref, err
}

// Pin implements Sender.
func (r *Retrying) Pin(ctx context.Context, ref domain.MessageRef, ttl time.Duration) error {
	return r.retry(ctx, "pin", func() error { return r.next.Pin(ctx, ref, ttl) })
}

// Unpin implements Sender.
func (r *Retrying) Unpin(ctx context.Context, ref domain.MessageRef) error {
	return r.retry(ctx, "unpin", func() error { return r.next.Unpin(ctx, ref) })
}

// SendPresence implements Sender. Presence is best effort and never retried.
func (r *Retrying) SendPresence(ctx context.Context, chatID, state string) error {
	return r.next.SendPresence(ctx, chatID, state)
}

func (r *Retrying) retry(ctx context.Context, op string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.baseDelay
	policy.MaxElapsedTime = 0
	policy.Reset()

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("GATEWAY_PUBLISH_RETRY",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)
	}
	return backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx), notify)
}
