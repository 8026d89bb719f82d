package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// ReconnectPolicy: delay growth between reconnect attempts
type ReconnectPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultReconnectPolicy starts at 3s and doubles up to 2 minutes.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		InitialDelay: constants.ReconnectConfig.InitialDelay,
		MaxDelay:     constants.ReconnectConfig.MaxDelay,
		Multiplier:   constants.ReconnectConfig.Multiplier,
	}
}

// Reconnector schedules a single pending reconnect after each non-terminal close. The delay
// grows on consecutive closes and resets once the connection opens.
type Reconnector struct {
	reconnect func(ctx context.Context) error
	logger    *slog.Logger

	mu      sync.Mutex
	policy  *backoff.ExponentialBackOff
	pending *time.Timer
	stopped bool
}

// NewReconnector creates a Reconnector calling reconnect when a delay elapses.
func NewReconnector(reconnect func(ctx context.Context) error, policy ReconnectPolicy, logger *slog.Logger) *Reconnector {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialDelay
	b.MaxInterval = policy.MaxDelay
	b.Multiplier = policy.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return &Reconnector{reconnect: reconnect, logger: logger, policy: b}
}

// ScheduleReconnect arms the reconnect timer unless one is already pending.
// A logged-out status is terminal and never rescheduled.
func (r *Reconnector) ScheduleReconnect(ctx context.Context, statusCode int) {
	if statusCode == domain.DisconnectLoggedOut {
		r.logger.Error("GATEWAY_RECONNECT_ABORTED", slog.Int("status", statusCode), slog.Any("error", errors.ErrLoggedOut))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.pending != nil {
		return
	}

	delay := r.policy.NextBackOff()
	if delay == backoff.Stop {
		delay = r.policy.MaxInterval
	}
	r.logger.Info("GATEWAY_RECONNECT_SCHEDULED", slog.Int("status", statusCode), slog.Duration("delay", delay))

	detached := context.WithoutCancel(ctx)
	r.pending = time.AfterFunc(delay, func() {
		r.mu.Lock()
		r.pending = nil
		stopped := r.stopped
		r.mu.Unlock()
		if stopped {
			return
		}

		if err := r.reconnect(detached); err != nil {
			r.logger.Warn("GATEWAY_RECONNECT_FAILED", slog.Any("error", err))
			r.ScheduleReconnect(detached, statusCode)
			return
		}
		r.logger.Info("GATEWAY_RECONNECT_REQUESTED")
	})
}

// Reset cancels any pending reconnect and restarts the delay sequence.
func (r *Reconnector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.policy.Reset()
}

// Pending reports whether a reconnect is armed.
func (r *Reconnector) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending != nil
}

// Stop disarms the reconnector for good.
func (r *Reconnector) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}
