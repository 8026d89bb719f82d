package dispatch

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/event"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/metrics"
)

// ErrRouterStopped: Submit after Stop
var ErrRouterStopped = errors.New("router stopped")

type routedEvent struct {
	ctx  context.Context
	ev   domain.GatewayEvent
	done func()
}

// Router: fans gateway events out to a fixed number of lanes. Events of the same chat always
// land on the same lane and run in arrival order; different chats run concurrently.
type Router struct {
	events  *event.Registry
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	lanes   []chan routedEvent
	started bool
	stopped bool
	wg      conc.WaitGroup
}

// NewRouter creates a Router with laneCount lanes of laneBuffer pending events each.
func NewRouter(events *event.Registry, laneCount, laneBuffer int, m *metrics.Metrics, logger *slog.Logger) *Router {
	if laneCount <= 0 {
		laneCount = constants.GatewayConfig.LaneCount
	}
	if laneBuffer <= 0 {
		laneBuffer = constants.GatewayConfig.LaneBuffer
	}
	lanes := make([]chan routedEvent, laneCount)
	for i := range lanes {
		lanes[i] = make(chan routedEvent, laneBuffer)
	}
	return &Router{events: events, metrics: m, logger: logger, lanes: lanes}
}

// Start launches one worker per lane.
func (r *Router) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	for _, lane := range r.lanes {
		r.wg.Go(func() {
			for item := range lane {
				r.handle(item)
			}
		})
	}
}

// Submit queues ev on its chat lane. done runs after the handler returns (or panics).
// It blocks while the lane is full, until ctx is done.
func (r *Router) Submit(ctx context.Context, ev domain.GatewayEvent, done func()) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrRouterStopped
	}

	lane := r.lanes[laneIndex(LaneKey(ev), len(r.lanes))]
	select {
	case lane <- routedEvent{ctx: ctx, ev: ev, done: done}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the lanes and waits for queued events to drain.
func (r *Router) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	for _, lane := range r.lanes {
		close(lane)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Router) handle(item routedEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("EVENT_HANDLER_PANIC",
				slog.String("event", item.ev.Name),
				slog.String("id", item.ev.StreamID),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
		if item.done != nil {
			item.done()
		}
	}()

	r.metrics.ObserveEvent(item.ev.Name)
	if err := r.events.Dispatch(item.ctx, item.ev); err != nil {
		r.logger.Error("EVENT_HANDLER_FAILED",
			slog.String("event", item.ev.Name),
			slog.String("id", item.ev.StreamID),
			slog.Any("error", err),
		)
	}
}

type chatProbe struct {
	ID       string `json:"id"`
	ChatID   string `json:"chatId"`
	Messages []struct {
		Key struct {
			RemoteJID string `json:"remoteJid"`
		} `json:"key"`
	} `json:"messages"`
}

// LaneKey returns the chat an event belongs to, or its name when it has none.
func LaneKey(ev domain.GatewayEvent) string {
	if len(ev.Payload) > 0 && ev.Payload[0] == '{' {
		var probe chatProbe
		if err := json.Unmarshal(ev.Payload, &probe); err == nil {
			switch {
			case len(probe.Messages) > 0 && probe.Messages[0].Key.RemoteJID != "":
				return probe.Messages[0].Key.RemoteJID
			case probe.ChatID != "":
				return probe.ChatID
			case probe.ID != "":
				return probe.ID
			}
		}
	}
	return ev.Name
}

func laneIndex(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
