// Package event routes gateway events to their handlers.
package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
)

// ErrDuplicateHandler: an event already has a handler
var ErrDuplicateHandler = errors.New("duplicate event handler")

// Handler processes one kind of gateway event.
type Handler interface {
	Event() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Registry: event name to handler map, built once at startup
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{handlers: make(map[string]Handler), logger: logger}
}

// Register adds handler; one handler per event name.
func (r *Registry) Register(handler Handler) error {
	if handler == nil || handler.Event() == "" {
		return fmt.Errorf("invalid event handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[handler.Event()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, handler.Event())
	}
	r.handlers[handler.Event()] = handler
	return nil
}

// Resolve returns the handler of name.
func (r *Registry) Resolve(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[name]
	return handler, ok
}

// Events lists the registered event names.
func (r *Registry) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler of ev. Events without handler are ignored.
func (r *Registry) Dispatch(ctx context.Context, ev domain.GatewayEvent) error {
	handler, ok := r.Resolve(ev.Name)
	if !ok {
		r.logger.Debug("EVENT_UNHANDLED", slog.String("event", ev.Name), slog.String("id", ev.StreamID))
		return nil
	}
	if err := handler.Handle(ctx, ev.Payload); err != nil {
		return fmt.Errorf("event %s: %w", ev.Name, err)
	}
	return nil
}
