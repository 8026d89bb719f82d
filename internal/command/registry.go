package command

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

// ErrDuplicateCommand: a command with the same normalized name is already registered
var ErrDuplicateCommand = errors.New("duplicate command")

// Registry: holds every command handler keyed by its normalized name.
// Built once at startup and read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Command)}
}

// Register adds handler. Registering a name twice fails with ErrDuplicateCommand.
func (r *Registry) Register(handler Command) error {
	if handler == nil {
		return fmt.Errorf("command handler is nil")
	}

	name := util.Normalize(handler.Name())
	if name == "" {
		return fmt.Errorf("command name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	r.handlers[name] = handler
	return nil
}

// MustRegister registers handlers and panics on a duplicate.
func (r *Registry) MustRegister(handlers ...Command) {
	for _, handler := range handlers {
		if err := r.Register(handler); err != nil {
			panic(err)
		}
	}
}

// Resolve finds a handler by name, case-insensitively.
func (r *Registry) Resolve(name string) (Command, bool) {
	if r == nil {
		return nil, false
	}
	key := util.Normalize(name)
	if key == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[key]
	return handler, ok
}

// Count returns the number of registered commands.
func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
