package gateway

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"
)

const (
	scriptProcessWithIdempotency = "gateway_process_with_idempotency"
	scriptCompleteProcessing     = "gateway_complete_processing"
)

type luaRegistry struct {
	scripts map[string]*valkey.Lua
	sources map[string]string
}

func newLuaRegistry() *luaRegistry {
	sources := map[string]string{
		scriptProcessWithIdempotency: processWithIdempotencyLua,
		scriptCompleteProcessing:     completeProcessingLua,
	}
	scripts := make(map[string]*valkey.Lua, len(sources))
	for name, source := range sources {
		scripts[name] = valkey.NewLuaScript(source)
	}
	return &luaRegistry{scripts: scripts, sources: sources}
}

var gatewayLuaRegistry = newLuaRegistry()

func (r *luaRegistry) Exec(ctx context.Context, client valkey.Client, name string, keys []string, args []string) (valkey.ValkeyResult, error) {
	if client == nil {
		return valkey.ValkeyResult{}, fmt.Errorf("valkey client is nil")
	}
	script, ok := r.scripts[name]
	if !ok {
		return valkey.ValkeyResult{}, fmt.Errorf("unknown lua script: %s", name)
	}
	return script.Exec(ctx, client, keys, args), nil
}

// Preload loads every script on every node so the first EVALSHA does not miss.
func (r *luaRegistry) Preload(ctx context.Context, client valkey.Client) error {
	if client == nil {
		return fmt.Errorf("valkey client is nil")
	}

	nodes := client.Nodes()
	if len(nodes) == 0 {
		nodes = map[string]valkey.Client{"default": client}
	}

	var firstErr error
	for name, source := range r.sources {
		for _, node := range nodes {
			cmd := node.B().ScriptLoad().Script(source).Build()
			if err := node.Do(ctx, cmd).Error(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("lua preload failed (%s): %w", name, err)
			}
		}
	}
	return firstErr
}
