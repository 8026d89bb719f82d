// Package messages resolves localized chat texts from an embedded YAML catalog.
package messages

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fr.yml
var defaultCatalog string

// Provider: dotted-key lookup over a YAML catalog with {param} substitution
type Provider struct {
	root map[string]any
}

// Default returns the embedded French catalog.
func Default() *Provider {
	provider, err := NewFromYAML(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded message catalog is invalid: %v", err))
	}
	return provider
}

// NewFromYAML parses a catalog.
func NewFromYAML(yamlContent string) (*Provider, error) {
	var raw any
	if err := yaml.Unmarshal([]byte(yamlContent), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal yaml failed: %w", err)
	}

	if raw == nil {
		return &Provider{root: make(map[string]any)}, nil
	}

	root, ok := normalizeYAMLValue(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected yaml root type: %T", raw)
	}

	return &Provider{root: root}, nil
}

// Get resolves key and substitutes params. Missing keys resolve to the key itself.
func (p *Provider) Get(key string, params ...Param) string {
	if p == nil || strings.TrimSpace(key) == "" {
		return key
	}

	value, ok := resolveDottedKey(p.root, key)
	if !ok {
		return key
	}

	template, ok := value.(string)
	if !ok {
		return fmt.Sprint(value)
	}

	out := template
	for _, param := range params {
		out = strings.ReplaceAll(out, "{"+param.Key+"}", fmt.Sprint(param.Value))
	}
	return out
}

// Has reports whether key exists in the catalog.
func (p *Provider) Has(key string) bool {
	if p == nil {
		return false
	}
	_, ok := resolveDottedKey(p.root, key)
	return ok
}

// Param is one {Key} substitution.
type Param struct {
	Key   string
	Value any
}

// P builds a Param.
func P(key string, value any) Param {
	return Param{Key: key, Value: value}
}

func resolveDottedKey(root map[string]any, key string) (any, bool) {
	var current any = root
	for _, part := range strings.Split(key, ".") {
		nextMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := nextMap[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func normalizeYAMLValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, vv := range typed {
			out[k] = normalizeYAMLValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, vv := range typed {
			out[fmt.Sprint(k)] = normalizeYAMLValue(vv)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, vv := range typed {
			out = append(out, normalizeYAMLValue(vv))
		}
		return out
	default:
		return v
	}
}
