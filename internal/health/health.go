// Package health reports process liveness and the state of the bot's dependencies.
package health

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"
)

var (
	startTime = time.Now()
	version   = "dev"
	initOnce  sync.Once
)

// Init records the start time and version. Only the first call counts.
func Init(v string) {
	initOnce.Do(func() {
		startTime = time.Now()
		if v != "" {
			version = v
		}
	})
}

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// Component: result of one dependency probe
type Component struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Response is the /health body.
type Response struct {
	Status     string      `json:"status"`
	Version    string      `json:"version"`
	Uptime     string      `json:"uptime"`
	Goroutines int         `json:"goroutines"`
	Components []Component `json:"components,omitempty"`
}

// Healthy reports whether every component passed.
func (r Response) Healthy() bool {
	return r.Status == "ok"
}

// Checker runs the registered dependency probes.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewChecker creates an empty Checker.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// Register adds a probe under name, replacing any previous one.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Get returns process info only.
func Get() Response {
	return Response{
		Status:     "ok",
		Version:    version,
		Uptime:     GetUptime(),
		Goroutines: runtime.NumGoroutine(),
	}
}

// Run executes every probe concurrently. Status is "degraded" when any probe fails.
func (c *Checker) Run(ctx context.Context) Response {
	resp := Get()
	if c == nil {
		return resp
	}

	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make([]Check, len(names))
	sort.Strings(names)
	for i, name := range names {
		checks[i] = c.checks[name]
	}
	c.mu.RUnlock()

	components := make([]Component, len(names))
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			component := Component{Name: names[idx], Status: "ok"}
			if err := checks[idx](ctx); err != nil {
				component.Status = "down"
				component.Error = err.Error()
			}
			components[idx] = component
		}(i)
	}
	wg.Wait()

	for _, component := range components {
		if component.Status != "ok" {
			resp.Status = "degraded"
			break
		}
	}
	resp.Components = components
	return resp
}

// GetVersion returns the version set by Init.
func GetVersion() string {
	return version
}

// GetUptime returns the rounded uptime.
func GetUptime() string {
	return formatDuration(time.Since(startTime))
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
