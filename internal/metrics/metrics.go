// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Command outcomes.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusPanic     = "panic"
	StatusDenied    = "denied"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusCompleted = "completed"
)

// Metrics: collectors on a dedicated registry. Methods are nil-safe.
type Metrics struct {
	registry    *prometheus.Registry
	events      *prometheus.CounterVec
	commands    *prometheus.CounterVec
	commandTime *prometheus.HistogramVec
	jobs        *prometheus.CounterVec
	sends       *prometheus.CounterVec
	votes       prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gndc_bot_events_total",
			Help: "Gateway events consumed, by event name.",
		}, []string{"event"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gndc_bot_commands_total",
			Help: "Chat commands handled, by command and status.",
		}, []string{"command", "status"}),
		commandTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gndc_bot_command_duration_seconds",
			Help:    "Chat command execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gndc_bot_campaign_runs_total",
			Help: "Scheduled job runs, by job and status.",
		}, []string{"job", "status"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gndc_bot_outbound_total",
			Help: "Outbound gateway commands, by operation and status.",
		}, []string{"op", "status"}),
		votes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gndc_bot_quiz_votes_scored_total",
			Help: "Correct quiz votes credited to the leaderboard.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.events, m.commands, m.commandTime, m.jobs, m.sends, m.votes,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveEvent counts a consumed gateway event.
func (m *Metrics) ObserveEvent(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}

// ObserveCommand counts a command outcome and its duration.
func (m *Metrics) ObserveCommand(command, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, status).Inc()
	m.commandTime.WithLabelValues(command).Observe(elapsed.Seconds())
}

// ObserveJob counts a scheduled job run.
func (m *Metrics) ObserveJob(job, status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(job, status).Inc()
}

// ObserveSend counts an outbound gateway command.
func (m *Metrics) ObserveSend(op, status string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(op, status).Inc()
}

// ObserveVote counts a credited quiz vote.
func (m *Metrics) ObserveVote() {
	if m == nil {
		return
	}
	m.votes.Inc()
}
