package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveCommand("news", StatusOK, 20*time.Millisecond)
	m.ObserveJob("quiz", StatusCompleted)
	m.ObserveEvent("messages.upsert")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`gndc_bot_commands_total{command="news",status="ok"} 1`,
		`gndc_bot_campaign_runs_total{job="quiz",status="completed"} 1`,
		`gndc_bot_events_total{event="messages.upsert"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCommand("news", StatusOK, time.Second)
	m.ObserveJob("quiz", StatusFailed)
	m.ObserveSend("send", StatusOK)
	m.ObserveVote()
	m.ObserveEvent("call")
}
