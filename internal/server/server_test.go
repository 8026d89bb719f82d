package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/campaign"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/gateway"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/health"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/service/system"
)

const (
	testGroup = "120363000000000001@g.us"
	testToken = "s3cret-token"
)

type fakeSession struct {
	qr   string
	conn *gateway.ConnectionStatus
}

func (s *fakeSession) QR(context.Context) (string, bool, error) {
	return s.qr, s.qr != "", nil
}

func (s *fakeSession) Connection(context.Context) (*gateway.ConnectionStatus, error) {
	return s.conn, nil
}

type sent struct {
	chatID  string
	payload domain.Payload
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *fakeSender) Send(_ context.Context, chatID string, payload domain.Payload) (domain.MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.MessageRef{}, s.err
	}
	s.sent = append(s.sent, sent{chatID, payload})
	return domain.MessageRef{ChatID: chatID, ID: "3EB0TEST", FromMe: true}, nil
}

type fakeGroups struct{}

func (fakeGroups) Groups(context.Context) ([]domain.GroupMetadata, error) {
	return []domain.GroupMetadata{{
		ID:      testGroup,
		Subject: "GNDC",
		Participants: []domain.Participant{
			{ID: "237600000001@s.whatsapp.net", Admin: "superadmin"},
			{ID: "237600000002@s.whatsapp.net", Admin: "admin"},
			{ID: "237600000003@s.whatsapp.net"},
		},
	}}, nil
}

func (g fakeGroups) Mentions(ctx context.Context, id string, adminsOnly bool) ([]string, error) {
	if id != testGroup {
		return nil, errors.New("group not found")
	}
	groups, _ := g.Groups(ctx)
	var ids []string
	for _, p := range groups[0].Participants {
		if adminsOnly && !p.IsAdmin() {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

type fakeJobs struct {
	running map[string]bool
}

func (j *fakeJobs) Jobs() []string { return []string{campaign.JobQuote, campaign.JobQuiz} }

func (j *fakeJobs) NextRun(string) (time.Time, error) {
	return time.Date(2026, 5, 5, 7, 0, 0, 0, time.UTC), nil
}

func (j *fakeJobs) Trigger(name string) error {
	switch {
	case name != campaign.JobQuote && name != campaign.JobQuiz:
		return campaign.ErrUnknownJob
	case j.running[name]:
		return campaign.ErrJobRunning
	}
	j.running[name] = true
	return nil
}

type fakeStats struct{}

func (fakeStats) GetCurrentStats(context.Context) (*system.Stats, error) {
	return &system.Stats{CPUUsage: 3, MemoryUsage: 40, Goroutines: 12}, nil
}

type testServer struct {
	handler http.Handler
	session *fakeSession
	sender  *fakeSender
	jobs    *fakeJobs
}

func newTestServer(t *testing.T, tokenHash string) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := &testServer{
		session: &fakeSession{},
		sender:  &fakeSender{},
		jobs:    &fakeJobs{running: map[string]bool{}},
	}
	h := NewHandler(Deps{
		GroupTarget: testGroup,
		Session:     ts.session,
		Sender:      ts.sender,
		Groups:      fakeGroups{},
		Jobs:        ts.jobs,
		Stats:       fakeStats{},
		Health:      health.NewChecker(),
		Logger:      logger,
	})
	router, err := NewRouter(context.Background(), h, tokenHash, logger)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	ts.handler = router
	return ts
}

func (ts *testServer) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")
	rec := ts.do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp health.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("unexpected status %q", resp.Status)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("security headers missing")
	}
}

func TestQRCode(t *testing.T) {
	ts := newTestServer(t, "")
	if rec := ts.do(http.MethodGet, "/qr", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without pending QR, got %d", rec.Code)
	}

	ts.session.qr = "2@abcDEF123,xyz,456=="
	rec := ts.do(http.MethodGet, "/qr", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("body is not a PNG")
	}
}

func TestSendText(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantStatus   int
		wantKind     domain.PayloadKind
		wantMentions int
	}{
		{"missing message", `{"groupId":"` + testGroup + `"}`, http.StatusBadRequest, "", 0},
		{"malformed body", `{"message":`, http.StatusBadRequest, "", 0},
		{"default group", `{"message":"Bonjour"}`, http.StatusOK, domain.PayloadText, 0},
		{"tag all", `{"message":"Réunion","tagAll":true}`, http.StatusOK, domain.PayloadText, 3},
		{"admins only", `{"message":"Admins","targetAdmin":true}`, http.StatusOK, domain.PayloadText, 2},
		{"profile image", `{"message":"Bravo","option":{"leaderboard":true,"profil":"https://gndc.tech/u/alice.png"}}`, http.StatusOK, domain.PayloadImage, 0},
		{"option without image", `{"message":"Bravo","option":{"leaderboard":true}}`, http.StatusBadRequest, "", 0},
		{"unknown group mentions", `{"groupId":"other@g.us","message":"x","tagAll":true}`, http.StatusInternalServerError, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, "")
			rec := ts.do(http.MethodPost, "/messages/text", tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if len(ts.sender.sent) != 0 {
					t.Fatalf("nothing should be sent, got %+v", ts.sender.sent)
				}
				return
			}
			if len(ts.sender.sent) != 1 || ts.sender.sent[0].chatID != testGroup {
				t.Fatalf("unexpected sends: %+v", ts.sender.sent)
			}
			payload := ts.sender.sent[0].payload
			if payload.Kind() != tt.wantKind {
				t.Fatalf("expected %s payload, got %s", tt.wantKind, payload.Kind())
			}
			var mentions []string
			switch p := payload.(type) {
			case domain.TextPayload:
				mentions = p.Mentions
			case domain.ImagePayload:
				mentions = p.Mentions
				if p.Caption != "Bravo" || p.ImageURL != "https://gndc.tech/u/alice.png" {
					t.Fatalf("unexpected image payload: %+v", p)
				}
			}
			if len(mentions) != tt.wantMentions {
				t.Fatalf("expected %d mentions, got %v", tt.wantMentions, mentions)
			}
		})
	}
}

func TestSendTextFailure(t *testing.T) {
	ts := newTestServer(t, "")
	ts.sender.err = errors.New("stream unavailable")
	if rec := ts.do(http.MethodPost, "/messages/text", `{"message":"Bonjour"}`, nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestTokenAuth(t *testing.T) {
	hash, err := HashToken(testToken)
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}
	ts := newTestServer(t, hash)

	if rec := ts.do(http.MethodGet, "/groups/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/groups/me", "", http.Header{"X-Api-Key": {"wrong"}}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong token, got %d", rec.Code)
	}
	rec := ts.do(http.MethodGet, "/groups/me", "", http.Header{"X-Api-Key": {testToken}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
	var body struct {
		Groups []groupSummary `json:"groups"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Groups) != 1 || body.Groups[0].Members != 3 || body.Groups[0].Admins != 2 {
		t.Fatalf("unexpected groups: %+v", body.Groups)
	}

	if rec := ts.do(http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rec.Code)
	}
}

func TestRunCampaign(t *testing.T) {
	ts := newTestServer(t, "")
	if rec := ts.do(http.MethodPost, "/campaigns/quiz/run", "", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/campaigns/quiz/run", "", nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/campaigns/horoscope/run", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec := ts.do(http.MethodGet, "/campaigns", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"quote"`) {
		t.Fatalf("unexpected job list: %d %s", rec.Code, rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, "")
	ts.session.conn = &gateway.ConnectionStatus{Connection: domain.ConnectionOpen, SelfJID: "237600000000@s.whatsapp.net"}

	rec := ts.do(http.MethodGet, "/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Connected bool          `json:"connected"`
		System    *system.Stats `json:"system"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !body.Connected || body.System == nil || body.System.Goroutines != 12 {
		t.Fatalf("unexpected status body: %s", rec.Body.String())
	}
}
