package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/service/cache"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingStore records every deleted key.
type countingStore struct {
	*store.Store

	mu      sync.Mutex
	deleted map[string]int
}

func (s *countingStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		s.deleted[key]++
	}
	s.mu.Unlock()
	return s.Store.Delete(ctx, keys...)
}

func (s *countingStore) deletes(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted[key]
}

func newTestStore(t *testing.T) (*countingStore, *miniredis.Miniredis) {
	t.Helper()

	mini := miniredis.RunT(t)
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{mini.Addr()},
		DisableCache:      true,
		ForceSingleClient: true,
	})
	if err != nil {
		t.Fatalf("failed to create valkey client: %v", err)
	}
	svc := cache.NewWithClient(client, testLogger())
	t.Cleanup(func() { _ = svc.Close() })
	return &countingStore{Store: store.New(svc, testLogger()), deleted: map[string]int{}}, mini
}

type staticTargets []domain.Target

func (s staticTargets) ResolveTargets(context.Context, domain.PermissionKey, string) []domain.Target {
	return s
}

func groupTargets(ids ...string) staticTargets {
	targets := make(staticTargets, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, domain.Target{ID: id})
	}
	return targets
}

type sentMessage struct {
	chatID  string
	payload domain.Payload
}

type fakeSender struct {
	mu     sync.Mutex
	seq    int
	sent   []sentMessage
	pinned []domain.MessageRef
	pinTTL []time.Duration
	unpins []domain.MessageRef
	fail   map[string]bool
}

func (s *fakeSender) Send(_ context.Context, chatID string, payload domain.Payload) (domain.MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[chatID] {
		return domain.MessageRef{}, errors.New("socket closed")
	}
	s.seq++
	s.sent = append(s.sent, sentMessage{chatID: chatID, payload: payload})
	return domain.MessageRef{ChatID: chatID, ID: fmt.Sprintf("MSG%d", s.seq), FromMe: true}, nil
}

func (s *fakeSender) Pin(_ context.Context, ref domain.MessageRef, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned = append(s.pinned, ref)
	s.pinTTL = append(s.pinTTL, ttl)
	return nil
}

func (s *fakeSender) Unpin(_ context.Context, ref domain.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unpins = append(s.unpins, ref)
	return nil
}

func (s *fakeSender) byKind(kind domain.PayloadKind) []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMessage
	for _, msg := range s.sent {
		if msg.payload.Kind() == kind {
			out = append(out, msg)
		}
	}
	return out
}

type fixedQuizzes struct {
	calls atomic.Int32
	err   error
}

func (q *fixedQuizzes) CreateQuiz(context.Context) (*domain.Quiz, error) {
	q.calls.Add(1)
	if q.err != nil {
		return nil, q.err
	}
	return &domain.Quiz{
		ID:         "quiz_1700000000000_abcdefghi",
		Titre:      "Les listes Python",
		Question:   "Quelle méthode ajoute un élément à la fin d'une liste ?",
		Domaine:    "Programmation Python",
		Difficulte: domain.DifficultyBeginner,
		Options: []domain.QuizOption{
			{ID: "A", Text: "append()", IsCorrect: true},
			{ID: "B", Text: "push()"},
			{ID: "C", Text: "add()"},
			{ID: "D", Text: "insert_end()"},
		},
		Explication: "append() ajoute en fin de liste.",
		Points:      20,
	}, nil
}

const testQuizID = "quiz_1700000000000_abcdefghi"

type recordingArchive struct {
	mu        sync.Mutex
	published int
	revealed  int
}

func (a *recordingArchive) QuizPublished(context.Context, *domain.Quiz, int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.published++
	return nil
}

func (a *recordingArchive) QuizRevealed(context.Context, string, int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revealed++
	return nil
}

func newTestEngine(t *testing.T, targets staticTargets) (*Engine, *countingStore, *fakeSender, *fixedQuizzes) {
	t.Helper()
	engine, st, sender, quizzes, _ := newTestEngineWithRedis(t, targets)
	return engine, st, sender, quizzes
}

func newTestEngineWithRedis(t *testing.T, targets staticTargets) (*Engine, *countingStore, *fakeSender, *fixedQuizzes, *miniredis.Miniredis) {
	t.Helper()
	st, mini := newTestStore(t)
	sender := &fakeSender{}
	quizzes := &fixedQuizzes{}
	engine := NewEngine(Deps{
		Targets: targets,
		Sender:  sender,
		Store:   st,
		Quizzes: quizzes,
		Logger:  testLogger(),
	})
	engine.settle = 0
	return engine, st, sender, quizzes, mini
}

func TestPublishTwiceKeepsOneInstance(t *testing.T) {
	engine, st, sender, quizzes := newTestEngine(t, groupTargets("G1@g.us", "G2@g.us"))
	ctx := context.Background()

	if err := engine.PublishQuiz(ctx); err != nil {
		t.Fatalf("first publish failed: %v", err)
	}
	if err := engine.PublishQuiz(ctx); err != nil {
		t.Fatalf("second publish failed: %v", err)
	}

	if quizzes.calls.Load() != 1 {
		t.Fatalf("expected one generation, got %d", quizzes.calls.Load())
	}
	polls := sender.byKind(domain.PayloadPoll)
	if len(polls) != 2 {
		t.Fatalf("expected 2 polls, got %d", len(polls))
	}
	poll := polls[0].payload.(domain.PollPayload)
	if poll.SelectableCount != 1 || len(poll.Options) != 4 || !strings.Contains(poll.Question, "Les listes Python") {
		t.Fatalf("unexpected poll: %+v", poll)
	}
	if len(sender.pinned) != 2 || sender.pinTTL[0] != 86400*time.Second {
		t.Fatalf("unexpected pins: %v %v", sender.pinned, sender.pinTTL)
	}

	var pointer string
	if found, err := st.Get(ctx, store.PointerKey("quiz"), &pointer); err != nil || !found || pointer != testQuizID {
		t.Fatalf("unexpected pointer %q (found=%v, err=%v)", pointer, found, err)
	}
	for _, chatID := range []string{"G1@g.us", "G2@g.us"} {
		var ref domain.MessageRef
		found, err := st.Get(ctx, store.MessageRefKey(testQuizID, chatID), &ref)
		if err != nil || !found || ref.ChatID != chatID {
			t.Fatalf("missing ref for %s: %+v (found=%v, err=%v)", chatID, ref, found, err)
		}
	}
}

func TestPublishWithoutTargetsIsNoop(t *testing.T) {
	engine, st, sender, quizzes := newTestEngine(t, nil)
	ctx := context.Background()

	if err := engine.PublishQuiz(ctx); err != nil {
		t.Fatalf("PublishQuiz failed: %v", err)
	}
	if quizzes.calls.Load() != 0 || len(sender.sent) != 0 {
		t.Fatalf("expected nothing to happen")
	}
	if found, _ := st.Exists(ctx, store.PointerKey("quiz")); found {
		t.Fatalf("pointer must not be claimed")
	}
}

func TestPublishReleasesPointerWhenGenerationFails(t *testing.T) {
	engine, st, _, quizzes := newTestEngine(t, groupTargets("G1@g.us"))
	quizzes.err = errors.New("quota exceeded")
	ctx := context.Background()

	if err := engine.PublishQuiz(ctx); err == nil {
		t.Fatalf("expected an error")
	}
	if found, _ := st.Exists(ctx, store.PointerKey("quiz")); found {
		t.Fatalf("pointer should be released")
	}

	quizzes.err = nil
	if err := engine.PublishQuiz(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if quizzes.calls.Load() != 2 {
		t.Fatalf("expected a second generation, got %d", quizzes.calls.Load())
	}
}

func TestAbandonedPublishClaimExpires(t *testing.T) {
	engine, st, sender, quizzes, mini := newTestEngineWithRedis(t, groupTargets("G1@g.us"))
	ctx := context.Background()
	pointer := store.PointerKey("quiz")

	// A process that died while generating leaves the placeholder behind.
	if claimed, err := st.SaveIfAbsent(ctx, pointer, store.TypeCustom, "", constants.CampaignConfig.JobTimeout); err != nil || !claimed {
		t.Fatalf("seed placeholder: claimed=%v err=%v", claimed, err)
	}
	if err := engine.PublishQuiz(ctx); err != nil {
		t.Fatalf("PublishQuiz failed: %v", err)
	}
	if quizzes.calls.Load() != 0 {
		t.Fatalf("publish must wait while the placeholder is held")
	}

	mini.FastForward(constants.CampaignConfig.JobTimeout + time.Second)

	if err := engine.PublishQuiz(ctx); err != nil {
		t.Fatalf("PublishQuiz after expiry failed: %v", err)
	}
	if quizzes.calls.Load() != 1 || len(sender.byKind(domain.PayloadPoll)) != 1 {
		t.Fatalf("expected a fresh publish, got %d generations", quizzes.calls.Load())
	}
	if ttl := mini.TTL(pointer); ttl <= constants.CampaignConfig.JobTimeout {
		t.Fatalf("published pointer must carry the campaign TTL, got %v", ttl)
	}
}

func TestPublishPlaceholderHasShortTTL(t *testing.T) {
	engine, _, _, quizzes, mini := newTestEngineWithRedis(t, groupTargets("G1@g.us"))
	quizzes.err = errors.New("quota exceeded")
	engine.deps.Quizzes = claimInspector{quizzes: quizzes, check: func() {
		if ttl := mini.TTL(store.PointerKey("quiz")); ttl <= 0 || ttl > constants.CampaignConfig.JobTimeout {
			t.Errorf("placeholder TTL %v, want at most %v", ttl, constants.CampaignConfig.JobTimeout)
		}
	}}

	if err := engine.PublishQuiz(context.Background()); err == nil {
		t.Fatalf("expected generation error")
	}
}

// claimInspector runs check while the pointer placeholder is held.
type claimInspector struct {
	quizzes *fixedQuizzes
	check   func()
}

func (c claimInspector) CreateQuiz(ctx context.Context) (*domain.Quiz, error) {
	c.check()
	return c.quizzes.CreateQuiz(ctx)
}

func TestRevealWithoutPointerIsNoop(t *testing.T) {
	engine, st, sender, _ := newTestEngine(t, groupTargets("G1@g.us"))

	if err := engine.RevealQuiz(context.Background()); err != nil {
		t.Fatalf("RevealQuiz failed: %v", err)
	}
	if len(sender.sent) != 0 || len(sender.unpins) != 0 {
		t.Fatalf("expected no socket calls")
	}
	if len(st.deleted) != 0 {
		t.Fatalf("expected no deletes, got %v", st.deleted)
	}
}

func TestRevealSkipsInconsistentState(t *testing.T) {
	tests := []struct {
		name    string
		pointer string
	}{
		{"quiz record missing", testQuizID},
		{"publish in progress", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, st, sender, _ := newTestEngine(t, groupTargets("G1@g.us"))
			ctx := context.Background()
			ttl := constants.CacheTTL.CampaignState

			if err := st.Save(ctx, store.PointerKey("quiz"), store.TypeCustom, tt.pointer, ttl); err != nil {
				t.Fatalf("seed pointer: %v", err)
			}
			ref := domain.MessageRef{ChatID: "G1@g.us", ID: "MSG1", FromMe: true}
			if err := st.Save(ctx, store.MessageRefKey(testQuizID, "G1@g.us"), store.TypeRef, ref, ttl); err != nil {
				t.Fatalf("seed ref: %v", err)
			}

			if err := engine.RevealQuiz(ctx); err != nil {
				t.Fatalf("RevealQuiz failed: %v", err)
			}
			if len(sender.sent) != 0 || len(sender.unpins) != 0 {
				t.Fatalf("expected no socket calls, got %d sends and %d unpins", len(sender.sent), len(sender.unpins))
			}
			if len(st.deleted) != 0 {
				t.Fatalf("expected no deletes, got %v", st.deleted)
			}
			if found, _ := st.Exists(ctx, store.PointerKey("quiz")); !found {
				t.Fatalf("pointer must be left in place")
			}
		})
	}
}

func TestRevealAnswersEveryTargetOnce(t *testing.T) {
	targets := groupTargets("G1@g.us", "G2@g.us", "G3@g.us")
	engine, st, sender, _ := newTestEngine(t, targets)
	archive := &recordingArchive{}
	engine.deps.Archive = archive
	ctx := context.Background()

	if err := engine.PublishQuiz(ctx); err != nil {
		t.Fatalf("PublishQuiz failed: %v", err)
	}
	if err := engine.RevealQuiz(ctx); err != nil {
		t.Fatalf("RevealQuiz failed: %v", err)
	}

	texts := sender.byKind(domain.PayloadText)
	if len(texts) != 3 {
		t.Fatalf("expected 3 reveal texts, got %d", len(texts))
	}
	want := "*Réponse :* append()\n*Explication :* append() ajoute en fin de liste."
	for _, msg := range texts {
		if msg.payload.(domain.TextPayload).Text != want {
			t.Fatalf("unexpected reveal %q", msg.payload.(domain.TextPayload).Text)
		}
	}
	if len(sender.unpins) != 3 {
		t.Fatalf("expected 3 unpins, got %d", len(sender.unpins))
	}
	for _, target := range targets {
		if n := st.deletes(store.MessageRefKey(testQuizID, target.ID)); n != 1 {
			t.Fatalf("ref of %s deleted %d times", target.ID, n)
		}
	}
	if st.deletes(store.QuizKey(testQuizID)) != 1 || st.deletes(store.PointerKey("quiz")) != 1 {
		t.Fatalf("quiz and pointer must be deleted once: %v", st.deleted)
	}

	if err := engine.RevealQuiz(ctx); err != nil {
		t.Fatalf("second reveal failed: %v", err)
	}
	if len(sender.byKind(domain.PayloadText)) != 3 || st.deletes(store.QuizKey(testQuizID)) != 1 {
		t.Fatalf("second reveal must be a no-op")
	}
	if archive.published != 1 || archive.revealed != 1 {
		t.Fatalf("unexpected archive calls: %+v", archive)
	}
}

func TestScoreVoteCreditsFirstCorrectVote(t *testing.T) {
	engine, st, sender, _ := newTestEngine(t, groupTargets("G1@g.us"))
	ctx := context.Background()

	if err := engine.PublishQuiz(ctx); err != nil {
		t.Fatalf("PublishQuiz failed: %v", err)
	}
	poll := sender.byKind(domain.PayloadPoll)[0]
	var ref domain.MessageRef
	if _, err := st.Get(ctx, store.MessageRefKey(testQuizID, poll.chatID), &ref); err != nil {
		t.Fatalf("load ref: %v", err)
	}

	votes := []domain.PollVote{
		{ChatID: "G1@g.us", PollMessageID: ref.ID, Voter: "alice@s.whatsapp.net", SelectedOptions: []string{"append()"}},
		{ChatID: "G1@g.us", PollMessageID: ref.ID, Voter: "alice@s.whatsapp.net", SelectedOptions: []string{"append()"}},
		{ChatID: "G1@g.us", PollMessageID: ref.ID, Voter: "bob@s.whatsapp.net", SelectedOptions: []string{"push()"}},
		{ChatID: "G1@g.us", PollMessageID: ref.ID, Voter: "bob@s.whatsapp.net", SelectedOptions: []string{"append()"}},
		{ChatID: "G1@g.us", PollMessageID: "unknown", Voter: "carol@s.whatsapp.net", SelectedOptions: []string{"append()"}},
	}
	for _, vote := range votes {
		if err := engine.ScoreVote(ctx, vote); err != nil {
			t.Fatalf("ScoreVote failed: %v", err)
		}
	}

	entries, err := st.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	scores := make(map[string]float64, len(entries))
	for _, entry := range entries {
		scores[entry.Member] = entry.Score
	}

	tests := map[string]float64{
		"alice@s.whatsapp.net": 20,
		"bob@s.whatsapp.net":   0,
		"carol@s.whatsapp.net": 0,
	}
	for voter, want := range tests {
		if got := scores[voter]; got != want {
			t.Fatalf("score of %s = %v, want %v", voter, got, want)
		}
	}
}

type fakeNews []domain.NewsItem

func (n fakeNews) TopStories(_ context.Context, limit int) ([]domain.NewsItem, error) {
	if len(n) > limit {
		return n[:limit], nil
	}
	return n, nil
}

type prefixShortener struct{}

func (prefixShortener) Shorten(_ context.Context, link string) string {
	if strings.Contains(link, "fail") {
		return link
	}
	return "https://is.gd/" + strings.TrimPrefix(link, "https://")
}

func TestSendNewsDigest(t *testing.T) {
	engine, _, sender, _ := newTestEngine(t, groupTargets("G1@g.us", "G2@g.us"))
	engine.deps.News = fakeNews{
		{Title: "Go 1.25 released", Link: "https://go.dev"},
		{Title: "Shortener down", Link: "https://fail.example/long"},
	}
	engine.deps.Shortener = prefixShortener{}

	if err := engine.SendNewsDigest(context.Background()); err != nil {
		t.Fatalf("SendNewsDigest failed: %v", err)
	}
	texts := sender.byKind(domain.PayloadText)
	if len(texts) != 2 {
		t.Fatalf("expected 2 digests, got %d", len(texts))
	}
	text := texts[0].payload.(domain.TextPayload).Text
	for _, want := range []string{"1. Go 1.25 released", "https://is.gd/go.dev", "2. Shortener down", "https://fail.example/long"} {
		if !strings.Contains(text, want) {
			t.Fatalf("digest %q does not contain %q", text, want)
		}
	}
}

type fakeMemes struct{ calls atomic.Int32 }

func (m *fakeMemes) RandomMeme(context.Context) (*domain.Meme, error) {
	m.calls.Add(1)
	return &domain.Meme{Template: "Drake Hotline Bling", URL: "https://i.imgflip.com/x.jpg"}, nil
}

func TestSendMemeOneImagePerTarget(t *testing.T) {
	engine, _, sender, _ := newTestEngine(t, groupTargets("G1@g.us", "G2@g.us", "G3@g.us"))
	sender.fail = map[string]bool{"G2@g.us": true}
	memes := &fakeMemes{}
	engine.deps.Memes = memes

	if err := engine.SendMeme(context.Background()); err != nil {
		t.Fatalf("SendMeme failed: %v", err)
	}
	images := sender.byKind(domain.PayloadImage)
	if len(images) != 2 || memes.calls.Load() != 1 {
		t.Fatalf("expected 2 images from one meme, got %d images, %d memes", len(images), memes.calls.Load())
	}
	image := images[0].payload.(domain.ImagePayload)
	if image.ImageURL != "https://i.imgflip.com/x.jpg" || !strings.Contains(image.Caption, "GNDC") {
		t.Fatalf("unexpected image: %+v", image)
	}
}

type fakeQuotes struct{}

func (fakeQuotes) Today(context.Context) (*domain.Quote, error) {
	return &domain.Quote{Text: "Talk is cheap. Show me the code."}, nil
}

func TestSendQuote(t *testing.T) {
	engine, _, sender, _ := newTestEngine(t, groupTargets("G1@g.us"))
	engine.deps.Quotes = fakeQuotes{}

	if err := engine.SendQuote(context.Background()); err != nil {
		t.Fatalf("SendQuote failed: %v", err)
	}
	texts := sender.byKind(domain.PayloadText)
	if len(texts) != 1 {
		t.Fatalf("expected one quote, got %d", len(texts))
	}
	text := texts[0].payload.(domain.TextPayload).Text
	if !strings.Contains(text, "Talk is cheap. Show me the code.") || !strings.Contains(text, "Anonyme") {
		t.Fatalf("unexpected quote text %q", text)
	}
}

func TestNextOccurrence(t *testing.T) {
	douala, err := time.LoadLocation(constants.CampaignConfig.Timezone)
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{"later today", time.Date(2026, 3, 1, 6, 0, 0, 0, douala), 7, time.Date(2026, 3, 1, 7, 0, 0, 0, douala)},
		{"exactly now", time.Date(2026, 3, 1, 7, 0, 0, 0, douala), 7, time.Date(2026, 3, 2, 7, 0, 0, 0, douala)},
		{"tomorrow", time.Date(2026, 3, 1, 22, 30, 0, 0, douala), 21, time.Date(2026, 3, 2, 21, 0, 0, 0, douala)},
		{"month rollover", time.Date(2026, 3, 31, 23, 0, 0, 0, douala), 12, time.Date(2026, 4, 1, 12, 0, 0, 0, douala)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextOccurrence(tt.now, tt.hour, 0); !got.Equal(tt.want) {
				t.Fatalf("nextOccurrence = %v, want %v", got, tt.want)
			}
		})
	}
}

type runRecord struct {
	job    string
	status string
}

type memoryRecorder struct {
	mu   sync.Mutex
	runs []runRecord
}

func (r *memoryRecorder) RecordRun(_ context.Context, job, status string, _ time.Time, _ time.Duration, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, runRecord{job, status})
	return nil
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	recorder := &memoryRecorder{}
	s := NewScheduler(time.UTC, recorder, nil, testLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	if err := s.Add("slow", "10:00", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add("boom", "11:00", func(ctx context.Context) error { panic("boom") }); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add("slow", "12:00", func(ctx context.Context) error { return nil }); err == nil {
		t.Fatalf("duplicate job must be rejected")
	}
	if err := s.Add("bad", "25:00", func(ctx context.Context) error { return nil }); err == nil {
		t.Fatalf("invalid clock must be rejected")
	}

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	<-started

	if err := s.RunNow(context.Background(), "slow"); !errors.Is(err, ErrJobRunning) {
		t.Fatalf("expected ErrJobRunning, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	if err := s.RunNow(context.Background(), "boom"); err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("expected recovered panic, got %v", err)
	}
	if err := s.RunNow(context.Background(), "missing"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	want := []runRecord{{"slow", StatusSuccess}, {"boom", StatusFailed}}
	if len(recorder.runs) != len(want) {
		t.Fatalf("unexpected runs: %v", recorder.runs)
	}
	for i := range want {
		if recorder.runs[i] != want[i] {
			t.Fatalf("run %d = %v, want %v", i, recorder.runs[i], want[i])
		}
	}
	if names := s.Jobs(); strings.Join(names, ",") != "slow,boom" {
		t.Fatalf("unexpected job order %v", names)
	}
}

func TestSchedulerFiresArmedJob(t *testing.T) {
	s := NewScheduler(time.UTC, nil, nil, testLogger())
	fired := make(chan struct{}, 1)
	if err := s.Add("tick", "00:00", func(ctx context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	s.now = func() time.Time { return time.Date(2026, 1, 1, 23, 59, 59, 990_000_000, time.UTC) }

	s.Start(context.Background())
	defer s.Stop()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not fire")
	}
}

func TestSchedulerTriggerRunsInBackground(t *testing.T) {
	recorder := &memoryRecorder{}
	s := NewScheduler(time.UTC, recorder, nil, testLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	if err := s.Add("digest", "08:00", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := s.Trigger("digest"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	<-started
	if err := s.Trigger("digest"); !errors.Is(err, ErrJobRunning) {
		t.Fatalf("expected ErrJobRunning, got %v", err)
	}
	if err := s.Trigger("missing"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}

	close(release)
	s.Stop()

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.runs) != 1 || recorder.runs[0] != (runRecord{"digest", StatusSuccess}) {
		t.Fatalf("unexpected runs: %v", recorder.runs)
	}
}
