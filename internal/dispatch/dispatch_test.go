package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/command"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/event"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/permission"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type outbox struct {
	mu   sync.Mutex
	sent []struct {
		chatID string
		text   string
	}
}

func (o *outbox) send(_ context.Context, chatID string, payload domain.Payload) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	text := ""
	if p, ok := payload.(domain.TextPayload); ok {
		text = p.Text
	}
	o.sent = append(o.sent, struct {
		chatID string
		text   string
	}{chatID, text})
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type stubCommand struct {
	name   string
	access command.Access
	run    func(ctx context.Context, cmdCtx *domain.CommandContext) error
}

func (s *stubCommand) Name() string           { return s.name }
func (s *stubCommand) Description() string    { return s.name }
func (s *stubCommand) Access() command.Access { return s.access }
func (s *stubCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext) error {
	return s.run(ctx, cmdCtx)
}

func textMessage(chatID, sender, text string) *domain.InboundMessage {
	return &domain.InboundMessage{
		Key:     domain.MessageKey{RemoteJID: chatID, Participant: sender},
		Message: &domain.MessageBody{Conversation: text},
	}
}

func TestParse(t *testing.T) {
	name, args, ok := Parse("!ask what is GNDC", "!")
	if !ok || name != "ask" {
		t.Fatalf("unexpected parse: %q ok=%v", name, ok)
	}
	if strings.Join(args, ",") != "what,is,GNDC" {
		t.Fatalf("unexpected args: %v", args)
	}

	if name, _, ok := Parse("!ASK  ", "!"); !ok || name != "ask" {
		t.Fatalf("expected lower-cased name, got %q", name)
	}
	for _, text := range []string{"ask what", "!", "! ", " !ask"} {
		if _, _, ok := Parse(text, "!"); ok {
			t.Fatalf("expected %q to be ignored", text)
		}
	}
}

func TestDispatcherIgnoresNonCommands(t *testing.T) {
	out := &outbox{}
	registry := command.NewRegistry()
	called := false
	registry.MustRegister(&stubCommand{name: "ask", run: func(context.Context, *domain.CommandContext) error {
		called = true
		return nil
	}})
	d := NewMessageDispatcher(Config{Prefix: "!"}, registry, nil, out.send, messages.Default(), nil, discardLogger())

	d.HandleMessage(context.Background(), textMessage("G1@g.us", "1@s.whatsapp.net", "ask what is GNDC"))
	d.HandleMessage(context.Background(), textMessage("G1@g.us", "1@s.whatsapp.net", "!unknown"))
	d.HandleMessage(context.Background(), &domain.InboundMessage{Key: domain.MessageKey{RemoteJID: "G1@g.us"}})

	if called || out.count() != 0 {
		t.Fatalf("expected no invocation and no send, called=%v sends=%d", called, out.count())
	}
}

func TestFailingCommandDoesNotBlockNext(t *testing.T) {
	out := &outbox{}
	registry := command.NewRegistry()
	registry.MustRegister(
		&stubCommand{name: "boom", run: func(context.Context, *domain.CommandContext) error {
			panic("upstream exploded")
		}},
		&stubCommand{name: "fail", run: func(context.Context, *domain.CommandContext) error {
			return errors.New("bad gateway")
		}},
		&stubCommand{name: "ok", run: func(ctx context.Context, cmdCtx *domain.CommandContext) error {
			return out.send(ctx, cmdCtx.ChatID, domain.TextPayload{Text: "done"})
		}},
	)
	d := NewMessageDispatcher(Config{Prefix: "!"}, registry, nil, out.send, messages.Default(), nil, discardLogger())

	d.HandleMessage(context.Background(), textMessage("G1@g.us", "1@s.whatsapp.net", "!boom"))
	d.HandleMessage(context.Background(), textMessage("G1@g.us", "1@s.whatsapp.net", "!fail"))
	d.HandleMessage(context.Background(), textMessage("G1@g.us", "1@s.whatsapp.net", "!ok"))

	if out.count() != 3 {
		t.Fatalf("expected two apologies and one reply, got %d sends", out.count())
	}
	apology := messages.Default().Get("error.generic")
	if out.sent[0].text != apology || out.sent[1].text != apology || out.sent[2].text != "done" {
		t.Fatalf("unexpected sends: %+v", out.sent)
	}
}

func TestAuthorOnlyCommand(t *testing.T) {
	out := &outbox{}
	registry := command.NewRegistry()
	registry.MustRegister(&stubCommand{name: "groups", access: command.AccessAuthor, run: func(ctx context.Context, cmdCtx *domain.CommandContext) error {
		return out.send(ctx, cmdCtx.ChatID, domain.TextPayload{Text: "groups"})
	}})
	d := NewMessageDispatcher(Config{Prefix: "!", AuthorJID: "237611@s.whatsapp.net"}, registry, nil, out.send, nil, nil, discardLogger())

	d.HandleMessage(context.Background(), textMessage("237699@s.whatsapp.net", "", "!groups"))
	if out.count() != 0 {
		t.Fatalf("non-author must be ignored")
	}
	d.HandleMessage(context.Background(), textMessage("237611:3@s.whatsapp.net", "", "!groups"))
	if out.count() != 1 {
		t.Fatalf("author must be served")
	}
}

type settingsDoc struct {
	settings *domain.BotSettings
}

func (s settingsDoc) LoadSettings(context.Context) (*domain.BotSettings, error) {
	return s.settings, nil
}

type blogSite struct{}

func (blogSite) Blogs(context.Context) ([]domain.BlogPost, error) {
	posts := make([]domain.BlogPost, 0, 7)
	for i := 1; i <= 7; i++ {
		posts = append(posts, domain.BlogPost{Title: fmt.Sprintf("Post %d", i), Slug: fmt.Sprintf("post-%d", i)})
	}
	return posts, nil
}
func (blogSite) Forums(context.Context, string) ([]domain.ForumPost, error) { return nil, nil }
func (blogSite) Leaderboard(context.Context) (*domain.Leaderboard, error) {
	return &domain.Leaderboard{}, nil
}
func (blogSite) Events(context.Context) ([]domain.CommunityEvent, error) { return nil, nil }
func (blogSite) BaseURL() string                                         { return "https://gndc.tech" }

func TestNewsEndToEnd(t *testing.T) {
	out := &outbox{}
	resolver := permission.NewResolver(settingsDoc{settings: &domain.BotSettings{
		Host: domain.SettingsEntry{ID: "G1@g.us", AllowedCommand: []string{"news"}, AllowInbox: []string{"news"}},
	}}, discardLogger())

	deps := &command.Dependencies{
		Bot:         config.BotConfig{Prefix: "!"},
		Website:     blogSite{},
		SendMessage: out.send,
		Logger:      discardLogger(),
	}
	registry := command.NewRegistry()
	registry.MustRegister(command.NewNewsCommand(deps))
	d := NewMessageDispatcher(Config{Prefix: "!"}, registry, resolver, out.send, nil, nil, discardLogger())

	d.HandleMessage(context.Background(), textMessage("G1@g.us", "1@s.whatsapp.net", "!news"))
	if out.count() != 1 || out.sent[0].chatID != "G1@g.us" {
		t.Fatalf("expected one send to G1, got %+v", out.sent)
	}
	text := out.sent[0].text
	if !strings.Contains(text, "5. *Post 5*") || strings.Contains(text, "Post 6") {
		t.Fatalf("expected a top-5 digest, got %s", text)
	}

	d.HandleMessage(context.Background(), textMessage("G2@g.us", "1@s.whatsapp.net", "!news"))
	if out.count() != 1 {
		t.Fatalf("unlisted group must get no reply, got %d sends", out.count())
	}
}

type orderRecorder struct {
	mu    sync.Mutex
	order map[string][]int
}

type sequenceHandler struct {
	rec *orderRecorder
}

func (sequenceHandler) Event() string { return "test.sequence" }

func (h sequenceHandler) Handle(_ context.Context, payload json.RawMessage) error {
	var body struct {
		ChatID string `json:"chatId"`
		Seq    int    `json:"seq"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return err
	}
	if body.Seq == 0 {
		panic("first event of every chat fails")
	}
	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	h.rec.order[body.ChatID] = append(h.rec.order[body.ChatID], body.Seq)
	return nil
}

func TestRouterKeepsPerChatOrder(t *testing.T) {
	rec := &orderRecorder{order: make(map[string][]int)}
	registry := event.NewRegistry(discardLogger())
	if err := registry.Register(sequenceHandler{rec: rec}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	router := NewRouter(registry, 4, 8, nil, discardLogger())
	router.Start()

	var done sync.WaitGroup
	chats := []string{"A@g.us", "B@g.us", "C@g.us"}
	for seq := 0; seq < 20; seq++ {
		for _, chat := range chats {
			done.Add(1)
			payload := fmt.Sprintf(`{"chatId":%q,"seq":%d}`, chat, seq)
			ev := domain.GatewayEvent{Name: "test.sequence", Payload: json.RawMessage(payload)}
			if err := router.Submit(context.Background(), ev, done.Done); err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
		}
	}

	waitCh := make(chan struct{})
	go func() {
		done.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(5 * time.Second):
		t.Fatalf("events were not drained")
	}
	router.Stop()

	for _, chat := range chats {
		got := rec.order[chat]
		if len(got) != 19 {
			t.Fatalf("chat %s: expected 19 handled events, got %d", chat, len(got))
		}
		for i, seq := range got {
			if seq != i+1 {
				t.Fatalf("chat %s: out of order at %d: %v", chat, i, got)
			}
		}
	}

	if err := router.Submit(context.Background(), domain.GatewayEvent{Name: "x"}, nil); !errors.Is(err, ErrRouterStopped) {
		t.Fatalf("expected ErrRouterStopped, got %v", err)
	}
}

func TestLaneKey(t *testing.T) {
	upsert := domain.GatewayEvent{Name: domain.EventMessagesUpsert, Payload: json.RawMessage(`{"messages":[{"key":{"remoteJid":"G1@g.us"}}]}`)}
	if key := LaneKey(upsert); key != "G1@g.us" {
		t.Fatalf("unexpected key %q", key)
	}
	participants := domain.GatewayEvent{Name: domain.EventParticipantsUpdate, Payload: json.RawMessage(`{"id":"G2@g.us","action":"add"}`)}
	if key := LaneKey(participants); key != "G2@g.us" {
		t.Fatalf("unexpected key %q", key)
	}
	list := domain.GatewayEvent{Name: domain.EventGroupsUpsert, Payload: json.RawMessage(`[{"id":"G3@g.us"}]`)}
	if key := LaneKey(list); key != domain.EventGroupsUpsert {
		t.Fatalf("unexpected key %q", key)
	}
}
