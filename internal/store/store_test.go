package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/service/cache"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
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
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := cache.NewWithClient(client, logger)
	t.Cleanup(func() { _ = svc.Close() })

	return New(svc, logger), mini
}

func TestSaveAndGetQuiz(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	quiz := domain.Quiz{ID: "quiz_1", Titre: "Go", Question: "Q?", Points: 20}
	if err := st.Save(ctx, QuizKey(quiz.ID), TypeQuiz, quiz, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var got domain.Quiz
	found, err := st.Get(ctx, QuizKey(quiz.ID), &got)
	if err != nil || !found {
		t.Fatalf("Get failed: found=%v err=%v", found, err)
	}
	if got.Titre != "Go" || got.Points != 20 {
		t.Fatalf("unexpected quiz: %+v", got)
	}

	item, err := st.GetItem(ctx, QuizKey(quiz.ID))
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.Type != TypeQuiz || item.ID != "quiz:quiz_1" || item.ExpiresAt == nil {
		t.Fatalf("unexpected envelope: %+v", item)
	}
}

func TestGetExpiredRecordIsDeleted(t *testing.T) {
	st, mini := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 21, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	if err := st.Save(ctx, "k", TypeCustom, map[string]string{"a": "b"}, 10*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// server TTL is still alive; only the client-side clock moves
	st.now = func() time.Time { return base.Add(11 * time.Second) }

	found, err := st.Get(ctx, "k", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Fatalf("expected expired record to be a miss")
	}
	if mini.Exists("k") {
		t.Fatalf("expected expired record to be deleted")
	}
}

func TestSaveIfAbsent(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := st.SaveIfAbsent(ctx, PointerKey("quiz"), TypeCustom, "quiz_1", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first claim failed: ok=%v err=%v", ok, err)
	}
	ok, err = st.SaveIfAbsent(ctx, PointerKey("quiz"), TypeCustom, "quiz_2", time.Hour)
	if err != nil || ok {
		t.Fatalf("second claim should fail: ok=%v err=%v", ok, err)
	}

	var id string
	if _, err := st.Get(ctx, PointerKey("quiz"), &id); err != nil || id != "quiz_1" {
		t.Fatalf("unexpected pointer: %q err=%v", id, err)
	}
}

func TestScanPrefix(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	for _, target := range []string{"g1@g.us", "g2@g.us"} {
		if err := st.Save(ctx, MessageRefKey("quiz_1", target), TypeCustom, target, 0); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if err := st.Save(ctx, MessageRefKey("quiz_10", "g3@g.us"), TypeCustom, "x", 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	keys, err := st.ScanPrefix(ctx, MessageRefPrefix("quiz_1"), 0)
	if err != nil {
		t.Fatalf("ScanPrefix failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}

func TestLeaderboard(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := st.AddUserPoints(ctx, "alice", 20, "quiz_1"); err != nil {
		t.Fatalf("AddUserPoints failed: %v", err)
	}
	total, err := st.AddUserPoints(ctx, "alice", 10, "quiz_2")
	if err != nil || total != 30 {
		t.Fatalf("unexpected total: %v err=%v", total, err)
	}
	if _, err := st.AddUserPoints(ctx, "bob", 50, "quiz_2"); err != nil {
		t.Fatalf("AddUserPoints failed: %v", err)
	}

	entries, err := st.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Member != "bob" || entries[1].Score != 30 {
		t.Fatalf("unexpected ranking: %+v", entries)
	}

	var record UserScore
	found, err := st.Get(ctx, userScoreKey("alice"), &record)
	if err != nil || !found || record.Score != 30 || record.QuizID != "quiz_2" {
		t.Fatalf("unexpected user score record: %+v found=%v err=%v", record, found, err)
	}
}
