package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	apperrors "github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db.Gorm(), logger)
	if err := repo.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	return repo
}

func TestQuizLifecycleArchive(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	published := time.Date(2026, 5, 4, 21, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return published }

	quiz := &domain.Quiz{
		ID:         "quiz_1_abc",
		Titre:      "Git",
		Question:   "Quelle commande crée une branche ?",
		Domaine:    "Git et Contrôle de version",
		Difficulte: domain.DifficultyBeginner,
		Options: []domain.QuizOption{
			{ID: "A", Text: "git branch", IsCorrect: true},
			{ID: "B", Text: "git fork"},
			{ID: "C", Text: "git split"},
			{ID: "D", Text: "git new"},
		},
		Explication: "git branch crée une branche.",
		Points:      15,
	}
	if err := repo.QuizPublished(ctx, quiz, 3); err != nil {
		t.Fatalf("QuizPublished failed: %v", err)
	}

	repo.now = func() time.Time { return published.Add(15 * time.Hour) }
	if err := repo.QuizRevealed(ctx, quiz.ID, 2); err != nil {
		t.Fatalf("QuizRevealed failed: %v", err)
	}

	records, err := repo.RecentQuizzes(ctx, 10)
	if err != nil {
		t.Fatalf("RecentQuizzes failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	record := records[0]
	if record.Targets != 3 || record.Revealed != 2 || record.RevealedAt == nil || record.Difficulty != "debutant" {
		t.Fatalf("unexpected record: %+v", record)
	}
	decoded, err := record.Quiz()
	if err != nil {
		t.Fatalf("Quiz failed: %v", err)
	}
	if answer, _ := decoded.CorrectOption(); answer.Text != "git branch" {
		t.Fatalf("unexpected archived answer %q", answer.Text)
	}

	err = repo.QuizRevealed(ctx, "quiz_missing", 1)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordRuns(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC)

	runs := []struct {
		job    string
		status string
		err    error
		at     time.Time
	}{
		{"quote", "success", nil, start},
		{"news", "failed", errors.New("hackernews down"), start.Add(time.Hour)},
		{"quote", "success", nil, start.Add(24 * time.Hour)},
	}
	for _, run := range runs {
		if err := repo.RecordRun(ctx, run.job, run.status, run.at, 1500*time.Millisecond, run.err); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	all, err := repo.RecentRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(all) != 3 || all[1].Error != "hackernews down" || all[1].DurationMs != 1500 {
		t.Fatalf("unexpected runs: %+v", all)
	}

	quotes, err := repo.RecentRuns(ctx, "quote", 1)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(quotes) != 1 || !quotes[0].StartedAt.Equal(start.Add(24*time.Hour)) {
		t.Fatalf("unexpected quote runs: %+v", quotes)
	}
}
