// Package campaign runs the daily scheduled jobs: meme, tech news digest, quote of the day
// and the quiz campaign (publish a poll, pin it, reveal the answer the next day).
package campaign

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/metrics"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/store"
)

// TargetResolver lists the chats subscribed to a scheduled event.
type TargetResolver interface {
	ResolveTargets(ctx context.Context, key domain.PermissionKey, value string) []domain.Target
}

// Sender is the socket surface jobs write to.
type Sender interface {
	Send(ctx context.Context, chatID string, payload domain.Payload) (domain.MessageRef, error)
	Pin(ctx context.Context, ref domain.MessageRef, ttl time.Duration) error
	Unpin(ctx context.Context, ref domain.MessageRef) error
}

// StateStore keeps campaign state with TTLs.
type StateStore interface {
	Save(ctx context.Context, key string, typ store.RecordType, data any, ttl time.Duration) error
	SaveIfAbsent(ctx context.Context, key string, typ store.RecordType, data any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	ScanPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
	AddUserPoints(ctx context.Context, userID string, points float64, quizID string) (float64, error)
}

// QuizSource generates quizzes.
type QuizSource interface {
	CreateQuiz(ctx context.Context) (*domain.Quiz, error)
}

// MemeSource renders memes.
type MemeSource interface {
	RandomMeme(ctx context.Context) (*domain.Meme, error)
}

// NewsSource returns the top stories of an external feed.
type NewsSource interface {
	TopStories(ctx context.Context, n int) ([]domain.NewsItem, error)
}

// QuoteSource returns the quote of the day.
type QuoteSource interface {
	Today(ctx context.Context) (*domain.Quote, error)
}

// LinkShortener shortens a link, returning it unchanged on failure.
type LinkShortener interface {
	Shorten(ctx context.Context, link string) string
}

// Archive records published and revealed quizzes.
type Archive interface {
	QuizPublished(ctx context.Context, quiz *domain.Quiz, targets int) error
	QuizRevealed(ctx context.Context, quizID string, targets int) error
}

// Deps wires an Engine. Memes, News, Quotes, Shortener and Archive are optional.
type Deps struct {
	Targets   TargetResolver
	Sender    Sender
	Store     StateStore
	Quizzes   QuizSource
	Memes     MemeSource
	News      NewsSource
	Quotes    QuoteSource
	Shortener LinkShortener
	Archive   Archive
	Messages  *messages.Provider
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Engine implements the scheduled jobs.
type Engine struct {
	deps        Deps
	concurrency int
	settle      time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an Engine.
func NewEngine(deps Deps) *Engine {
	if deps.Messages == nil {
		deps.Messages = messages.Default()
	}
	return &Engine{
		deps:        deps,
		concurrency: constants.CampaignConfig.BroadcastPool,
		settle:      constants.CampaignConfig.RevealSettle,
		sleep:       sleepContext,
	}
}

func (e *Engine) msg(key string, params ...messages.Param) string {
	return e.deps.Messages.Get(key, params...)
}

// broadcast runs fn for every id on a bounded pool. A failing id is logged and
// does not stop the others. It returns the number of successes.
func (e *Engine) broadcast(ctx context.Context, job string, ids []string, fn func(ctx context.Context, id string) error) int {
	results := make([]bool, len(ids))
	p := pool.New().WithMaxGoroutines(e.concurrency)
	for i, id := range ids {
		p.Go(func() {
			if err := fn(ctx, id); err != nil {
				e.deps.Logger.Error("CAMPAIGN_TARGET_FAILED",
					slog.String("job", job),
					slog.String("target", id),
					slog.Any("error", err),
				)
				return
			}
			results[i] = true
		})
	}
	p.Wait()

	delivered := 0
	for _, ok := range results {
		if ok {
			delivered++
		}
	}
	return delivered
}

func targetIDs(targets []domain.Target) []string {
	ids := make([]string, 0, len(targets))
	for _, target := range targets {
		ids = append(ids, target.ID)
	}
	return ids
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
