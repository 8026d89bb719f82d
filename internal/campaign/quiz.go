package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/store"
)

// quizPointer names the key holding the pending quiz id, or "" while it is being generated.
func quizPointer() string {
	return store.PointerKey(constants.CampaignConfig.QuizPointerKind)
}

// PublishQuiz generates a quiz and sends it as a pinned single-choice poll to every chat
// subscribed to "quiz". It does nothing while another quiz is pending.
func (e *Engine) PublishQuiz(ctx context.Context) error {
	targets := e.deps.Targets.ResolveTargets(ctx, domain.AllowedEvent, domain.EventQuiz)
	if len(targets) == 0 {
		e.deps.Logger.Info("CAMPAIGN_NO_TARGETS", slog.String("job", JobQuiz))
		return nil
	}

	pointer := quizPointer()
	ttl := constants.CacheTTL.CampaignState
	// The placeholder outlives one job run at most; the id overwrite below sets the full TTL.
	claimed, err := e.deps.Store.SaveIfAbsent(ctx, pointer, store.TypeCustom, "", constants.CampaignConfig.JobTimeout)
	if err != nil {
		return fmt.Errorf("claim quiz pointer: %w", err)
	}
	if !claimed {
		e.deps.Logger.Info("QUIZ_ALREADY_PENDING")
		return nil
	}

	quiz, err := e.deps.Quizzes.CreateQuiz(ctx)
	if err != nil {
		e.release(ctx, pointer)
		return fmt.Errorf("generate quiz: %w", err)
	}
	if _, ok := quiz.CorrectOption(); !ok {
		e.release(ctx, pointer)
		return fmt.Errorf("quiz %s has no correct option", quiz.ID)
	}

	if err := e.deps.Store.Save(ctx, store.QuizKey(quiz.ID), store.TypeQuiz, quiz, ttl); err != nil {
		e.release(ctx, pointer)
		return fmt.Errorf("save quiz: %w", err)
	}
	if err := e.deps.Store.Save(ctx, pointer, store.TypeCustom, quiz.ID, ttl); err != nil {
		e.release(ctx, pointer, store.QuizKey(quiz.ID))
		return fmt.Errorf("save quiz pointer: %w", err)
	}

	poll := domain.PollPayload{
		Question: strings.TrimRight(e.msg("quiz.question",
			messages.P("title", quiz.Titre),
			messages.P("difficulty", string(quiz.Difficulte)),
			messages.P("question", quiz.Question),
		), "\n"),
		Options:         quiz.OptionTexts(),
		SelectableCount: 1,
	}

	sent := e.broadcast(ctx, JobQuiz, targetIDs(targets), func(ctx context.Context, chatID string) error {
		return e.publishTo(ctx, quiz.ID, chatID, poll)
	})

	e.deps.Logger.Info("QUIZ_PUBLISHED",
		slog.String("quiz", quiz.ID),
		slog.String("domain", quiz.Domaine),
		slog.Int("targets", len(targets)),
		slog.Int("delivered", sent),
	)

	if e.deps.Archive != nil {
		if err := e.deps.Archive.QuizPublished(ctx, quiz, sent); err != nil {
			e.deps.Logger.Warn("QUIZ_ARCHIVE_FAILED", slog.String("quiz", quiz.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (e *Engine) publishTo(ctx context.Context, quizID, chatID string, poll domain.PollPayload) error {
	ref, err := e.deps.Sender.Send(ctx, chatID, poll)
	if err != nil {
		return fmt.Errorf("send poll: %w", err)
	}
	if err := e.deps.Sender.Pin(ctx, ref, constants.CacheTTL.PinDuration); err != nil {
		e.deps.Logger.Warn("QUIZ_PIN_FAILED", slog.String("chat", chatID), slog.Any("error", err))
	}

	ttl := constants.CacheTTL.CampaignState
	if err := e.deps.Store.Save(ctx, store.MessageRefKey(quizID, chatID), store.TypeRef, ref, ttl); err != nil {
		return fmt.Errorf("save message ref: %w", err)
	}
	if err := e.deps.Store.Save(ctx, store.PollIndexKey(ref.ID), store.TypeCustom, quizID, ttl); err != nil {
		e.deps.Logger.Warn("QUIZ_POLL_INDEX_FAILED", slog.String("chat", chatID), slog.Any("error", err))
	}
	return nil
}

func (e *Engine) release(ctx context.Context, keys ...string) {
	if err := e.deps.Store.Delete(context.WithoutCancel(ctx), keys...); err != nil {
		e.deps.Logger.Warn("QUIZ_RELEASE_FAILED", slog.Any("keys", keys), slog.Any("error", err))
	}
}

// RevealQuiz answers the pending quiz in every chat it was published to, unpins the polls and,
// after a settle delay, clears the quiz and its pointer. Without a pending quiz it does nothing.
func (e *Engine) RevealQuiz(ctx context.Context) error {
	pointer := quizPointer()

	var quizID string
	found, err := e.deps.Store.Get(ctx, pointer, &quizID)
	if err != nil {
		return fmt.Errorf("load quiz pointer: %w", err)
	}
	if !found {
		e.deps.Logger.Info("QUIZ_NONE_PENDING")
		return nil
	}
	if quizID == "" {
		e.deps.Logger.Info("QUIZ_PUBLISH_IN_PROGRESS")
		return nil
	}

	var quiz domain.Quiz
	found, err = e.deps.Store.Get(ctx, store.QuizKey(quizID), &quiz)
	if err != nil {
		return fmt.Errorf("load quiz: %w", err)
	}
	if !found {
		e.deps.Logger.Warn("QUIZ_MISSING", slog.String("quiz", quizID))
		return nil
	}

	answer, _ := quiz.CorrectOption()
	text := e.msg("quiz.reveal",
		messages.P("answer", answer.Text),
		messages.P("explanation", quiz.Explication),
	)

	keys, err := e.deps.Store.ScanPrefix(ctx, store.MessageRefPrefix(quizID), 0)
	if err != nil {
		return fmt.Errorf("list message refs: %w", err)
	}

	revealed := e.broadcast(ctx, JobReveal, keys, func(ctx context.Context, key string) error {
		return e.revealTo(ctx, key, text)
	})

	e.deps.Logger.Info("QUIZ_REVEALED",
		slog.String("quiz", quizID),
		slog.Int("refs", len(keys)),
		slog.Int("revealed", revealed),
	)

	if err := e.sleep(ctx, e.settle); err != nil {
		return err
	}
	if err := e.deps.Store.Delete(context.WithoutCancel(ctx), store.QuizKey(quizID), pointer); err != nil {
		return fmt.Errorf("clear quiz state: %w", err)
	}

	if e.deps.Archive != nil {
		if err := e.deps.Archive.QuizRevealed(ctx, quizID, revealed); err != nil {
			e.deps.Logger.Warn("QUIZ_ARCHIVE_FAILED", slog.String("quiz", quizID), slog.Any("error", err))
		}
	}
	return nil
}

func (e *Engine) revealTo(ctx context.Context, key, text string) error {
	var ref domain.MessageRef
	found, err := e.deps.Store.Get(ctx, key, &ref)
	if err != nil {
		return fmt.Errorf("load message ref: %w", err)
	}
	if !found {
		return nil
	}

	if _, err := e.deps.Sender.Send(ctx, ref.ChatID, domain.TextPayload{Text: text}); err != nil {
		return fmt.Errorf("send reveal: %w", err)
	}
	if err := e.deps.Sender.Unpin(ctx, ref); err != nil {
		e.deps.Logger.Warn("QUIZ_UNPIN_FAILED", slog.String("chat", ref.ChatID), slog.Any("error", err))
	}
	return e.deps.Store.Delete(ctx, key)
}

// ScoreVote credits the quiz points to a voter whose first vote on a pending quiz poll picks
// the correct option. Votes on unknown polls are ignored.
func (e *Engine) ScoreVote(ctx context.Context, vote domain.PollVote) error {
	if vote.Voter == "" || len(vote.SelectedOptions) == 0 {
		return nil
	}

	var quizID string
	found, err := e.deps.Store.Get(ctx, store.PollIndexKey(vote.PollMessageID), &quizID)
	if err != nil {
		return fmt.Errorf("load poll index: %w", err)
	}
	if !found {
		return nil
	}

	var quiz domain.Quiz
	found, err = e.deps.Store.Get(ctx, store.QuizKey(quizID), &quiz)
	if err != nil {
		return fmt.Errorf("load quiz: %w", err)
	}
	if !found {
		return nil
	}

	first, err := e.deps.Store.SaveIfAbsent(ctx, store.VoteKey(quizID, vote.Voter), store.TypeCustom,
		vote.SelectedOptions, constants.CacheTTL.VoteDedup)
	if err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	if !first {
		return nil
	}

	answer, _ := quiz.CorrectOption()
	if len(vote.SelectedOptions) != 1 || vote.SelectedOptions[0] != answer.Text {
		return nil
	}

	total, err := e.deps.Store.AddUserPoints(ctx, vote.Voter, float64(quiz.Points), quizID)
	if err != nil {
		return fmt.Errorf("credit points: %w", err)
	}
	e.deps.Metrics.ObserveVote()
	e.deps.Logger.Info("QUIZ_VOTE_CREDITED",
		slog.String("quiz", quizID),
		slog.String("voter", vote.Voter),
		slog.Int("points", quiz.Points),
		slog.Float64("total", total),
	)
	return nil
}
