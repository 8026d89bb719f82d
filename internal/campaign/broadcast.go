package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/messages"
)

// SendMeme renders one meme and sends it to every chat subscribed to "meme".
func (e *Engine) SendMeme(ctx context.Context) error {
	if e.deps.Memes == nil {
		return fmt.Errorf("meme generator not configured")
	}
	targets := e.deps.Targets.ResolveTargets(ctx, domain.AllowedEvent, domain.EventMeme)
	if len(targets) == 0 {
		e.deps.Logger.Info("CAMPAIGN_NO_TARGETS", slog.String("job", JobMeme))
		return nil
	}

	meme, err := e.deps.Memes.RandomMeme(ctx)
	if err != nil {
		return fmt.Errorf("generate meme: %w", err)
	}

	payload := domain.ImagePayload{ImageURL: meme.URL, Caption: e.msg("meme.footer")}
	sent := e.broadcast(ctx, JobMeme, targetIDs(targets), func(ctx context.Context, chatID string) error {
		_, err := e.deps.Sender.Send(ctx, chatID, payload)
		return err
	})

	e.deps.Logger.Info("MEME_SENT",
		slog.String("template", meme.Template),
		slog.String("topic", meme.Topic),
		slog.Int("targets", len(targets)),
		slog.Int("delivered", sent),
	)
	return nil
}

// SendNewsDigest sends the top stories of the news feed to chats subscribed to "tech-news".
// Links are shortened when possible.
func (e *Engine) SendNewsDigest(ctx context.Context) error {
	if e.deps.News == nil {
		return fmt.Errorf("news source not configured")
	}
	targets := e.deps.Targets.ResolveTargets(ctx, domain.AllowedEvent, domain.EventTechNews)
	if len(targets) == 0 {
		e.deps.Logger.Info("CAMPAIGN_NO_TARGETS", slog.String("job", JobNews))
		return nil
	}

	items, err := e.deps.News.TopStories(ctx, constants.CampaignConfig.NewsItems)
	if err != nil {
		return fmt.Errorf("load news: %w", err)
	}
	if len(items) == 0 {
		e.deps.Logger.Warn("NEWS_EMPTY")
		return nil
	}

	var sb strings.Builder
	sb.WriteString(e.msg("digest.news_header"))
	for i, item := range items {
		link := item.Link
		if e.deps.Shortener != nil {
			link = e.deps.Shortener.Shorten(ctx, link)
		}
		sb.WriteString(e.msg("digest.news_item",
			messages.P("index", i+1),
			messages.P("title", item.Title),
			messages.P("link", link),
		))
	}
	text := strings.TrimRight(sb.String(), "\n")

	sent := e.broadcast(ctx, JobNews, targetIDs(targets), func(ctx context.Context, chatID string) error {
		_, err := e.deps.Sender.Send(ctx, chatID, domain.TextPayload{Text: text})
		return err
	})
	e.deps.Logger.Info("NEWS_DIGEST_SENT", slog.Int("items", len(items)), slog.Int("delivered", sent))
	return nil
}

// SendQuote sends the quote of the day to chats subscribed to "quote".
func (e *Engine) SendQuote(ctx context.Context) error {
	if e.deps.Quotes == nil {
		return fmt.Errorf("quote source not configured")
	}
	targets := e.deps.Targets.ResolveTargets(ctx, domain.AllowedEvent, domain.EventQuote)
	if len(targets) == 0 {
		e.deps.Logger.Info("CAMPAIGN_NO_TARGETS", slog.String("job", JobQuote))
		return nil
	}

	quote, err := e.deps.Quotes.Today(ctx)
	if err != nil {
		return fmt.Errorf("load quote: %w", err)
	}
	author := quote.Author
	if author == "" {
		author = "Anonyme"
	}
	text := e.msg("digest.quote", messages.P("text", quote.Text), messages.P("author", author))

	sent := e.broadcast(ctx, JobQuote, targetIDs(targets), func(ctx context.Context, chatID string) error {
		_, err := e.deps.Sender.Send(ctx, chatID, domain.TextPayload{Text: text})
		return err
	})
	e.deps.Logger.Info("QUOTE_SENT", slog.String("author", author), slog.Int("delivered", sent))
	return nil
}
