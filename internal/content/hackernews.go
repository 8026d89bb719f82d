package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

// ErrStructureChanged: the front page parsed but no story row was found
var ErrStructureChanged = errors.New("no stories found, HTML structure may have changed")

// HackerNews scrapes the Hacker News front page.
type HackerNews struct {
	fetch   *fetcher
	pageURL string
	logger  *slog.Logger
}

// NewHackerNews creates a scraper for pageURL (defaults to the public front page).
func NewHackerNews(pageURL string, httpClient *http.Client, logger *slog.Logger) *HackerNews {
	if pageURL == "" {
		pageURL = constants.ContentConfig.HackerNewsURL
	}
	return &HackerNews{fetch: newFetcher(httpClient, logger), pageURL: pageURL, logger: logger}
}

// TopStories returns the first n stories in front page order.
func (h *HackerNews) TopStories(ctx context.Context, n int) ([]domain.NewsItem, error) {
	body, err := h.fetch.get(ctx, "hackernews front page", h.pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTML parse failed: %w", err)
	}
	base, err := url.Parse(h.pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	items := make([]domain.NewsItem, 0, n)
	skipped := 0
	doc.Find("tr.athing").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		item, ok := parseStoryRow(row, base)
		if !ok {
			skipped++
			return true
		}
		items = append(items, item)
		return len(items) < n
	})

	if len(items) == 0 {
		return nil, ErrStructureChanged
	}

	h.logger.Debug("HACKERNEWS_SCRAPED",
		slog.Int("items", len(items)),
		slog.Int("skipped", skipped),
	)
	return items, nil
}

func parseStoryRow(row *goquery.Selection, base *url.URL) (domain.NewsItem, bool) {
	anchor := row.Find(".titleline > a").First()
	if anchor.Length() == 0 {
		anchor = row.Find("a.storylink").First()
	}
	title := util.TrimSpace(anchor.Text())
	href, exists := anchor.Attr("href")
	if title == "" || !exists {
		return domain.NewsItem{}, false
	}

	link, err := base.Parse(href)
	if err != nil {
		return domain.NewsItem{}, false
	}

	item := domain.NewsItem{Title: title, Link: link.String()}
	if id, ok := row.Attr("id"); ok {
		scoreText := row.Next().Find("#score_" + id).Text()
		item.Score = parseScore(scoreText)
	}
	return item, true
}

// parseScore reads "123 points".
func parseScore(text string) int {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	score, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return score
}
