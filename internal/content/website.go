package content

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
)

// Forum filters understood by Forums.
const (
	ForumAll      = "all"
	ForumNoAnswer = "no-answer"
	ForumAnswered = "answered"
)

// WebsiteClient reads the GNDC website API.
type WebsiteClient struct {
	fetch   *fetcher
	baseURL string
}

// NewWebsiteClient creates a WebsiteClient rooted at baseURL (WEBSITE_URL).
func NewWebsiteClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *WebsiteClient {
	return &WebsiteClient{
		fetch:   newFetcher(httpClient, logger),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the website root without trailing slash.
func (c *WebsiteClient) BaseURL() string { return c.baseURL }

// Blogs returns the latest blog posts.
func (c *WebsiteClient) Blogs(ctx context.Context) ([]domain.BlogPost, error) {
	var posts []domain.BlogPost
	if err := c.fetch.getJSON(ctx, "website blogs", c.baseURL+"/api/bot/blogs", &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Forums returns forum questions. "answered" and "no-answer" filter on withAns, "all" does not filter.
func (c *WebsiteClient) Forums(ctx context.Context, filter string) ([]domain.ForumPost, error) {
	endpoint := c.baseURL + "/api/bot/forums"
	switch filter {
	case ForumAnswered:
		endpoint += "?" + url.Values{"withAns": {"true"}}.Encode()
	case ForumNoAnswer:
		endpoint += "?" + url.Values{"withAns": {"false"}}.Encode()
	}

	var posts []domain.ForumPost
	if err := c.fetch.getJSON(ctx, "website forums", endpoint, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Leaderboard returns the experience leaderboard.
func (c *WebsiteClient) Leaderboard(ctx context.Context) (*domain.Leaderboard, error) {
	var board domain.Leaderboard
	if err := c.fetch.getJSON(ctx, "website leaderboard", c.baseURL+"/api/leaderboard", &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// Events returns upcoming community events.
func (c *WebsiteClient) Events(ctx context.Context) ([]domain.CommunityEvent, error) {
	var events []domain.CommunityEvent
	if err := c.fetch.getJSON(ctx, "website events", c.baseURL+"/api/events", &events); err != nil {
		return nil, err
	}
	return events, nil
}
