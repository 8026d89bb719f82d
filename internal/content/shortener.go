package content

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
)

// Shortener shortens links through the is.gd simple API.
type Shortener struct {
	fetch    *fetcher
	endpoint string
	logger   *slog.Logger
}

// NewShortener creates a Shortener. endpoint defaults to is.gd.
func NewShortener(endpoint string, httpClient *http.Client, logger *slog.Logger) *Shortener {
	if endpoint == "" {
		endpoint = constants.ContentConfig.ShortenerURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.RequestTimeout.Shortener}
	}
	f := newFetcher(httpClient, logger)
	f.attempts = 1
	return &Shortener{fetch: f, endpoint: endpoint, logger: logger}
}

// Shorten returns the short link, or link itself when shortening fails.
func (s *Shortener) Shorten(ctx context.Context, link string) string {
	query := url.Values{"format": {"simple"}, "url": {link}}
	body, err := s.fetch.get(ctx, "shorten link", s.endpoint+"?"+query.Encode())
	if err != nil {
		s.logger.Warn("SHORTEN_FAILED", slog.String("link", link), slog.Any("error", err))
		return link
	}
	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http") {
		s.logger.Warn("SHORTEN_FAILED", slog.String("link", link), slog.String("response", short))
		return link
	}
	return short
}
