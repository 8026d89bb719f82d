package content

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

type zenQuote struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// QuoteClient fetches the quote of the day from ZenQuotes.
type QuoteClient struct {
	fetch    *fetcher
	endpoint string
}

// NewQuoteClient creates a QuoteClient. endpoint defaults to the public API.
func NewQuoteClient(endpoint string, httpClient *http.Client, logger *slog.Logger) *QuoteClient {
	if endpoint == "" {
		endpoint = constants.ContentConfig.QuoteURL
	}
	return &QuoteClient{fetch: newFetcher(httpClient, logger), endpoint: endpoint}
}

// Today returns one quote.
func (c *QuoteClient) Today(ctx context.Context) (*domain.Quote, error) {
	var quotes []zenQuote
	if err := c.fetch.getJSON(ctx, "quote of the day", c.endpoint, &quotes); err != nil {
		return nil, err
	}
	for _, q := range quotes {
		text := util.TrimSpace(q.Q)
		if text == "" {
			continue
		}
		return &domain.Quote{Text: text, Author: util.TrimSpace(q.A)}, nil
	}
	return nil, fmt.Errorf("quote of the day: empty response")
}
