// Package content reads the upstream content feeds the bot relays: the GNDC website API,
// the Hacker News front page, the quote of the day and the link shortener.
package content

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

const maxBodyBytes = 4 << 20

// fetcher performs idempotent GETs with exponential retry. 4xx answers are not retried.
type fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
	attempts   uint64
	baseDelay  time.Duration
}

func newFetcher(httpClient *http.Client, logger *slog.Logger) *fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.RequestTimeout.ContentAPI}
	}
	return &fetcher{
		httpClient: httpClient,
		logger:     logger,
		attempts:   constants.RetryConfig.MaxAttempts,
		baseDelay:  constants.RetryConfig.BaseDelay,
	}
}

func (f *fetcher) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.baseDelay
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	retries := uint64(0)
	if f.attempts > 1 {
		retries = f.attempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

// get returns the body of a 200 answer.
func (f *fetcher) get(ctx context.Context, op, rawURL string) ([]byte, error) {
	var body []byte
	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("User-Agent", constants.ContentConfig.UserAgent)
		req.Header.Set("Accept", "application/json, text/html;q=0.9")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return errors.NewAPIError(op, 0, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			apiErr := errors.NewAPIError(op, resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(apiErr)
			}
			return apiErr
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return errors.NewAPIError(op, resp.StatusCode, err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		f.logger.Warn("CONTENT_FETCH_RETRY",
			slog.String("op", op),
			slog.Duration("retry_in", wait),
			slog.Any("error", err),
		)
	}
	if err := backoff.RetryNotify(attempt, f.policy(ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *fetcher) getJSON(ctx context.Context, op, rawURL string, dest any) error {
	body, err := f.get(ctx, op, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return errors.NewAPIError(op, http.StatusOK, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
