// Package feed retrieves iCalendar export feeds from third-party rental
// platforms.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single fetch attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 1
)

const webcalPrefix = "webcal://"

// NormalizeURL trims the configured feed URL and rewrites the legacy
// webcal:// scheme to https://. An empty or whitespace-only value
// normalizes to "" meaning "no feed configured"; this never fails.
func NormalizeURL(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, webcalPrefix) {
		return "https://" + trimmed[len(webcalPrefix):]
	}
	return trimmed
}

// Fetcher downloads feed text with a per-attempt timeout and a small
// bounded retry budget. Retries are immediate; a failed feed simply waits
// for the next scheduled sync pass, so backoff buys nothing here.
type Fetcher struct {
	client     *http.Client
	timeout    time.Duration
	maxRetries int
}

// NewFetcher builds a Fetcher. Non-positive arguments fall back to the
// defaults.
func NewFetcher(timeout time.Duration, maxRetries int) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Fetcher{
		client:     &http.Client{},
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

// Fetch retrieves the feed text at url, attempting up to maxRetries+1
// times. The last attempt's error is returned when all attempts fail.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		text, err := f.fetchOnce(ctx, url)
		if err == nil {
			return text, nil
		}
		lastErr = err
		slog.WarnContext(ctx, "Feed fetch attempt failed", "url", url, "attempt", attempt+1, "error", err)
	}
	return "", lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read feed body: %w", err)
	}

	return string(body), nil
}
