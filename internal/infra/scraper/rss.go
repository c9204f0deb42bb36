// Package scraper provides implementations for fetching RSS/Atom feeds.
// It uses the gofeed library to parse feed content with reliability patterns.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"rssnews/internal/resilience/circuitbreaker"
	"rssnews/internal/resilience/retry"
	"rssnews/internal/usecase/ingest"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// RSSFetcher implements ingest.FeedFetcher using the gofeed library, with
// conditional-GET support (ETag/If-None-Match, Last-Modified/
// If-Modified-Since) so an unchanged feed costs the upstream a cheap 304
// instead of a full re-parse.
type RSSFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSSFetcher creates a new RSSFetcher with the given HTTP client.
// It automatically configures circuit breaker and retry logic.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return &RSSFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// Fetch retrieves and parses an RSS/Atom feed from the given URL, sending
// etag/lastModified as conditional-GET validators when non-empty.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL, etag, lastModified string) (ingest.FetchResult, error) {
	var result ingest.FetchResult

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, feedURL, etag, lastModified)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", "feed-fetch"),
					slog.String("url", feedURL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}
		result = cbResult.(ingest.FetchResult)
		return nil
	})
	if retryErr != nil {
		return ingest.FetchResult{}, retryErr
	}
	return result, nil
}

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (f *RSSFetcher) doFetch(ctx context.Context, feedURL, etag, lastModified string) (ingest.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return ingest.FetchResult{}, err
	}
	req.Header.Set("User-Agent", "CatchUpFeedBot")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return ingest.FetchResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return ingest.FetchResult{NotModified: true, ETag: etag, LastModified: lastModified}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return ingest.FetchResult{}, fmt.Errorf("feed fetch: unexpected status %d", resp.StatusCode)
	}

	fp := gofeed.NewParser()
	feed, err := fp.Parse(resp.Body)
	if err != nil {
		return ingest.FetchResult{}, err
	}

	items := make([]ingest.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := ingest.FeedItem{
			Title: it.Title,
			URL:   it.Link,
		}

		content := it.Content
		if content == "" {
			content = it.Description
		}
		item.Content = content

		if it.PublishedParsed != nil {
			item.PublishedAt = *it.PublishedParsed
			item.HasPubDate = true
		} else {
			item.PublishedAt = time.Now()
		}

		items = append(items, item)
	}

	return ingest.FetchResult{
		Items:        items,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}
