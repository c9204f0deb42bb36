package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/observability/metrics"
	"rssnews/internal/repository"
	"rssnews/pkg/urlnorm"
)

// duplicateWindow is how far back ExistsByURLHashWithinWindow looks before
// a re-sighted URL is treated as a duplicate sighting rather than a fresh one.
const duplicateWindow = 7 * 24 * time.Hour

// Poller fetches due feeds and records each new item as a RawArticle.
type Poller struct {
	Feeds       repository.FeedRepository
	RawArticles repository.RawArticleRepository
	BatchRuns   repository.BatchRunRepository
	Fetcher     FeedFetcher
	WorkerID    string
}

// PollResult summarizes one PollOnce invocation.
type PollResult struct {
	FeedsPolled   int
	ItemsSeen     int
	ItemsStored   int
	ItemsSkipped  int
	FeedsNotModified int
	Errors        int
}

// PollOnce fetches up to batchSize due feeds, honoring conditional GET, and
// records each new item as a pending RawArticle.
func (p *Poller) PollOnce(ctx context.Context, batchSize int) (*PollResult, error) {
	started := time.Now()
	result := &PollResult{}
	buckets := map[string]int{}

	feeds, err := p.Feeds.DueForCrawl(ctx, time.Now(), batchSize)
	if err != nil {
		return nil, fmt.Errorf("PollOnce: DueForCrawl: %w", err)
	}

	for _, feed := range feeds {
		result.FeedsPolled++
		if err := p.pollFeed(ctx, feed, result); err != nil {
			result.Errors++
			buckets[entity.ErrorKindTransientUpstream]++
			slog.Warn("feed poll failed",
				slog.Int64("feed_id", feed.ID),
				slog.String("url", feed.URL),
				slog.Any("error", err))
		}
	}

	if p.BatchRuns != nil {
		run := &entity.BatchRun{
			Stage: "poll", WorkerID: p.WorkerID,
			InputCount: result.FeedsPolled, OutputCount: result.ItemsStored,
			ErrorCount: result.Errors, ErrorBuckets: buckets,
			StartedAt: started, FinishedAt: time.Now(),
		}
		if err := p.BatchRuns.Create(ctx, run); err != nil {
			slog.Warn("failed to record batch run", slog.Any("error", err))
		}
	}

	metrics.RecordPoll(result.ItemsSeen, result.ItemsStored, result.ItemsSkipped, result.FeedsNotModified, result.Errors)

	return result, nil
}

func (p *Poller) pollFeed(ctx context.Context, feed *entity.Feed, result *PollResult) error {
	fetchResult, err := p.Fetcher.Fetch(ctx, feed.URL, feed.ETag, feed.LastModified)
	if err != nil {
		feed.ConsecutiveFailures++
		feed.DegradeHealth(1.0, 0, 0)
		_ = p.Feeds.Update(ctx, feed)
		return fmt.Errorf("fetch: %w", err)
	}

	if fetchResult.NotModified {
		result.FeedsNotModified++
		feed.ConsecutiveFailures = 0
		feed.LastCrawledAt = timePtr(time.Now())
		feed.NextCrawlAt = time.Now().Add(feed.CrawlInterval)
		return p.Feeds.Update(ctx, feed)
	}

	var duplicates, stored int
	for _, item := range fetchResult.Items {
		result.ItemsSeen++
		if err := p.storeItem(ctx, feed, item); err != nil {
			if err == entity.ErrDuplicate {
				duplicates++
				result.ItemsSkipped++
				continue
			}
			result.Errors++
			slog.Warn("failed to store raw article",
				slog.Int64("feed_id", feed.ID), slog.String("url", item.URL), slog.Any("error", err))
			continue
		}
		stored++
		result.ItemsStored++
	}

	feed.ConsecutiveFailures = 0
	errorRate := 0.0
	duplicateRate := 0.0
	if total := stored + duplicates; total > 0 {
		duplicateRate = float64(duplicates) / float64(total)
	}
	feed.DegradeHealth(errorRate, duplicateRate, 0)
	feed.ETag = fetchResult.ETag
	feed.LastModified = fetchResult.LastModified
	feed.LastCrawledAt = timePtr(time.Now())
	feed.NextCrawlAt = time.Now().Add(feed.CrawlInterval)
	return p.Feeds.Update(ctx, feed)
}

// storeItem canonicalizes one feed item and records it as a pending
// RawArticle, unless the same URL was already sighted within the
// duplicate window.
func (p *Poller) storeItem(ctx context.Context, feed *entity.Feed, item FeedItem) error {
	canonicalURL, err := urlnorm.Normalize(item.URL)
	if err != nil {
		return fmt.Errorf("normalize url: %w", err)
	}
	urlHash := urlnorm.HashURL(canonicalURL)

	exists, err := p.RawArticles.ExistsByURLHashWithinWindow(ctx, urlHash, duplicateWindow)
	if err != nil {
		return fmt.Errorf("exists check: %w", err)
	}
	if exists {
		return entity.ErrDuplicate
	}

	publishedAt := item.PublishedAt
	raw := &entity.RawArticle{
		FeedID:       feed.ID,
		CanonicalURL: canonicalURL,
		URLHash:      urlHash,
		RSSTitle:     item.Title,
		RSSSummary:   item.Content,
		Language:     feed.Language,
		Status:       entity.RawArticleStatusPending,
		FetchDate:    time.Now().Truncate(24 * time.Hour),
	}
	if item.HasPubDate {
		raw.PublishedAt = &publishedAt
	} else {
		raw.PublishedAt = &publishedAt
		raw.IsEstimated = true
	}
	return p.RawArticles.Create(ctx, raw)
}

func timePtr(t time.Time) *time.Time { return &t }
