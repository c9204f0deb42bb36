package metrics

import (
	"fmt"
	"time"
)

// RecordArticlesFetched records the number of articles fetched from a source.
// This metric helps track feed crawling performance and source activity.
func RecordArticlesFetched(sourceName string, sourceID int64, count int) {
	ArticlesFetchedTotal.WithLabelValues(
		sourceName,
		fmt.Sprintf("%d", sourceID),
	).Add(float64(count))
}

// RecordArticleSummarized records the result of an article summarization operation.
// Status should be either "success" or "failure".
func RecordArticleSummarized(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	ArticlesSummarizedTotal.WithLabelValues(status).Inc()
}

// RecordSummarizationDuration records the time taken to summarize an article.
// This helps identify performance issues with the AI summarization service.
func RecordSummarizationDuration(duration time.Duration) {
	SummarizationDuration.Observe(duration.Seconds())
}

// RecordFeedCrawl records metrics for a feed crawl operation.
func RecordFeedCrawl(sourceID int64, duration time.Duration, itemsFound, itemsInserted, itemsDuplicated int64) {
	FeedCrawlDuration.WithLabelValues(
		fmt.Sprintf("%d", sourceID),
	).Observe(duration.Seconds())

	// Record the breakdown of items processed
	if itemsFound > 0 {
		RecordArticlesFetched("", sourceID, int(itemsFound))
	}
}

// RecordFeedCrawlError records an error during feed crawling.
func RecordFeedCrawlError(sourceID int64, errorType string) {
	FeedCrawlErrors.WithLabelValues(
		fmt.Sprintf("%d", sourceID),
		errorType,
	).Inc()
}

// UpdateArticlesTotal updates the total count of articles in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateArticlesTotal(count int) {
	ArticlesTotal.Set(float64(count))
}

// UpdateSourcesTotal updates the total count of sources in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateSourcesTotal(count int) {
	SourcesTotal.Set(float64(count))
}

// RecordContentFetchSuccess records a successful content fetch operation.
// This tracks both the duration and size of fetched content.
//
// Parameters:
//   - duration: Time taken to fetch the content
//   - size: Size of fetched content in characters
//
// Example:
//
//	start := time.Now()
//	content, err := fetcher.FetchContent(ctx, url)
//	if err == nil {
//	    RecordContentFetchSuccess(time.Since(start), len(content))
//	}
func RecordContentFetchSuccess(duration time.Duration, size int) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
	ContentFetchSize.Observe(float64(size))
}

// RecordContentFetchFailed records a failed content fetch operation.
//
// Parameters:
//   - duration: Time taken before the fetch failed
//
// Example:
//
//	start := time.Now()
//	_, err := fetcher.FetchContent(ctx, url)
//	if err != nil {
//	    RecordContentFetchFailed(time.Since(start))
//	}
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a skipped content fetch operation.
// This occurs when RSS content is sufficient (>= threshold) and fetching is unnecessary.
//
// Example:
//
//	if len(rssContent) >= threshold {
//	    RecordContentFetchSkipped()
//	    return rssContent
//	}
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordPoll records one PollOnce invocation's item-level counts.
func RecordPoll(itemsSeen, itemsStored, itemsSkipped, feedsNotModified, errs int) {
	IngestItemsSeenTotal.Add(float64(itemsSeen))
	IngestItemsStoredTotal.Add(float64(itemsStored))
	IngestItemsSkippedTotal.Add(float64(itemsSkipped))
	IngestFeedsNotModifiedTotal.Add(float64(feedsNotModified))
	IngestPollErrorsTotal.Add(float64(errs))
}

// RecordWorkBatch records one ProcessBatch invocation's outcome counts.
func RecordWorkBatch(stored, hardDuplicates, softDuplicates, skipped, errored int) {
	IngestWorkOutcomeTotal.WithLabelValues("stored").Add(float64(stored))
	IngestWorkOutcomeTotal.WithLabelValues("hard_duplicate").Add(float64(hardDuplicates))
	IngestWorkOutcomeTotal.WithLabelValues("soft_duplicate").Add(float64(softDuplicates))
	IngestWorkOutcomeTotal.WithLabelValues("skipped").Add(float64(skipped))
	IngestWorkOutcomeTotal.WithLabelValues("errored").Add(float64(errored))
}

// RecordRetrieval records one Retrieve call's diagnostic counters. Taking
// plain fields rather than retrieve.Diagnostics keeps this package free of a
// dependency on internal/usecase/retrieve.
func RecordRetrieval(candidatesConsidered, offTopicDropped, categoryPenalized, duplicatesRemoved, domainsCapped, windowExpansions int, ftsOnlyFallback bool) {
	RetrievalCandidatesConsidered.Observe(float64(candidatesConsidered))
	RetrievalOffTopicDroppedTotal.Add(float64(offTopicDropped))
	RetrievalCategoryPenalizedTotal.Add(float64(categoryPenalized))
	RetrievalDuplicatesRemovedTotal.Add(float64(duplicatesRemoved))
	RetrievalDomainsCappedTotal.Add(float64(domainsCapped))
	RetrievalWindowExpansionsTotal.Add(float64(windowExpansions))
	if ftsOnlyFallback {
		RetrievalFTSOnlyFallbackTotal.Inc()
	}
}

// RecordRetrievalCacheHit records a retrieval result cache hit.
func RecordRetrievalCacheHit() {
	RetrievalCacheTotal.WithLabelValues("hit").Inc()
}

// RecordRetrievalCacheMiss records a retrieval result cache miss.
func RecordRetrievalCacheMiss() {
	RetrievalCacheTotal.WithLabelValues("miss").Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_articles", "insert_article").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
