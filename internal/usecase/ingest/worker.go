package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/observability/metrics"
	"rssnews/internal/repository"
	"rssnews/pkg/minhash"
	"rssnews/pkg/urlnorm"
)

const (
	// lockTTL bounds how long a claimed RawArticle can stay in processing
	// before ReclaimExpiredLocks returns it to the pending queue.
	lockTTL = 10 * time.Minute

	// contentLengthThreshold is the RSS-content character count below
	// which the worker attempts a full-text fetch via Readability.
	contentLengthThreshold = 1500

	// softDuplicateJaccard is the MinHash similarity above which two
	// articles from the same domain on the same day are treated as
	// near-duplicates.
	softDuplicateJaccard = 0.85

	// dedupWindow bounds how far back the soft-dedup candidate scan looks.
	dedupWindow = 24 * time.Hour
)

// Worker claims pending RawArticles and promotes the ones that clear
// deduplication into canonical Articles.
type Worker struct {
	RawArticles repository.RawArticleRepository
	Articles    repository.ArticleRepository
	BatchRuns   repository.BatchRunRepository
	Fetcher     ContentFetcher
	WorkerID    string
}

// ProcessResult summarizes one ProcessBatch invocation.
type ProcessResult struct {
	Claimed        int
	Stored         int
	HardDuplicates int
	SoftDuplicates int
	Errored        int
	Skipped        int
}

// ProcessBatch claims up to batchSize pending RawArticles and processes
// each one: content extraction, dedup, and promotion to a canonical
// Article.
func (w *Worker) ProcessBatch(ctx context.Context, batchSize int) (*ProcessResult, error) {
	started := time.Now()
	result := &ProcessResult{}
	buckets := map[string]int{}

	claimed, err := w.RawArticles.ClaimBatch(ctx, batchSize, w.WorkerID, time.Now().Add(lockTTL))
	if err != nil {
		return nil, fmt.Errorf("ProcessBatch: ClaimBatch: %w", err)
	}
	result.Claimed = len(claimed)

	for _, raw := range claimed {
		outcome, err := w.processOne(ctx, raw)
		if err != nil {
			result.Errored++
			buckets[classifyError(err)]++
			raw.MarkError(err.Error())
			if updateErr := w.RawArticles.Update(ctx, raw); updateErr != nil {
				slog.Warn("failed to record raw article error",
					slog.Int64("raw_article_id", raw.ID), slog.Any("error", updateErr))
			}
			continue
		}
		switch outcome {
		case outcomeStored:
			result.Stored++
		case outcomeHardDuplicate:
			result.HardDuplicates++
		case outcomeSoftDuplicate:
			result.SoftDuplicates++
		case outcomeSkipped:
			result.Skipped++
		}
	}

	if w.BatchRuns != nil {
		run := &entity.BatchRun{
			Stage: "work", WorkerID: w.WorkerID,
			InputCount: result.Claimed, OutputCount: result.Stored,
			ErrorCount: result.Errored, ErrorBuckets: buckets,
			StartedAt: started, FinishedAt: time.Now(),
		}
		if err := w.BatchRuns.Create(ctx, run); err != nil {
			slog.Warn("failed to record batch run", slog.Any("error", err))
		}
	}

	metrics.RecordWorkBatch(result.Stored, result.HardDuplicates, result.SoftDuplicates, result.Skipped, result.Errored)

	return result, nil
}

type outcome int

const (
	outcomeStored outcome = iota
	outcomeHardDuplicate
	outcomeSoftDuplicate
	outcomeSkipped
)

func (w *Worker) processOne(ctx context.Context, raw *entity.RawArticle) (outcome, error) {
	cleanText := raw.RSSSummary
	if w.Fetcher != nil && len(cleanText) < contentLengthThreshold {
		if fetched, err := w.Fetcher.FetchContent(ctx, raw.CanonicalURL); err == nil && len(fetched) > len(cleanText) {
			cleanText = fetched
		}
		// any fetch failure falls back to the RSS-supplied content rather
		// than aborting the item.
	}
	if strings.TrimSpace(cleanText) == "" {
		raw.Status = entity.RawArticleStatusSkipped
		return outcomeSkipped, w.RawArticles.Update(ctx, raw)
	}

	normalizedText := strings.Join(strings.Fields(cleanText), " ")
	textHash := urlnorm.HashText(normalizedText)
	wordCount := len(strings.Fields(normalizedText))

	raw.CleanText = cleanText
	raw.TextHash = textHash
	raw.WordCount = wordCount

	if existing, err := w.RawArticles.FindByTextHash(ctx, textHash); err == nil && existing != nil && existing.ID != raw.ID {
		raw.Status = entity.RawArticleStatusDuplicate
		raw.DupOriginalID = &existing.ID
		return outcomeHardDuplicate, w.RawArticles.Update(ctx, raw)
	} else if err != nil && err != entity.ErrNotFound {
		return 0, fmt.Errorf("hard dedup lookup: %w", err)
	}

	domain, err := urlnorm.ETLD1(raw.CanonicalURL)
	if err != nil {
		return 0, fmt.Errorf("extract domain: %w", err)
	}

	if dup, err := w.findSoftDuplicate(ctx, domain, normalizedText); err != nil {
		return 0, fmt.Errorf("soft dedup: %w", err)
	} else if dup != nil {
		// the (has-date, word-count) tuple decides which side's content
		// becomes canonical; the losing side is always the one marked
		// duplicate, so a later, better-sourced sighting can still win
		// without a new Article row (and without migrating its chunks).
		if candidateWins(raw, wordCount, dup) {
			dup.Title = raw.RSSTitle
			dup.CleanText = cleanText
			dup.TextHash = textHash
			dup.PublishedAt = raw.PublishedAt
			dup.IsEstimated = raw.IsEstimated
			if err := w.Articles.Update(ctx, dup); err != nil {
				return 0, fmt.Errorf("update canonical on soft-dup win: %w", err)
			}
		}
		raw.Status = entity.RawArticleStatusDuplicate
		raw.DupOriginalID = &dup.ID
		return outcomeSoftDuplicate, w.RawArticles.Update(ctx, raw)
	}

	article := &entity.Article{
		CanonicalURL:     raw.CanonicalURL,
		SourceDomain:     domain,
		TextHash:         textHash,
		Title:            raw.RSSTitle,
		CleanText:        cleanText,
		Language:         raw.Language,
		PublishedAt:      raw.PublishedAt,
		IsEstimated:      raw.IsEstimated,
		ReadyForChunking: true,
	}
	if err := w.Articles.Create(ctx, article); err != nil {
		return 0, fmt.Errorf("create article: %w", err)
	}

	raw.Status = entity.RawArticleStatusStored
	return outcomeStored, w.RawArticles.Update(ctx, raw)
}

// findSoftDuplicate looks for a near-duplicate among articles from the same
// domain published within the dedup window, using MinHash/LSH over the
// candidate's normalized text.
func (w *Worker) findSoftDuplicate(ctx context.Context, domain, normalizedText string) (*entity.Article, error) {
	since := time.Now().Add(-dedupWindow)
	candidates, err := w.Articles.SearchWithFilters(ctx, nil, repository.ArticleSearchFilters{
		SourceDomain: &domain,
		From:         &since,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	lsh := minhash.NewLSH(16)
	sigs := make(map[string]minhash.Signature, len(candidates))
	byID := make(map[string]*entity.Article, len(candidates))
	for _, c := range candidates {
		key := fmt.Sprintf("%d", c.ID)
		sig := minhash.Sign(c.CleanText)
		sigs[key] = sig
		byID[key] = c
		lsh.Insert(key, sig)
	}

	target := minhash.Sign(normalizedText)
	best := 0.0
	var bestMatch *entity.Article
	for _, candidateID := range lsh.Candidates("__new__", target) {
		sim := minhash.EstimateJaccard(target, sigs[candidateID])
		if sim > best {
			best = sim
			bestMatch = byID[candidateID]
		}
	}
	if best >= softDuplicateJaccard {
		return bestMatch, nil
	}
	return nil, nil
}

// candidateWins compares the (has-date, word-count) tuple spec.md uses to
// break soft-duplicate ties. Source trust score is left out: Article
// carries no per-feed trust field to compare against.
func candidateWins(raw *entity.RawArticle, candidateWordCount int, existing *entity.Article) bool {
	rawHasDate := raw.PublishedAt != nil && !raw.IsEstimated
	existingHasDate := existing.PublishedAt != nil && !existing.IsEstimated
	if rawHasDate != existingHasDate {
		return rawHasDate
	}
	return candidateWordCount > len(strings.Fields(existing.CleanText))
}

// classifyError maps a processing failure onto the error-kind taxonomy used
// by BatchRun.ErrorBuckets.
func classifyError(err error) string {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrTooManyRedirects):
		return entity.ErrorKindTransientUpstream
	case errors.Is(err, ErrInvalidURL), errors.Is(err, ErrPrivateIP):
		return entity.ErrorKindPermanentUpstream
	case errors.Is(err, ErrReadabilityFailed), errors.Is(err, ErrBodyTooLarge):
		return entity.ErrorKindParseExtraction
	default:
		return entity.ErrorKindValidation
	}
}
