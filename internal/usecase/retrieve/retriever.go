package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"rssnews/internal/observability/metrics"
	"rssnews/internal/observability/tracing"
	"rssnews/internal/repository"
	"rssnews/pkg/urlnorm"
)

// Retriever implements the hybrid retrieval pipeline (§4.6).
type Retriever struct {
	Chunks     repository.ChunkRepository
	Embeddings repository.EmbeddingRepository
	FTS        repository.FTSRepository
	Feeds      repository.FeedRepository
	Embedder   Embedder
	Cache      *Cache

	// Config holds the RANK_*-tunable scoring weights and thresholds. A
	// zero-value Config (the default for a bare struct literal) behaves
	// identically to the spec.md defaults; see effectiveConfig.
	Config RankConfig

	trustByDomain map[string]int
	trustLoadedAt time.Time
}

const trustTTL = 5 * time.Minute

// Retrieve runs the full 9-step hybrid pipeline plus auto-recovery.
func (r *Retriever) Retrieve(ctx context.Context, query string, window Window, kFinal int, filters Filters, flags Flags) (*Result, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "retrieve.pipeline")
	defer span.End()

	now := time.Now()

	if window.After != nil && window.Before != nil && window.After.After(*window.Before) {
		slog.Warn("retrieval filter conflict: after-date later than before-date",
			slog.Time("after", *window.After), slog.Time("before", *window.Before))
		return &Result{Diagnostics: Diagnostics{Warnings: []string{"filter_conflict"}}}, nil
	}

	if !flags.DisableCache && r.Cache != nil {
		key := cacheKey(query, window, filters, kFinal, flags)
		if cached, ok := r.Cache.get(key, now); ok {
			cached.Diagnostics.CacheHit = true
			metrics.RecordRetrievalCacheHit()
			return cached, nil
		}
		metrics.RecordRetrievalCacheMiss()
	}

	var result *Result
	var err error
	if strings.TrimSpace(query) == "" {
		result, err = r.retrieveEmptyQuery(ctx, window, kFinal, filters, now)
	} else {
		result, err = r.retrieveWithRecovery(ctx, query, window, kFinal, filters, flags, now)
	}
	if err != nil {
		return nil, err
	}

	d := result.Diagnostics
	metrics.RecordRetrieval(d.CandidatesConsidered, d.OffTopicDropped, d.CategoryPenalized, d.DuplicatesRemoved, d.DomainsCapped, d.WindowExpansions, d.FTSOnlyFallback)

	if !flags.DisableCache && r.Cache != nil {
		key := cacheKey(query, window, filters, kFinal, flags)
		r.Cache.set(key, result, now)
	}
	return result, nil
}

// retrieveWithRecovery tries successively wider windows (and, past the
// expansion chain, relaxed filters and a disabled off-topic guard) until
// it reaches at least minResultFloor results or exhausts every fallback.
func (r *Retriever) retrieveWithRecovery(ctx context.Context, query string, window Window, kFinal int, filters Filters, flags Flags, now time.Time) (*Result, error) {
	cfg := r.effectiveConfig()

	result, err := r.retrieveOnce(ctx, query, window, kFinal, filters, flags, now)
	if err != nil {
		return nil, err
	}
	if len(result.Chunks) >= cfg.MinResultFloor {
		return result, nil
	}

	var warnings []string

	expanded := window
	for _, widen := range windowExpansionChain {
		after := now.Add(-widen)
		expanded.After = &after
		result.Diagnostics.WindowExpansions++

		warning := fmt.Sprintf("expanded_window_to_%dd", int(widen/(24*time.Hour)))
		warnings = append(warnings, warning)
		slog.Warn("retrieval auto-recovery expanded window",
			slog.String("query", query),
			slog.String("warning", warning))

		next, err := r.retrieveOnce(ctx, query, expanded, kFinal, filters, flags, now)
		if err != nil {
			return nil, err
		}
		next.Diagnostics.WindowExpansions = result.Diagnostics.WindowExpansions
		next.Diagnostics.Warnings = warnings
		result = next
		if len(result.Chunks) >= cfg.MinResultFloor {
			return result, nil
		}
	}

	relaxedFilters := filters
	relaxedFilters.Language = ""
	relaxedFilters.Sources = nil
	result.Diagnostics.LanguageRelaxed = true
	result.Diagnostics.SourcesRelaxed = true
	next, err := r.retrieveOnce(ctx, query, expanded, kFinal, relaxedFilters, flags, now)
	if err != nil {
		return nil, err
	}
	next.Diagnostics.WindowExpansions = result.Diagnostics.WindowExpansions
	next.Diagnostics.LanguageRelaxed = true
	next.Diagnostics.SourcesRelaxed = true
	next.Diagnostics.Warnings = warnings
	result = next
	if len(result.Chunks) >= cfg.MinResultFloor {
		return result, nil
	}

	noGuardFlags := flags
	noGuardFlags.disableOffTopicGuard = true
	noGuardFlags.scoreFloor = 0.0
	raisedK := kFinal * 2
	final, err := r.retrieveOnce(ctx, query, expanded, raisedK, relaxedFilters, noGuardFlags, now)
	if err != nil {
		return nil, err
	}
	final.Diagnostics.WindowExpansions = result.Diagnostics.WindowExpansions
	final.Diagnostics.LanguageRelaxed = true
	final.Diagnostics.SourcesRelaxed = true
	final.Diagnostics.OffTopicGuardDisabled = true
	final.Diagnostics.Warnings = warnings
	if len(final.Chunks) > kFinal {
		final.Chunks = final.Chunks[:kFinal]
	}
	return final, nil
}

// retrieveOnce is the 9-step pipeline for a single window/filter
// combination, with no auto-recovery.
func (r *Retriever) retrieveOnce(ctx context.Context, query string, window Window, kFinal int, filters Filters, flags Flags, now time.Time) (*Result, error) {
	cfg := r.effectiveConfig()
	diag := Diagnostics{}

	// Step 1: query embedding, falling back to FTS-only if embedding fails.
	queryVector, ftsOnly := r.embedQuery(ctx, query)
	diag.FTSOnlyFallback = ftsOnly

	// Step 2: candidate fetch, 2*k_final from each side.
	candidateLimit := kFinal * 2
	if candidateLimit <= 0 {
		candidateLimit = 20
	}
	candFilters := repository.CandidateFilters{
		PublishedAfter: window.After,
		Language:       filters.Language,
		SourceDomains:  filters.Sources,
	}

	candidates, err := r.fetchCandidates(ctx, query, queryVector, ftsOnly, candFilters, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("Retrieve: fetchCandidates: %w", err)
	}
	diag.CandidatesConsidered = len(candidates)

	trustByDomain := r.loadTrust(ctx, now)

	// Steps 3-5: off-topic guard, base score, category penalty.
	ranked := make([]RankedChunk, 0, len(candidates))
	for _, c := range candidates {
		if window.Before != nil && c.Chunk.PublishedAt != nil && c.Chunk.PublishedAt.After(*window.Before) {
			continue
		}
		if !flags.disableOffTopicGuard && c.Similarity < cfg.MinCosine && !ftsOnly {
			diag.OffTopicDropped++
			continue
		}

		score, fr, trust, penalizedCategory := baseScore(c.Chunk, c.Similarity, c.LexicalRank, trustByDomain, filters.Intent, now, cfg)
		if penalizedCategory != "" {
			diag.CategoryPenalized++
		}
		if score < flags.scoreFloor {
			continue
		}

		c.Score = score
		c.Freshness = fr
		c.SourceTrust = trust
		ranked = append(ranked, c)
	}

	// Step 6/7: dedup + MinHash-LSH merge.
	deduped, duplicatesRemoved := dedupe(ranked, cfg.DuplicateThreshold)
	diag.DuplicatesRemoved = duplicatesRemoved

	// Step 8: domain diversification.
	sort.Slice(deduped, func(i, j int) bool { return rankLess(deduped[i], deduped[j]) })
	diversified, domainsCapped := diversify(deduped, cfg.MaxPerDomain)
	diag.DomainsCapped = domainsCapped

	// Step 9: final sort/truncate.
	sort.Slice(diversified, func(i, j int) bool { return rankLess(diversified[i], diversified[j]) })
	if len(diversified) > kFinal {
		diversified = diversified[:kFinal]
	}

	return &Result{Chunks: diversified, Diagnostics: diag}, nil
}

// emptyQueryFetchMultiplier over-fetches RecentSince so the window.Before
// and Language/Sources post-filter still leaves close to kFinal results.
const emptyQueryFetchMultiplier = 4

// retrieveEmptyQuery handles the §8 boundary case: an empty query carries no
// text to embed or lexically match (candidate fetch would find nothing on
// either side, and auto-recovery's widen-then-relax chain can't fix that),
// so retrieval falls back to pure freshness sort over the window instead.
func (r *Retriever) retrieveEmptyQuery(ctx context.Context, window Window, kFinal int, filters Filters, now time.Time) (*Result, error) {
	if r.Chunks == nil {
		return &Result{}, nil
	}

	since := now.Add(-windowExpansionChain[len(windowExpansionChain)-1])
	if window.After != nil {
		since = *window.After
	}

	limit := kFinal * emptyQueryFetchMultiplier
	if limit <= 0 {
		limit = 20
	}
	chunks, err := r.Chunks.RecentSince(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("Retrieve: RecentSince: %w", err)
	}

	ranked := make([]RankedChunk, 0, len(chunks))
	for _, c := range chunks {
		if window.Before != nil && c.PublishedAt != nil && c.PublishedAt.After(*window.Before) {
			continue
		}
		if filters.Language != "" && c.Language != filters.Language {
			continue
		}
		if len(filters.Sources) > 0 {
			matched := false
			for _, domain := range filters.Sources {
				if c.SourceDomain == domain {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		ranked = append(ranked, RankedChunk{Chunk: c})
	}
	if len(ranked) > kFinal {
		ranked = ranked[:kFinal]
	}

	return &Result{Chunks: ranked, Diagnostics: Diagnostics{CandidatesConsidered: len(chunks)}}, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) (vector []float32, ftsOnly bool) {
	if r.Embedder == nil {
		return nil, true
	}
	vectors, err := r.Embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		slog.Warn("query embedding failed, falling back to fts-only retrieval", slog.Any("error", err))
		return nil, true
	}
	return vectors[0], false
}

// fetchCandidates merges the semantic and lexical candidate pools into one
// RankedChunk slice keyed by chunk id, carrying whichever scores each pool
// contributed (a chunk found by only one side gets a zero for the other).
func (r *Retriever) fetchCandidates(ctx context.Context, query string, queryVector []float32, ftsOnly bool, filters repository.CandidateFilters, limit int) ([]RankedChunk, error) {
	byID := map[int64]*RankedChunk{}

	if !ftsOnly && r.Embeddings != nil {
		scored, err := r.Embeddings.SearchSimilar(ctx, queryVector, filters, limit)
		if err != nil {
			return nil, fmt.Errorf("SearchSimilar: %w", err)
		}
		for _, s := range scored {
			byID[s.Chunk.ID] = &RankedChunk{Chunk: s.Chunk, Similarity: s.Similarity}
		}
	}

	if r.FTS != nil {
		lexical, err := r.FTS.SearchLexical(ctx, query, filters, limit)
		if err != nil {
			return nil, fmt.Errorf("SearchLexical: %w", err)
		}
		for _, l := range lexical {
			if existing, ok := byID[l.ChunkID]; ok {
				existing.LexicalRank = l.Rank
				continue
			}
			// a chunk found only lexically still needs its entity.Chunk;
			// SearchLexical intentionally returns ids only (it shares the
			// candidate pool with SearchSimilar, which always runs first
			// against the same filters in normal operation) so a
			// lexical-only hit is looked up on demand.
			if r.Chunks == nil {
				continue
			}
			c, err := r.Chunks.Get(ctx, l.ChunkID)
			if err != nil || c == nil {
				continue
			}
			byID[l.ChunkID] = &RankedChunk{Chunk: c, LexicalRank: l.Rank}
		}
	}

	out := make([]RankedChunk, 0, len(byID))
	for _, rc := range byID {
		out = append(out, *rc)
	}
	return out, nil
}

// loadTrust refreshes the eTLD+1 -> trust-score map from FeedRepository.List
// on a short TTL, since there's no direct chunk-to-feed join on the hot
// path.
func (r *Retriever) loadTrust(ctx context.Context, now time.Time) map[string]int {
	if r.Feeds == nil {
		return nil
	}
	if r.trustByDomain != nil && now.Sub(r.trustLoadedAt) < trustTTL {
		return r.trustByDomain
	}

	feeds, err := r.Feeds.List(ctx)
	if err != nil {
		slog.Warn("failed to refresh source trust map", slog.Any("error", err))
		return r.trustByDomain
	}

	trust := make(map[string]int, len(feeds))
	for _, f := range feeds {
		domain, err := urlnorm.ETLD1(f.URL)
		if err != nil || domain == "" {
			continue
		}
		if existing, ok := trust[domain]; !ok || f.TrustScore > existing {
			trust[domain] = f.TrustScore
		}
	}
	r.trustByDomain = trust
	r.trustLoadedAt = now
	return trust
}
