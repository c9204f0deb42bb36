// Package retrieve implements the hybrid retriever: it turns a query plus a
// time window and a set of filters into a ranked, deduplicated, domain
// diversified list of Chunks, blending dense (pgvector cosine) and lexical
// (Postgres FTS) candidate pools.
package retrieve

import (
	"context"
	"time"

	"rssnews/internal/domain/entity"
)

// Window bounds the candidate fetch by publish date. Either bound may be
// nil.
type Window struct {
	After  *time.Time
	Before *time.Time
}

// Filters narrows and shapes a single retrieval call.
type Filters struct {
	Language string
	Sources  []string // eTLD+1 allow-list; empty means any

	// Intent drives the category penalty (§4.6 step 5): only
	// "news_current_events" triggers it.
	Intent string
}

// Flags toggle retrieval behavior that auto-recovery and the caller both
// need to control.
type Flags struct {
	// DisableCache forces a live retrieval, bypassing the cache entirely.
	// The conversational QA path must always set this.
	DisableCache bool

	// disableOffTopicGuard and scoreFloor are set internally by the
	// auto-recovery chain, never by callers.
	disableOffTopicGuard bool
	scoreFloor           float64
}

// RankedChunk is one result: the chunk plus the score breakdown that
// produced its rank.
type RankedChunk struct {
	Chunk *entity.Chunk

	Similarity  float64
	LexicalRank float64
	Freshness   float64
	SourceTrust float64

	Score float64
}

// Diagnostics reports the retriever's internal side effects for
// observability (§4.6's "observable side effects" list).
type Diagnostics struct {
	CandidatesConsidered int
	OffTopicDropped      int
	CategoryPenalized    int
	DuplicatesRemoved    int
	DomainsCapped        int
	WindowExpansions     int
	LanguageRelaxed      bool
	SourcesRelaxed       bool
	OffTopicGuardDisabled bool
	CacheHit             bool
	FTSOnlyFallback      bool

	// Warnings records every auto-recovery relaxation and edge-case
	// fallback this call took, in the order they happened (e.g.
	// "expanded_window_to_14d", "filter_conflict"). Each entry is also
	// logged as a slog.Warn when it occurs.
	Warnings []string
}

// Embedder is the subset of embed.Provider the retriever needs to embed a
// query string. Satisfied by *embed.OpenAIProvider.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Result is the complete output of one Retrieve call.
type Result struct {
	Chunks      []RankedChunk
	Diagnostics Diagnostics
}

const (
	// MinCosine is the off-topic guard: a candidate whose query-similarity
	// falls below this is dropped entirely unless the guard has been
	// disabled by auto-recovery.
	MinCosine = 0.28

	// Base score weights; must sum to 1.0.
	WeightSemantic   = 0.45
	WeightLexical    = 0.30
	WeightFreshness  = 0.20
	WeightSourceTrust = 0.05

	// FreshnessTau is the exponential decay half-life-ish constant for the
	// freshness term, in hours.
	FreshnessTau = 72 * time.Hour

	// MissingDateMultiplier penalizes chunks whose article has no
	// published_at, since their freshness is unknowable.
	MissingDateMultiplier = 0.3

	// MaxPerDomain caps how many chunks from the same eTLD+1 survive
	// diversification.
	MaxPerDomain = 2

	// DuplicateThreshold is the MinHash Jaccard estimate above which two
	// candidates are merged as near-duplicates.
	DuplicateThreshold = 0.85

	// DefaultCacheTTL is how long a cached result set is reused.
	DefaultCacheTTL = 300 * time.Second

	// minResultFloor is the minimum result count auto-recovery tries to
	// reach before expanding further.
	minResultFloor = 3
)

// windowExpansionChain is the sequence of progressively wider windows
// auto-recovery walks through when a retrieval comes up short, in order.
var windowExpansionChain = []time.Duration{
	7 * 24 * time.Hour,
	14 * 24 * time.Hour,
	30 * 24 * time.Hour,
	90 * 24 * time.Hour,
	180 * 24 * time.Hour,
	365 * 24 * time.Hour,
}
