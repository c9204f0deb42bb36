package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"
	"rssnews/pkg/tokencount"
)

const (
	// MaxChunkTokens is the default per-chunk token ceiling.
	MaxChunkTokens = 6000

	// OverlapTokens is the default token window duplicated at the start of
	// each chunk after the first, so a retrieved chunk carries a little of
	// its predecessor's context.
	OverlapTokens = 50
)

// Chunker splits each Article that is ready for chunking into an ordered
// set of Chunks and commits them atomically via ChunkRepository.CreateBatch.
type Chunker struct {
	Articles  repository.ArticleRepository
	Chunks    repository.ChunkRepository
	BatchRuns repository.BatchRunRepository
	Splitter  Splitter // LLM-backed; falls back to Fallback on any error
	Fallback  Splitter // deterministic, never fails
	WorkerID  string

	MaxChunkTokens int
	OverlapTokens  int
}

// Result summarizes one ProcessBatch invocation.
type Result struct {
	ArticlesProcessed int
	ChunksWritten     int
	Errored           int
	UsedFallback      int
}

// ProcessBatch chunks up to batchSize articles that are ready_for_chunking
// and not yet chunking_completed.
func (c *Chunker) ProcessBatch(ctx context.Context, batchSize int) (*Result, error) {
	started := time.Now()
	result := &Result{}
	buckets := map[string]int{}

	articles, err := c.Articles.ReadyForChunking(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("ProcessBatch: ReadyForChunking: %w", err)
	}

	for _, article := range articles {
		usedFallback, err := c.chunkArticle(ctx, article)
		if err != nil {
			result.Errored++
			buckets[entity.ErrorKindParseExtraction]++
			slog.Warn("chunking failed", slog.Int64("article_id", article.ID), slog.Any("error", err))
			continue
		}
		result.ArticlesProcessed++
		if usedFallback {
			result.UsedFallback++
		}
	}

	if c.BatchRuns != nil {
		run := &entity.BatchRun{
			Stage: "chunking", WorkerID: c.WorkerID,
			InputCount: len(articles), OutputCount: result.ArticlesProcessed,
			ErrorCount: result.Errored, ErrorBuckets: buckets,
			StartedAt: started, FinishedAt: time.Now(),
		}
		if err := c.BatchRuns.Create(ctx, run); err != nil {
			slog.Warn("failed to record batch run", slog.Any("error", err))
		}
	}

	return result, nil
}

// chunkArticle is idempotent: re-running it for an article whose
// chunking_completed is already true at the current processing_version is
// skipped entirely by the ReadyForChunking query, so no extra guard is
// needed here.
func (c *Chunker) chunkArticle(ctx context.Context, article *entity.Article) (usedFallback bool, err error) {
	maxTokens := c.MaxChunkTokens
	if maxTokens == 0 {
		maxTokens = MaxChunkTokens
	}
	overlap := c.OverlapTokens
	if overlap == 0 {
		overlap = OverlapTokens
	}

	text := article.CleanText
	if strings.TrimSpace(text) == "" {
		return false, fmt.Errorf("article has no clean text")
	}

	proposed, splitErr := c.split(ctx, text, maxTokens)
	if splitErr != nil {
		usedFallback = true
		proposed, splitErr = c.Fallback.Split(ctx, text)
		if splitErr != nil {
			return true, fmt.Errorf("fallback split: %w", splitErr)
		}
	}
	if len(proposed) == 0 {
		return usedFallback, fmt.Errorf("splitter produced no chunks")
	}

	chunks := assemble(article, proposed, overlap)

	version := article.ProcessingVersion
	if version == 0 {
		version = 1
	}
	if err := c.Chunks.CreateBatch(ctx, article.ID, version, chunks); err != nil {
		return usedFallback, fmt.Errorf("create batch: %w", err)
	}

	article.ChunkingCompleted = true
	if err := c.Articles.Update(ctx, article); err != nil {
		return usedFallback, fmt.Errorf("mark chunking completed: %w", err)
	}

	return usedFallback, nil
}

// split tries the LLM splitter (if configured) and rejects its output
// wholesale if any proposed chunk is empty or exceeds the token budget,
// triggering the deterministic fallback rather than persisting a partial or
// oversized result.
func (c *Chunker) split(ctx context.Context, text string, maxTokens int) ([]ProposedChunk, error) {
	if c.Splitter == nil {
		return nil, fmt.Errorf("no llm splitter configured")
	}
	proposed, err := c.Splitter.Split(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, p := range proposed {
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("llm splitter returned an empty chunk")
		}
		if tokencount.Count(p.Text) > maxTokens {
			return nil, fmt.Errorf("llm splitter returned an oversized chunk")
		}
	}
	return proposed, nil
}

// assemble turns proposed chunk texts into persistable Chunks: it locates
// each chunk's byte span in the article text, prepends the trailing overlap
// window from the previous chunk, and assigns semantic type and
// denormalized article metadata.
func assemble(article *entity.Article, proposed []ProposedChunk, overlapTokens int) []*entity.Chunk {
	chunks := make([]*entity.Chunk, 0, len(proposed))
	searchFrom := 0

	for i, p := range proposed {
		core := strings.TrimSpace(p.Text)
		byteStart, byteEnd := locate(article.CleanText, core, searchFrom)
		if byteEnd > searchFrom {
			searchFrom = byteEnd
		}

		text := core
		if i > 0 {
			overlap := tokencount.Truncate(proposed[i-1].Text, overlapTokens)
			if overlap != "" && overlap != text {
				text = overlap + " " + text
			}
		}

		importance := p.ImportanceScore
		if importance == 0 {
			importance = entity.DefaultImportanceScore
		}

		chunks = append(chunks, &entity.Chunk{
			ArticleID:         article.ID,
			ChunkIndex:        i,
			ProcessingVersion: article.ProcessingVersion,
			Text:              text,
			ByteStart:         byteStart,
			ByteEnd:           byteEnd,
			SemanticType:      semanticType(i, len(proposed)),
			ImportanceScore:   importance,
			URL:               article.CanonicalURL,
			SourceDomain:      article.SourceDomain,
			PublishedAt:       article.PublishedAt,
			Language:          article.Language,
			Category:          article.Category,
			QualityScore:      article.QualityScore,
			Title:             article.Title,
		})
	}
	return chunks
}

// locate finds the core chunk text within the article body, starting the
// search no earlier than from so that out-of-order or repeated LLM output
// still yields monotonically increasing offsets. When the text can't be
// found verbatim (the LLM lightly rephrased it), it degrades to the search
// start so downstream offset consumers get a rough anchor rather than a
// hard error.
func locate(haystack, needle string, from int) (start, end int) {
	if from > len(haystack) {
		from = len(haystack)
	}
	if idx := strings.Index(haystack[from:], needle); idx >= 0 {
		start = from + idx
		return start, start + len(needle)
	}
	return from, from + len(needle)
}

func semanticType(index, total int) entity.SemanticType {
	if index == 0 {
		return entity.SemanticTypeIntro
	}
	if total > 2 && index == total-1 {
		return entity.SemanticTypeConclusion
	}
	return entity.SemanticTypeBody
}
