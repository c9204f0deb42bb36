package command

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rssnews/internal/repository"
	"rssnews/internal/usecase/intent"
	"rssnews/internal/usecase/rag"
	"rssnews/internal/usecase/retrieve"
)

// defaultTrendsWindow is how far back trends looks when the caller doesn't
// specify a window.
const defaultTrendsWindow = 24 * time.Hour

// defaultTrendsLimit bounds how many chunks trends clusters over, so a
// quiet feed set never turns this into a full table scan.
const defaultTrendsLimit = 2000

const analyzeSystemPromptTemplate = `Analyze the evidence below for %s. Respond with a concise, well-structured summary; do not claim to have searched anything beyond what's given.`

// Dispatcher routes a CommandRequest to the retrieval/orchestrator usecases
// and shapes their output into a CommandResponse.
type Dispatcher struct {
	Retriever *retrieve.Retriever
	Orch      *rag.Orchestrator
	Router    *rag.Router
	Chunks    repository.ChunkRepository
	Parser    *intent.Parser
}

// Dispatch runs req.Command against the wired usecases.
func (d *Dispatcher) Dispatch(ctx context.Context, req CommandRequest) (*CommandResponse, error) {
	switch req.Command {
	case Search:
		return d.search(ctx, req)
	case Ask:
		return d.ask(ctx, req)
	case Trends:
		return d.trends(ctx, req)
	case Analyze:
		return d.analyze(ctx, req)
	default:
		return nil, fmt.Errorf("command: unknown command %q", req.Command)
	}
}

func (d *Dispatcher) search(ctx context.Context, req CommandRequest) (*CommandResponse, error) {
	parsed := d.Parser.Parse(req.Query, time.Now())

	hours := req.Hours
	if hours <= 0 {
		hours = 24 * 7
	}
	after := time.Now().Add(-time.Duration(hours) * time.Hour)
	window := retrieve.Window{After: &after}
	if parsed.TimeWindow > 0 {
		w := time.Now().Add(-parsed.TimeWindow)
		window.After = &w
	}

	k := req.K
	if k <= 0 {
		k = 10
	}
	sources := req.Sources
	if len(parsed.Domains) > 0 {
		sources = parsed.Domains
	}
	lang := req.Lang
	filters := retrieve.Filters{Language: lang, Sources: sources}

	result, err := d.Retriever.Retrieve(ctx, parsed.CleanQuery, window, k, filters, retrieve.Flags{})
	if err != nil {
		return nil, fmt.Errorf("command: search: %w", err)
	}

	results := make([]SearchResult, 0, len(result.Chunks))
	for _, c := range result.Chunks {
		results = append(results, SearchResult{
			ChunkID:     c.Chunk.ChunkID(),
			Title:       c.Chunk.Title,
			URL:         c.Chunk.URL,
			Domain:      c.Chunk.SourceDomain,
			Score:       c.Score,
			PublishedAt: c.Chunk.PublishedAt,
			Snippet:     c.Chunk.Text,
		})
	}

	return &CommandResponse{
		Command: Search,
		Text:    fmt.Sprintf("%d results", len(results)),
		Results: results,
	}, nil
}

func (d *Dispatcher) ask(ctx context.Context, req CommandRequest) (*CommandResponse, error) {
	parsed := d.Parser.Parse(req.Query, time.Now())
	classification := intent.Classify(parsed.CleanQuery)

	var window rag.WindowInput
	if parsed.TimeWindow > 0 {
		after := time.Now().Add(-parsed.TimeWindow)
		window.After = &after
	}
	if parsed.AfterDate != nil {
		window.After = parsed.AfterDate
	}
	if parsed.BeforeDate != nil {
		window.Before = parsed.BeforeDate
	}

	resp, err := d.Orch.Ask(ctx, rag.Request{
		Query:   parsed.CleanQuery,
		Depth:   req.Depth,
		Window:  window,
		Sources: parsed.Domains,
	})
	if err != nil {
		return nil, fmt.Errorf("command: ask (%s): %w", classification.Intent, err)
	}

	return &CommandResponse{Command: Ask, Text: resp.Answer, Ask: resp}, nil
}

func (d *Dispatcher) trends(ctx context.Context, req CommandRequest) (*CommandResponse, error) {
	window := req.Window
	if window <= 0 {
		window = defaultTrendsWindow
	}
	since := time.Now().Add(-window)

	chunks, err := d.Chunks.RecentSince(ctx, since, defaultTrendsLimit)
	if err != nil {
		return nil, fmt.Errorf("command: trends: %w", err)
	}

	type key struct{ domain, category string }
	counts := map[key]int{}
	for _, c := range chunks {
		counts[key{c.SourceDomain, c.Category}]++
	}

	clusters := make([]TrendCluster, 0, len(counts))
	for k, n := range counts {
		clusters = append(clusters, TrendCluster{Domain: k.domain, Category: k.category, Count: n})
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].Domain < clusters[j].Domain
	})

	return &CommandResponse{
		Command: Trends,
		Text:    fmt.Sprintf("%d clusters over %d chunks", len(clusters), len(chunks)),
		Trends:  clusters,
	}, nil
}

func (d *Dispatcher) analyze(ctx context.Context, req CommandRequest) (*CommandResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeTopics
	}
	window := req.Window
	if window <= 0 {
		window = defaultTrendsWindow
	}
	after := time.Now().Add(-window)

	result, err := d.Retriever.Retrieve(ctx, req.Query, retrieve.Window{After: &after}, 20,
		retrieve.Filters{}, retrieve.Flags{})
	if err != nil {
		return nil, fmt.Errorf("command: analyze: %w", err)
	}

	var evidence string
	for _, c := range result.Chunks {
		evidence += fmt.Sprintf("[%s] %s\n%s\n\n", c.Chunk.ChunkID(), c.Chunk.Title, c.Chunk.Text)
	}

	systemPrompt := fmt.Sprintf(analyzeSystemPromptTemplate, mode)
	text, _, err := d.Router.Call(ctx, systemPrompt, fmt.Sprintf("Query: %s\n\nEvidence:\n%s", req.Query, evidence))
	if err != nil {
		return nil, fmt.Errorf("command: analyze: %w", err)
	}

	return &CommandResponse{Command: Analyze, Text: text, Analysis: text}, nil
}
