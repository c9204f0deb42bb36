package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rssnews/internal/observability/tracing"
	"rssnews/internal/usecase/governor"
	"rssnews/internal/usecase/intent"
	"rssnews/internal/usecase/retrieve"
)

// defaultWindow is iteration 1's retrieval window when the caller doesn't
// specify one.
const defaultWindow = 7 * 24 * time.Hour

// refineRetrieveCount is how many additional chunks iteration 2 retrieves
// on top of the working set.
const refineRetrieveCount = 3

// perIterationCost is the orchestrator's estimate of one analyze-and-answer
// LLM call's cost, used only to decide up-front whether the budget covers
// a given depth; it is not metered against actual provider billing, which
// the caller's Router/Completer layer already accounts for independently.
var perIterationCost = governor.CallEstimate{Tokens: 1500, Cents: 8}

// directQACost is the general-QA path's single-call estimate.
var directQACost = governor.CallEstimate{Tokens: 1200, Cents: 6}

const generalQASystemPrompt = `Answer the user's question directly and concisely from your own knowledge. Do not claim to have searched anything.`

// Orchestrator implements the agentic RAG loop (§4.8).
type Orchestrator struct {
	Retriever *retrieve.Retriever
	Router    *Router

	// Config holds the ASK_*-tunable depth/window/budget defaults. A
	// zero-value Config (the default for a bare struct literal) behaves
	// identically to the spec.md defaults; see effectiveConfig.
	Config AskConfig
}

// Ask runs the full orchestrator contract: intent classification routes
// between the retrieval-backed news loop and the direct general-QA call.
func (o *Orchestrator) Ask(ctx context.Context, req Request) (*Response, error) {
	classification := intent.Classify(req.Query)

	if classification.Intent == intent.IntentGeneralQA {
		return o.answerGeneralQA(ctx, req)
	}
	return o.answerNews(ctx, req)
}

func (o *Orchestrator) answerGeneralQA(ctx context.Context, req Request) (*Response, error) {
	gov := governor.New(governor.GeneralQAFloor, time.Now())
	if err := gov.Spend(directQACost); err != nil {
		return nil, fmt.Errorf("Ask: general_qa: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(governor.GeneralQAFloor.TimeoutS)*time.Second)
	defer cancel()

	answer, modelUsed, err := o.Router.Call(callCtx, generalQASystemPrompt, req.Query)
	if err != nil {
		return nil, fmt.Errorf("Ask: general_qa: %w", err)
	}

	return &Response{
		Answer:     answer,
		Confidence: 0.85,
		ModelUsed:  modelUsed,
		Source:     "LLM/KB",
		Evidence:   []Evidence{},
	}, nil
}

func (o *Orchestrator) answerNews(ctx context.Context, req Request) (*Response, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "rag.answer_news")
	defer span.End()

	cfg := o.effectiveConfig()

	depth := req.Depth
	if depth <= 0 || depth > 3 {
		depth = cfg.DefaultDepth
	}

	budget := req.Budget
	if budget == (governor.Budget{}) {
		budget = cfg.DefaultBudget
	}
	gov := governor.New(budget, time.Now())

	degraded := false
	if !gov.CanAffordDepth(depth, perIterationCost) {
		for depth > 1 && !gov.CanAffordDepth(depth, perIterationCost) {
			depth--
			degraded = true
		}
	}

	window := retrieve.Window{After: req.Window.After, Before: req.Window.Before}
	if window.After == nil && window.Before == nil {
		after := time.Now().Add(-cfg.DefaultWindow)
		window.After = &after
	}
	kFinal := req.KFinal
	if kFinal <= 0 {
		kFinal = cfg.DefaultKFinal
	}
	filters := retrieve.Filters{Language: req.Language, Sources: req.Sources, Intent: string(intent.IntentNewsCurrentEvents)}

	result, err := o.Retriever.Retrieve(ctx, req.Query, window, kFinal, filters, retrieve.Flags{DisableCache: true})
	if err != nil {
		return nil, fmt.Errorf("Ask: retrieve: %w", err)
	}

	response := &Response{Source: "retrieval", Degraded: degraded}
	workingSet := result.Chunks

	if err := gov.Spend(perIterationCost); err != nil {
		return o.budgetExhaustedResponse(response, workingSet)
	}
	iter1Ctx, iter1Span := tracing.GetTracer().Start(ctx, "rag.iteration.analyze")
	analysis1, modelUsed, err := analyzeAndAnswer(o.Router, iter1Ctx, req.Query, evidenceText(workingSet))
	iter1Span.End()
	if err != nil {
		return nil, fmt.Errorf("Ask: iteration 1: %w", err)
	}
	response.ModelUsed = modelUsed
	response.Iterations = append(response.Iterations, Iteration{
		Step: "analyze", Answer: analysis1.Answer, Reasoning: analysis1.Reasoning, NeedsMoreInfo: analysis1.NeedsMoreInfo,
	})
	response.Answer = analysis1.Answer
	response.Reasoning = analysis1.Reasoning
	response.Confidence = 0.6

	if depth == 1 || !analysis1.NeedsMoreInfo {
		response.Evidence = toEvidence(workingSet)
		if depth == 1 {
			return response, nil
		}
	}

	if depth >= 2 && analysis1.NeedsMoreInfo {
		refined, refineErr := refineQuery(o.Router, ctx, req.Query, analysis1.Answer)
		if refineErr != nil {
			refined = req.Query
		}

		if err := gov.Spend(perIterationCost); err == nil {
			more, retrErr := o.Retriever.Retrieve(ctx, refined, window, cfg.RefineRetrieveCount, filters, retrieve.Flags{DisableCache: true})
			if retrErr == nil {
				workingSet = mergeByChunkID(workingSet, more.Chunks)
			}
		}

		iter2Ctx, iter2Span := tracing.GetTracer().Start(ctx, "rag.iteration.refine")
		analysis2, modelUsed2, err := analyzeAndAnswer(o.Router, iter2Ctx, req.Query, evidenceText(workingSet))
		iter2Span.End()
		if err != nil {
			return nil, fmt.Errorf("Ask: iteration 2: %w", err)
		}
		response.ModelUsed = modelUsed2
		response.Iterations = append(response.Iterations, Iteration{
			Step: "refine", Answer: analysis2.Answer, Reasoning: analysis2.Reasoning, NeedsMoreInfo: analysis2.NeedsMoreInfo,
		})
		response.Answer = analysis2.Answer
		response.Reasoning = analysis2.Reasoning
		response.Confidence = 0.75
		response.Evidence = toEvidence(workingSet)

		if depth == 2 {
			return response, nil
		}

		if err := gov.Spend(perIterationCost); err != nil {
			return response, nil
		}
		selfCheckCtx, selfCheckSpan := tracing.GetTracer().Start(ctx, "rag.iteration.self_check")
		consistency, ccErr := checkConsistency(o.Router, selfCheckCtx, analysis1.Answer, analysis2.Answer)
		selfCheckSpan.End()
		if ccErr != nil {
			return response, nil
		}

		if consistency.Consistent {
			response.Iterations = append(response.Iterations, Iteration{
				Step: "self_check", Answer: analysis2.Answer, ConsistencyCheck: "consistent with previous iteration",
			})
			response.Confidence = 0.9
			return response, nil
		}

		reconcileCtx, reconcileSpan := tracing.GetTracer().Start(ctx, "rag.iteration.reconcile")
		final, modelUsed3, err := analyzeAndAnswer(o.Router, reconcileCtx, req.Query,
			evidenceText(workingSet)+fmt.Sprintf("\n\nNote: the previous two passes were inconsistent (%s). Reconcile using all evidence above.", consistency.Explanation))
		reconcileSpan.End()
		if err != nil {
			response.Iterations = append(response.Iterations, Iteration{
				Step: "self_check", ConsistencyCheck: consistency.Explanation,
			})
			return response, nil
		}
		response.ModelUsed = modelUsed3
		response.Answer = final.Answer
		response.Reasoning = final.Reasoning
		response.Confidence = 0.65
		response.Iterations = append(response.Iterations, Iteration{
			Step: "self_check", Answer: final.Answer, Reasoning: final.Reasoning, ConsistencyCheck: consistency.Explanation,
		})
	}

	return response, nil
}

// budgetExhaustedResponse returns the best answer obtainable with zero
// further LLM calls: the plain retrieval evidence, no generated answer.
func (o *Orchestrator) budgetExhaustedResponse(response *Response, workingSet []retrieve.RankedChunk) (*Response, error) {
	response.Evidence = toEvidence(workingSet)
	response.Degraded = true
	response.Answer = "budget exhausted before an answer could be generated"
	return response, nil
}

func evidenceText(chunks []retrieve.RankedChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&b, "[%s] %s\n%s\n\n", c.Chunk.ChunkID(), c.Chunk.Title, c.Chunk.Text)
	}
	return b.String()
}

func toEvidence(chunks []retrieve.RankedChunk) []Evidence {
	out := make([]Evidence, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, Evidence{
			ChunkID:     c.Chunk.ChunkID(),
			Title:       c.Chunk.Title,
			URL:         c.Chunk.URL,
			Domain:      c.Chunk.SourceDomain,
			PublishedAt: c.Chunk.PublishedAt,
			Snippet:     truncateSnippet(c.Chunk.Text),
		})
	}
	return out
}

// mergeByChunkID unions two working sets, keeping the first occurrence of
// any chunk id present in both (iteration 1's scoring already ran on it).
func mergeByChunkID(base, additional []retrieve.RankedChunk) []retrieve.RankedChunk {
	seen := make(map[string]bool, len(base))
	for _, c := range base {
		seen[c.Chunk.ChunkID()] = true
	}
	merged := append([]retrieve.RankedChunk{}, base...)
	for _, c := range additional {
		if seen[c.Chunk.ChunkID()] {
			continue
		}
		seen[c.Chunk.ChunkID()] = true
		merged = append(merged, c)
	}
	return merged
}
