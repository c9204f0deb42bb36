package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const analyzeSystemPrompt = `You answer a user's question using only the provided evidence chunks. Respond with JSON only, no prose: {"answer": "...", "reasoning": "...", "needs_more_info": true|false}. Set needs_more_info to true only if the evidence is insufficient to answer confidently.`

const refineSystemPrompt = `Given a question and a first-pass answer that was flagged as needing more information, produce a single refined search query that would surface the missing evidence. Respond with JSON only: {"query": "..."}`

const consistencySystemPrompt = `Compare two answers to the same question for semantic consistency. Respond with JSON only: {"consistent": true|false, "explanation": "..."}`

type analyzeResult struct {
	Answer        string `json:"answer"`
	Reasoning     string `json:"reasoning"`
	NeedsMoreInfo bool   `json:"needs_more_info"`
}

type refineResult struct {
	Query string `json:"query"`
}

type consistencyResult struct {
	Consistent  bool   `json:"consistent"`
	Explanation string `json:"explanation"`
}

// parseJSON unmarshals raw into v, stripping a markdown code fence first
// since models sometimes wrap JSON responses in ```json ... ``` blocks
// despite being told not to.
func parseJSON(raw string, v interface{}) error {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	if err := json.Unmarshal([]byte(trimmed), v); err != nil {
		return fmt.Errorf("parseJSON: %w", err)
	}
	return nil
}

// analyzeAndAnswer builds an evidence-grounded prompt and asks the model
// router to answer it. If the model's response doesn't parse as the
// expected JSON shape, the raw text is used as the answer verbatim rather
// than failing the whole iteration.
func analyzeAndAnswer(router *Router, ctx context.Context, query string, evidenceText string) (analyzeResult, string, error) {
	prompt := fmt.Sprintf("Question: %s\n\nEvidence:\n%s", query, evidenceText)
	raw, modelUsed, err := router.Call(ctx, analyzeSystemPrompt, prompt)
	if err != nil {
		return analyzeResult{}, "", err
	}

	var parsed analyzeResult
	if parseErr := parseJSON(raw, &parsed); parseErr != nil {
		return analyzeResult{Answer: raw}, modelUsed, nil
	}
	return parsed, modelUsed, nil
}

func refineQuery(router *Router, ctx context.Context, originalQuery, firstAnswer string) (string, error) {
	prompt := fmt.Sprintf("Original question: %s\n\nFirst-pass answer (flagged as incomplete): %s", originalQuery, firstAnswer)
	raw, _, err := router.Call(ctx, refineSystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	var parsed refineResult
	if parseErr := parseJSON(raw, &parsed); parseErr != nil || parsed.Query == "" {
		return strings.TrimSpace(raw), nil
	}
	return parsed.Query, nil
}

func checkConsistency(router *Router, ctx context.Context, answer1, answer2 string) (consistencyResult, error) {
	prompt := fmt.Sprintf("Question answer A: %s\n\nQuestion answer B: %s", answer1, answer2)
	raw, _, err := router.Call(ctx, consistencySystemPrompt, prompt)
	if err != nil {
		return consistencyResult{}, err
	}
	var parsed consistencyResult
	if parseErr := parseJSON(raw, &parsed); parseErr != nil {
		// unparsable verdict is treated conservatively as inconsistent, so
		// the orchestrator runs the explicit-inconsistency final pass
		// rather than silently trusting an answer it couldn't verify.
		return consistencyResult{Consistent: false, Explanation: "consistency check response unparsable"}, nil
	}
	return parsed, nil
}
