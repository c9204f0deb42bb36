package chunk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rssnews/pkg/tokencount"
)

// Completer is a free-form single-turn LLM call, satisfied by
// *summarizer.Claude and *summarizer.OpenAI.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const splitterSystemPrompt = `You split article text into semantically coherent chunks for a retrieval index. Each chunk must stand on its own as a unit of meaning (a complete thought, section, or argument) and must not exceed the requested token budget. Respond with JSON only, no prose: either a JSON array of objects, or an object with a "chunks" array, where each object has a "text" field and an optional "importance" field (0 to 1). If the whole text is one coherent chunk, respond with a single JSON object instead of an array.`

type llmChunk struct {
	Text       string  `json:"text"`
	Importance float64 `json:"importance"`
}

// LLMSplitter asks an LLM to propose chunk boundaries, accepting any of the
// three response shapes spec.md calls out: a bare array, a {"chunks": [...]}
// object, or a single object.
type LLMSplitter struct {
	Completer Completer
	MaxTokens int
}

func NewLLMSplitter(completer Completer, maxTokens int) *LLMSplitter {
	return &LLMSplitter{Completer: completer, MaxTokens: maxTokens}
}

func (s *LLMSplitter) Split(ctx context.Context, text string) ([]ProposedChunk, error) {
	prompt := fmt.Sprintf("Token budget per chunk: %d.\n\nText:\n%s", s.MaxTokens, text)
	raw, err := s.Completer.Complete(ctx, splitterSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm split: %w", err)
	}

	chunks, ok := parseLLMResponse(raw)
	if !ok {
		return nil, fmt.Errorf("llm split: response did not match any accepted shape")
	}

	proposed := make([]ProposedChunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if tokencount.Count(c.Text) > s.MaxTokens {
			return nil, fmt.Errorf("llm split: chunk exceeds token budget")
		}
		proposed = append(proposed, ProposedChunk{Text: c.Text, ImportanceScore: c.Importance})
	}
	if len(proposed) == 0 {
		return nil, fmt.Errorf("llm split: no usable chunks in response")
	}
	return proposed, nil
}

// parseLLMResponse tries, in order: a bare JSON array, an object with a
// "chunks" array, then a single object treated as one chunk.
func parseLLMResponse(raw string) ([]llmChunk, bool) {
	raw = extractJSON(raw)

	var arr []llmChunk
	if err := json.Unmarshal([]byte(raw), &arr); err == nil && len(arr) > 0 {
		return arr, true
	}

	var wrapped struct {
		Chunks []llmChunk `json:"chunks"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && len(wrapped.Chunks) > 0 {
		return wrapped.Chunks, true
	}

	var single llmChunk
	if err := json.Unmarshal([]byte(raw), &single); err == nil && single.Text != "" {
		return []llmChunk{single}, true
	}

	return nil, false
}

// extractJSON strips a leading/trailing markdown code fence, since some
// models wrap JSON responses in ```json ... ``` despite instructions.
func extractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
