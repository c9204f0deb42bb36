// Package tokencount counts and truncates text by model token count rather
// than character count, using the same tokenizer the embedding/completion
// models use so truncation never cuts mid-token or mis-estimates a budget.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is the encoding used by OpenAI's text-embedding-3 and
// gpt-4o model families; Claude has no published public tokenizer, so this
// is also used as the closest available estimate for Claude-bound prompts.
const defaultEncoding = "cl100k_base"

var (
	once sync.Once
	enc  *tiktoken.Tiktoken
	errI error
)

func encoding() (*tiktoken.Tiktoken, error) {
	once.Do(func() {
		enc, errI = tiktoken.GetEncoding(defaultEncoding)
	})
	return enc, errI
}

// Count returns the number of model tokens in text. It falls back to a
// words-times-four-thirds estimate if the encoder fails to load.
func Count(text string) int {
	e, err := encoding()
	if err != nil {
		return estimateTokens(text)
	}
	return len(e.Encode(text, nil, nil))
}

// Truncate returns the longest prefix of text whose token count is <=
// maxTokens, splitting only on token boundaries.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	e, err := encoding()
	if err != nil {
		return truncateEstimate(text, maxTokens)
	}
	tokens := e.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return e.Decode(tokens[:maxTokens])
}

// estimateTokens approximates token count without a tokenizer: English text
// averages roughly 4 characters per token.
func estimateTokens(text string) int {
	return (len([]rune(text)) + 3) / 4
}

func truncateEstimate(text string, maxTokens int) string {
	runes := []rune(text)
	maxChars := maxTokens * 4
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
