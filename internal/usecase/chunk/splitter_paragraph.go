package chunk

import (
	"context"
	"regexp"
	"strings"

	"rssnews/pkg/tokencount"
)

var (
	sentenceBoundary  = regexp.MustCompile(`(?s)([.!?])\s+`)
	blankLineBoundary = regexp.MustCompile(`\n\s*\n`)
)

// ParagraphSplitter deterministically packs paragraphs into chunks bounded
// by a token budget, splitting on sentence boundaries when a single
// paragraph alone exceeds the budget. It never fails: every non-empty input
// produces at least one chunk.
type ParagraphSplitter struct {
	MaxTokens int
}

func NewParagraphSplitter(maxTokens int) *ParagraphSplitter {
	return &ParagraphSplitter{MaxTokens: maxTokens}
}

func (s *ParagraphSplitter) Split(_ context.Context, text string) ([]ProposedChunk, error) {
	paragraphs := splitParagraphs(text)

	var chunks []ProposedChunk
	var current strings.Builder

	flush := func() {
		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			chunks = append(chunks, ProposedChunk{Text: trimmed})
		}
		current.Reset()
	}

	for _, p := range paragraphs {
		candidate := current.String()
		if candidate != "" {
			candidate += "\n\n"
		}
		candidate += p

		if tokencount.Count(candidate) <= s.MaxTokens {
			current.Reset()
			current.WriteString(candidate)
			continue
		}

		flush()

		if tokencount.Count(p) <= s.MaxTokens {
			current.WriteString(p)
			continue
		}

		for _, piece := range splitOversizedParagraph(p, s.MaxTokens) {
			chunks = append(chunks, ProposedChunk{Text: piece})
		}
	}
	flush()

	if len(chunks) == 0 {
		return nil, nil
	}
	return chunks, nil
}

// splitParagraphs breaks text on blank lines, falling back to single
// newlines when the text has no blank-line structure at all.
func splitParagraphs(text string) []string {
	raw := blankLineBoundary.Split(text, -1)
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) > 1 {
		return paragraphs
	}
	return splitLines(text)
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return out
}

// splitOversizedParagraph greedily packs sentences into pieces bounded by
// maxTokens, used only when a single paragraph alone exceeds the budget.
func splitOversizedParagraph(paragraph string, maxTokens int) []string {
	sentences := splitSentences(paragraph)
	var pieces []string
	var current strings.Builder

	for _, sentence := range sentences {
		candidate := current.String()
		if candidate != "" {
			candidate += " "
		}
		candidate += sentence

		if tokencount.Count(candidate) <= maxTokens {
			current.Reset()
			current.WriteString(candidate)
			continue
		}

		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			pieces = append(pieces, trimmed)
		}
		current.Reset()

		if tokencount.Count(sentence) > maxTokens {
			// a single sentence alone exceeds the budget; truncate by token
			// count as a last resort rather than dropping it entirely.
			pieces = append(pieces, tokencount.Truncate(sentence, maxTokens))
			continue
		}
		current.WriteString(sentence)
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		pieces = append(pieces, trimmed)
	}
	return pieces
}

func splitSentences(paragraph string) []string {
	marked := sentenceBoundary.ReplaceAllString(paragraph, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{paragraph}
	}
	return out
}
