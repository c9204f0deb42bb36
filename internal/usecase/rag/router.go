package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Completer is a free-form single-turn LLM call, satisfied by
// *summarizer.Claude and *summarizer.OpenAI.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ModelSpec names one entry in the router's primary/fallback chain.
type ModelSpec struct {
	Name            string
	Completer       Completer
	TimeoutS        int
	ReasoningEffort string // advisory only; not every Completer honors it
}

// Router tries each configured model in order, falling through to the
// next on timeout or provider error (§4.8 "Model routing").
type Router struct {
	Models []ModelSpec
}

// ErrAllModelsExhausted is returned when every model in the chain failed.
var ErrAllModelsExhausted = fmt.Errorf("rag: all models in the routing chain failed")

// Call runs systemPrompt/userPrompt against the chain, returning the first
// model's output to succeed and which model produced it.
func (r *Router) Call(ctx context.Context, systemPrompt, userPrompt string) (text string, modelUsed string, err error) {
	var lastErr error
	for _, m := range r.Models {
		callCtx := ctx
		var cancel context.CancelFunc
		if m.TimeoutS > 0 {
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(m.TimeoutS)*time.Second)
		}
		out, callErr := m.Completer.Complete(callCtx, systemPrompt, userPrompt)
		if cancel != nil {
			cancel()
		}
		if callErr == nil {
			return out, m.Name, nil
		}
		slog.Warn("model call failed, falling through to next model",
			slog.String("model", m.Name), slog.Any("error", callErr))
		lastErr = callErr
	}
	if lastErr == nil {
		lastErr = ErrAllModelsExhausted
	}
	return "", "", fmt.Errorf("%w: %v", ErrAllModelsExhausted, lastErr)
}
