// Package governor enforces a per-request budget (tokens, cents,
// wall-clock) across an agentic orchestrator run: it estimates cost before
// each LLM call, denies calls that would exceed what's left, and reports
// whether a deeper iteration plan is affordable at all.
package governor

import (
	"fmt"
	"time"
)

// Budget is the caller-supplied ceiling for one orchestrator request.
type Budget struct {
	MaxTokens   int
	BudgetCents int
	TimeoutS    int
}

// GeneralQAFloor is the fixed budget spec.md §4.8 requires for the
// general-QA path regardless of what the caller requested.
var GeneralQAFloor = Budget{MaxTokens: 2000, BudgetCents: 10, TimeoutS: 15}

// ErrBudgetExhausted is returned by Spend when a call would push
// cumulative spend past the request's budget.
var ErrBudgetExhausted = fmt.Errorf("governor: budget exhausted")

// CallEstimate is the projected cost of one LLM call, used to decide
// in advance whether it's affordable.
type CallEstimate struct {
	Tokens int
	Cents  int
}

// Governor tracks cumulative spend and elapsed time against a Budget for
// one orchestrator request. Not safe for concurrent use: one orchestrator
// request owns one Governor.
type Governor struct {
	budget Budget
	start  time.Time

	spentTokens int
	spentCents  int
}

func New(budget Budget, now time.Time) *Governor {
	return &Governor{budget: budget, start: now}
}

// Elapsed returns wall-clock time since the governor was created.
func (g *Governor) Elapsed(now time.Time) time.Duration {
	return now.Sub(g.start)
}

// Expired reports whether the request's overall timeout has elapsed.
func (g *Governor) Expired(now time.Time) bool {
	if g.budget.TimeoutS <= 0 {
		return false
	}
	return g.Elapsed(now) >= time.Duration(g.budget.TimeoutS)*time.Second
}

// Remaining returns the tokens and cents still available.
func (g *Governor) Remaining() (tokens int, cents int) {
	return g.budget.MaxTokens - g.spentTokens, g.budget.BudgetCents - g.spentCents
}

// CanAfford checks a projected call's cost against remaining budget
// without committing the spend.
func (g *Governor) CanAfford(estimate CallEstimate) bool {
	tokensLeft, centsLeft := g.Remaining()
	return estimate.Tokens <= tokensLeft && estimate.Cents <= centsLeft
}

// Spend commits a call's actual cost, denying it first if it would exceed
// the remaining budget. On denial, no partial spend is recorded.
func (g *Governor) Spend(estimate CallEstimate) error {
	if !g.CanAfford(estimate) {
		return ErrBudgetExhausted
	}
	g.spentTokens += estimate.Tokens
	g.spentCents += estimate.Cents
	return nil
}

// CanAffordDepth reports whether the remaining budget plausibly covers
// running depth more analyze-and-answer iterations at perIterationCost
// each, the test the orchestrator runs before iteration 1 to decide
// whether to degrade depth (§4.8's "Degradation").
func (g *Governor) CanAffordDepth(depth int, perIterationCost CallEstimate) bool {
	tokensLeft, centsLeft := g.Remaining()
	return perIterationCost.Tokens*depth <= tokensLeft && perIterationCost.Cents*depth <= centsLeft
}
