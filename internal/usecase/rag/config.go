package rag

import (
	"time"

	"rssnews/internal/usecase/governor"
	"rssnews/pkg/config"
)

// AskConfig holds the ASK_*-tunable defaults for the news-answering loop:
// how deep it iterates, how wide its first retrieval window is, and what
// budget it runs under when the caller doesn't specify one.
type AskConfig struct {
	DefaultDepth        int
	DefaultWindow       time.Duration
	DefaultKFinal       int
	RefineRetrieveCount int
	DefaultBudget       governor.Budget
}

// DefaultAskConfig returns spec.md §4.8's documented defaults.
func DefaultAskConfig() AskConfig {
	return AskConfig{
		DefaultDepth:        3,
		DefaultWindow:       defaultWindow,
		DefaultKFinal:       10,
		RefineRetrieveCount: refineRetrieveCount,
		DefaultBudget:       governor.Budget{MaxTokens: 20000, BudgetCents: 100, TimeoutS: 30},
	}
}

// LoadAskConfigFromEnv loads an AskConfig from ASK_* environment variables,
// falling back to spec.md's defaults on any unset or unparseable value.
func LoadAskConfigFromEnv() AskConfig {
	d := DefaultAskConfig()
	return AskConfig{
		DefaultDepth:        config.GetEnvInt("ASK_DEFAULT_DEPTH", d.DefaultDepth),
		DefaultWindow:       config.GetEnvDuration("ASK_DEFAULT_WINDOW", d.DefaultWindow),
		DefaultKFinal:       config.GetEnvInt("ASK_DEFAULT_K_FINAL", d.DefaultKFinal),
		RefineRetrieveCount: config.GetEnvInt("ASK_REFINE_RETRIEVE_COUNT", d.RefineRetrieveCount),
		DefaultBudget: governor.Budget{
			MaxTokens:   config.GetEnvInt("ASK_DEFAULT_BUDGET_MAX_TOKENS", d.DefaultBudget.MaxTokens),
			BudgetCents: config.GetEnvInt("ASK_DEFAULT_BUDGET_CENTS", d.DefaultBudget.BudgetCents),
			TimeoutS:    config.GetEnvInt("ASK_DEFAULT_BUDGET_TIMEOUT_S", d.DefaultBudget.TimeoutS),
		},
	}
}

// effectiveConfig fills any zero field of o.Config from the package
// defaults, so an Orchestrator built with a bare struct literal (as every
// existing test does) keeps its original behavior.
func (o *Orchestrator) effectiveConfig() AskConfig {
	c := o.Config
	d := DefaultAskConfig()
	if c.DefaultDepth == 0 {
		c.DefaultDepth = d.DefaultDepth
	}
	if c.DefaultWindow == 0 {
		c.DefaultWindow = d.DefaultWindow
	}
	if c.DefaultKFinal == 0 {
		c.DefaultKFinal = d.DefaultKFinal
	}
	if c.RefineRetrieveCount == 0 {
		c.RefineRetrieveCount = d.RefineRetrieveCount
	}
	if c.DefaultBudget == (governor.Budget{}) {
		c.DefaultBudget = d.DefaultBudget
	}
	return c
}
