package retrieve

import (
	"time"

	"rssnews/pkg/config"
)

// RankConfig holds the tunables behind the hybrid retriever's scoring and
// diversification steps (§4.6). Every field defaults to the package
// constant of the same name when left zero, so a Retriever built without
// an explicit Config behaves exactly as if the constants were still
// hardcoded.
type RankConfig struct {
	MinCosine             float64
	WeightSemantic        float64
	WeightLexical         float64
	WeightFreshness       float64
	WeightSourceTrust     float64
	FreshnessTau          time.Duration
	MissingDateMultiplier float64
	MaxPerDomain          int
	DuplicateThreshold    float64
	CacheTTL              time.Duration
	MinResultFloor        int
}

// DefaultRankConfig returns the spec.md §4.6 defaults.
func DefaultRankConfig() RankConfig {
	return RankConfig{
		MinCosine:             MinCosine,
		WeightSemantic:        WeightSemantic,
		WeightLexical:         WeightLexical,
		WeightFreshness:       WeightFreshness,
		WeightSourceTrust:     WeightSourceTrust,
		FreshnessTau:          FreshnessTau,
		MissingDateMultiplier: MissingDateMultiplier,
		MaxPerDomain:          MaxPerDomain,
		DuplicateThreshold:    DuplicateThreshold,
		CacheTTL:              DefaultCacheTTL,
		MinResultFloor:        minResultFloor,
	}
}

// LoadRankConfigFromEnv loads a RankConfig from RANK_* environment
// variables, falling back to spec.md's documented defaults on any unset or
// unparseable value. Weights are not re-normalized to sum to 1.0 here; an
// operator overriding them is responsible for keeping them coherent.
func LoadRankConfigFromEnv() RankConfig {
	d := DefaultRankConfig()
	return RankConfig{
		MinCosine:             config.GetEnvFloat("RANK_MIN_COSINE", d.MinCosine),
		WeightSemantic:        config.GetEnvFloat("RANK_WEIGHT_SEMANTIC", d.WeightSemantic),
		WeightLexical:         config.GetEnvFloat("RANK_WEIGHT_LEXICAL", d.WeightLexical),
		WeightFreshness:       config.GetEnvFloat("RANK_WEIGHT_FRESHNESS", d.WeightFreshness),
		WeightSourceTrust:     config.GetEnvFloat("RANK_WEIGHT_SOURCE_TRUST", d.WeightSourceTrust),
		FreshnessTau:          config.GetEnvDuration("RANK_FRESHNESS_TAU", d.FreshnessTau),
		MissingDateMultiplier: config.GetEnvFloat("RANK_MISSING_DATE_MULTIPLIER", d.MissingDateMultiplier),
		MaxPerDomain:          config.GetEnvInt("RANK_MAX_PER_DOMAIN", d.MaxPerDomain),
		DuplicateThreshold:    config.GetEnvFloat("RANK_DUPLICATE_THRESHOLD", d.DuplicateThreshold),
		CacheTTL:              config.GetEnvDuration("RANK_CACHE_TTL", d.CacheTTL),
		MinResultFloor:        config.GetEnvInt("RANK_MIN_RESULT_FLOOR", d.MinResultFloor),
	}
}

// effectiveConfig fills any zero field of r.Config from the package
// defaults, so a Retriever built with a bare struct literal (as every
// existing test does) keeps its original behavior.
func (r *Retriever) effectiveConfig() RankConfig {
	c := r.Config
	d := DefaultRankConfig()
	if c.MinCosine == 0 {
		c.MinCosine = d.MinCosine
	}
	if c.WeightSemantic == 0 {
		c.WeightSemantic = d.WeightSemantic
	}
	if c.WeightLexical == 0 {
		c.WeightLexical = d.WeightLexical
	}
	if c.WeightFreshness == 0 {
		c.WeightFreshness = d.WeightFreshness
	}
	if c.WeightSourceTrust == 0 {
		c.WeightSourceTrust = d.WeightSourceTrust
	}
	if c.FreshnessTau == 0 {
		c.FreshnessTau = d.FreshnessTau
	}
	if c.MissingDateMultiplier == 0 {
		c.MissingDateMultiplier = d.MissingDateMultiplier
	}
	if c.MaxPerDomain == 0 {
		c.MaxPerDomain = d.MaxPerDomain
	}
	if c.DuplicateThreshold == 0 {
		c.DuplicateThreshold = d.DuplicateThreshold
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.MinResultFloor == 0 {
		c.MinResultFloor = d.MinResultFloor
	}
	return c
}
