package retrieve

import (
	"math"
	"regexp"
	"strings"
	"time"

	"rssnews/internal/domain/entity"
)

// categoryKeywords maps a news category to the word-boundary keyword list
// that triggers its penalty (§4.6 step 5). Matching is case-insensitive and
// requires at least two distinct keyword hits, so a single incidental
// mention (e.g. "goal" used figuratively) doesn't misfire the sports
// penalty on an unrelated article.
var categoryKeywords = map[string][]string{
	"sports": {
		"game", "match", "tournament", "championship", "league",
		"coach", "goal", "inning", "playoff", "score",
	},
	"entertainment": {
		"celebrity", "movie", "album", "concert", "actor",
		"actress", "singer", "premiere", "box office",
	},
	"crime-blotter": {
		"arrest", "police", "shooting", "robbery", "assault",
		"homicide", "stabbing", "burglary", "suspect",
	},
	"weather": {
		"forecast", "temperature", "rainfall", "storm", "snowfall",
		"humidity", "heatwave", "blizzard",
	},
}

// categoryPenaltyMultipliers is applied to the base score when the
// corresponding category is detected and intent is news_current_events.
var categoryPenaltyMultipliers = map[string]float64{
	"sports":        0.5,
	"entertainment": 0.6,
	"crime-blotter": 0.7,
	"weather":       0.8,
}

// keywordBoundary caches one compiled regexp per keyword phrase.
var keywordBoundaryCache = map[string]*regexp.Regexp{}

func keywordBoundary(keyword string) *regexp.Regexp {
	if re, ok := keywordBoundaryCache[keyword]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	keywordBoundaryCache[keyword] = re
	return re
}

// detectCategoryPenalty returns the penalty multiplier for text (1.0 if
// none applies): at least two distinct keywords from the same category's
// list must match.
func detectCategoryPenalty(text string) (category string, multiplier float64) {
	for cat, keywords := range categoryKeywords {
		hits := 0
		for _, kw := range keywords {
			if keywordBoundary(kw).MatchString(text) {
				hits++
				if hits >= 2 {
					break
				}
			}
		}
		if hits >= 2 {
			return cat, categoryPenaltyMultipliers[cat]
		}
	}
	return "", 1.0
}

// freshness returns the exponential-decay freshness term for an age, in
// [0,1]. publishedAt == nil yields 0; the caller additionally applies
// MissingDateMultiplier to the whole score in that case.
func freshness(publishedAt *time.Time, now time.Time, tau time.Duration) float64 {
	if publishedAt == nil {
		return 0
	}
	age := now.Sub(*publishedAt)
	if age < 0 {
		age = 0
	}
	return math.Exp(-float64(age) / float64(tau))
}

// sourceTrust normalizes a feed trust score (0-100) to [0,1]. An unknown
// domain (not found in the trust map) is treated as neutral, 0.5.
func sourceTrust(trustByDomain map[string]int, domain string) float64 {
	if score, ok := trustByDomain[domain]; ok {
		return float64(score) / 100.0
	}
	return 0.5
}

// baseScore computes the weighted base score for one candidate (§4.6 step
// 4), applying the category penalty (step 5) and the missing-date penalty
// in the same pass.
func baseScore(c *entity.Chunk, similarity, lexicalRank float64, trustByDomain map[string]int, intent string, now time.Time, cfg RankConfig) (score float64, fr float64, trust float64, penalizedCategory string) {
	fr = freshness(c.PublishedAt, now, cfg.FreshnessTau)
	trust = sourceTrust(trustByDomain, c.SourceDomain)

	score = cfg.WeightSemantic*similarity + cfg.WeightLexical*lexicalRank + cfg.WeightFreshness*fr + cfg.WeightSourceTrust*trust

	if intent == "news_current_events" {
		cat, mult := detectCategoryPenalty(c.Title + " " + c.Text)
		if mult != 1.0 {
			score *= mult
			penalizedCategory = cat
		}
	}

	if c.PublishedAt == nil {
		score *= cfg.MissingDateMultiplier
	}

	return score, fr, trust, penalizedCategory
}

// titleNormalized lowercases and collapses whitespace in a title, for use
// as part of the dedup grouping key.
func titleNormalized(title string) string {
	fields := strings.Fields(strings.ToLower(title))
	return strings.Join(fields, " ")
}

// rankLess orders two ranked chunks for the final result list: score desc,
// ties broken by (has_date desc, published_at desc, chunk_id asc) per
// spec.md's reproducibility requirement.
func rankLess(a, b RankedChunk) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	aHasDate, bHasDate := a.Chunk.PublishedAt != nil, b.Chunk.PublishedAt != nil
	if aHasDate != bHasDate {
		return aHasDate
	}
	if aHasDate && !a.Chunk.PublishedAt.Equal(*b.Chunk.PublishedAt) {
		return a.Chunk.PublishedAt.After(*b.Chunk.PublishedAt)
	}
	return a.Chunk.ChunkID() < b.Chunk.ChunkID()
}
