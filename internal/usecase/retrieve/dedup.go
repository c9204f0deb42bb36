package retrieve

import (
	"sort"

	"rssnews/pkg/minhash"
	"rssnews/pkg/urlnorm"
)

// dedupKey groups candidates that are almost certainly the same underlying
// article (e.g. re-published via a syndication feed under a cosmetically
// different URL).
type dedupKey struct {
	etld1           string
	normalizedPath  string
	titleNormalized string
}

func groupKey(r RankedChunk) dedupKey {
	etld1, err := urlnorm.ETLD1(r.Chunk.URL)
	if err != nil || etld1 == "" {
		etld1 = r.Chunk.SourceDomain
	}
	return dedupKey{
		etld1:           etld1,
		normalizedPath:  urlnorm.NormalizePath(r.Chunk.URL),
		titleNormalized: titleNormalized(r.Chunk.Title),
	}
}

// dedupe groups candidates by (etld1, normalized_path, title_normalized),
// picks one canonical winner per group by (has_date, source_score,
// word_count, score) descending, then merges remaining near-duplicates
// across groups via MinHash-LSH at duplicateThreshold. Returns the
// survivors and a count of how many candidates were removed.
func dedupe(candidates []RankedChunk, duplicateThreshold float64) ([]RankedChunk, int) {
	groups := map[dedupKey][]RankedChunk{}
	order := []dedupKey{}
	for _, c := range candidates {
		k := groupKey(c)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}

	removed := 0
	winners := make([]RankedChunk, 0, len(order))
	for _, k := range order {
		group := groups[k]
		removed += len(group) - 1
		winners = append(winners, pickCanonical(group))
	}

	survivors, lshRemoved := mergeNearDuplicates(winners, duplicateThreshold)
	removed += lshRemoved

	return survivors, removed
}

// pickCanonical selects the group member maximizing, in order: has a
// published date, source trust, word count, raw score.
func pickCanonical(group []RankedChunk) RankedChunk {
	best := group[0]
	for _, candidate := range group[1:] {
		if better(candidate, best) {
			best = candidate
		}
	}
	return best
}

func better(a, b RankedChunk) bool {
	aHasDate, bHasDate := a.Chunk.PublishedAt != nil, b.Chunk.PublishedAt != nil
	if aHasDate != bHasDate {
		return aHasDate
	}
	if a.SourceTrust != b.SourceTrust {
		return a.SourceTrust > b.SourceTrust
	}
	aWords, bWords := wordCount(a.Chunk.Text), wordCount(b.Chunk.Text)
	if aWords != bWords {
		return aWords > bWords
	}
	return a.Score > b.Score
}

func wordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		isSpace := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if isSpace {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

// mergeNearDuplicates inserts every candidate's MinHash signature into a
// fresh LSH exactly once (the insertion invariant), then merges any pair
// whose estimated Jaccard similarity clears duplicateThreshold, keeping
// only the higher-scored member of each merged pair.
func mergeNearDuplicates(candidates []RankedChunk, duplicateThreshold float64) ([]RankedChunk, int) {
	if len(candidates) <= 1 {
		return candidates, 0
	}

	lsh := minhash.NewLSH(16)
	sigs := make(map[string]minhash.Signature, len(candidates))
	byID := make(map[string]RankedChunk, len(candidates))
	processed := make(map[string]bool, len(candidates))

	for _, c := range candidates {
		id := c.Chunk.ChunkID()
		sig := minhash.Sign(c.Chunk.Title + " " + c.Chunk.Text)
		sigs[id] = sig
		byID[id] = c
		if !processed[id] {
			lsh.Insert(id, sig)
			processed[id] = true
		}
	}

	dropped := make(map[string]bool, len(candidates))
	removed := 0

	// Deterministic order so merging is stable across runs.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Chunk.ChunkID() < candidates[j].Chunk.ChunkID()
	})

	for _, c := range candidates {
		id := c.Chunk.ChunkID()
		if dropped[id] {
			continue
		}
		for _, otherID := range lsh.Candidates(id, sigs[id]) {
			if dropped[otherID] || otherID == id {
				continue
			}
			if minhash.EstimateJaccard(sigs[id], sigs[otherID]) < duplicateThreshold {
				continue
			}
			other := byID[otherID]
			if other.Score > c.Score {
				dropped[id] = true
				removed++
				break
			}
			dropped[otherID] = true
			removed++
		}
	}

	survivors := make([]RankedChunk, 0, len(candidates))
	for _, c := range candidates {
		if !dropped[c.Chunk.ChunkID()] {
			survivors = append(survivors, c)
		}
	}
	return survivors, removed
}

// diversify caps how many chunks from the same eTLD+1 survive, keeping the
// highest scoring ones per domain and preserving overall score order among
// the survivors.
func diversify(ranked []RankedChunk, maxPerDomain int) ([]RankedChunk, int) {
	counts := map[string]int{}
	out := make([]RankedChunk, 0, len(ranked))
	capped := 0

	for _, r := range ranked {
		domain := r.Chunk.SourceDomain
		if counts[domain] >= maxPerDomain {
			capped++
			continue
		}
		counts[domain]++
		out = append(out, r)
	}
	return out, capped
}
