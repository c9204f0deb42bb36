package entity

import "time"

// FTSLanguage selects the Postgres text-search configuration used to build
// the vector for a chunk.
type FTSLanguage string

const (
	FTSLanguageEnglish FTSLanguage = "english"
	FTSLanguageRussian FTSLanguage = "russian"
)

// RussianConfidenceThreshold is the language-detection confidence at or
// above which the Russian analyzer is selected over English (Open Question 3).
const RussianConfidenceThreshold = 0.8

// FTSVector is the inverted-index representation attached 1:1 to a Chunk.
// Missing is a legal transient state: the chunk is invisible to lexical
// search until the FTS indexer catches up.
type FTSVector struct {
	ChunkID  int64
	Language FTSLanguage
	// Vector itself is a tsvector column maintained by Postgres; the Go
	// layer only ever writes the source text and language, never the
	// computed vector.
	UpdatedAt time.Time
}

// SelectLanguage picks the FTS analyzer config for a detected language and
// its confidence.
func SelectLanguage(detectedLang string, confidence float64) FTSLanguage {
	if detectedLang == "ru" && confidence >= RussianConfidenceThreshold {
		return FTSLanguageRussian
	}
	return FTSLanguageEnglish
}
