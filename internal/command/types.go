// Package command is the conversational command surface's internal half:
// search/ask/trends/analyze request structs and a Dispatcher that routes
// each to the retrieval/orchestrator usecases. The actual chat transport
// (Telegram, Slack, whatever) is an external collaborator that calls
// Dispatch with a CommandRequest and renders the CommandResponse; this
// package has no opinion on how a command string was parsed out of chat
// text beyond the `ask`/`search` query-operator handling intent.Parser
// already does.
package command

import (
	"time"

	"rssnews/internal/usecase/rag"
)

// Name identifies which of the four supported commands a request is for.
type Name string

const (
	Search  Name = "search"
	Ask     Name = "ask"
	Trends  Name = "trends"
	Analyze Name = "analyze"
)

// AnalyzeMode is the analytic lens `analyze` runs over retrieved evidence.
type AnalyzeMode string

const (
	ModeKeywords  AnalyzeMode = "keywords"
	ModeSentiment AnalyzeMode = "sentiment"
	ModeTopics    AnalyzeMode = "topics"
)

// CommandRequest is the transport-agnostic shape a chat adapter builds from
// a parsed user message.
type CommandRequest struct {
	Command Name
	Query   string // required for search/ask/analyze; ignored for trends

	// search
	Hours   int
	K       int
	Sources []string
	Lang    string

	// ask
	Depth int

	// trends / analyze
	Window time.Duration

	// analyze
	Mode AnalyzeMode
}

// SearchResult is one ranked hit in a CommandResponse's Results field.
type SearchResult struct {
	ChunkID     string
	Title       string
	URL         string
	Domain      string
	Score       float64
	PublishedAt *time.Time
	Snippet     string
}

// TrendCluster is one group in a trends response, keyed by source domain
// and category per spec.md's "minimal but real" trends contract.
type TrendCluster struct {
	Domain   string
	Category string
	Count    int
}

// CommandResponse is the transport-agnostic result a chat adapter renders.
type CommandResponse struct {
	Command Name
	Text    string // a ready-to-display summary; adapters may ignore it

	Results  []SearchResult // search
	Ask      *rag.Response  // ask
	Trends   []TrendCluster // trends
	Analysis string         // analyze
}
