// Package retrieve adapts internal/usecase/retrieve's hybrid retriever onto
// the server-side retrieval RPC (§6): POST /retrieve.
package retrieve

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"rssnews/internal/handler/http/respond"
	"rssnews/internal/usecase/retrieve"
)

const (
	defaultHours = 24 * 7
	defaultK     = 10
	maxK         = 100
)

type requestFilters struct {
	Sources []string `json:"sources,omitempty"`
	Lang    string   `json:"lang,omitempty"`
}

type requestBody struct {
	Query         string          `json:"query"`
	Hours         *int            `json:"hours,omitempty"`
	K             *int            `json:"k,omitempty"`
	Filters       *requestFilters `json:"filters,omitempty"`
	Cursor        string          `json:"cursor,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

type item struct {
	Title          string     `json:"title"`
	URL            string     `json:"url"`
	SourceDomain   string     `json:"source_domain"`
	PublishedAt    *time.Time `json:"published_at"`
	Snippet        *string    `json:"snippet"`
	RelevanceScore float64    `json:"relevance_score"`
}

type freshnessStats struct {
	MedianAgeSeconds float64 `json:"median_age_seconds"`
	WindowHours      int     `json:"window_hours"`
}

type diagnostics struct {
	TotalResults  int     `json:"total_results"`
	Offset        int     `json:"offset"`
	Returned      int     `json:"returned"`
	HasMore       bool    `json:"has_more"`
	Window        string  `json:"window"`
	CorrelationID *string `json:"correlation_id"`
}

type responseBody struct {
	Items          []item         `json:"items"`
	NextCursor     *string        `json:"next_cursor"`
	TotalAvailable int            `json:"total_available"`
	Coverage       float64        `json:"coverage"`
	FreshnessStats freshnessStats `json:"freshness_stats"`
	Diagnostics    diagnostics    `json:"diagnostics"`
}

// Handler serves POST /retrieve.
type Handler struct {
	Retriever *retrieve.Retriever
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}
	if body.Query == "" {
		respond.Error(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}

	offset := 0
	if body.Cursor != "" {
		n, err := strconv.Atoi(body.Cursor)
		if err != nil || n < 0 {
			respond.Error(w, http.StatusBadRequest, errors.New("invalid cursor"))
			return
		}
		offset = n
	}

	hours := defaultHours
	if body.Hours != nil && *body.Hours > 0 {
		hours = *body.Hours
	}
	k := defaultK
	if body.K != nil && *body.K > 0 {
		k = *body.K
	}
	if k > maxK {
		k = maxK
	}

	var filters retrieve.Filters
	if body.Filters != nil {
		filters.Sources = body.Filters.Sources
		filters.Lang = body.Filters.Lang
	}

	after := time.Now().Add(-time.Duration(hours) * time.Hour)
	window := retrieve.Window{After: &after}

	// The retriever always returns its best kFinal results ranked from the
	// top; paging is implemented by asking for enough to cover this page
	// and slicing off what earlier pages already returned.
	result, err := h.Retriever.Retrieve(r.Context(), body.Query, window, offset+k, filters, retrieve.Flags{})
	if err != nil {
		respond.Error(w, http.StatusServiceUnavailable, errors.New("retrieval temporarily unavailable"))
		return
	}

	page := result.Chunks
	if offset < len(page) {
		page = page[offset:]
	} else {
		page = nil
	}
	if len(page) > k {
		page = page[:k]
	}

	items := make([]item, 0, len(page))
	now := time.Now()
	ages := make([]float64, 0, len(page))
	for _, c := range page {
		var snippet *string
		if c.Chunk.Text != "" {
			s := c.Chunk.Text
			snippet = &s
		}
		items = append(items, item{
			Title:          c.Chunk.Title,
			URL:            c.Chunk.URL,
			SourceDomain:   c.Chunk.SourceDomain,
			PublishedAt:    c.Chunk.PublishedAt,
			Snippet:        snippet,
			RelevanceScore: c.Score,
		})
		if c.Chunk.PublishedAt != nil {
			ages = append(ages, now.Sub(*c.Chunk.PublishedAt).Seconds())
		}
	}

	var nextCursor *string
	hasMore := offset+len(page) < len(result.Chunks)
	if hasMore {
		n := strconv.Itoa(offset + len(page))
		nextCursor = &n
	}

	var correlationID *string
	if body.CorrelationID != "" {
		correlationID = &body.CorrelationID
	}

	resp := responseBody{
		Items:          items,
		NextCursor:     nextCursor,
		TotalAvailable: len(result.Chunks),
		Coverage:       float64(len(items)) / float64(k),
		FreshnessStats: freshnessStats{
			MedianAgeSeconds: median(ages),
			WindowHours:      hours,
		},
		Diagnostics: diagnostics{
			TotalResults:  len(result.Chunks),
			Offset:        offset,
			Returned:      len(items),
			HasMore:       hasMore,
			Window:        (time.Duration(hours) * time.Hour).String(),
			CorrelationID: correlationID,
		},
	}

	respond.JSON(w, http.StatusOK, resp)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
