package retrieve_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssnews/internal/domain/entity"
	handler "rssnews/internal/handler/http/retrieve"
	"rssnews/internal/repository"
	"rssnews/internal/usecase/retrieve"
)

type stubEmbeddingRepo struct{ scored []repository.ScoredChunk }

func (s *stubEmbeddingRepo) UpsertIfMissing(context.Context, *entity.Embedding) (bool, error) {
	return false, nil
}
func (s *stubEmbeddingRepo) MarkPermanentFailure(context.Context, int64, string) error { return nil }
func (s *stubEmbeddingRepo) ResetForModel(context.Context, string) (int64, error) { return 0, nil }
func (s *stubEmbeddingRepo) SearchSimilar(context.Context, []float32, repository.CandidateFilters, int) ([]repository.ScoredChunk, error) {
	return s.scored, nil
}

type stubFTSRepo struct{}

func (s *stubFTSRepo) UpdateVector(context.Context, int64, string, entity.FTSLanguage) error {
	return nil
}
func (s *stubFTSRepo) SearchLexical(context.Context, string, repository.CandidateFilters, int) ([]repository.LexicalResult, error) {
	return nil, nil
}

type stubEmbedder struct{ vector []float32 }

func (s *stubEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return [][]float32{s.vector}, nil
}

func recent(daysAgo int) *time.Time {
	t := time.Now().Add(-time.Duration(daysAgo) * 24 * time.Hour)
	return &t
}

func chunk(id int64, domain, title, text string) *entity.Chunk {
	return &entity.Chunk{
		ID: id, ArticleID: id, ChunkIndex: 0,
		Text: text, Title: title, URL: "https://" + domain + "/1",
		SourceDomain: domain, PublishedAt: recent(1), Language: "en",
	}
}

func newRetriever(scored []repository.ScoredChunk) *retrieve.Retriever {
	return &retrieve.Retriever{
		Embeddings: &stubEmbeddingRepo{scored: scored},
		FTS:        &stubFTSRepo{},
		Embedder:   &stubEmbedder{vector: []float32{0.1, 0.2}},
	}
}

func TestHandler_ReturnsRankedItems(t *testing.T) {
	scored := []repository.ScoredChunk{
		{Chunk: chunk(1, "a.com", "First", "first article text"), Similarity: 0.9},
	}
	h := &handler.Handler{Retriever: newRetriever(scored)}

	body, _ := json.Marshal(map[string]any{"query": "some query", "k": 5})
	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	items := resp["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "a.com", items[0].(map[string]any)["source_domain"])
	assert.Nil(t, resp["next_cursor"])
}

func TestHandler_MalformedBodyReturns400(t *testing.T) {
	h := &handler.Handler{Retriever: newRetriever(nil)}

	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_EmptyQueryReturns400(t *testing.T) {
	h := &handler.Handler{Retriever: newRetriever(nil)}

	body, _ := json.Marshal(map[string]any{"query": ""})
	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_CursorPagesIntoSecondBatch(t *testing.T) {
	scored := []repository.ScoredChunk{
		{Chunk: chunk(1, "a.com", "First", "first article text"), Similarity: 0.95},
		{Chunk: chunk(2, "b.com", "Second", "second article text"), Similarity: 0.9},
		{Chunk: chunk(3, "c.com", "Third", "third article text"), Similarity: 0.85},
	}
	h := &handler.Handler{Retriever: newRetriever(scored)}

	body, _ := json.Marshal(map[string]any{"query": "some query", "k": 1, "cursor": "1"})
	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	items := resp["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "b.com", items[0].(map[string]any)["source_domain"])
}

func TestHandler_InvalidCursorReturns400(t *testing.T) {
	h := &handler.Handler{Retriever: newRetriever(nil)}

	body, _ := json.Marshal(map[string]any{"query": "x", "cursor": "not-a-number"})
	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
