package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tracelight/tracelight/internal/trace/domain"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

func TestFindSemantic(t *testing.T) {
	t.Run("empty scope skips embedding and search", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
		s := NewSemanticSearcher("http://unused.invalid", "documents", embedder, time.Second)

		hits, err := s.FindSemantic(context.Background(), "q", domain.ScopeSnapshot{}, 10)
		require.NoError(t, err)
		require.Empty(t, hits)
		require.Zero(t, embedder.calls)
	})

	t.Run("embedding failure surfaces without hitting the index", func(t *testing.T) {
		embedder := &fakeEmbedder{err: errors.New("quota exhausted")}
		s := NewSemanticSearcher("http://unused.invalid", "documents", embedder, time.Second)

		_, err := s.FindSemantic(context.Background(), "q", exactTestScope(), 10)
		require.ErrorContains(t, err, "embed query text")
	})

	t.Run("sends the embedded vector with the scope filter", func(t *testing.T) {
		var captured vectorQuery
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/collections/documents/search", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_, _ = w.Write([]byte(`{"results":[]}`))
		}))
		defer srv.Close()

		embedder := &fakeEmbedder{vector: []float32{0.25, -0.5}}
		s := NewSemanticSearcher(srv.URL, "documents", embedder, time.Second)

		_, err := s.FindSemantic(context.Background(), "q", exactTestScope(), 7)
		require.NoError(t, err)
		require.Equal(t, []float32{0.25, -0.5}, captured.Vector)
		require.Equal(t, 7, captured.TopK)
		require.Equal(t, []string{"kb-1", "kb-2"}, captured.KnowledgeBaseIDs)
	})

	t.Run("clamps similarity drift into the unit interval", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":[
				{"document_id":"doc-1","document_name":"a","knowledge_base":"kb","score":1.0000002,
				 "text":"hello","location":{"unit":"sheet","index":1,"offset":3,"length":5}},
				{"document_id":"doc-2","document_name":"b","knowledge_base":"kb","score":-0.01,
				 "text":"world","location":{}}
			]}`))
		}))
		defer srv.Close()

		embedder := &fakeEmbedder{vector: []float32{0.1}}
		s := NewSemanticSearcher(srv.URL, "documents", embedder, time.Second)

		hits, err := s.FindSemantic(context.Background(), "q", exactTestScope(), 10)
		require.NoError(t, err)
		require.Len(t, hits, 2)

		require.Equal(t, 1.0, hits[0].Score)
		require.Equal(t, domain.MatchKindSemantic, hits[0].Kind)
		require.Equal(t, "sheet", hits[0].Span.Unit)

		require.Zero(t, hits[1].Score)
		require.Equal(t, "page", hits[1].Span.Unit)
		require.Equal(t, len([]rune("world")), hits[1].Span.Length)
	})

	t.Run("embeds once even when the index needs retries", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"results":[]}`))
		}))
		defer srv.Close()

		embedder := &fakeEmbedder{vector: []float32{0.1}}
		s := NewSemanticSearcher(srv.URL, "documents", embedder, time.Second)

		_, err := s.FindSemantic(context.Background(), "q", exactTestScope(), 10)
		require.NoError(t, err)
		require.EqualValues(t, 2, calls.Load())
		require.Equal(t, 1, embedder.calls)
	})
}
