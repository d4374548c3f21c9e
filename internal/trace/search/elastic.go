package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tracelight/tracelight/internal/trace/domain"
)

// minimumShouldMatch keeps partial keyword overlap out of the exact result
// set while still tolerating minor tokenization differences.
const minimumShouldMatch = "70%"

// ExactSearcher queries an Elasticsearch-compatible full-text index over
// plain JSON HTTP. Raw BM25 scores are normalized with score/(score+k).
type ExactSearcher struct {
	baseURL    string
	index      string
	normK      float64
	httpClient *http.Client
}

// NewExactSearcher builds the full-text adapter. timeout bounds every index
// call; normK <= 0 falls back to DefaultBM25NormK.
func NewExactSearcher(baseURL, index string, normK float64, timeout time.Duration) *ExactSearcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ExactSearcher{
		baseURL:    baseURL,
		index:      index,
		normK:      normK,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type esQuery struct {
	Size   int      `json:"size"`
	Query  esBool   `json:"query"`
	Source []string `json:"_source"`
}

type esBool struct {
	Bool struct {
		Must   esMatch `json:"must"`
		Filter esTerms `json:"filter"`
	} `json:"bool"`
}

type esMatch struct {
	Match struct {
		Text struct {
			Query              string `json:"query"`
			MinimumShouldMatch string `json:"minimum_should_match"`
		} `json:"text"`
	} `json:"match"`
}

type esTerms struct {
	Terms map[string][]string `json:"terms"`
}

type esResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64 `json:"_score"`
			Source struct {
				Text     string `json:"text"`
				Metadata struct {
					DocumentID      string `json:"document_id"`
					DocumentName    string `json:"document_name"`
					KnowledgeBaseID string `json:"knowledge_base_id"`
					KnowledgeBase   string `json:"knowledge_base"`
					Unit            string `json:"unit"`
					Index           int    `json:"index"`
					Offset          int    `json:"offset"`
					Length          int    `json:"length"`
				} `json:"metadata"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FindExact runs the full-text query filtered to the scope's knowledge bases.
// An empty scope short-circuits to no results without touching the index.
func (s *ExactSearcher) FindExact(ctx context.Context, text string, scope domain.ScopeSnapshot, topK int) ([]domain.MatchCandidate, error) {
	if scope.IsEmpty() {
		return nil, nil
	}

	q := esQuery{Size: topK, Source: []string{"text", "metadata"}}
	q.Query.Bool.Must.Match.Text.Query = text
	q.Query.Bool.Must.Match.Text.MinimumShouldMatch = minimumShouldMatch
	q.Query.Bool.Filter.Terms = map[string][]string{
		"metadata.knowledge_base_id": scope.KnowledgeBaseIDs,
	}

	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}

	var resp esResponse
	err = withRetry(ctx, 3, 200*time.Millisecond, func() error {
		return s.doSearch(ctx, body, &resp)
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.MatchCandidate, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		meta := hit.Source.Metadata
		length := meta.Length
		if length == 0 {
			length = len([]rune(hit.Source.Text))
		}
		candidates = append(candidates, domain.MatchCandidate{
			DocumentID:    meta.DocumentID,
			DocumentName:  meta.DocumentName,
			KnowledgeBase: meta.KnowledgeBase,
			Score:         NormalizeBM25(hit.Score, s.normK),
			Kind:          domain.MatchKindExact,
			Span: domain.Span{
				Unit:   spanUnitOrDefault(meta.Unit),
				Index:  meta.Index,
				Offset: meta.Offset,
				Length: length,
			},
			MatchedText: hit.Source.Text,
		})
	}
	return candidates, nil
}

func (s *ExactSearcher) doSearch(ctx context.Context, body []byte, out *esResponse) error {
	url := fmt.Sprintf("%s/%s/_search", s.baseURL, s.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("full-text index unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("full-text index returned %d: %s", resp.StatusCode, msg)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func spanUnitOrDefault(unit string) string {
	if unit == "" {
		return "page"
	}
	return unit
}
