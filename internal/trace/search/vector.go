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

// SemanticSearcher embeds the query text and runs a nearest-neighbour search
// against the vector index over JSON HTTP. Similarities arrive as cosine
// scores and are clamped into [0,1].
type SemanticSearcher struct {
	baseURL    string
	collection string
	embedder   Embedder
	httpClient *http.Client
}

// NewSemanticSearcher builds the vector adapter.
func NewSemanticSearcher(baseURL, collection string, embedder Embedder, timeout time.Duration) *SemanticSearcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SemanticSearcher{
		baseURL:    baseURL,
		collection: collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type vectorQuery struct {
	Vector           []float32 `json:"vector"`
	TopK             int       `json:"top_k"`
	KnowledgeBaseIDs []string  `json:"knowledge_base_ids"`
}

type vectorResponse struct {
	Results []struct {
		DocumentID      string  `json:"document_id"`
		DocumentName    string  `json:"document_name"`
		KnowledgeBaseID string  `json:"knowledge_base_id"`
		KnowledgeBase   string  `json:"knowledge_base"`
		Score           float64 `json:"score"`
		Text            string  `json:"text"`
		Location        struct {
			Unit   string `json:"unit"`
			Index  int    `json:"index"`
			Offset int    `json:"offset"`
			Length int    `json:"length"`
		} `json:"location"`
	} `json:"results"`
}

// FindSemantic embeds the text, then queries the vector index filtered to the
// scope's knowledge bases. Embedding happens once per call, not per retry.
func (s *SemanticSearcher) FindSemantic(ctx context.Context, text string, scope domain.ScopeSnapshot, topK int) ([]domain.MatchCandidate, error) {
	if scope.IsEmpty() {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query text: %w", err)
	}

	body, err := json.Marshal(vectorQuery{
		Vector:           vector,
		TopK:             topK,
		KnowledgeBaseIDs: scope.KnowledgeBaseIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("encode vector query: %w", err)
	}

	var resp vectorResponse
	err = withRetry(ctx, 3, 200*time.Millisecond, func() error {
		return s.doSearch(ctx, body, &resp)
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.MatchCandidate, 0, len(resp.Results))
	for _, hit := range resp.Results {
		length := hit.Location.Length
		if length == 0 {
			length = len([]rune(hit.Text))
		}
		candidates = append(candidates, domain.MatchCandidate{
			DocumentID:    hit.DocumentID,
			DocumentName:  hit.DocumentName,
			KnowledgeBase: hit.KnowledgeBase,
			Score:         Clamp01(hit.Score),
			Kind:          domain.MatchKindSemantic,
			Span: domain.Span{
				Unit:   spanUnitOrDefault(hit.Location.Unit),
				Index:  hit.Location.Index,
				Offset: hit.Location.Offset,
				Length: length,
			},
			MatchedText: hit.Text,
		})
	}
	return candidates, nil
}

func (s *SemanticSearcher) doSearch(ctx context.Context, body []byte, out *vectorResponse) error {
	url := fmt.Sprintf("%s/collections/%s/search", s.baseURL, s.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create vector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vector index unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("vector index returned %d: %s", resp.StatusCode, msg)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
