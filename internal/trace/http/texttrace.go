package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/service"
	"github.com/tracelight/tracelight/pkg/httpx"
	"github.com/tracelight/tracelight/pkg/obs"
	"github.com/tracelight/tracelight/pkg/slogx"
	"github.com/tracelight/tracelight/pkg/tracesdk"
)

// TextTraceHandler serves POST /open/text-trace, the core provenance query.
type TextTraceHandler struct {
	RankerService  *service.RankerService
	PreviewService *service.PreviewService
}

func (h *TextTraceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req tracesdk.TextTraceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		tracesdk.ErrInvalidRequest.WithDetail("invalid JSON body").WriteError(w)
		return
	}

	query, apiErr := buildMatchQuery(req)
	if apiErr != nil {
		apiErr.WriteError(w)
		return
	}

	scope := scopeFromContext(ctx)
	userID := userIDFromContext(ctx)

	candidates, err := h.RankerService.Match(ctx, query, scope)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidQuery):
			tracesdk.ErrInvalidRequest.WithDetail(err.Error()).WriteError(w)
		case errors.Is(err, service.ErrMatcherUnavailable):
			log.Error("matcher unavailable", "err", err)
			tracesdk.ErrInternalError.WriteError(w)
		default:
			log.Error("text trace failed", "err", err)
			tracesdk.ErrInternalError.WriteError(w)
		}
		return
	}

	matches := make([]tracesdk.Match, 0, len(candidates))
	for _, c := range candidates {
		previewURL, err := h.mintPreviewURL(ctx, userID, c)
		if err != nil {
			log.Error("preview token mint failed", "err", err, "document_id", c.DocumentID)
			tracesdk.ErrInternalError.WriteError(w)
			return
		}

		matches = append(matches, tracesdk.Match{
			DocumentID:    c.DocumentID,
			DocumentName:  c.DocumentName,
			KnowledgeBase: c.KnowledgeBase,
			Score:         c.Score,
			PreviewURL:    previewURL,
			MatchedText:   c.MatchedText,
		})
	}

	obs.MatchesServed.WithLabelValues(string(query.Mode)).Add(float64(len(matches)))

	httpx.WriteJSON(w, http.StatusOK, tracesdk.TextTraceResponse{
		Matches: matches,
		Total:   len(matches),
	})
}

// mintPreviewURL issues a single-use preview token for one match and builds
// the relative URL the client opens to see the highlighted source. The
// highlight locator also rides in the URL as base64 JSON for client-side
// renderers; the server trusts only the copy inside the signed token.
func (h *TextTraceHandler) mintPreviewURL(ctx context.Context, userID string, c domain.MatchCandidate) (string, error) {
	highlights := []domain.Span{c.Span}

	token, err := h.PreviewService.Issue(ctx, domain.PreviewGrant{
		DocumentID: c.DocumentID,
		UserID:     userID,
		Highlights: highlights,
	})
	if err != nil {
		return "", err
	}

	locator, err := encodeHighlightLocator(highlights)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("/open/document/preview/%s?token=%s&highlight=%s",
		c.DocumentID, url.QueryEscape(token), locator), nil
}

// buildMatchQuery applies the wire defaults: hybrid mode, top_k 10, threshold
// 0.7. Out-of-range values are rejected here so bad input never reaches a
// matcher.
func buildMatchQuery(req tracesdk.TextTraceRequest) (service.MatchQuery, *tracesdk.APIError) {
	mode, err := domain.ParseMatchMode(req.MatchMode)
	if err != nil {
		return service.MatchQuery{}, tracesdk.ErrInvalidRequest.WithDetail("match_mode must be exact, semantic or hybrid")
	}

	topK := service.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK <= 0 {
		return service.MatchQuery{}, tracesdk.ErrInvalidRequest.WithDetail("top_k must be positive")
	}

	threshold := service.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return service.MatchQuery{}, tracesdk.ErrInvalidRequest.WithDetail("threshold must be within [0,1]")
	}

	return service.MatchQuery{
		Text:      req.Text,
		Mode:      mode,
		TopK:      topK,
		Threshold: threshold,
	}, nil
}
