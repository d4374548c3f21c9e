// Package search holds the adapters for the external matching collaborators:
// the full-text search index, the vector index and the embedding API. Each
// adapter normalizes scores into [0,1] before candidates reach the ranker, so
// merge logic never sees raw engine scores.
package search

import (
	"context"

	"github.com/tracelight/tracelight/internal/trace/domain"
)

// ExactMatcher finds verbatim/keyword provenance hits for a text within the
// caller's knowledge-base scope.
type ExactMatcher interface {
	FindExact(ctx context.Context, text string, scope domain.ScopeSnapshot, topK int) ([]domain.MatchCandidate, error)
}

// SemanticMatcher finds embedding-similarity hits for a text within the
// caller's knowledge-base scope.
type SemanticMatcher interface {
	FindSemantic(ctx context.Context, text string, scope domain.ScopeSnapshot, topK int) ([]domain.MatchCandidate, error)
}

// Embedder converts text into a dense vector for the semantic matcher.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
