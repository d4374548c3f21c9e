package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/search"
	"github.com/tracelight/tracelight/pkg/slogx"
)

// Ranker defaults. The boost and normalization constants are configuration,
// not merge logic; see app config.
const (
	DefaultTopK           = 10
	DefaultThreshold      = 0.7
	DefaultExactBoost     = 0.1
	DefaultMatcherTimeout = 10 * time.Second

	// MaxSnippetRunes caps matched_text in responses.
	MaxSnippetRunes = 500
)

var (
	ErrInvalidQuery       = errors.New("invalid_query")
	ErrMatcherUnavailable = errors.New("matcher_unavailable")
)

// MatchQuery is a validated-on-entry trace request.
type MatchQuery struct {
	Text      string
	Mode      domain.MatchMode
	TopK      int
	Threshold float64
}

// RankerService merges exact and semantic candidates into one ranked list.
//
// In hybrid mode the exact matcher runs first; the semantic matcher is only
// invoked when exact results can't fill topK, and then only for the
// remainder. Exact candidates get ExactBoost added before threshold filtering
// (BoostAfterFilter flips that ordering for deployments that want the
// alternative reading).
type RankerService struct {
	Exact    search.ExactMatcher
	Semantic search.SemanticMatcher

	ExactBoost       float64
	BoostAfterFilter bool
	MatcherTimeout   time.Duration
}

// Match validates the query, runs the matchers the mode calls for, and
// returns the deterministic merged ranking. Validation failures surface as
// ErrInvalidQuery before any matcher or storage call.
func (s *RankerService) Match(ctx context.Context, q MatchQuery, scope domain.ScopeSnapshot) ([]domain.MatchCandidate, error) {
	if err := s.validate(q); err != nil {
		return nil, err
	}

	// Empty scope is a valid answer, not an error.
	if scope.IsEmpty() {
		return nil, nil
	}

	var (
		exact, semantic []domain.MatchCandidate
		err             error
	)

	switch q.Mode {
	case domain.MatchModeExact:
		exact, err = s.findExact(ctx, q, scope)
		if err != nil {
			return nil, err
		}

	case domain.MatchModeSemantic:
		semantic, err = s.findSemantic(ctx, q, scope, q.TopK)
		if err != nil {
			return nil, err
		}

	case domain.MatchModeHybrid:
		exact, err = s.findExact(ctx, q, scope)
		if err != nil {
			return nil, err
		}
		// Exact results that already fill topK short-circuit the semantic
		// matcher entirely.
		if len(exact) < q.TopK {
			semantic, err = s.findSemantic(ctx, q, scope, q.TopK-len(exact))
			if err != nil {
				return nil, err
			}
		} else {
			slogx.FromContext(ctx).Debug("semantic matcher skipped",
				"exact_candidates", len(exact),
				"top_k", q.TopK,
			)
		}
	}

	boost := s.ExactBoost
	if q.Mode != domain.MatchModeHybrid {
		boost = 0
	}

	merged := s.merge(exact, semantic, boost, q.Threshold)
	if len(merged) > q.TopK {
		merged = merged[:q.TopK]
	}

	for i := range merged {
		merged[i].MatchedText = truncateRunes(merged[i].MatchedText, MaxSnippetRunes)
	}
	return merged, nil
}

func (s *RankerService) validate(q MatchQuery) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidQuery)
	}
	if q.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidQuery)
	}
	if q.Threshold < 0 || q.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be within [0,1]", ErrInvalidQuery)
	}
	switch q.Mode {
	case domain.MatchModeExact, domain.MatchModeSemantic, domain.MatchModeHybrid:
		return nil
	default:
		return fmt.Errorf("%w: unknown match mode %q", ErrInvalidQuery, q.Mode)
	}
}

func (s *RankerService) findExact(ctx context.Context, q MatchQuery, scope domain.ScopeSnapshot) ([]domain.MatchCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.matcherTimeout())
	defer cancel()

	out, err := s.Exact.FindExact(ctx, q.Text, scope, q.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatcherUnavailable, err)
	}
	return out, nil
}

func (s *RankerService) findSemantic(ctx context.Context, q MatchQuery, scope domain.ScopeSnapshot, topK int) ([]domain.MatchCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.matcherTimeout())
	defer cancel()

	out, err := s.Semantic.FindSemantic(ctx, q.Text, scope, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatcherUnavailable, err)
	}
	return out, nil
}

func (s *RankerService) matcherTimeout() time.Duration {
	if s.MatcherTimeout > 0 {
		return s.MatcherTimeout
	}
	return DefaultMatcherTimeout
}

// merge boosts, filters, dedupes and sorts. The ordering rules are fully
// deterministic: score desc, then document id asc, then span position asc.
func (s *RankerService) merge(exact, semantic []domain.MatchCandidate, boost, threshold float64) []domain.MatchCandidate {
	candidates := make([]domain.MatchCandidate, 0, len(exact)+len(semantic))
	candidates = append(candidates, exact...)
	candidates = append(candidates, semantic...)

	applyBoost := func() {
		for i := range candidates {
			if candidates[i].Kind == domain.MatchKindExact {
				candidates[i].Score = min(candidates[i].Score+boost, 1.0)
			}
		}
	}
	applyThreshold := func() {
		kept := candidates[:0]
		for _, c := range candidates {
			// Boundary inclusive: a score exactly at threshold stays.
			if c.Score >= threshold {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}

	if s.BoostAfterFilter {
		applyThreshold()
		applyBoost()
	} else {
		applyBoost()
		applyThreshold()
	}

	candidates = dedupe(candidates)

	slices.SortStableFunc(candidates, func(a, b domain.MatchCandidate) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a.DocumentID, b.DocumentID); c != 0 {
			return c
		}
		if a.Span.Index != b.Span.Index {
			return a.Span.Index - b.Span.Index
		}
		return a.Span.Offset - b.Span.Offset
	})

	return candidates
}

// dedupe collapses candidates that point at the same document with
// overlapping spans. Exact beats semantic; otherwise the higher score stays.
func dedupe(candidates []domain.MatchCandidate) []domain.MatchCandidate {
	out := make([]domain.MatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		replaced := false
		duplicate := false
		for i, kept := range out {
			if kept.DocumentID != c.DocumentID || !kept.Span.Overlaps(c.Span) {
				continue
			}
			if betterCandidate(c, kept) {
				out[i] = c
				replaced = true
			}
			duplicate = true
			break
		}
		if !duplicate && !replaced {
			out = append(out, c)
		}
	}
	return out
}

func betterCandidate(a, b domain.MatchCandidate) bool {
	if a.Kind != b.Kind {
		return a.Kind == domain.MatchKindExact
	}
	return a.Score > b.Score
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
