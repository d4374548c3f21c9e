package domain

import "fmt"

// MatchMode selects which matchers a trace query runs.
type MatchMode string

const (
	MatchModeExact    MatchMode = "exact"
	MatchModeSemantic MatchMode = "semantic"
	MatchModeHybrid   MatchMode = "hybrid"
)

// ParseMatchMode validates a wire-format match mode. The empty string maps to
// the hybrid default.
func ParseMatchMode(s string) (MatchMode, error) {
	switch s {
	case "":
		return MatchModeHybrid, nil
	case string(MatchModeExact):
		return MatchModeExact, nil
	case string(MatchModeSemantic):
		return MatchModeSemantic, nil
	case string(MatchModeHybrid):
		return MatchModeHybrid, nil
	default:
		return "", fmt.Errorf("unknown match mode %q", s)
	}
}

// MatchKind says which matcher produced a candidate.
type MatchKind string

const (
	MatchKindExact    MatchKind = "exact"
	MatchKindSemantic MatchKind = "semantic"
)

// Span locates matched text within a document for highlight rendering.
type Span struct {
	Unit   string `json:"unit"`   // "page" for paginated docs, "sheet" for tabular
	Index  int    `json:"index"`  // page or sheet number, zero-based
	Offset int    `json:"offset"` // rune offset within the unit
	Length int    `json:"length"` // rune length of the highlighted text
}

// Overlaps reports whether two spans cover intersecting text in the same unit.
func (s Span) Overlaps(o Span) bool {
	if s.Unit != o.Unit || s.Index != o.Index {
		return false
	}
	return s.Offset < o.Offset+o.Length && o.Offset < s.Offset+s.Length
}

// MatchCandidate is a scored provenance hit from one of the matchers. Score
// is normalized to [0,1] before it reaches the ranker.
type MatchCandidate struct {
	DocumentID    string
	DocumentName  string
	KnowledgeBase string
	Score         float64
	Kind          MatchKind
	Span          Span
	MatchedText   string
}

// PreviewGrant is the payload a preview token carries: which document the
// holder may open once, and where to highlight.
type PreviewGrant struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
	Highlights []Span `json:"highlights"`
}
