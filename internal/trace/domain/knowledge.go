package domain

import (
	"slices"
	"time"
)

// KnowledgeBase is a document collection. It belongs either to a single user
// or to an organization (exactly one of the two owner fields is set).
type KnowledgeBase struct {
	ID          string
	Name        string
	OwnerUserID *string
	OrgID       *string
	CreatedAt   time.Time
}

// Organization groups users that share organization-owned knowledge bases.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ScopeSnapshot is the immutable set of knowledge-base IDs a user could read
// at resolution time. Later permission changes never mutate a snapshot; the
// next request resolves a fresh one.
type ScopeSnapshot struct {
	UserID           string
	KnowledgeBaseIDs []string // sorted, deduplicated
}

// IsEmpty reports whether the snapshot grants access to nothing.
func (s ScopeSnapshot) IsEmpty() bool { return len(s.KnowledgeBaseIDs) == 0 }

// Contains reports whether the snapshot covers the given knowledge base.
func (s ScopeSnapshot) Contains(kbID string) bool {
	_, found := slices.BinarySearch(s.KnowledgeBaseIDs, kbID)
	return found
}
