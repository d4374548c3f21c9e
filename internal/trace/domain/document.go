package domain

import "time"

// Document is a stored source document inside a knowledge base. Content holds
// the extracted text used by the preview page; the indexed representations
// live in the external search and vector stores.
type Document struct {
	ID              string
	KnowledgeBaseID string
	Name            string
	Kind            string // e.g. "pdf", "txt", "xlsx"
	Content         string
	CreatedAt       time.Time
}
