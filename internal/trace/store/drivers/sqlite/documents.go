package sqlite

import (
	"context"

	"github.com/tracelight/tracelight/internal/trace/domain"
)

type documentsRepo struct {
	db dbtx
}

func (r *documentsRepo) CreateDocument(ctx context.Context, d domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, knowledge_base_id, name, kind, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.KnowledgeBaseID, d.Name, d.Kind, d.Content, d.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *documentsRepo) GetDocumentByID(ctx context.Context, id string) (domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, knowledge_base_id, name, kind, content, created_at
		FROM documents WHERE id = ?`, id)

	var d domain.Document
	if err := row.Scan(&d.ID, &d.KnowledgeBaseID, &d.Name, &d.Kind, &d.Content, &d.CreatedAt); err != nil {
		return domain.Document{}, mapNotFound(err)
	}
	return d, nil
}
