package sqlite

import (
	"context"

	"github.com/tracelight/tracelight/internal/trace/domain"
)

type knowledgeRepo struct {
	db dbtx
}

func (r *knowledgeRepo) CreateOrganization(ctx context.Context, o domain.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, created_at)
		VALUES (?, ?, ?)`,
		o.ID, o.Name, o.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *knowledgeRepo) AddOrganizationMember(ctx context.Context, orgID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organization_members (org_id, user_id)
		VALUES (?, ?)`,
		orgID, userID,
	)
	return mapConstraint(err)
}

func (r *knowledgeRepo) CreateKnowledgeBase(ctx context.Context, kb domain.KnowledgeBase) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO knowledge_bases (id, name, owner_user_id, org_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		kb.ID, kb.Name, mapOptionalString(kb.OwnerUserID), mapOptionalString(kb.OrgID), kb.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *knowledgeRepo) PersonalKnowledgeBaseIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM knowledge_bases
		WHERE owner_user_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *knowledgeRepo) OrganizationKnowledgeBaseIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kb.id
		FROM knowledge_bases kb
		JOIN organization_members m ON m.org_id = kb.org_id
		WHERE m.user_id = ?
		ORDER BY kb.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
