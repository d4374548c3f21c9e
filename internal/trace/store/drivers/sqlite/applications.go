package sqlite

import (
	"context"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/store"
)

type applicationsRepo struct {
	db dbtx
}

const applicationColumns = `id, name, client_id, secret_hash, redirect_uri, owner_user_id, active, created_at, updated_at`

func (r *applicationsRepo) CreateApplication(ctx context.Context, a domain.Application) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.ClientID, a.SecretHash, a.RedirectURI,
		a.OwnerUserID, a.Active, a.CreatedAt, a.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *applicationsRepo) GetApplicationByClientID(ctx context.Context, clientID string) (domain.Application, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications WHERE client_id = ?`, clientID)
	return scanApplication(row)
}

func (r *applicationsRepo) GetApplicationByID(ctx context.Context, id string) (domain.Application, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications WHERE id = ?`, id)
	return scanApplication(row)
}

func (r *applicationsRepo) ListApplicationsByOwner(ctx context.Context, ownerUserID string) ([]domain.Application, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE owner_user_id = ?
		ORDER BY created_at DESC, id DESC`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		var a domain.Application
		if err := rows.Scan(
			&a.ID, &a.Name, &a.ClientID, &a.SecretHash, &a.RedirectURI,
			&a.OwnerUserID, &a.Active, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

func (r *applicationsRepo) SetApplicationActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE applications SET active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *applicationsRepo) DeleteApplication(ctx context.Context, id, ownerUserID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM applications WHERE id = ? AND owner_user_id = ?`, id, ownerUserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// scanApplication reads a single application row from QueryRowContext.
func scanApplication(row interface{ Scan(...any) error }) (domain.Application, error) {
	var a domain.Application
	if err := row.Scan(
		&a.ID, &a.Name, &a.ClientID, &a.SecretHash, &a.RedirectURI,
		&a.OwnerUserID, &a.Active, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return domain.Application{}, mapNotFound(err)
	}
	return a, nil
}
