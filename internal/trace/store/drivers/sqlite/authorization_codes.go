package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tracelight/tracelight/internal/trace/domain"
)

type authorizationCodesRepo struct {
	db dbtx
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_codes
			(id, user_id, client_id, code_hash, redirect_uri, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		code.ID, code.UserID, code.ClientID, code.CodeHash,
		code.RedirectURI, code.ExpiresAt, code.CreatedAt,
	)
	return mapConstraint(err)
}

// ConsumeAuthorizationCode flips used_at in a single conditional UPDATE so
// exactly one concurrent redeemer wins; everyone else sees zero rows and gets
// store.ErrNotFound.
func (r *authorizationCodesRepo) ConsumeAuthorizationCode(ctx context.Context, codeHash string, now time.Time) (domain.AuthorizationCode, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE authorization_codes
		SET used_at = ?
		WHERE code_hash = ? AND used_at IS NULL AND expires_at > ?
		RETURNING id, user_id, client_id, code_hash, redirect_uri, expires_at, used_at, created_at`,
		now, codeHash, now,
	)

	var (
		code   domain.AuthorizationCode
		usedAt sql.NullTime
	)
	if err := row.Scan(
		&code.ID, &code.UserID, &code.ClientID, &code.CodeHash,
		&code.RedirectURI, &code.ExpiresAt, &usedAt, &code.CreatedAt,
	); err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	code.UsedAt = mapNullTimePtr(usedAt)
	return code, nil
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM authorization_codes WHERE expires_at <= ?`, now)
	return err
}
