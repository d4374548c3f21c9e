package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/store"
)

type tokensRepo struct {
	db dbtx
}

const tokenColumns = `id, user_id, client_id, access_token_hash, refresh_token_hash,
	access_expires_at, refresh_expires_at, refresh_consumed_at, revoked, created_at`

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens
			(id, user_id, client_id, access_token_hash, refresh_token_hash,
			 access_expires_at, refresh_expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.ClientID, t.AccessTokenHash, t.RefreshTokenHash,
		t.AccessExpiresAt, t.RefreshExpiresAt, t.Revoked, t.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetTokenByAccessHash(ctx context.Context, hash string) (domain.Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens WHERE access_token_hash = ?`, hash)
	return scanToken(row)
}

// ConsumeRefreshToken marks the refresh side consumed in one conditional
// UPDATE. Same single-winner contract as authorization code redemption; the
// access token on the old row is untouched and ages out on its own expiry.
func (r *tokensRepo) ConsumeRefreshToken(ctx context.Context, refreshHash string, now time.Time) (domain.Token, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE tokens
		SET refresh_consumed_at = ?
		WHERE refresh_token_hash = ?
		  AND refresh_consumed_at IS NULL
		  AND revoked = 0
		  AND refresh_expires_at > ?
		RETURNING `+tokenColumns,
		now, refreshHash, now,
	)
	return scanToken(row)
}

func (r *tokensRepo) RevokeToken(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tokens SET revoked = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM tokens WHERE refresh_expires_at <= ?`, now)
	return err
}

func scanToken(row interface{ Scan(...any) error }) (domain.Token, error) {
	var (
		t        domain.Token
		consumed sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &t.UserID, &t.ClientID, &t.AccessTokenHash, &t.RefreshTokenHash,
		&t.AccessExpiresAt, &t.RefreshExpiresAt, &consumed, &t.Revoked, &t.CreatedAt,
	); err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	t.RefreshConsumedAt = mapNullTimePtr(consumed)
	return t, nil
}
