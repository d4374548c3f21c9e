package sqlite

import (
	"context"
	"time"
)

type previewConsumptionsRepo struct {
	db dbtx
}

// ConsumePreviewJTI inserts the token ID into a primary-keyed table. The
// second attempt violates the primary key and surfaces store.ErrAlreadyExists,
// which is the whole single-use mechanism.
func (r *previewConsumptionsRepo) ConsumePreviewJTI(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preview_consumptions (jti, expires_at, consumed_at)
		VALUES (?, ?, ?)`,
		jti, expiresAt, time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *previewConsumptionsRepo) DeleteExpiredPreviewJTIs(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM preview_consumptions WHERE expires_at <= ?`, now)
	return err
}
