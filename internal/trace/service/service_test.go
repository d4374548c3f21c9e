package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/store"
	"github.com/tracelight/tracelight/internal/trace/store/drivers/sqlite"
	"github.com/tracelight/tracelight/pkg/cryptox"
	"github.com/tracelight/tracelight/pkg/idx"
)

// newTestStore opens a migrated store backed by a per-test database file so
// concurrent access inside a test sees one shared database.
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "trace.db") + "?_pragma=busy_timeout(10000)"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedUser(t *testing.T, st store.Store, username, password string) domain.User {
	t.Helper()

	hash, err := cryptox.HashSecret(password)
	require.NoError(t, err)

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))
	return user
}

// seedApplication registers an active application and returns it together with
// the plaintext client secret.
func seedApplication(t *testing.T, st store.Store, ownerUserID, redirectURI string) (domain.Application, string) {
	t.Helper()

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	secretHash, err := cryptox.HashSecret(secret)
	require.NoError(t, err)

	clientID, err := cryptox.GenerateToken(cryptox.TokenSize128)
	require.NoError(t, err)

	now := time.Now().UTC()
	app := domain.Application{
		ID:          idx.New().String(),
		Name:        "test-app",
		ClientID:    clientID,
		SecretHash:  secretHash,
		RedirectURI: redirectURI,
		OwnerUserID: ownerUserID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, st.Applications().CreateApplication(context.Background(), app))
	return app, secret
}

func seedPersonalKnowledgeBase(t *testing.T, st store.Store, userID, name string) domain.KnowledgeBase {
	t.Helper()

	kb := domain.KnowledgeBase{
		ID:          idx.New().String(),
		Name:        name,
		OwnerUserID: &userID,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.Knowledge().CreateKnowledgeBase(context.Background(), kb))
	return kb
}
