package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/store"
	"github.com/tracelight/tracelight/pkg/cryptox"
	"github.com/tracelight/tracelight/pkg/idx"
)

// mintCode runs the authorize flow end to end and returns a fresh code.
func mintCode(t *testing.T, st store.Store, app domain.Application, username, password string) string {
	t.Helper()

	svc := &AuthorizeService{Store: st}
	result, err := svc.Authorize(context.Background(), AuthorizeRequest{
		ClientID:    app.ClientID,
		RedirectURI: app.RedirectURI,
		Username:    username,
		Password:    password,
		Approve:     true,
	})
	require.NoError(t, err)
	return result.Code
}

func TestExchangeAuthorizationCode(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	user := seedUser(t, st, "alice", "hunter2 but longer")
	app, secret := seedApplication(t, st, user.ID, "https://app.example/callback")
	other, otherSecret := seedApplication(t, st, user.ID, "https://other.example/callback")

	svc := &TokenService{Store: st, AccessTTL: 2 * time.Hour, RefreshTTL: 7 * 24 * time.Hour}

	t.Run("valid exchange issues a bearer pair", func(t *testing.T) {
		code := mintCode(t, st, app, "alice", "hunter2 but longer")

		pair, err := svc.ExchangeAuthorizationCode(ctx, app.ClientID, secret, code, app.RedirectURI)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, "Bearer", pair.TokenType)
		require.Equal(t, 2*time.Hour, pair.ExpiresIn)
	})

	t.Run("replay fails with invalid grant", func(t *testing.T) {
		code := mintCode(t, st, app, "alice", "hunter2 but longer")

		_, err := svc.ExchangeAuthorizationCode(ctx, app.ClientID, secret, code, app.RedirectURI)
		require.NoError(t, err)

		_, err = svc.ExchangeAuthorizationCode(ctx, app.ClientID, secret, code, app.RedirectURI)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("wrong client secret fails closed", func(t *testing.T) {
		code := mintCode(t, st, app, "alice", "hunter2 but longer")

		_, err := svc.ExchangeAuthorizationCode(ctx, app.ClientID, "wrong-secret", code, app.RedirectURI)
		require.ErrorIs(t, err, ErrInvalidClient)
	})

	t.Run("code bound to issuing client", func(t *testing.T) {
		code := mintCode(t, st, app, "alice", "hunter2 but longer")

		_, err := svc.ExchangeAuthorizationCode(ctx, other.ClientID, otherSecret, code, other.RedirectURI)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("redirect URI must match the one the code was minted for", func(t *testing.T) {
		code := mintCode(t, st, app, "alice", "hunter2 but longer")

		_, err := svc.ExchangeAuthorizationCode(ctx, app.ClientID, secret, code, "https://evil.example/callback")
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("expired code fails with invalid grant", func(t *testing.T) {
		code, err := cryptox.GenerateToken(cryptox.TokenSize128)
		require.NoError(t, err)

		now := time.Now().UTC()
		require.NoError(t, st.AuthorizationCodes().CreateAuthorizationCode(ctx, domain.AuthorizationCode{
			ID:          idx.New().String(),
			UserID:      user.ID,
			ClientID:    app.ClientID,
			CodeHash:    cryptox.FingerprintToken(code),
			RedirectURI: app.RedirectURI,
			ExpiresAt:   now.Add(-time.Minute),
			CreatedAt:   now.Add(-10 * time.Minute),
		}))

		_, err = svc.ExchangeAuthorizationCode(ctx, app.ClientID, secret, code, app.RedirectURI)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})
}

func TestExchangeAuthorizationCodeSingleWinnerUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	user := seedUser(t, st, "alice", "hunter2 but longer")
	app, secret := seedApplication(t, st, user.ID, "https://app.example/callback")

	svc := &TokenService{Store: st}
	code := mintCode(t, st, app, "alice", "hunter2 but longer")

	const attempts = 8
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.ExchangeAuthorizationCode(ctx, app.ClientID, secret, code, app.RedirectURI)
		}()
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, ErrInvalidGrant)
		}
	}
	require.Equal(t, 1, winners)
}

func TestExchangeRefreshToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	user := seedUser(t, st, "alice", "hunter2 but longer")
	app, secret := seedApplication(t, st, user.ID, "https://app.example/callback")

	svc := &TokenService{Store: st, AccessTTL: 2 * time.Hour, RefreshTTL: 7 * 24 * time.Hour}
	scopes := &ScopeService{Store: st}

	exchange := func(t *testing.T) *domain.TokenPair {
		t.Helper()
		code := mintCode(t, st, app, "alice", "hunter2 but longer")
		pair, err := svc.ExchangeAuthorizationCode(ctx, app.ClientID, secret, code, app.RedirectURI)
		require.NoError(t, err)
		return pair
	}

	t.Run("rotation issues a fresh pair with full lifetime", func(t *testing.T) {
		pair := exchange(t)

		rotated, err := svc.ExchangeRefreshToken(ctx, app.ClientID, secret, pair.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, pair.AccessToken, rotated.AccessToken)
		require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
		require.Equal(t, 2*time.Hour, rotated.ExpiresIn)
	})

	t.Run("old access token keeps working until its own expiry", func(t *testing.T) {
		pair := exchange(t)

		_, err := svc.ExchangeRefreshToken(ctx, app.ClientID, secret, pair.RefreshToken)
		require.NoError(t, err)

		principal, err := scopes.Authenticate(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, principal.UserID)
	})

	t.Run("consumed refresh token cannot rotate again", func(t *testing.T) {
		pair := exchange(t)

		_, err := svc.ExchangeRefreshToken(ctx, app.ClientID, secret, pair.RefreshToken)
		require.NoError(t, err)

		_, err = svc.ExchangeRefreshToken(ctx, app.ClientID, secret, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("expired refresh token fails", func(t *testing.T) {
		refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)
		access, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)

		now := time.Now().UTC()
		require.NoError(t, st.Tokens().CreateToken(ctx, domain.Token{
			ID:               idx.New().String(),
			UserID:           user.ID,
			ClientID:         app.ClientID,
			AccessTokenHash:  cryptox.FingerprintToken(access),
			RefreshTokenHash: cryptox.FingerprintToken(refresh),
			AccessExpiresAt:  now.Add(-8 * 24 * time.Hour).Add(2 * time.Hour),
			RefreshExpiresAt: now.Add(-time.Hour),
			CreatedAt:        now.Add(-8 * 24 * time.Hour),
		}))

		_, err = svc.ExchangeRefreshToken(ctx, app.ClientID, secret, refresh)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("refresh token bound to issuing client", func(t *testing.T) {
		pair := exchange(t)
		otherApp, otherSecret := seedApplication(t, st, user.ID, "https://other2.example/callback")

		_, err := svc.ExchangeRefreshToken(ctx, otherApp.ClientID, otherSecret, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}
