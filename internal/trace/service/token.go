package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/store"
	"github.com/tracelight/tracelight/pkg/cryptox"
	"github.com/tracelight/tracelight/pkg/idx"
	"github.com/tracelight/tracelight/pkg/slogx"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 2 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidClient  = errors.New("invalid_client")
	ErrInvalidGrant   = errors.New("invalid_grant")
	ErrInvalidRefresh = errors.New("invalid_refresh_token")
)

// TokenService implements the token endpoint grants: authorization_code
// exchange and refresh rotation. Tokens are opaque random values; only their
// SHA-256 fingerprints are stored.
type TokenService struct {
	Store      store.Store
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return DefaultAccessTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return DefaultRefreshTTL
}

// ExchangeAuthorizationCode implements the OAuth2 authorization_code grant.
//
// Redemption is atomic: the store flips used_at in one conditional update, so
// a replayed or concurrently redeemed code loses with ErrInvalidGrant and the
// binding checks below can never double-issue.
func (s *TokenService) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI string,
) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	app, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	redirectURI = strings.TrimSpace(redirectURI)
	if code == "" || redirectURI == "" {
		return nil, ErrInvalidGrant
	}

	codeHash := cryptox.FingerprintToken(code)

	var result *domain.TokenPair

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		authCode, err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, codeHash, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		// Code must have been minted for this client and redirect URI.
		if authCode.ClientID != app.ClientID {
			return ErrInvalidGrant
		}
		if authCode.RedirectURI != redirectURI {
			return ErrInvalidGrant
		}

		result, err = s.issueTokens(ctx, tx, authCode.UserID, app.ClientID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.Info("authorization code exchanged", slog.String("client_id", app.ClientID))
	return result, nil
}

// ExchangeRefreshToken rotates a refresh token into a fresh pair.
//
// The old refresh token is consumed atomically (single winner under
// concurrency); the old access token is deliberately not revoked and ages out
// on its own expiry.
func (s *TokenService) ExchangeRefreshToken(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	app, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrInvalidRefresh
	}

	refreshHash := cryptox.FingerprintToken(refreshToken)

	var result *domain.TokenPair

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		old, err := tx.Tokens().ConsumeRefreshToken(ctx, refreshHash, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		if old.ClientID != app.ClientID {
			return ErrInvalidRefresh
		}

		result, err = s.issueTokens(ctx, tx, old.UserID, app.ClientID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.Info("refresh token rotated", slog.String("client_id", app.ClientID))
	return result, nil
}

// authenticateClient looks up an active application and verifies its secret.
// All failure shapes collapse into ErrInvalidClient so callers can't probe
// which part failed.
func (s *TokenService) authenticateClient(ctx context.Context, clientID, clientSecret string) (domain.Application, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || clientSecret == "" {
		return domain.Application{}, ErrInvalidClient
	}

	app, err := s.Store.Applications().GetApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Application{}, ErrInvalidClient
		}
		return domain.Application{}, err
	}
	if !app.Active {
		return domain.Application{}, ErrInvalidClient
	}
	if cryptox.VerifySecret(clientSecret, app.SecretHash) != nil {
		return domain.Application{}, ErrInvalidClient
	}
	return app, nil
}

// issueTokens mints a fresh opaque access/refresh pair inside the caller's
// transaction and stores only the fingerprints.
func (s *TokenService) issueTokens(ctx context.Context, tx store.Tx, userID, clientID string, now time.Time) (*domain.TokenPair, error) {
	accessToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	refreshToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	accessTTL := s.accessTTL()

	err = tx.Tokens().CreateToken(ctx, domain.Token{
		ID:               idx.New().String(),
		UserID:           userID,
		ClientID:         clientID,
		AccessTokenHash:  cryptox.FingerprintToken(accessToken),
		RefreshTokenHash: cryptox.FingerprintToken(refreshToken),
		AccessExpiresAt:  now.Add(accessTTL),
		RefreshExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt:        now,
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    accessTTL,
	}, nil
}
