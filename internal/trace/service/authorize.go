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

// DefaultCodeTTL bounds how long an authorization code stays redeemable.
const DefaultCodeTTL = 5 * time.Minute

var (
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrRedirectURIMismatch = errors.New("redirect_uri_mismatch")
	ErrAuthorizationDenied = errors.New("authorization_denied")
)

// AuthorizeService implements the authorization half of the code flow:
// validate the client, authenticate the approving user, mint a single-use
// code.
type AuthorizeService struct {
	Store   store.Store
	CodeTTL time.Duration
}

// AuthorizeRequest carries the form parameters of an authorize attempt.
type AuthorizeRequest struct {
	ClientID    string
	RedirectURI string
	State       string
	Username    string
	Password    string
	Approve     bool
}

// AuthorizeResult is what the handler needs to build the success redirect.
type AuthorizeResult struct {
	Code        string
	RedirectURI string
	State       string
}

// ValidateClient checks that the client exists, is active and registered the
// exact redirect URI. Exact string match only; prefix or wildcard matching
// would reopen the open-redirect hole this exists to close.
//
// A mismatch must be answered directly to the caller, never redirected.
func (s *AuthorizeService) ValidateClient(ctx context.Context, clientID, redirectURI string) (domain.Application, error) {
	clientID = strings.TrimSpace(clientID)
	redirectURI = strings.TrimSpace(redirectURI)
	if clientID == "" || redirectURI == "" {
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
	if app.RedirectURI != redirectURI {
		return domain.Application{}, ErrRedirectURIMismatch
	}
	return app, nil
}

// Authorize authenticates the approving user and, on approval, issues a
// single-use authorization code bound to the client and redirect URI.
//
// Denial returns ErrAuthorizationDenied; the handler turns that into the
// error=access_denied redirect with the caller's state echoed verbatim.
func (s *AuthorizeService) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	app, err := s.ValidateClient(ctx, req.ClientID, req.RedirectURI)
	if err != nil {
		return nil, err
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if cryptox.VerifySecret(req.Password, user.PasswordHash) != nil {
		l.Info("authorize login failed", slog.String("client_id", app.ClientID))
		return nil, ErrInvalidCredentials
	}

	if !req.Approve {
		return nil, ErrAuthorizationDenied
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}

	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}

	err = s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, domain.AuthorizationCode{
		ID:          idx.New().String(),
		UserID:      user.ID,
		ClientID:    app.ClientID,
		CodeHash:    cryptox.FingerprintToken(code),
		RedirectURI: app.RedirectURI,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	l.Info("authorization code issued", slog.String("client_id", app.ClientID))

	return &AuthorizeResult{
		Code:        code,
		RedirectURI: app.RedirectURI,
		State:       req.State,
	}, nil
}
