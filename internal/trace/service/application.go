package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/store"
	"github.com/tracelight/tracelight/pkg/cryptox"
	"github.com/tracelight/tracelight/pkg/idx"
)

var (
	ErrApplicationNotFound = errors.New("application_not_found")
	ErrInvalidApplication  = errors.New("invalid_application")
)

// ApplicationService manages OAuth application registrations.
type ApplicationService struct {
	Store store.Store
}

// CreateApplication registers a new application for ownerUserID and returns
// the record together with the plaintext client secret. This is the only
// moment the secret exists outside an Argon2id hash.
func (s *ApplicationService) CreateApplication(ctx context.Context, ownerUserID, name, redirectURI string) (domain.Application, string, error) {
	name = strings.TrimSpace(name)
	redirectURI = strings.TrimSpace(redirectURI)
	if name == "" {
		return domain.Application{}, "", ErrInvalidApplication
	}
	if err := validateRedirectURI(redirectURI); err != nil {
		return domain.Application{}, "", ErrInvalidApplication
	}

	clientID, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return domain.Application{}, "", err
	}
	clientSecret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Application{}, "", err
	}
	secretHash, err := cryptox.HashSecret(clientSecret)
	if err != nil {
		return domain.Application{}, "", err
	}

	now := time.Now().UTC()
	app := domain.Application{
		ID:          idx.New().String(),
		Name:        name,
		ClientID:    clientID,
		SecretHash:  secretHash,
		RedirectURI: redirectURI,
		OwnerUserID: ownerUserID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Store.Applications().CreateApplication(ctx, app); err != nil {
		return domain.Application{}, "", err
	}

	return app, clientSecret, nil
}

// ListApplications returns the owner's applications. Secret hashes stay in
// the domain objects; the HTTP layer never serializes them.
func (s *ApplicationService) ListApplications(ctx context.Context, ownerUserID string) ([]domain.Application, error) {
	return s.Store.Applications().ListApplicationsByOwner(ctx, ownerUserID)
}

// SetApplicationActive toggles the active flag on one of the owner's
// applications. A deactivated application fails client validation on both the
// authorize and token endpoints until it is reactivated. Foreign or unknown
// IDs report not-found, same as DeleteApplication.
func (s *ApplicationService) SetApplicationActive(ctx context.Context, ownerUserID, appID string, active bool) (domain.Application, error) {
	app, err := s.Store.Applications().GetApplicationByID(ctx, appID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Application{}, ErrApplicationNotFound
		}
		return domain.Application{}, err
	}
	if app.OwnerUserID != ownerUserID {
		return domain.Application{}, ErrApplicationNotFound
	}

	if err := s.Store.Applications().SetApplicationActive(ctx, appID, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Application{}, ErrApplicationNotFound
		}
		return domain.Application{}, err
	}

	app.Active = active
	app.UpdatedAt = time.Now().UTC()
	return app, nil
}

// DeleteApplication removes one of the owner's applications. Deleting someone
// else's application reports not-found rather than forbidden so application
// IDs can't be enumerated.
func (s *ApplicationService) DeleteApplication(ctx context.Context, ownerUserID, appID string) error {
	err := s.Store.Applications().DeleteApplication(ctx, appID, ownerUserID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrApplicationNotFound
	}
	return err
}

// validateRedirectURI requires an absolute http(s) URI with a host and no
// fragment, per RFC 6749 §3.1.2.
func validateRedirectURI(raw string) error {
	if raw == "" {
		return errors.New("redirect URI is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("redirect URI must be http or https")
	}
	if u.Host == "" {
		return errors.New("redirect URI must be absolute")
	}
	if u.Fragment != "" {
		return errors.New("redirect URI must not contain a fragment")
	}
	return nil
}
