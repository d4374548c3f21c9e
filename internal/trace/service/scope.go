package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/store"
	"github.com/tracelight/tracelight/pkg/cryptox"
)

var ErrInvalidToken = errors.New("invalid_token")

// Principal identifies who a valid access token belongs to.
type Principal struct {
	UserID   string
	ClientID string
}

// ScopeService authenticates bearer tokens and resolves the caller's
// knowledge-base scope.
type ScopeService struct {
	Store store.Store
}

// Authenticate resolves an opaque access token to its principal. Expiry is
// checked at read time, so a lingering row past AccessExpiresAt is as dead as
// a missing one.
func (s *ScopeService) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	if accessToken == "" {
		return Principal{}, ErrInvalidToken
	}

	tok, err := s.Store.Tokens().GetTokenByAccessHash(ctx, cryptox.FingerprintToken(accessToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}

	now := time.Now().UTC()
	if tok.Revoked || now.After(tok.AccessExpiresAt) {
		return Principal{}, ErrInvalidToken
	}

	return Principal{UserID: tok.UserID, ClientID: tok.ClientID}, nil
}

// ResolveScope computes the union of the user's personal and organization
// knowledge bases as an immutable snapshot. Permission changes after this
// point don't touch the snapshot; the next request resolves a new one.
func (s *ScopeService) ResolveScope(ctx context.Context, userID string) (domain.ScopeSnapshot, error) {
	personal, err := s.Store.Knowledge().PersonalKnowledgeBaseIDs(ctx, userID)
	if err != nil {
		return domain.ScopeSnapshot{}, err
	}
	org, err := s.Store.Knowledge().OrganizationKnowledgeBaseIDs(ctx, userID)
	if err != nil {
		return domain.ScopeSnapshot{}, err
	}

	ids := make([]string, 0, len(personal)+len(org))
	ids = append(ids, personal...)
	ids = append(ids, org...)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	return domain.ScopeSnapshot{
		UserID:           userID,
		KnowledgeBaseIDs: ids,
	}, nil
}
