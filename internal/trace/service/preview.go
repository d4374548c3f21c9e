package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/store"
	"github.com/tracelight/tracelight/pkg/idx"
	"github.com/tracelight/tracelight/pkg/obs"
)

// DefaultPreviewTTL is how long a preview token stays redeemable.
const DefaultPreviewTTL = 30 * time.Minute

// MaxHighlightRunes caps the total highlighted length a token may carry.
const MaxHighlightRunes = 2000

var (
	ErrPreviewNotFound    = errors.New("preview_token_not_found")
	ErrPreviewExpired     = errors.New("preview_token_expired")
	ErrPreviewAlreadyUsed = errors.New("preview_token_already_used")
)

// PreviewService mints and redeems single-use preview tokens. The token is a
// self-verifying HS256 JWT carrying the grant; single use is enforced by
// recording the jti in a primary-keyed table at redemption time. Signature
// and expiry failures are distinguishable from replay without a DB row per
// issued token.
type PreviewService struct {
	Store  store.Store
	Secret []byte
	TTL    time.Duration
}

type previewClaims struct {
	jwt.RegisteredClaims
	DocumentID string        `json:"doc"`
	Highlights []domain.Span `json:"hl,omitempty"`
}

func (s *PreviewService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultPreviewTTL
}

// Issue mints a preview token for the grant.
func (s *PreviewService) Issue(ctx context.Context, grant domain.PreviewGrant) (string, error) {
	now := time.Now().UTC()

	grant.Highlights = capHighlights(grant.Highlights, MaxHighlightRunes)

	claims := previewClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        idx.New().String(),
			Subject:   grant.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
		},
		DocumentID: grant.DocumentID,
		Highlights: grant.Highlights,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", err
	}

	obs.PreviewTokensIssued.Inc()
	return token, nil
}

// Redeem verifies and consumes a preview token, returning the grant it
// carried. Bad signature or garbage → ErrPreviewNotFound; valid but past
// expiry → ErrPreviewExpired; valid but consumed before → ErrPreviewAlreadyUsed.
func (s *PreviewService) Redeem(ctx context.Context, token string) (domain.PreviewGrant, error) {
	claims := &previewClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			obs.PreviewTokenRedemptions.WithLabelValues("expired").Inc()
			return domain.PreviewGrant{}, ErrPreviewExpired
		}
		obs.PreviewTokenRedemptions.WithLabelValues("invalid").Inc()
		return domain.PreviewGrant{}, ErrPreviewNotFound
	}

	if claims.ID == "" || claims.DocumentID == "" {
		obs.PreviewTokenRedemptions.WithLabelValues("invalid").Inc()
		return domain.PreviewGrant{}, ErrPreviewNotFound
	}

	err = s.Store.PreviewConsumptions().ConsumePreviewJTI(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			obs.PreviewTokenRedemptions.WithLabelValues("already_used").Inc()
			return domain.PreviewGrant{}, ErrPreviewAlreadyUsed
		}
		return domain.PreviewGrant{}, err
	}

	obs.PreviewTokenRedemptions.WithLabelValues("ok").Inc()
	return domain.PreviewGrant{
		DocumentID: claims.DocumentID,
		UserID:     claims.Subject,
		Highlights: claims.Highlights,
	}, nil
}

// capHighlights trims span lengths so the summed highlight budget stays
// within limit, dropping spans entirely once it's exhausted.
func capHighlights(spans []domain.Span, limit int) []domain.Span {
	out := make([]domain.Span, 0, len(spans))
	remaining := limit
	for _, sp := range spans {
		if remaining <= 0 {
			break
		}
		if sp.Length > remaining {
			sp.Length = remaining
		}
		remaining -= sp.Length
		out = append(out, sp)
	}
	return out
}
