package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/service"
	"github.com/tracelight/tracelight/pkg/httpx"
	"github.com/tracelight/tracelight/pkg/slogx"
	"github.com/tracelight/tracelight/pkg/tracesdk"
)

// TokenHandler serves POST /oauth/token.
// Accepts a JSON body or application/x-www-form-urlencoded per RFC 6749;
// both carry the same field names.
type TokenHandler struct {
	TokenService *service.TokenService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form, apiErr := parseTokenRequest(r)
	if apiErr != nil {
		apiErr.WriteError(w)
		return
	}

	switch form.Get("grant_type") {
	case "authorization_code":
		h.handleAuthorizationCodeGrant(w, r, form)
	case "refresh_token":
		h.handleRefreshGrant(w, r, form)
	default:
		tracesdk.ErrInvalidRequest.WithDetail("unsupported grant_type").WriteError(w)
	}
}

// parseTokenRequest normalizes both accepted body encodings into url.Values so
// the grant handlers only deal with one shape.
func parseTokenRequest(r *http.Request) (url.Values, *tracesdk.APIError) {
	ct := r.Header.Get("Content-Type")

	if strings.HasPrefix(ct, "application/json") {
		var req tracesdk.TokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, tracesdk.ErrInvalidRequest.WithDetail("invalid JSON body")
		}
		return url.Values{
			"grant_type":    {req.GrantType},
			"client_id":     {req.ClientID},
			"client_secret": {req.ClientSecret},
			"code":          {req.Code},
			"redirect_uri":  {req.RedirectURI},
			"refresh_token": {req.RefreshToken},
		}, nil
	}

	if ct != "" && !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		return nil, tracesdk.ErrInvalidRequest.WithDetail(
			"content type must be application/json or application/x-www-form-urlencoded")
	}

	if err := r.ParseForm(); err != nil {
		return nil, tracesdk.ErrInvalidFormBody
	}
	return r.Form, nil
}

func (h *TokenHandler) handleAuthorizationCodeGrant(w http.ResponseWriter, r *http.Request, form url.Values) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	code := strings.TrimSpace(form.Get("code"))
	redirectURI := strings.TrimSpace(form.Get("redirect_uri"))
	clientID := strings.TrimSpace(form.Get("client_id"))
	clientSecret := form.Get("client_secret")

	if code == "" || redirectURI == "" || clientID == "" {
		tracesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.ExchangeAuthorizationCode(ctx, clientID, clientSecret, code, redirectURI)
	if err != nil {
		h.writeGrantError(w, log, "authorization_code", err)
		return
	}

	h.writeTokenPair(w, pair)
}

func (h *TokenHandler) handleRefreshGrant(w http.ResponseWriter, r *http.Request, form url.Values) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	refresh := form.Get("refresh_token")
	clientID := strings.TrimSpace(form.Get("client_id"))
	clientSecret := form.Get("client_secret")

	if refresh == "" || clientID == "" {
		tracesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.ExchangeRefreshToken(ctx, clientID, clientSecret, refresh)
	if err != nil {
		h.writeGrantError(w, log, "refresh_token", err)
		return
	}

	h.writeTokenPair(w, pair)
}

// writeGrantError maps service sentinels onto the wire taxonomy. A replayed,
// expired or foreign authorization code answers 400 invalid_request; an
// expired or consumed refresh token answers 401 invalid_token so SDK clients
// fall back to a full re-authorization.
func (h *TokenHandler) writeGrantError(w http.ResponseWriter, log *slog.Logger, grantType string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidClient):
		tracesdk.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant):
		tracesdk.ErrInvalidRequest.WithDetail("the provided grant is invalid, expired or already used").WriteError(w)
	case errors.Is(err, service.ErrInvalidRefresh):
		tracesdk.ErrInvalidToken.WriteError(w)
	default:
		log.Error("token grant failed", "grant_type", grantType, "err", err)
		tracesdk.ErrInternalError.WriteError(w)
	}
}

func (h *TokenHandler) writeTokenPair(w http.ResponseWriter, pair *domain.TokenPair) {
	response := tracesdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}
