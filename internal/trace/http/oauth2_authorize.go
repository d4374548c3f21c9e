package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/tracelight/tracelight/internal/trace/service"
	"github.com/tracelight/tracelight/pkg/httpx"
	"github.com/tracelight/tracelight/pkg/slogx"
	"github.com/tracelight/tracelight/pkg/tracesdk"
)

// AuthorizeHandler serves GET and POST /oauth/authorize, the user-facing half
// of the authorization-code flow.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
}

// HandleGet validates the client and describes the consent prompt. The caller
// is expected to render a login form and POST it back with the same query
// parameters plus credentials and an approve flag.
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clientID := r.URL.Query().Get("client_id")
	redirectURI := r.URL.Query().Get("redirect_uri")
	state := r.URL.Query().Get("state")

	app, err := h.AuthorizeService.ValidateClient(ctx, clientID, redirectURI)
	if err != nil {
		h.handleAuthorizeError(w, r, err, "", "")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "login_required",
		"client_name":  app.Name,
		"client_id":    app.ClientID,
		"redirect_uri": app.RedirectURI,
		"state":        state,
	})
}

// HandlePost authenticates the resource owner and, on approval, redirects back
// to the client with a single-use authorization code.
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		tracesdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	req := service.AuthorizeRequest{
		ClientID:    r.Form.Get("client_id"),
		RedirectURI: r.Form.Get("redirect_uri"),
		State:       r.Form.Get("state"),
		Username:    r.Form.Get("username"),
		Password:    r.Form.Get("password"),
		Approve:     r.Form.Get("approve") == "true",
	}

	result, err := h.AuthorizeService.Authorize(ctx, req)
	if err != nil {
		h.handleAuthorizeError(w, r, err, req.RedirectURI, req.State)
		return
	}

	http.Redirect(w, r, buildAuthorizeRedirect(result), http.StatusFound)
}

// handleAuthorizeError maps service failures onto the flow's two error
// channels. Client identity problems are answered directly so a forged
// redirect_uri never receives anything; a denial from an authenticated user
// goes back to the registered redirect URI with the state echoed verbatim.
func (h *AuthorizeHandler) handleAuthorizeError(w http.ResponseWriter, r *http.Request, err error, redirectURI, state string) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrInvalidClient):
		tracesdk.ErrInvalidClient.WriteError(w)

	case errors.Is(err, service.ErrRedirectURIMismatch):
		tracesdk.ErrInvalidRequest.WithDetail("redirect_uri does not match the registered value").WriteError(w)

	case errors.Is(err, service.ErrInvalidCredentials):
		tracesdk.ErrAccessDenied.WithDetail("invalid username or password").WriteError(w)

	case errors.Is(err, service.ErrAuthorizationDenied):
		http.Redirect(w, r, buildErrorRedirect(redirectURI, tracesdk.ErrorCodeAccessDenied, state), http.StatusFound)

	default:
		log.Error("authorize failed", "err", err)
		tracesdk.ErrInternalError.WriteError(w)
	}
}

// buildAuthorizeRedirect appends code and state to the registered redirect
// URI, preserving any query parameters the client registered.
func buildAuthorizeRedirect(result *service.AuthorizeResult) string {
	u, err := url.Parse(result.RedirectURI)
	if err != nil {
		return result.RedirectURI
	}

	q := u.Query()
	q.Set("code", result.Code)
	if result.State != "" {
		q.Set("state", result.State)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// buildErrorRedirect sends an RFC 6749 error response back to the registered
// redirect URI. Only used once the client and redirect URI have validated.
func buildErrorRedirect(redirectURI, code, state string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}

	q := u.Query()
	q.Set("error", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
