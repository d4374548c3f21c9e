package tracesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a small HTTP client for the trace service. It covers the OAuth
// token endpoints, application management and the text-trace call; the
// authorize redirect flow is browser-driven and not wrapped here.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a trace service client with a sane default timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AuthorizationCodeGrant exchanges an authorization code for a token pair.
func (c *Client) AuthorizationCodeGrant(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI string,
) (*TokenResponse, error) {
	return c.requestToken(ctx, TokenRequest{
		GrantType:    "authorization_code",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         code,
		RedirectURI:  redirectURI,
	})
}

// RefreshGrant rotates a refresh token into a fresh token pair.
func (c *Client) RefreshGrant(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
) (*TokenResponse, error) {
	return c.requestToken(ctx, TokenRequest{
		GrantType:    "refresh_token",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
	})
}

// TextTrace runs a provenance query with the given bearer access token.
func (c *Client) TextTrace(
	ctx context.Context,
	accessToken string,
	req TextTraceRequest,
) (*TextTraceResponse, error) {
	var out TextTraceResponse
	if err := c.doJSON(ctx, http.MethodPost, "/open/text-trace", accessToken, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateApplication registers a new OAuth application. The returned
// Application carries the client secret exactly once.
func (c *Client) CreateApplication(
	ctx context.Context,
	accessToken string,
	req CreateApplicationRequest,
) (*Application, error) {
	var out Application
	if err := c.doJSON(ctx, http.MethodPost, "/v1/applications", accessToken, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateApplication toggles an application's active flag. A deactivated
// application can no longer start the authorization flow.
func (c *Client) UpdateApplication(
	ctx context.Context,
	accessToken, appID string,
	req UpdateApplicationRequest,
) (*Application, error) {
	var out Application
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/applications/"+url.PathEscape(appID), accessToken, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListApplications lists the caller's registered applications.
func (c *Client) ListApplications(ctx context.Context, accessToken string) (*ApplicationListResponse, error) {
	var out ApplicationListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/applications", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteApplication removes one of the caller's applications.
func (c *Client) DeleteApplication(ctx context.Context, accessToken, appID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/applications/"+url.PathEscape(appID), accessToken, nil, nil)
}

func (c *Client) requestToken(ctx context.Context, tokenReq TokenRequest) (*TokenResponse, error) {
	var tokenResp TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/oauth/token", "", tokenReq, &tokenResp); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}

// doJSON issues a JSON request with optional bearer auth and decodes the
// response into out (which may be nil for empty responses).
func (c *Client) doJSON(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := parseErrorResponse(resp, respBody); err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
