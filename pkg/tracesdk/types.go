package tracesdk

// TokenRequest is the JSON body of POST /oauth/token. Form-encoded requests
// use the same field names.
type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenResponse is the successful response from POST /oauth/token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ErrorResponse is the error body shared by every endpoint (RFC 6749 shape
// on the OAuth endpoints, same shape everywhere else).
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Detail           string `json:"detail,omitempty"`
}

// TextTraceRequest is the body of POST /open/text-trace.
type TextTraceRequest struct {
	Text      string   `json:"text"`
	MatchMode string   `json:"match_mode,omitempty"` // exact|semantic|hybrid, default hybrid
	TopK      *int     `json:"top_k,omitempty"`      // default 10
	Threshold *float64 `json:"threshold,omitempty"`  // default 0.7
}

// Match is a single provenance hit in a text-trace response.
type Match struct {
	DocumentID    string  `json:"document_id"`
	DocumentName  string  `json:"document_name"`
	KnowledgeBase string  `json:"knowledge_base"`
	Score         float64 `json:"score"`
	PreviewURL    string  `json:"preview_url"`
	MatchedText   string  `json:"matched_text"`
}

// TextTraceResponse is the body of a successful text-trace call.
type TextTraceResponse struct {
	Matches []Match `json:"matches"`
	Total   int     `json:"total"`
}

// CreateApplicationRequest registers a new OAuth application.
type CreateApplicationRequest struct {
	Name        string `json:"name"`
	RedirectURI string `json:"redirect_uri"`
}

// UpdateApplicationRequest toggles an application's active flag via
// PATCH /v1/applications/{id}.
type UpdateApplicationRequest struct {
	Active *bool `json:"active"`
}

// Application describes a registered OAuth application. ClientSecret is only
// populated in the create response; it is never returned again.
type Application struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	RedirectURI  string `json:"redirect_uri"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at"`
}

// ApplicationListResponse is the body of GET /v1/applications.
type ApplicationListResponse struct {
	Applications []Application `json:"applications"`
	Total        int           `json:"total"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
}
