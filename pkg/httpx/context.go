package httpx

type ctxKey string

const (
	// CtxKeyUserID holds the authenticated user's ID (string).
	CtxKeyUserID ctxKey = "user_id"
	// CtxKeyClientID holds the OAuth application client_id the token was
	// issued to (string).
	CtxKeyClientID ctxKey = "client_id"
	// CtxKeyScope holds the resolved knowledge-base scope snapshot. The
	// concrete type lives in the caller's domain package.
	CtxKeyScope ctxKey = "scope"
)
