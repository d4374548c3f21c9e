package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/service"
	"github.com/tracelight/tracelight/pkg/httpx"
	"github.com/tracelight/tracelight/pkg/slogx"
	"github.com/tracelight/tracelight/pkg/tracesdk"
)

// extractBearerToken pulls the opaque access token out of the Authorization
// header. Returns "" when the header is missing or not a Bearer credential.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAccessToken authenticates the bearer token and resolves the caller's
// knowledge-base scope before the wrapped handler runs. The principal and the
// scope snapshot land in the request context under the httpx keys.
func RequireAccessToken(scopes *service.ScopeService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			token := extractBearerToken(r)
			if token == "" {
				tracesdk.ErrInvalidToken.WriteError(w)
				return
			}

			principal, err := scopes.Authenticate(ctx, token)
			if err != nil {
				tracesdk.ErrInvalidToken.WriteError(w)
				return
			}

			snapshot, err := scopes.ResolveScope(ctx, principal.UserID)
			if err != nil {
				log.Error("scope resolution failed", "err", err)
				tracesdk.ErrInternalError.WriteError(w)
				return
			}

			ctx = context.WithValue(ctx, httpx.CtxKeyUserID, principal.UserID)
			ctx = context.WithValue(ctx, httpx.CtxKeyClientID, principal.ClientID)
			ctx = context.WithValue(ctx, httpx.CtxKeyScope, snapshot)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userIDFromContext returns the authenticated user's ID, or "" when the
// request never passed through RequireAccessToken.
func userIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(httpx.CtxKeyUserID).(string); ok {
		return userID
	}
	return ""
}

// scopeFromContext returns the resolved scope snapshot for the request.
func scopeFromContext(ctx context.Context) domain.ScopeSnapshot {
	if snapshot, ok := ctx.Value(httpx.CtxKeyScope).(domain.ScopeSnapshot); ok {
		return snapshot
	}
	return domain.ScopeSnapshot{}
}
