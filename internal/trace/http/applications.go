package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/service"
	"github.com/tracelight/tracelight/pkg/httpx"
	"github.com/tracelight/tracelight/pkg/slogx"
	"github.com/tracelight/tracelight/pkg/tracesdk"
)

// ApplicationsHandler serves the /v1/applications management endpoints. All
// routes run behind RequireAccessToken; the owner is the authenticated user.
type ApplicationsHandler struct {
	ApplicationService *service.ApplicationService
}

// HandleCreate registers a new OAuth application. The response is the only
// place the plaintext client secret ever appears.
func (h *ApplicationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req tracesdk.CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		tracesdk.ErrInvalidRequest.WithDetail("invalid JSON body").WriteError(w)
		return
	}

	app, secret, err := h.ApplicationService.CreateApplication(ctx, userIDFromContext(ctx), req.Name, req.RedirectURI)
	if err != nil {
		if errors.Is(err, service.ErrInvalidApplication) {
			tracesdk.ErrInvalidRequest.WithDetail("name and a valid absolute redirect_uri are required").WriteError(w)
			return
		}
		log.Error("application create failed", "err", err)
		tracesdk.ErrInternalError.WriteError(w)
		return
	}

	response := toSDKApplication(app)
	response.ClientSecret = secret

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, response)
}

// HandleList returns the caller's registered applications. Secrets are never
// included; only the Argon2id hash survives creation.
func (h *ApplicationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	apps, err := h.ApplicationService.ListApplications(ctx, userIDFromContext(ctx))
	if err != nil {
		log.Error("application list failed", "err", err)
		tracesdk.ErrInternalError.WriteError(w)
		return
	}

	response := tracesdk.ApplicationListResponse{
		Applications: make([]tracesdk.Application, 0, len(apps)),
		Total:        len(apps),
	}
	for _, app := range apps {
		response.Applications = append(response.Applications, toSDKApplication(app))
	}

	httpx.WriteJSON(w, http.StatusOK, response)
}

// HandleUpdate toggles the active flag on one of the caller's applications.
// Deactivation shuts the application out of the authorization flow without
// destroying its registration.
func (h *ApplicationsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	appID := r.PathValue("id")
	if appID == "" {
		tracesdk.ErrInvalidRequest.WithDetail("application id is required").WriteError(w)
		return
	}

	var req tracesdk.UpdateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		tracesdk.ErrInvalidRequest.WithDetail("invalid JSON body").WriteError(w)
		return
	}
	if req.Active == nil {
		tracesdk.ErrInvalidRequest.WithDetail("active is required").WriteError(w)
		return
	}

	app, err := h.ApplicationService.SetApplicationActive(ctx, userIDFromContext(ctx), appID, *req.Active)
	if err != nil {
		if errors.Is(err, service.ErrApplicationNotFound) {
			tracesdk.NewAPIError(http.StatusNotFound, "application_not_found", "the application does not exist").WriteError(w)
			return
		}
		log.Error("application update failed", "err", err)
		tracesdk.ErrInternalError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSDKApplication(app))
}

// HandleDelete removes one of the caller's applications. A foreign or unknown
// ID reports not-found either way.
func (h *ApplicationsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	appID := r.PathValue("id")
	if appID == "" {
		tracesdk.ErrInvalidRequest.WithDetail("application id is required").WriteError(w)
		return
	}

	err := h.ApplicationService.DeleteApplication(ctx, userIDFromContext(ctx), appID)
	if err != nil {
		if errors.Is(err, service.ErrApplicationNotFound) {
			tracesdk.NewAPIError(http.StatusNotFound, "application_not_found", "the application does not exist").WriteError(w)
			return
		}
		log.Error("application delete failed", "err", err)
		tracesdk.ErrInternalError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toSDKApplication(app domain.Application) tracesdk.Application {
	return tracesdk.Application{
		ID:          app.ID,
		Name:        app.Name,
		ClientID:    app.ClientID,
		RedirectURI: app.RedirectURI,
		Active:      app.Active,
		CreatedAt:   app.CreatedAt.UTC().Format(time.RFC3339),
	}
}
