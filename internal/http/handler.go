package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/dig"

	"github.com/davidbz/venicedesk/internal/catalog"
	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/observability"
)

const (
	contentTypeJSON = "application/json"
	maxBodySize     = 32 << 20
)

// HandlerParams are the handler's collaborators, resolved by dig.
type HandlerParams struct {
	dig.In

	Workspace   *domain.WorkspaceService
	Catalog     *catalog.Catalog
	Models      domain.CatalogProvider
	Characters  domain.CharacterProvider
	Account     domain.AccountProvider
	Stats       domain.StatsRecorder
	Advisor     domain.Advisor
	Credentials domain.CredentialStore
}

// Handler handles HTTP requests from the workspace UI.
type Handler struct {
	workspace   *domain.WorkspaceService
	catalog     *catalog.Catalog
	models      domain.CatalogProvider
	characters  domain.CharacterProvider
	account     domain.AccountProvider
	stats       domain.StatsRecorder
	advisor     domain.Advisor
	credentials domain.CredentialStore
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		workspace:   p.Workspace,
		catalog:     p.Catalog,
		models:      p.Models,
		characters:  p.Characters,
		account:     p.Account,
		stats:       p.Stats,
		advisor:     p.Advisor,
		credentials: p.Credentials,
	}
}

// envelope pairs a result with the metadata of the upstream response.
type envelope struct {
	Data     any                     `json:"data"`
	Metadata domain.ResponseMetadata `json:"metadata"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_, configured := h.credentials.Get()
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"credential_present": configured,
	})
}

// credential resolves the credential for one request: the caller's bearer
// token wins over the stored one.
func (h *Handler) credential(r *http.Request) domain.Credential {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			if token = strings.TrimSpace(token); token != "" {
				return domain.Credential(token)
			}
		}
	}

	cred, _ := h.credentials.Get()
	return cred
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", domain.ErrInvalidRequest, err)
	}
	return nil
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Status already written, can't change it, just log.
		observability.FromContext(ctx).Error("failed to encode response", observability.Error(err))
	}
}

func writeBinary(ctx context.Context, w http.ResponseWriter, content *domain.BinaryContent) {
	contentType := content.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content.Data); err != nil {
		observability.FromContext(ctx).Error("failed to write binary response", observability.Error(err))
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := classify(err)

	logger := observability.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", observability.Int("status", status), observability.Error(err))
	} else {
		logger.Warn("request rejected", observability.Int("status", status), observability.Error(err))
	}

	writeJSON(ctx, w, status, errorResponse{Error: message})
}

// classify maps an error onto the status and message returned to the UI.
// Upstream failures keep their status and message.
func classify(err error) (int, string) {
	var apiErr *domain.APIError
	var transportErr *domain.TransportError

	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return http.StatusUnauthorized, domain.ErrMissingCredential.Error()
	case errors.As(err, &apiErr):
		return apiErr.StatusCode, apiErr.Message
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream request timed out"
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, "upstream unreachable"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
