package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/observability"
)

type statsResponse struct {
	Latest  *domain.StatsRecord  `json:"latest,omitempty"`
	History []domain.StatsRecord `json:"history"`
	Totals  domain.UsageTotals   `json:"totals"`
}

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

// HandleStats returns the latest record, the rolling window and the totals.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		History: h.stats.History(),
		Totals:  h.stats.Totals(),
	}
	if latest, ok := h.stats.Latest(); ok {
		resp.Latest = &latest
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

// HandleResetStats zeroes the totals. With ?history=true the window is
// cleared as well.
func (h *Handler) HandleResetStats(w http.ResponseWriter, r *http.Request) {
	h.stats.Reset()
	if r.URL.Query().Get("history") == "true" {
		h.stats.ClearHistory()
	}

	observability.FromContext(r.Context()).Info("stats reset",
		observability.Bool("history", r.URL.Query().Get("history") == "true"))

	w.WriteHeader(http.StatusNoContent)
}

// HandleDeprecations lists live deprecation notices.
func (h *Handler) HandleDeprecations(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"data": h.advisor.Notices()})
}

// HandleDismissDeprecation dismisses the notice for one model.
func (h *Handler) HandleDismissDeprecation(w http.ResponseWriter, r *http.Request) {
	h.advisor.Dismiss(r.PathValue("model"))
	w.WriteHeader(http.StatusNoContent)
}

// HandleCredentialStatus reports whether a stored credential exists. The
// credential itself is never returned.
func (h *Handler) HandleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	_, ok := h.credentials.Get()
	writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"configured": ok})
}

// HandleSetCredential stores the UI's API key.
func (h *Handler) HandleSetCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req credentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if strings.TrimSpace(req.APIKey) == "" {
		writeError(ctx, w, fmt.Errorf("%w: api_key is required", domain.ErrInvalidRequest))
		return
	}

	h.credentials.Set(domain.Credential(req.APIKey))

	h.catalog.Invalidate()
	observability.FromContext(ctx).Info("credential updated")

	w.WriteHeader(http.StatusNoContent)
}

// HandleClearCredential forgets the stored API key.
func (h *Handler) HandleClearCredential(w http.ResponseWriter, r *http.Request) {
	h.credentials.Clear()
	h.catalog.Invalidate()
	observability.FromContext(r.Context()).Info("credential cleared")

	w.WriteHeader(http.StatusNoContent)
}
