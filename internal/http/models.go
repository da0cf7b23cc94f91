package http

import (
	"encoding/json"
	"net/http"

	"github.com/davidbz/venicedesk/internal/catalog"
	"github.com/davidbz/venicedesk/internal/domain"
)

// HandleListModels lists the catalog, optionally filtered with ?kind= and
// refreshed with ?refresh=true.
func (h *Handler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	if query.Get("refresh") == "true" {
		h.catalog.Invalidate()
	}

	cred := h.credential(r)
	if cred.IsZero() {
		writeError(ctx, w, domain.ErrMissingCredential)
		return
	}

	var (
		models []domain.Model
		err    error
	)
	if raw := query.Get("kind"); raw != "" {
		kind, parseErr := catalog.ParseKind(raw)
		if parseErr != nil {
			writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: parseErr.Error()})
			return
		}
		models, err = h.catalog.ModelsByKind(ctx, cred, kind)
	} else {
		models, err = h.catalog.Models(ctx, cred)
	}
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]any{"data": models})
}

// HandleGetModel returns one model.
func (h *Handler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	model, meta, err := h.models.GetModel(r.Context(), h.credential(r), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: model, Metadata: meta})
}

// HandleModelTraits returns the trait to model ids mapping.
func (h *Handler) HandleModelTraits(w http.ResponseWriter, r *http.Request) {
	traits, meta, err := h.models.ModelTraits(r.Context(), h.credential(r))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: traits, Metadata: meta})
}

// HandleCompatibilityMapping returns the alias to model id mapping.
func (h *Handler) HandleCompatibilityMapping(w http.ResponseWriter, r *http.Request) {
	mapping, meta, err := h.models.CompatibilityMapping(r.Context(), h.credential(r))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: mapping, Metadata: meta})
}

// HandleListCharacters lists characters.
func (h *Handler) HandleListCharacters(w http.ResponseWriter, r *http.Request) {
	characters, meta, err := h.characters.ListCharacters(r.Context(), h.credential(r))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: characters, Metadata: meta})
}

// HandleGetCharacter returns one character.
func (h *Handler) HandleGetCharacter(w http.ResponseWriter, r *http.Request) {
	character, meta, err := h.characters.GetCharacter(r.Context(), h.credential(r), r.PathValue("slug"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: character, Metadata: meta})
}

// HandleCreateCharacter creates a character.
func (h *Handler) HandleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var character domain.Character
	if err := decodeJSON(w, r, &character); err != nil {
		writeError(ctx, w, err)
		return
	}

	created, meta, err := h.characters.CreateCharacter(ctx, h.credential(r), &character)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, envelope{Data: created, Metadata: meta})
}

// HandleUpdateCharacter applies a partial update.
func (h *Handler) HandleUpdateCharacter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, meta, err := h.characters.UpdateCharacter(ctx, h.credential(r), r.PathValue("slug"), patch)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, envelope{Data: updated, Metadata: meta})
}

// HandleDeleteCharacter deletes a character.
func (h *Handler) HandleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	if _, err := h.characters.DeleteCharacter(r.Context(), h.credential(r), r.PathValue("slug")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRateLimits returns the account's limits and balances.
func (h *Handler) HandleRateLimits(w http.ResponseWriter, r *http.Request) {
	limits, meta, err := h.account.RateLimits(r.Context(), h.credential(r))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: limits, Metadata: meta})
}

// HandleBillingUsage relays the billing usage document unchanged.
func (h *Handler) HandleBillingUsage(w http.ResponseWriter, r *http.Request) {
	usage, meta, err := h.account.BillingUsage(r.Context(), h.credential(r))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: json.RawMessage(usage), Metadata: meta})
}
