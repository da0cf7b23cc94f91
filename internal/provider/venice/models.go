package venice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/davidbz/venicedesk/internal/domain"
)

const (
	modelsPath               = "/models"
	modelTraitsPath          = "/models/traits"
	modelCompatibilityPath   = "/models/compatibility_mapping"
	modelsListQueryAllModels = "?type=all"
)

// ListModels returns the catalog with model_spec fields flattened onto each model.
func (c *Client) ListModels(ctx context.Context, cred domain.Credential) ([]domain.Model, domain.ResponseMetadata, error) {
	raw, meta, err := c.Execute(ctx, cred, http.MethodGet, modelsPath+modelsListQueryAllModels, nil)
	if err != nil {
		return nil, meta, err
	}

	models := []domain.Model{}
	if err := decode(unwrap(raw, "data"), &models); err != nil {
		return nil, meta, fmt.Errorf("failed to decode models: %w", err)
	}

	for i := range models {
		NormalizeModel(&models[i])
	}

	return models, meta, nil
}

// GetModel returns one model by id.
func (c *Client) GetModel(ctx context.Context, cred domain.Credential, id string) (*domain.Model, domain.ResponseMetadata, error) {
	if id == "" {
		return nil, domain.ResponseMetadata{}, fmt.Errorf("%w: model id is required", domain.ErrInvalidRequest)
	}

	raw, meta, err := c.Execute(ctx, cred, http.MethodGet, modelsPath+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, meta, err
	}

	var model domain.Model
	if err := decode(unwrap(raw, "data"), &model); err != nil {
		return nil, meta, fmt.Errorf("failed to decode model: %w", err)
	}
	NormalizeModel(&model)

	return &model, meta, nil
}

// ModelTraits maps each trait to the models carrying it. Single model ids are
// widened to one-element lists.
func (c *Client) ModelTraits(ctx context.Context, cred domain.Credential) (map[string][]string, domain.ResponseMetadata, error) {
	raw, meta, err := c.Execute(ctx, cred, http.MethodGet, modelTraitsPath, nil)
	if err != nil {
		return nil, meta, err
	}

	var entries map[string]json.RawMessage
	if err := decode(unwrap(raw, "data"), &entries); err != nil {
		return nil, meta, fmt.Errorf("failed to decode model traits: %w", err)
	}

	traits := make(map[string][]string, len(entries))
	for trait, value := range entries {
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			traits[trait] = []string{single}
			continue
		}

		var many []string
		if err := json.Unmarshal(value, &many); err != nil {
			return nil, meta, fmt.Errorf("failed to decode trait %s: %w", trait, err)
		}
		traits[trait] = many
	}

	return traits, meta, nil
}

// CompatibilityMapping maps third-party model names to Venice model ids.
func (c *Client) CompatibilityMapping(ctx context.Context, cred domain.Credential) (map[string]string, domain.ResponseMetadata, error) {
	raw, meta, err := c.Execute(ctx, cred, http.MethodGet, modelCompatibilityPath, nil)
	if err != nil {
		return nil, meta, err
	}

	mapping := map[string]string{}
	if err := decode(unwrap(raw, "data"), &mapping); err != nil {
		return nil, meta, fmt.Errorf("failed to decode compatibility mapping: %w", err)
	}

	return mapping, meta, nil
}

// NormalizeModel copies model_spec fields onto the top level, preferring the
// nested value when both are present.
func NormalizeModel(m *domain.Model) {
	spec := m.ModelSpec
	if spec == nil {
		if m.Name == "" {
			m.Name = m.ID
		}
		return
	}

	m.Name = firstNonEmpty(spec.Name, m.Name, m.ID)
	if spec.AvailableContextTokens != 0 {
		m.AvailableContextTokens = spec.AvailableContextTokens
	}
	if spec.Capabilities != nil {
		m.Capabilities = spec.Capabilities
	}
	if spec.Constraints != nil {
		m.Constraints = spec.Constraints
	}
	if spec.Traits != nil {
		m.Traits = spec.Traits
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
