package domain

// ModelKind groups models the way the workspace UI presents them.
type ModelKind string

// Model kinds.
const (
	ModelKindChat      ModelKind = "chat"
	ModelKindImage     ModelKind = "image"
	ModelKindTTS       ModelKind = "tts"
	ModelKindEmbedding ModelKind = "embedding"
	ModelKindUpscale   ModelKind = "upscale"
)

// ModelCapabilities lists feature flags advertised for a model.
type ModelCapabilities struct {
	SupportsFunctionCalling bool   `json:"supportsFunctionCalling,omitempty"`
	SupportsVision          bool   `json:"supportsVision,omitempty"`
	SupportsWebSearch       bool   `json:"supportsWebSearch,omitempty"`
	SupportsResponseSchema  bool   `json:"supportsResponseSchema,omitempty"`
	SupportsLogProbs        bool   `json:"supportsLogProbs,omitempty"`
	SupportsReasoning       bool   `json:"supportsReasoning,omitempty"`
	OptimizedForCode        bool   `json:"optimizedForCode,omitempty"`
	Quantization            string `json:"quantization,omitempty"`
}

// PriceQuote is a price expressed in both currencies the upstream bills in.
type PriceQuote struct {
	USD  float64 `json:"usd,omitempty"`
	Diem float64 `json:"diem,omitempty"`
}

// ModelPricing is priced per million tokens.
type ModelPricing struct {
	Input  PriceQuote `json:"input"`
	Output PriceQuote `json:"output"`
}

// ModelSpec is the upstream's nested description of a model.
type ModelSpec struct {
	Name                   string             `json:"name,omitempty"`
	AvailableContextTokens int                `json:"availableContextTokens,omitempty"`
	Capabilities           *ModelCapabilities `json:"capabilities,omitempty"`
	Constraints            map[string]any     `json:"constraints,omitempty"`
	Traits                 []string           `json:"traits,omitempty"`
	Pricing                *ModelPricing      `json:"pricing,omitempty"`
	ModelSource            string             `json:"modelSource,omitempty"`
	Offline                bool               `json:"offline,omitempty"`
}

// Model is a normalized catalog entry: fields nested under model_spec are also
// flattened onto the top level.
type Model struct {
	ID                     string             `json:"id"`
	Type                   string             `json:"type,omitempty"` // text, image, audio, embedding, upscaler
	Name                   string             `json:"name,omitempty"`
	Description            string             `json:"description,omitempty"`
	ContextLength          int                `json:"context_length,omitempty"`
	AvailableContextTokens int                `json:"availableContextTokens,omitempty"`
	Capabilities           *ModelCapabilities `json:"capabilities,omitempty"`
	Constraints            map[string]any     `json:"constraints,omitempty"`
	Traits                 []string           `json:"traits,omitempty"`
	Compatibility          []string           `json:"compatibility,omitempty"`
	ModelSpec              *ModelSpec         `json:"model_spec,omitempty"`
	Created                int64              `json:"created,omitempty"`
	OwnedBy                string             `json:"owned_by,omitempty"`
	Object                 string             `json:"object,omitempty"`
}

// HasTrait reports whether the model advertises trait.
func (m Model) HasTrait(trait string) bool {
	for _, t := range m.Traits {
		if t == trait {
			return true
		}
	}
	return false
}

// Pricing returns the per-million-token pricing if the catalog published one.
func (m Model) Pricing() *ModelPricing {
	if m.ModelSpec == nil {
		return nil
	}
	return m.ModelSpec.Pricing
}

// Character is a persona available to chat.
type Character struct {
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	AvatarURL    string   `json:"avatar_url,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Traits       []string `json:"traits,omitempty"`
}

// RateLimits describes the account tier limits and balances.
type RateLimits struct {
	Tier   string `json:"tier,omitempty"`
	Limits *struct {
		RequestsPerMinute int `json:"requests_per_minute,omitempty"`
		TokensPerMinute   int `json:"tokens_per_minute,omitempty"`
	} `json:"limits,omitempty"`
	Balances *PriceQuote `json:"balances,omitempty"`
}
