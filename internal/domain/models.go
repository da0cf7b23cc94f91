package domain

import "time"

// Credential is an opaque bearer token supplied by the caller for a single call.
// The core never persists it.
type Credential string

// IsZero reports whether no credential was supplied.
func (c Credential) IsZero() bool {
	return c == ""
}

// Role identifies the author of a chat message.
type Role string

// Chat roles accepted by the upstream API.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// ChatMessage is one entry of a conversation. Order within a conversation is significant.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// VeniceParameters are provider-specific switches sent as venice_parameters.
type VeniceParameters struct {
	EnableWebSearch              string `json:"enable_web_search,omitempty"` // auto, always, never
	EnableWebScraping            *bool  `json:"enable_web_scraping,omitempty"`
	EnableWebCitations           *bool  `json:"enable_web_citations,omitempty"`
	CharacterSlug                string `json:"character_slug,omitempty"`
	StripThinkingResponse        *bool  `json:"strip_thinking_response,omitempty"`
	DisableThinking              *bool  `json:"disable_thinking,omitempty"`
	IncludeVeniceSystemPrompt    *bool  `json:"include_venice_system_prompt,omitempty"`
	IncludeSearchResultsInStream *bool  `json:"include_search_results_in_stream,omitempty"`
}

// ResponseFormat requests structured output.
type ResponseFormat struct {
	Type       string         `json:"type"`
	JSONSchema map[string]any `json:"json_schema,omitempty"`
}

// Tool describes a function the model may call.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the function definition of a Tool.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ProviderParameters carries sampling and provider options. Unset fields are omitted
// so the upstream applies its own defaults and bounds.
type ProviderParameters struct {
	Temperature      *float64          `json:"temperature,omitempty"`
	MaxTokens        *int              `json:"max_tokens,omitempty"`
	TopP             *float64          `json:"top_p,omitempty"`
	FrequencyPenalty *float64          `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64          `json:"presence_penalty,omitempty"`
	Stop             []string          `json:"stop,omitempty"`
	ResponseFormat   *ResponseFormat   `json:"response_format,omitempty"`
	Tools            []Tool            `json:"tools,omitempty"`
	VeniceParameters *VeniceParameters `json:"venice_parameters,omitempty"`
}

// ChatCompletionRequest is immutable once handed to a provider.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	ProviderParameters
	Stream bool `json:"stream,omitempty"`
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletionResponse is the non-streaming chat result.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// Content returns the first choice's message content.
func (r *ChatCompletionResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// StreamChunk is produced once per decoded data event of a chat stream.
type StreamChunk struct {
	ContentDelta string            `json:"content_delta"`
	Usage        *Usage            `json:"usage,omitempty"`
	Metadata     *ResponseMetadata `json:"metadata,omitempty"`
}

// Usage is the token accounting returned by the upstream. For chat
// TotalTokens == PromptTokens + CompletionTokens; embeddings carry no completion
// tokens and leave CompletionTokens unset.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageTotals are cumulative counters across non-streaming calls, plus the
// last rate-limit and balance figures reported by any call. A nil figure has
// not been reported since the last reset.
type UsageTotals struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
	Calls            int64   `json:"calls"`

	RateLimitRemainingRequests *int64   `json:"rate_limit_remaining_requests,omitempty"`
	RateLimitRemainingTokens   *int64   `json:"rate_limit_remaining_tokens,omitempty"`
	BalanceUSD                 *float64 `json:"balance_usd,omitempty"`
	BalanceDiem                *float64 `json:"balance_diem,omitempty"`
}

// ResponseMetadata is extracted from upstream response headers. Every field is
// independently optional; nil means the header was absent on that response.
type ResponseMetadata struct {
	RequestID                  *string  `json:"request_id,omitempty"`
	RateLimitRemainingRequests *int64   `json:"rate_limit_remaining_requests,omitempty"`
	RateLimitRemainingTokens   *int64   `json:"rate_limit_remaining_tokens,omitempty"`
	RateLimitResetRequests     *string  `json:"rate_limit_reset_requests,omitempty"`
	RateLimitResetTokens       *string  `json:"rate_limit_reset_tokens,omitempty"`
	BalanceUSD                 *float64 `json:"balance_usd,omitempty"`
	BalanceDiem                *float64 `json:"balance_diem,omitempty"`
	DeprecationWarning         *string  `json:"deprecation_warning,omitempty"`
	DeprecationDate            *string  `json:"deprecation_date,omitempty"`
}

// Operation names the kind of upstream call a StatsRecord describes.
type Operation string

// Operations recorded by the workspace.
const (
	OperationChat       Operation = "chat"
	OperationChatStream Operation = "chat_stream"
	OperationImage      Operation = "image"
	OperationImageEdit  Operation = "image_edit"
	OperationUpscale    Operation = "image_upscale"
	OperationEmbeddings Operation = "embeddings"
	OperationSpeech     Operation = "speech"
)

// StatsRecord is one entry of the rolling stats window.
type StatsRecord struct {
	ID              string           `json:"id"`
	RequestID       string           `json:"request_id,omitempty"`
	ModelID         string           `json:"model_id"`
	Operation       Operation        `json:"operation"`
	Usage           *Usage           `json:"usage,omitempty"`
	CostUSD         float64          `json:"cost_usd,omitempty"`
	Metadata        ResponseMetadata `json:"metadata"`
	TimestampMillis int64            `json:"timestamp_millis"`
	// Cumulative marks records whose usage feeds the cumulative counters (non-streaming calls).
	Cumulative bool `json:"cumulative"`
}

// DeprecationNotice is an advisory that a model will stop being served.
type DeprecationNotice struct {
	ModelID       string    `json:"model_id"`
	WarningText   string    `json:"warning_text"`
	EffectiveDate string    `json:"effective_date,omitempty"`
	ObservedAt    time.Time `json:"observed_at"`
}

// BinaryContent is a non-JSON upstream payload such as audio or an image.
type BinaryContent struct {
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
}
