package domain

import (
	"context"
	"encoding/json"
)

// ChunkStream is a single-pass, consumer-driven sequence of chat chunks.
// Close releases the underlying response body and is safe to call more than once.
type ChunkStream interface {
	// Next advances to the next chunk, returning false at the end or on failure.
	Next() bool

	// Current returns the chunk produced by the last successful Next.
	Current() StreamChunk

	// Err returns the failure that ended the stream, if any.
	Err() error

	// Close releases the stream.
	Close() error

	// Metadata returns the response metadata captured when the stream was opened.
	Metadata() ResponseMetadata

	// Usage returns the last usage summary seen on the stream.
	Usage() *Usage
}

// ChatProvider performs chat completions against the upstream.
type ChatProvider interface {
	// Complete sends a non-streaming chat completion.
	Complete(ctx context.Context, cred Credential, req *ChatCompletionRequest) (*ChatCompletionResponse, ResponseMetadata, error)

	// StreamChat opens a streaming chat completion with usage reporting.
	StreamChat(ctx context.Context, cred Credential, req *ChatCompletionRequest) (ChunkStream, error)
}

// MediaProvider covers the non-chat generation endpoints.
type MediaProvider interface {
	GenerateImage(ctx context.Context, cred Credential, req *ImageGenerateRequest) (*ImageResult, ResponseMetadata, error)
	EditImage(ctx context.Context, cred Credential, req *ImageEditRequest) (*ImageResult, ResponseMetadata, error)
	UpscaleImage(ctx context.Context, cred Credential, req *ImageUpscaleRequest) (*ImageResult, ResponseMetadata, error)
	CreateEmbeddings(ctx context.Context, cred Credential, req *EmbeddingRequest) (*EmbeddingResponse, ResponseMetadata, error)
	CreateSpeech(ctx context.Context, cred Credential, req *SpeechRequest) (*BinaryContent, ResponseMetadata, error)
}

// Provider is everything the workspace service needs from the upstream.
type Provider interface {
	ChatProvider
	MediaProvider
}

// CatalogProvider lists models and model metadata.
type CatalogProvider interface {
	ListModels(ctx context.Context, cred Credential) ([]Model, ResponseMetadata, error)
	GetModel(ctx context.Context, cred Credential, id string) (*Model, ResponseMetadata, error)
	ModelTraits(ctx context.Context, cred Credential) (map[string][]string, ResponseMetadata, error)
	CompatibilityMapping(ctx context.Context, cred Credential) (map[string]string, ResponseMetadata, error)
	ImageStyles(ctx context.Context, cred Credential) ([]string, ResponseMetadata, error)
}

// CharacterProvider manages character personas.
type CharacterProvider interface {
	ListCharacters(ctx context.Context, cred Credential) ([]Character, ResponseMetadata, error)
	GetCharacter(ctx context.Context, cred Credential, slug string) (*Character, ResponseMetadata, error)
	CreateCharacter(ctx context.Context, cred Credential, character *Character) (*Character, ResponseMetadata, error)
	UpdateCharacter(ctx context.Context, cred Credential, slug string, patch map[string]any) (*Character, ResponseMetadata, error)
	DeleteCharacter(ctx context.Context, cred Credential, slug string) (ResponseMetadata, error)
}

// AccountProvider reads account limits and billing.
type AccountProvider interface {
	RateLimits(ctx context.Context, cred Credential) (*RateLimits, ResponseMetadata, error)
	BillingUsage(ctx context.Context, cred Credential) (json.RawMessage, ResponseMetadata, error)
}

// StatsRecorder is the usage/stats accumulator.
type StatsRecorder interface {
	// Record appends to the rolling window and, for cumulative records, the totals.
	Record(ctx context.Context, record StatsRecord)

	// Latest returns the newest record.
	Latest() (StatsRecord, bool)

	// History returns the window oldest first.
	History() []StatsRecord

	// Totals returns the cumulative counters.
	Totals() UsageTotals

	// Reset zeroes the cumulative counters only.
	Reset()

	// ClearHistory empties the rolling window only.
	ClearHistory()
}

// Advisor inspects response metadata for advisory signals. It never fails a call.
type Advisor interface {
	// Observe registers a deprecation notice for modelID if the metadata carries one
	// and none is live, returning the new notice or nil.
	Observe(ctx context.Context, meta ResponseMetadata, modelID string) *DeprecationNotice

	// Dismiss removes the live notice for modelID; unknown ids are ignored.
	Dismiss(modelID string)

	// Notices returns live notices in registration order.
	Notices() []DeprecationNotice
}

// CredentialStore is the caller-owned credential collaborator.
type CredentialStore interface {
	Get() (Credential, bool)
	Set(cred Credential)
	Clear()
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
