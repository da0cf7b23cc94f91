package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/davidbz/venicedesk/internal/observability"
)

// WorkspaceService orchestrates upstream calls: it forwards the caller's
// credential, feeds response metadata to the advisor and records usage.
type WorkspaceService struct {
	provider       Provider
	stats          StatsRecorder
	advisor        Advisor
	costCalculator CostCalculator
}

// NewWorkspaceService creates a new workspace service (DI constructor).
func NewWorkspaceService(
	provider Provider,
	stats StatsRecorder,
	advisor Advisor,
	costCalculator CostCalculator,
) *WorkspaceService {
	return &WorkspaceService{
		provider:       provider,
		stats:          stats,
		advisor:        advisor,
		costCalculator: costCalculator,
	}
}

// Complete handles a non-streaming chat completion.
func (w *WorkspaceService) Complete(
	ctx context.Context,
	cred Credential,
	req *ChatCompletionRequest,
) (*ChatCompletionResponse, ResponseMetadata, error) {
	if err := validate(cred, req == nil); err != nil {
		return nil, ResponseMetadata{}, err
	}
	if req.Model == "" {
		return nil, ResponseMetadata{}, fmt.Errorf("%w: model cannot be empty", ErrInvalidRequest)
	}

	ctx = observability.WithModel(observability.WithOperation(ctx, string(OperationChat)), req.Model)

	resp, meta, err := w.provider.Complete(ctx, cred, req)
	if err != nil {
		w.observeFailure(ctx, err, req.Model)
		return nil, meta, fmt.Errorf("completion failed: %w", err)
	}

	w.observe(ctx, meta, req.Model)
	w.record(ctx, OperationChat, req.Model, resp.Usage, meta, true)

	return resp, meta, nil
}

// StreamChat opens a chat stream. The returned stream records usage once when
// it is read to the end and always releases the upstream body on Close.
func (w *WorkspaceService) StreamChat(
	ctx context.Context,
	cred Credential,
	req *ChatCompletionRequest,
) (ChunkStream, error) {
	if err := validate(cred, req == nil); err != nil {
		return nil, err
	}
	if req.Model == "" {
		return nil, fmt.Errorf("%w: model cannot be empty", ErrInvalidRequest)
	}

	ctx = observability.WithModel(observability.WithOperation(ctx, string(OperationChatStream)), req.Model)

	stream, err := w.provider.StreamChat(ctx, cred, req)
	if err != nil {
		w.observeFailure(ctx, err, req.Model)
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	w.observe(ctx, stream.Metadata(), req.Model)

	model := req.Model
	return &trackedStream{
		ChunkStream: stream,
		onExhausted: func(usage *Usage) {
			w.record(ctx, OperationChatStream, model, usage, stream.Metadata(), false)
		},
	}, nil
}

// GenerateImage creates images from a prompt.
func (w *WorkspaceService) GenerateImage(
	ctx context.Context,
	cred Credential,
	req *ImageGenerateRequest,
) (*ImageResult, ResponseMetadata, error) {
	if err := validate(cred, req == nil); err != nil {
		return nil, ResponseMetadata{}, err
	}

	ctx = observability.WithOperation(ctx, string(OperationImage))

	result, meta, err := w.provider.GenerateImage(ctx, cred, req)
	return finish(ctx, w, OperationImage, req.Model, result, nil, meta, err, "image generation failed")
}

// EditImage edits an image.
func (w *WorkspaceService) EditImage(
	ctx context.Context,
	cred Credential,
	req *ImageEditRequest,
) (*ImageResult, ResponseMetadata, error) {
	if err := validate(cred, req == nil); err != nil {
		return nil, ResponseMetadata{}, err
	}

	ctx = observability.WithOperation(ctx, string(OperationImageEdit))

	result, meta, err := w.provider.EditImage(ctx, cred, req)
	return finish(ctx, w, OperationImageEdit, req.Model, result, nil, meta, err, "image edit failed")
}

// UpscaleImage upscales an image.
func (w *WorkspaceService) UpscaleImage(
	ctx context.Context,
	cred Credential,
	req *ImageUpscaleRequest,
) (*ImageResult, ResponseMetadata, error) {
	if err := validate(cred, req == nil); err != nil {
		return nil, ResponseMetadata{}, err
	}

	ctx = observability.WithOperation(ctx, string(OperationUpscale))

	result, meta, err := w.provider.UpscaleImage(ctx, cred, req)
	return finish(ctx, w, OperationUpscale, req.Model, result, nil, meta, err, "image upscale failed")
}

// CreateEmbeddings computes embeddings. Only prompt and total tokens are accounted.
func (w *WorkspaceService) CreateEmbeddings(
	ctx context.Context,
	cred Credential,
	req *EmbeddingRequest,
) (*EmbeddingResponse, ResponseMetadata, error) {
	if err := validate(cred, req == nil); err != nil {
		return nil, ResponseMetadata{}, err
	}
	if len(req.Input) == 0 {
		return nil, ResponseMetadata{}, fmt.Errorf("%w: input cannot be empty", ErrInvalidRequest)
	}

	ctx = observability.WithOperation(ctx, string(OperationEmbeddings))

	resp, meta, err := w.provider.CreateEmbeddings(ctx, cred, req)
	var usage *Usage
	if resp != nil {
		usage = resp.Usage
	}
	return finish(ctx, w, OperationEmbeddings, req.Model, resp, usage, meta, err, "embeddings failed")
}

// CreateSpeech synthesizes audio.
func (w *WorkspaceService) CreateSpeech(
	ctx context.Context,
	cred Credential,
	req *SpeechRequest,
) (*BinaryContent, ResponseMetadata, error) {
	if err := validate(cred, req == nil); err != nil {
		return nil, ResponseMetadata{}, err
	}

	ctx = observability.WithOperation(ctx, string(OperationSpeech))

	audio, meta, err := w.provider.CreateSpeech(ctx, cred, req)
	return finish(ctx, w, OperationSpeech, req.Model, audio, nil, meta, err, "speech synthesis failed")
}

// finish applies the common post-call steps shared by the media operations.
func finish[T any](
	ctx context.Context,
	w *WorkspaceService,
	op Operation,
	model string,
	result *T,
	usage *Usage,
	meta ResponseMetadata,
	err error,
	failure string,
) (*T, ResponseMetadata, error) {
	if err != nil {
		w.observeFailure(ctx, err, model)
		return nil, meta, fmt.Errorf("%s: %w", failure, err)
	}

	w.observe(ctx, meta, model)
	w.record(ctx, op, model, usage, meta, true)

	return result, meta, nil
}

func (w *WorkspaceService) observe(ctx context.Context, meta ResponseMetadata, model string) {
	if w.advisor == nil {
		return
	}
	w.advisor.Observe(ctx, meta, model)
}

// observeFailure inspects the headers of a failed response, which may still
// carry deprecation or rate-limit signals.
func (w *WorkspaceService) observeFailure(ctx context.Context, err error, model string) {
	observability.FromContext(ctx).Warn("upstream call failed", observability.Error(err))

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		w.observe(ctx, apiErr.Metadata, model)
	}
}

func (w *WorkspaceService) record(
	ctx context.Context,
	op Operation,
	model string,
	usage *Usage,
	meta ResponseMetadata,
	cumulative bool,
) {
	if w.stats == nil {
		return
	}

	record := StatsRecord{
		ModelID:    model,
		Operation:  op,
		Usage:      usage,
		Metadata:   meta,
		Cumulative: cumulative,
	}
	if meta.RequestID != nil {
		record.RequestID = *meta.RequestID
	}

	if usage != nil && w.costCalculator != nil && model != "" {
		cost, err := w.costCalculator.Calculate(ctx, model, *usage)
		if err != nil {
			observability.FromContext(ctx).Debug("cost unavailable", observability.Error(err))
		}
		record.CostUSD = cost
	}

	w.stats.Record(ctx, record)
}

func validate(cred Credential, nilRequest bool) error {
	if nilRequest {
		return fmt.Errorf("%w: request cannot be nil", ErrInvalidRequest)
	}
	if cred.IsZero() {
		return ErrMissingCredential
	}
	return nil
}

// trackedStream reports usage once when the wrapped stream ends on its own.
// Streams closed by the caller before the end are not recorded.
type trackedStream struct {
	ChunkStream
	onExhausted func(usage *Usage)
	once        sync.Once
	abandoned   atomic.Bool
}

func (s *trackedStream) Next() bool {
	if s.ChunkStream.Next() {
		return true
	}

	if s.ChunkStream.Err() == nil && !s.abandoned.Load() {
		s.once.Do(func() {
			s.onExhausted(s.ChunkStream.Usage())
		})
	}
	return false
}

func (s *trackedStream) Close() error {
	s.once.Do(func() {
		s.abandoned.Store(true)
	})
	return s.ChunkStream.Close()
}
