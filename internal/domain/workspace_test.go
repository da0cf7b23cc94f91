package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/venicedesk/internal/advisory"
	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/mocks"
	"github.com/davidbz/venicedesk/internal/stats"
)

const testCred = domain.Credential("test-key")

// fakeStream replays fixed chunks.
type fakeStream struct {
	chunks []domain.StreamChunk
	pos    int
	err    error
	meta   domain.ResponseMetadata
	usage  *domain.Usage
	closes int
}

func (s *fakeStream) Next() bool {
	if s.closes > 0 || s.pos >= len(s.chunks) {
		return false
	}
	if u := s.chunks[s.pos].Usage; u != nil {
		s.usage = u
	}
	s.pos++
	return true
}

func (s *fakeStream) Current() domain.StreamChunk      { return s.chunks[s.pos-1] }
func (s *fakeStream) Err() error                       { return s.err }
func (s *fakeStream) Metadata() domain.ResponseMetadata { return s.meta }
func (s *fakeStream) Usage() *domain.Usage             { return s.usage }

func (s *fakeStream) Close() error {
	s.closes++
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

type fixture struct {
	provider *mocks.MockProvider
	stats    *stats.Accumulator
	advisor  *advisory.Registry
	service  *domain.WorkspaceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := domain.NewInMemoryPricingRegistry()
	require.NoError(t, registry.RegisterPricing(context.Background(), "llama-3.3-70b", domain.PricingConfig{
		InputUSDPerMillion:  0.7,
		OutputUSDPerMillion: 2.8,
	}))

	f := &fixture{
		provider: mocks.NewMockProvider(t),
		stats:    stats.NewAccumulator(50),
		advisor:  advisory.NewRegistry(nil, advisory.Config{RateLimitThreshold: -1}),
	}
	f.service = domain.NewWorkspaceService(f.provider, f.stats, f.advisor, domain.NewStandardCostCalculator(registry))

	return f
}

func chatRequest() *domain.ChatCompletionRequest {
	return &domain.ChatCompletionRequest{
		Model:    "llama-3.3-70b",
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "Hello"}},
	}
}

func TestWorkspaceService_Complete(t *testing.T) {
	t.Run("records usage and cost", func(t *testing.T) {
		f := newFixture(t)
		req := chatRequest()

		f.provider.On("Complete", mock.Anything, testCred, req).Return(&domain.ChatCompletionResponse{
			ID:      "chatcmpl-1",
			Model:   "llama-3.3-70b",
			Choices: []domain.ChatChoice{{Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: "Hi!"}}},
			Usage:   &domain.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		}, domain.ResponseMetadata{RequestID: ptr("ray-1")}, nil).Once()

		resp, meta, err := f.service.Complete(context.Background(), testCred, req)

		require.NoError(t, err)
		require.Equal(t, "Hi!", resp.Content())
		require.Equal(t, "ray-1", *meta.RequestID)

		totals := f.stats.Totals()
		require.Equal(t, int64(10), totals.PromptTokens)
		require.Equal(t, int64(20), totals.CompletionTokens)
		require.Equal(t, int64(30), totals.TotalTokens)
		require.InDelta(t, 0.000063, totals.CostUSD, 1e-9)

		latest, ok := f.stats.Latest()
		require.True(t, ok)
		require.Equal(t, "ray-1", latest.RequestID)
		require.Equal(t, domain.OperationChat, latest.Operation)
		require.Equal(t, 30, latest.Usage.TotalTokens)
		require.True(t, latest.Cumulative)
	})

	t.Run("deprecation header registers a notice", func(t *testing.T) {
		f := newFixture(t)
		req := chatRequest()

		f.provider.On("Complete", mock.Anything, testCred, req).Return(&domain.ChatCompletionResponse{},
			domain.ResponseMetadata{DeprecationWarning: ptr("retiring soon")}, nil).Twice()

		_, _, err := f.service.Complete(context.Background(), testCred, req)
		require.NoError(t, err)
		_, _, err = f.service.Complete(context.Background(), testCred, req)
		require.NoError(t, err)

		notices := f.advisor.Notices()
		require.Len(t, notices, 1)
		require.Equal(t, "llama-3.3-70b", notices[0].ModelID)
	})

	t.Run("failure is observed but not recorded", func(t *testing.T) {
		f := newFixture(t)
		req := chatRequest()

		apiErr := &domain.APIError{
			Message:    "Invalid API key",
			StatusCode: 401,
			Metadata:   domain.ResponseMetadata{DeprecationWarning: ptr("deprecated")},
		}
		f.provider.On("Complete", mock.Anything, testCred, req).Return(nil, apiErr.Metadata, apiErr).Once()

		resp, _, err := f.service.Complete(context.Background(), testCred, req)

		require.Nil(t, resp)
		var got *domain.APIError
		require.ErrorAs(t, err, &got)
		require.Equal(t, "Invalid API key", got.Message)
		require.Equal(t, 401, domain.StatusCode(err))
		require.Empty(t, f.stats.History())
		require.Len(t, f.advisor.Notices(), 1)
	})

	t.Run("missing credential fails before the provider", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := f.service.Complete(context.Background(), "", chatRequest())

		require.ErrorIs(t, err, domain.ErrMissingCredential)
	})

	t.Run("nil request", func(t *testing.T) {
		f := newFixture(t)

		resp, _, err := f.service.Complete(context.Background(), testCred, nil)

		require.Error(t, err)
		require.Nil(t, resp)
		require.Contains(t, err.Error(), "request cannot be nil")
	})

	t.Run("empty model", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := f.service.Complete(context.Background(), testCred, &domain.ChatCompletionRequest{})

		require.ErrorIs(t, err, domain.ErrInvalidRequest)
		require.Contains(t, err.Error(), "model cannot be empty")
	})
}

func TestWorkspaceService_StreamChat(t *testing.T) {
	streamChunks := func() []domain.StreamChunk {
		return []domain.StreamChunk{
			{ContentDelta: "Hel"},
			{ContentDelta: "lo", Usage: &domain.Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}},
		}
	}

	t.Run("records once on exhaustion without touching totals", func(t *testing.T) {
		f := newFixture(t)
		req := chatRequest()
		upstream := &fakeStream{chunks: streamChunks(), meta: domain.ResponseMetadata{RequestID: ptr("ray-s")}}
		f.provider.On("StreamChat", mock.Anything, testCred, req).Return(upstream, nil).Once()

		stream, err := f.service.StreamChat(context.Background(), testCred, req)
		require.NoError(t, err)

		var content string
		for chunk, chunkErr := range domain.Chunks(stream) {
			require.NoError(t, chunkErr)
			content += chunk.ContentDelta
		}
		require.False(t, stream.Next())

		require.Equal(t, "Hello", content)
		require.Equal(t, 1, upstream.closes)

		history := f.stats.History()
		require.Len(t, history, 1)
		require.Equal(t, domain.OperationChatStream, history[0].Operation)
		require.Equal(t, 7, history[0].Usage.TotalTokens)
		require.Equal(t, "ray-s", history[0].RequestID)
		require.False(t, history[0].Cumulative)
		require.Equal(t, domain.UsageTotals{}, f.stats.Totals())
	})

	t.Run("abandoned stream is closed and not recorded", func(t *testing.T) {
		f := newFixture(t)
		req := chatRequest()
		upstream := &fakeStream{chunks: streamChunks()}
		f.provider.On("StreamChat", mock.Anything, testCred, req).Return(upstream, nil).Once()

		stream, err := f.service.StreamChat(context.Background(), testCred, req)
		require.NoError(t, err)

		for range domain.Chunks(stream) {
			break
		}

		require.Equal(t, 1, upstream.closes)
		require.Empty(t, f.stats.History())
	})

	t.Run("stream failure is not recorded", func(t *testing.T) {
		f := newFixture(t)
		req := chatRequest()
		upstream := &fakeStream{chunks: streamChunks()[:1], err: errors.New("connection reset")}
		f.provider.On("StreamChat", mock.Anything, testCred, req).Return(upstream, nil).Once()

		stream, err := f.service.StreamChat(context.Background(), testCred, req)
		require.NoError(t, err)

		var gotErr error
		for _, chunkErr := range domain.Chunks(stream) {
			if chunkErr != nil {
				gotErr = chunkErr
			}
		}

		require.Error(t, gotErr)
		require.Empty(t, f.stats.History())
	})

	t.Run("open failure surfaces api error", func(t *testing.T) {
		f := newFixture(t)
		req := chatRequest()
		f.provider.On("StreamChat", mock.Anything, testCred, req).
			Return(nil, &domain.APIError{Message: "Rate limit exceeded", StatusCode: 429}).Once()

		stream, err := f.service.StreamChat(context.Background(), testCred, req)

		require.Nil(t, stream)
		require.Equal(t, 429, domain.StatusCode(err))
	})
}

func TestWorkspaceService_CreateEmbeddings(t *testing.T) {
	f := newFixture(t)
	req := &domain.EmbeddingRequest{Model: "text-embedding-bge-m3", Input: []string{"a", "b"}}
	f.provider.On("CreateEmbeddings", mock.Anything, testCred, req).Return(&domain.EmbeddingResponse{
		Model: "text-embedding-bge-m3",
		Data:  []domain.Embedding{{Index: 0, Embedding: []float64{0.1}}, {Index: 1, Embedding: []float64{0.2}}},
		Usage: &domain.Usage{PromptTokens: 6, TotalTokens: 6},
	}, domain.ResponseMetadata{}, nil).Once()

	resp, _, err := f.service.CreateEmbeddings(context.Background(), testCred, req)

	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	totals := f.stats.Totals()
	require.Equal(t, int64(6), totals.PromptTokens)
	require.Zero(t, totals.CompletionTokens)
	require.Equal(t, int64(6), totals.TotalTokens)

	_, _, err = f.service.CreateEmbeddings(context.Background(), testCred, &domain.EmbeddingRequest{Model: "m"})
	require.Error(t, err)
}

func TestWorkspaceService_MediaOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	imageReq := &domain.ImageGenerateRequest{Model: "venice-sd35", Prompt: "a lighthouse"}
	f.provider.On("GenerateImage", mock.Anything, testCred, imageReq).
		Return(&domain.ImageResult{Images: []domain.GeneratedImage{{B64JSON: "aGk="}}}, domain.ResponseMetadata{}, nil).Once()

	editReq := &domain.ImageEditRequest{Model: "flux-dev", Prompt: "night"}
	f.provider.On("EditImage", mock.Anything, testCred, editReq).
		Return(&domain.ImageResult{Binary: &domain.BinaryContent{Data: []byte("png")}}, domain.ResponseMetadata{}, nil).Once()

	upscaleReq := &domain.ImageUpscaleRequest{Scale: 2}
	f.provider.On("UpscaleImage", mock.Anything, testCred, upscaleReq).
		Return(nil, domain.ResponseMetadata{}, &domain.TransportError{Op: "POST /image/upscale", Err: errors.New("dial tcp")}).Once()

	speechReq := &domain.SpeechRequest{Model: "tts-kokoro", Input: "hi", Voice: "af_sky"}
	f.provider.On("CreateSpeech", mock.Anything, testCred, speechReq).
		Return(&domain.BinaryContent{Data: []byte("ID3"), ContentType: "audio/mpeg"}, domain.ResponseMetadata{}, nil).Once()

	image, _, err := f.service.GenerateImage(ctx, testCred, imageReq)
	require.NoError(t, err)
	require.Len(t, image.Images, 1)

	edited, _, err := f.service.EditImage(ctx, testCred, editReq)
	require.NoError(t, err)
	require.Equal(t, []byte("png"), edited.Binary.Data)

	_, _, err = f.service.UpscaleImage(ctx, testCred, upscaleReq)
	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)

	audio, _, err := f.service.CreateSpeech(ctx, testCred, speechReq)
	require.NoError(t, err)
	require.Equal(t, "audio/mpeg", audio.ContentType)

	history := f.stats.History()
	require.Len(t, history, 3)
	require.Equal(t, domain.OperationImage, history[0].Operation)
	require.Equal(t, domain.OperationImageEdit, history[1].Operation)
	require.Equal(t, domain.OperationSpeech, history[2].Operation)
	require.Equal(t, int64(3), f.stats.Totals().Calls)

	_, _, err = f.service.GenerateImage(ctx, testCred, nil)
	require.Error(t, err)
}
