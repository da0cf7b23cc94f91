package venice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/observability"
	"github.com/davidbz/venicedesk/internal/sse"
)

const chatCompletionsPath = "/chat/completions"

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type streamRequest struct {
	domain.ChatCompletionRequest
	StreamOptions streamOptions `json:"stream_options"`
}

type streamChunkPayload struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *domain.Usage `json:"usage"`
}

// Complete sends a non-streaming chat completion.
func (c *Client) Complete(
	ctx context.Context,
	cred domain.Credential,
	req *domain.ChatCompletionRequest,
) (*domain.ChatCompletionResponse, domain.ResponseMetadata, error) {
	if req == nil {
		return nil, domain.ResponseMetadata{}, errNilRequest
	}

	body := *req
	body.Stream = false

	payload, err := JSONPayload(body)
	if err != nil {
		return nil, domain.ResponseMetadata{}, err
	}

	return executeJSON[domain.ChatCompletionResponse](ctx, c, cred, http.MethodPost, chatCompletionsPath, payload)
}

// StreamChat opens a streaming chat completion. The caller's request is not
// modified; the sent copy always asks for streaming with a final usage event.
func (c *Client) StreamChat(
	ctx context.Context,
	cred domain.Credential,
	req *domain.ChatCompletionRequest,
) (domain.ChunkStream, error) {
	if req == nil {
		return nil, errNilRequest
	}

	body := streamRequest{
		ChatCompletionRequest: *req,
		StreamOptions:         streamOptions{IncludeUsage: true},
	}
	body.Stream = true

	payload, err := JSONPayload(body)
	if err != nil {
		return nil, err
	}

	//nolint:bodyclose // Closed by ChatStream
	stream, meta, err := c.ExecuteForStream(ctx, cred, http.MethodPost, chatCompletionsPath, payload)
	if err != nil {
		return nil, err
	}

	return NewChatStream(ctx, stream, meta), nil
}

// ChatStream is a pull-based chat completion stream. It owns the response body
// and closes it on [DONE], EOF, read failure or an explicit Close.
type ChatStream struct {
	body     io.ReadCloser
	decoder  *sse.Decoder
	metadata domain.ResponseMetadata
	logger   *zap.Logger

	current  domain.StreamChunk
	usage    *domain.Usage
	warnings int
	err      error

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewChatStream wraps an open event-stream body.
func NewChatStream(ctx context.Context, body io.ReadCloser, meta domain.ResponseMetadata) *ChatStream {
	s := &ChatStream{
		body:     body,
		metadata: meta,
		logger:   observability.FromContext(ctx),
	}
	s.decoder = sse.NewDecoder(body, sse.WithWarningHandler(s.warn))

	return s
}

// Next advances to the next chunk. Every data event yields a chunk, including
// those with an empty delta.
func (s *ChatStream) Next() bool {
	for !s.closed.Load() {
		ev, err := s.decoder.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.closed.Load() {
				s.err = fmt.Errorf("chat stream interrupted: %w", err)
			}
			_ = s.Close()
			return false
		}

		if ev.Type == sse.EventDone {
			_ = s.Close()
			return false
		}

		var payload streamChunkPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			s.warn(&domain.DecodeWarning{Payload: string(ev.Payload), Err: err})
			continue
		}

		meta := s.metadata
		chunk := domain.StreamChunk{Metadata: &meta}
		if len(payload.Choices) > 0 {
			chunk.ContentDelta = payload.Choices[0].Delta.Content
		}
		if payload.Usage != nil {
			chunk.Usage = payload.Usage
			s.usage = payload.Usage
		}

		s.current = chunk
		return true
	}

	return false
}

// Current returns the chunk produced by the last successful Next.
func (s *ChatStream) Current() domain.StreamChunk {
	return s.current
}

// Err returns the failure that ended the stream.
func (s *ChatStream) Err() error {
	return s.err
}

// Close releases the response body. Safe to call more than once.
func (s *ChatStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// Metadata returns the headers captured when the stream opened.
func (s *ChatStream) Metadata() domain.ResponseMetadata {
	return s.metadata
}

// Usage returns the last usage summary seen, or nil.
func (s *ChatStream) Usage() *domain.Usage {
	return s.usage
}

// Warnings returns the number of skipped events.
func (s *ChatStream) Warnings() int {
	return s.warnings
}

// Chunks adapts the stream to a range-over-func sequence.
func (s *ChatStream) Chunks() iter.Seq2[domain.StreamChunk, error] {
	return domain.Chunks(s)
}

func (s *ChatStream) warn(w *domain.DecodeWarning) {
	s.warnings++
	s.logger.Warn("skipping malformed stream event",
		observability.Int("line", w.Line),
		observability.Error(w.Err),
	)
}
