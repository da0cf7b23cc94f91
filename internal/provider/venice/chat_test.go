package venice_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/provider/venice"
)

const threeEventStream = "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}],\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":2,\"total_tokens\":7}}\n\n" +
	"data: [DONE]\n\n"

// trackingBody records Close calls on an in-memory body.
type trackingBody struct {
	io.Reader
	closes int
}

func (b *trackingBody) Close() error {
	b.closes++
	return nil
}

func newTrackingBody(s string) *trackingBody {
	return &trackingBody{Reader: strings.NewReader(s)}
}

func TestClient_StreamChat_EndToEnd(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, true, body["stream"])
		require.Equal(t, map[string]any{"include_usage": true}, body["stream_options"])
		require.Equal(t, "llama-3.3-70b", body["model"])
		require.InDelta(t, 0.2, body["temperature"], 0.0001)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("CF-RAY", "ray-stream")
		_, _ = io.WriteString(w, threeEventStream)
	})

	temperature := 0.2
	req := &domain.ChatCompletionRequest{
		Model:              "llama-3.3-70b",
		Messages:           []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		ProviderParameters: domain.ProviderParameters{Temperature: &temperature},
	}

	stream, err := client.StreamChat(context.Background(), testCredential, req)
	require.NoError(t, err)
	require.False(t, req.Stream, "caller request must not be modified")

	var chunks []domain.StreamChunk
	for chunk, chunkErr := range domain.Chunks(stream) {
		require.NoError(t, chunkErr)
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 2)
	require.Equal(t, "Hel", chunks[0].ContentDelta)
	require.Nil(t, chunks[0].Usage)
	require.Equal(t, "lo", chunks[1].ContentDelta)
	require.Equal(t, &domain.Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}, chunks[1].Usage)
	require.Equal(t, "ray-stream", *chunks[0].Metadata.RequestID)
	require.Equal(t, "ray-stream", *stream.Metadata().RequestID)
	require.Equal(t, 7, stream.Usage().TotalTokens)
	require.NoError(t, stream.Err())
}

func TestClient_StreamChat_ErrorBeforeStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("x-ratelimit-remaining-requests", "0")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"Rate limit exceeded"}`)
	})

	stream, err := client.StreamChat(context.Background(), testCredential, &domain.ChatCompletionRequest{Model: "m"})

	require.Nil(t, stream)
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Rate limit exceeded", apiErr.Message)
	require.Equal(t, int64(0), *apiErr.Metadata.RateLimitRemainingRequests)
}

func TestClient_StreamChat_MissingCredential(t *testing.T) {
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.StreamChat(context.Background(), "", &domain.ChatCompletionRequest{Model: "m"})

	require.ErrorIs(t, err, domain.ErrMissingCredential)
}

func TestChatStream_EmptyDeltaStillYieldsChunk(t *testing.T) {
	body := newTrackingBody("data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
		"data: {\"choices\":[],\"usage\":{\"prompt_tokens\":1,\"completion_tokens\":0,\"total_tokens\":1}}\n\n")
	stream := venice.NewChatStream(context.Background(), body, domain.ResponseMetadata{})

	require.True(t, stream.Next())
	require.Empty(t, stream.Current().ContentDelta)
	require.True(t, stream.Next())
	require.Empty(t, stream.Current().ContentDelta)
	require.NotNil(t, stream.Current().Usage)
	require.False(t, stream.Next())

	require.NoError(t, stream.Err())
	require.Equal(t, 1, body.closes, "EOF without sentinel closes the body")
}

func TestChatStream_SkipsMalformedEvents(t *testing.T) {
	body := newTrackingBody("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: {oops\n" +
		"data: [1,2,3]\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n" +
		"data: [DONE]\n")
	stream := venice.NewChatStream(context.Background(), body, domain.ResponseMetadata{})

	var deltas []string
	for chunk, err := range stream.Chunks() {
		require.NoError(t, err)
		deltas = append(deltas, chunk.ContentDelta)
	}

	require.Equal(t, []string{"a", "b"}, deltas)
	require.Equal(t, 2, stream.Warnings())
	require.Equal(t, 1, body.closes)
}

func TestChatStream_AbandonClosesBody(t *testing.T) {
	body := newTrackingBody(threeEventStream)
	stream := venice.NewChatStream(context.Background(), body, domain.ResponseMetadata{})

	for chunk := range stream.Chunks() {
		require.Equal(t, "Hel", chunk.ContentDelta)
		break
	}

	require.Equal(t, 1, body.closes)
	require.False(t, stream.Next(), "a closed stream yields nothing further")
	require.NoError(t, stream.Close())
	require.Equal(t, 1, body.closes, "Close is idempotent")
}

func TestChatStream_DoneStopsOutput(t *testing.T) {
	body := newTrackingBody("data: [DONE]\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n\n")
	stream := venice.NewChatStream(context.Background(), body, domain.ResponseMetadata{})

	require.False(t, stream.Next())
	require.False(t, stream.Next())
	require.Equal(t, 1, body.closes)
}

type failingBody struct {
	io.Reader
	closed bool
}

func (b *failingBody) Close() error {
	b.closed = true
	return nil
}

func TestChatStream_ReadFailure(t *testing.T) {
	boom := errors.New("connection reset by peer")
	body := &failingBody{Reader: io.MultiReader(
		strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n"),
		&errReader{err: boom},
	)}
	stream := venice.NewChatStream(context.Background(), body, domain.ResponseMetadata{})

	var gotErr error
	var deltas []string
	for chunk, err := range stream.Chunks() {
		if err != nil {
			gotErr = err
			continue
		}
		deltas = append(deltas, chunk.ContentDelta)
	}

	require.Equal(t, []string{"a"}, deltas)
	require.ErrorIs(t, gotErr, boom)
	require.True(t, body.closed)
}

type errReader struct {
	err error
}

func (r *errReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestClient_Complete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasStream := body["stream"]
		require.False(t, hasStream)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("x-venice-balance-usd", "4.2")
		_, _ = io.WriteString(w, `{
			"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"llama-3.3-70b",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Hello!"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":20,"total_tokens":30}
		}`)
	})

	resp, meta, err := client.Complete(context.Background(), testCredential, &domain.ChatCompletionRequest{
		Model:    "llama-3.3-70b",
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		Stream:   true,
	})

	require.NoError(t, err)
	require.Equal(t, "Hello!", resp.Content())
	require.Equal(t, 30, resp.Usage.TotalTokens)
	require.InDelta(t, 4.2, *meta.BalanceUSD, 0.0001)
}

func TestClient_Complete_NilRequest(t *testing.T) {
	client := venice.NewClient(venice.Config{BaseURL: "http://127.0.0.1:0"})

	resp, _, err := client.Complete(context.Background(), testCredential, nil)

	require.Error(t, err)
	require.Nil(t, resp)
	require.Contains(t, err.Error(), "request cannot be nil")
}
