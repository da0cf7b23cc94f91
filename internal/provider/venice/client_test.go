package venice_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/provider/venice"
)

const testCredential = domain.Credential("test-key")

func newTestClient(t *testing.T, handler http.HandlerFunc) *venice.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return venice.NewClientWithHTTP(venice.Config{BaseURL: server.URL, Timeout: 5}, server.Client())
}

func TestClient_Execute_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/image/styles", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("CF-RAY", "ray-1")
		w.Header().Set("x-ratelimit-remaining-requests", "10")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":["Anime","Cinematic"]}`)
	})

	raw, meta, err := client.Execute(context.Background(), testCredential, http.MethodGet, "/image/styles", nil)

	require.NoError(t, err)
	require.JSONEq(t, `{"data":["Anime","Cinematic"]}`, string(raw))
	require.Equal(t, "ray-1", *meta.RequestID)
	require.Equal(t, int64(10), *meta.RateLimitRemainingRequests)
}

func TestClient_Execute_ExtraHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		require.Equal(t, "image/png", r.Header.Get("Accept"))
		require.Equal(t, "trace-1", r.Header.Get("X-Client-Trace"))

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})

	payload := &venice.Payload{
		Body:        strings.NewReader("hello"),
		ContentType: "text/plain",
		Header: http.Header{
			"accept":         {"image/png"},
			"X-Client-Trace": {"trace-1"},
			"Authorization":  {"Bearer someone-else"},
		},
	}

	content, _, err := client.ExecuteRaw(context.Background(), testCredential, http.MethodPost, "/image/upscale", payload)

	require.NoError(t, err)
	require.Equal(t, "image/png", content.ContentType)
	require.Len(t, content.Data, 4)
}

func TestClient_Execute_Errors(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		expectedMessage string
	}{
		{
			name:            "string error field",
			status:          http.StatusUnauthorized,
			body:            `{"error":"Invalid API key"}`,
			expectedMessage: "Invalid API key",
		},
		{
			name:            "object error field",
			status:          http.StatusBadRequest,
			body:            `{"error":{"message":"model not found","code":"invalid_model"}}`,
			expectedMessage: "model not found",
		},
		{
			name:            "non json body",
			status:          http.StatusBadGateway,
			body:            `<html>bad gateway</html>`,
			expectedMessage: "HTTP error, status=502",
		},
		{
			name:            "empty body",
			status:          http.StatusInternalServerError,
			body:            ``,
			expectedMessage: "HTTP error, status=500",
		},
		{
			name:            "json without error field",
			status:          http.StatusTooManyRequests,
			body:            `{"detail":"slow down"}`,
			expectedMessage: "HTTP error, status=429",
		},
		{
			name:            "empty error string",
			status:          http.StatusForbidden,
			body:            `{"error":""}`,
			expectedMessage: "HTTP error, status=403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("CF-RAY", "ray-err")
				w.Header().Set("x-venice-model-deprecation-warning", "going away")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, meta, err := client.Execute(context.Background(), testCredential, http.MethodGet, "/models", nil)

			var apiErr *domain.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.expectedMessage, apiErr.Message)
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, "ray-err", *apiErr.Metadata.RequestID)
			require.Equal(t, "going away", *apiErr.Metadata.DeprecationWarning)
			require.Equal(t, "ray-err", *meta.RequestID)
			require.Equal(t, tt.status, domain.StatusCode(err))
		})
	}
}

func TestClient_Execute_MissingCredential(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	_, _, err := client.Execute(context.Background(), "", http.MethodGet, "/models", nil)

	require.ErrorIs(t, err, domain.ErrMissingCredential)
	require.Zero(t, hits.Load())
}

func TestClient_Execute_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := venice.NewClientWithHTTP(venice.Config{BaseURL: server.URL, Timeout: 5}, server.Client())
	server.Close()

	_, _, err := client.Execute(context.Background(), testCredential, http.MethodGet, "/models", nil)

	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, "GET /models", transportErr.Op)
	require.Zero(t, domain.StatusCode(err))
}

func TestClient_Execute_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := client.Execute(ctx, testCredential, http.MethodGet, "/models", nil)

	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_Execute_NoRetries(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, _, err := client.Execute(context.Background(), testCredential, http.MethodGet, "/models", nil)

	require.Error(t, err)
	require.Equal(t, int32(1), hits.Load())
}

func TestJSONPayload(t *testing.T) {
	payload, err := venice.JSONPayload(map[string]string{"model": "llama-3.3-70b"})
	require.NoError(t, err)
	require.Equal(t, "application/json", payload.ContentType)

	body, err := io.ReadAll(payload.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"model":"llama-3.3-70b"}`, string(body))
}

func TestMultipartPayload(t *testing.T) {
	form := venice.NewMultipartForm()
	form.WriteField("prompt", "add a hat")
	form.WriteField("empty", "")
	form.WriteFile("image", domain.ImageFile{Filename: "cat.png", ContentType: "image/png", Data: []byte("png-bytes")})

	payload, err := venice.MultipartPayload(form)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(payload.ContentType, "multipart/form-data; boundary="))
	require.NotContains(t, payload.ContentType, "application/json")

	req := httptest.NewRequest(http.MethodPost, "/", payload.Body)
	req.Header.Set("Content-Type", payload.ContentType)
	require.NoError(t, req.ParseMultipartForm(1<<20))

	require.Equal(t, "add a hat", req.FormValue("prompt"))
	_, present := req.MultipartForm.Value["empty"]
	require.False(t, present)

	file, header, err := req.FormFile("image")
	require.NoError(t, err)
	defer file.Close()
	require.Equal(t, "cat.png", header.Filename)
	require.Equal(t, "image/png", header.Header.Get("Content-Type"))

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))
}

func TestMultipartPayload_JSONFieldError(t *testing.T) {
	form := venice.NewMultipartForm()
	form.WriteJSONField("venice_parameters", map[string]any{"bad": make(chan int)})

	_, err := venice.MultipartPayload(form)

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to build multipart form")
}
