// Package venice is the upstream adapter for the Venice API. It executes
// authenticated requests, extracts response metadata from headers and decodes
// chat streams, embeddings, media and catalog responses into domain types.
package venice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/observability"
)

const (
	contentTypeJSON  = "application/json"
	contentTypeSSE   = "text/event-stream"
	maxErrorBodySize = 1 << 20
)

// Client wraps the HTTP client for Venice API calls.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	sdk        openai.Client
}

// NewClient creates a new Venice client. The underlying http.Client has no
// global timeout so streams are bounded only by the caller's context.
func NewClient(config Config) *Client {
	return NewClientWithHTTP(config, &http.Client{})
}

// NewClientWithHTTP creates a client that sends through httpClient.
func NewClientWithHTTP(config Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")

	return &Client{
		baseURL:    baseURL,
		timeout:    time.Duration(config.Timeout) * time.Second,
		httpClient: httpClient,
		sdk: openai.NewClient(
			option.WithBaseURL(baseURL+"/"),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
		),
	}
}

// Payload is a request body, its content type and any extra request headers.
// Extra headers may replace Content-Type or Accept but never Authorization.
type Payload struct {
	Body        io.Reader
	ContentType string
	Header      http.Header
}

// JSONPayload marshals v as an application/json body.
func JSONPayload(v any) (*Payload, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	return &Payload{Body: bytes.NewReader(body), ContentType: contentTypeJSON}, nil
}

// MultipartForm builds a multipart/form-data body.
type MultipartForm struct {
	buf    bytes.Buffer
	writer *multipart.Writer
	err    error
}

// NewMultipartForm creates an empty form.
func NewMultipartForm() *MultipartForm {
	f := &MultipartForm{}
	f.writer = multipart.NewWriter(&f.buf)
	return f
}

// WriteField adds a text field. Empty values are skipped.
func (f *MultipartForm) WriteField(name, value string) {
	if f.err != nil || value == "" {
		return
	}
	f.err = f.writer.WriteField(name, value)
}

// WriteJSONField adds a field holding v encoded as JSON. Nil values are skipped.
func (f *MultipartForm) WriteJSONField(name string, v any) {
	if f.err != nil || v == nil {
		return
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		f.err = fmt.Errorf("failed to encode field %s: %w", name, err)
		return
	}
	f.err = f.writer.WriteField(name, string(encoded))
}

// WriteFile adds a file part.
func (f *MultipartForm) WriteFile(name string, file domain.ImageFile) {
	if f.err != nil {
		return
	}

	filename := file.Filename
	if filename == "" {
		filename = name
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, filename))
	header.Set("Content-Type", contentType)

	part, err := f.writer.CreatePart(header)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = part.Write(file.Data)
}

// MultipartPayload finalizes form. The content type carries the form boundary.
func MultipartPayload(form *MultipartForm) (*Payload, error) {
	if form.err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", form.err)
	}
	if err := form.writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart form: %w", err)
	}

	return &Payload{Body: bytes.NewReader(form.buf.Bytes()), ContentType: form.writer.FormDataContentType()}, nil
}

// Execute sends a request and returns the raw JSON body of a 2xx response.
func (c *Client) Execute(
	ctx context.Context,
	cred domain.Credential,
	method, path string,
	payload *Payload,
) (json.RawMessage, domain.ResponseMetadata, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, meta, err := c.do(ctx, cred, method, path, payload, contentTypeJSON)
	if err != nil {
		return nil, meta, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, meta, &domain.TransportError{Op: "read " + path, Err: err}
	}

	return body, meta, nil
}

// ExecuteRaw sends a request and returns the body of a 2xx response as-is.
func (c *Client) ExecuteRaw(
	ctx context.Context,
	cred domain.Credential,
	method, path string,
	payload *Payload,
) (*domain.BinaryContent, domain.ResponseMetadata, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, meta, err := c.do(ctx, cred, method, path, payload, "")
	if err != nil {
		return nil, meta, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, meta, &domain.TransportError{Op: "read " + path, Err: err}
	}

	return &domain.BinaryContent{Data: body, ContentType: resp.Header.Get("Content-Type")}, meta, nil
}

// ExecuteForStream sends a request and hands the open body of a 2xx response to
// the caller, who must close it.
func (c *Client) ExecuteForStream(
	ctx context.Context,
	cred domain.Credential,
	method, path string,
	payload *Payload,
) (io.ReadCloser, domain.ResponseMetadata, error) {
	resp, meta, err := c.do(ctx, cred, method, path, payload, contentTypeSSE)
	if err != nil {
		return nil, meta, err
	}

	return resp.Body, meta, nil
}

// do performs one attempt. Non-2xx responses are consumed and closed here.
func (c *Client) do(
	ctx context.Context,
	cred domain.Credential,
	method, path string,
	payload *Payload,
	accept string,
) (*http.Response, domain.ResponseMetadata, error) {
	if cred.IsZero() {
		return nil, domain.ResponseMetadata{}, domain.ErrMissingCredential
	}

	logger := observability.FromContext(ctx)

	var body io.Reader = http.NoBody
	if payload != nil && payload.Body != nil {
		body = payload.Body
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, domain.ResponseMetadata{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+string(cred))
	if payload != nil && payload.ContentType != "" {
		httpReq.Header.Set("Content-Type", payload.ContentType)
	}
	if accept != "" {
		httpReq.Header.Set("Accept", accept)
	}
	if payload != nil {
		for key, values := range payload.Header {
			if http.CanonicalHeaderKey(key) == "Authorization" {
				continue
			}
			httpReq.Header[http.CanonicalHeaderKey(key)] = slices.Clone(values)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Debug("venice request failed",
			observability.String("method", method),
			observability.String("path", path),
			observability.Error(err),
		)
		return nil, domain.ResponseMetadata{}, &domain.TransportError{Op: method + " " + path, Err: err}
	}

	meta := ExtractMetadata(resp.Header)

	logger.Debug("venice response",
		observability.String("method", method),
		observability.String("path", path),
		observability.Int("status", resp.StatusCode),
		observability.String("cf_ray", deref(meta.RequestID)),
		observability.Elapsed(start),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, meta, newAPIError(resp.StatusCode, resp.Body, meta)
	}

	return resp, meta, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// newAPIError builds an APIError from a failed response. Read and parse failures
// fall back to the synthesized status message.
func newAPIError(statusCode int, body io.Reader, meta domain.ResponseMetadata) *domain.APIError {
	message := ""
	if raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodySize)); err == nil {
		message = errorMessage(raw)
	}
	if message == "" {
		message = domain.FallbackMessage(statusCode)
	}

	return &domain.APIError{Message: message, StatusCode: statusCode, Metadata: meta}
}

// errorMessage reads `error` as a string or `error.message` from an error body.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Error, &text); err == nil {
		return text
	}

	var detail struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		return detail.Message
	}

	return ""
}

// executeJSON runs Execute and decodes the body into T.
func executeJSON[T any](
	ctx context.Context,
	c *Client,
	cred domain.Credential,
	method, path string,
	payload *Payload,
) (*T, domain.ResponseMetadata, error) {
	raw, meta, err := c.Execute(ctx, cred, method, path, payload)
	if err != nil {
		return nil, meta, err
	}

	var out T
	if err := decode(raw, &out); err != nil {
		return nil, meta, fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return &out, meta, nil
}

// decode unmarshals raw into v; an empty body leaves v untouched.
func decode(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// unwrap returns the value under the first of keys present in a JSON object,
// or raw itself when none is.
func unwrap(raw json.RawMessage, keys ...string) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return raw
	}

	for _, key := range keys {
		if v, ok := fields[key]; ok && !isNull(v) {
			return v
		}
	}

	return raw
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var errNilRequest = fmt.Errorf("%w: request cannot be nil", domain.ErrInvalidRequest)

var (
	_ domain.Provider          = (*Client)(nil)
	_ domain.CatalogProvider   = (*Client)(nil)
	_ domain.CharacterProvider = (*Client)(nil)
	_ domain.AccountProvider   = (*Client)(nil)
)
