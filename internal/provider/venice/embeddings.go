package venice

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/observability"
)

// CreateEmbeddings calls the OpenAI-compatible embeddings endpoint through the
// SDK. Each call carries its own credential; the SDK never retries.
func (c *Client) CreateEmbeddings(
	ctx context.Context,
	cred domain.Credential,
	req *domain.EmbeddingRequest,
) (*domain.EmbeddingResponse, domain.ResponseMetadata, error) {
	if req == nil {
		return nil, domain.ResponseMetadata{}, errNilRequest
	}
	if cred.IsZero() {
		return nil, domain.ResponseMetadata{}, domain.ErrMissingCredential
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	logger := observability.FromContext(ctx)

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: req.Input},
		Model: openai.EmbeddingModel(req.Model),
	}

	var httpResp *http.Response
	resp, err := c.sdk.Embeddings.New(ctx, params,
		option.WithAPIKey(string(cred)),
		option.WithResponseInto(&httpResp),
	)

	if err != nil {
		logger.Debug("embeddings request failed", observability.Error(err))
		meta, domainErr := toDomainError(err, httpResp)
		return nil, meta, domainErr
	}

	return toDomainEmbeddings(resp), metadataOf(httpResp), nil
}

func metadataOf(resp *http.Response) domain.ResponseMetadata {
	if resp == nil {
		return domain.ResponseMetadata{}
	}
	return ExtractMetadata(resp.Header)
}

// toDomainError maps SDK failures onto the same error types the executor returns.
func toDomainError(err error, httpResp *http.Response) (domain.ResponseMetadata, error) {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return domain.ResponseMetadata{}, &domain.TransportError{Op: http.MethodPost + " /embeddings", Err: err}
	}

	if httpResp == nil {
		httpResp = apiErr.Response
	}

	meta := metadataOf(httpResp)

	message := ""
	if httpResp != nil && httpResp.Body != nil {
		if raw, readErr := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodySize)); readErr == nil {
			message = errorMessage(raw)
		}
	}
	if message == "" {
		message = apiErr.Message
	}
	if message == "" {
		message = domain.FallbackMessage(apiErr.StatusCode)
	}

	return meta, &domain.APIError{Message: message, StatusCode: apiErr.StatusCode, Metadata: meta}
}

func toDomainEmbeddings(resp *openai.CreateEmbeddingResponse) *domain.EmbeddingResponse {
	out := &domain.EmbeddingResponse{
		Model: resp.Model,
		Data:  make([]domain.Embedding, 0, len(resp.Data)),
		Usage: &domain.Usage{
			PromptTokens: int(resp.Usage.PromptTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}

	for _, item := range resp.Data {
		out.Data = append(out.Data, domain.Embedding{
			Index:     int(item.Index),
			Embedding: item.Embedding,
		})
	}

	return out
}
