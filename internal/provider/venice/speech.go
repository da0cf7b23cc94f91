package venice

import (
	"context"
	"net/http"

	"github.com/davidbz/venicedesk/internal/domain"
)

const speechPath = "/audio/speech"

// CreateSpeech synthesizes audio. The body is returned untouched with its
// upstream content type.
func (c *Client) CreateSpeech(
	ctx context.Context,
	cred domain.Credential,
	req *domain.SpeechRequest,
) (*domain.BinaryContent, domain.ResponseMetadata, error) {
	if req == nil {
		return nil, domain.ResponseMetadata{}, errNilRequest
	}

	payload, err := JSONPayload(req)
	if err != nil {
		return nil, domain.ResponseMetadata{}, err
	}

	return c.ExecuteRaw(ctx, cred, http.MethodPost, speechPath, payload)
}
