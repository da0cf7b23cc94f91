package venice

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/davidbz/venicedesk/internal/domain"
)

const (
	imageGeneratePath = "/image/generate"
	imageEditPath     = "/image/edit"
	imageUpscalePath  = "/image/upscale"
	imageStylesPath   = "/image/styles"
)

// imageResponse accepts both `images` (base64 strings or objects) and the
// OpenAI-style `data` array.
type imageResponse struct {
	ID     string                  `json:"id"`
	Images []json.RawMessage       `json:"images"`
	Data   []domain.GeneratedImage `json:"data"`
}

// GenerateImage creates images from a prompt.
func (c *Client) GenerateImage(
	ctx context.Context,
	cred domain.Credential,
	req *domain.ImageGenerateRequest,
) (*domain.ImageResult, domain.ResponseMetadata, error) {
	if req == nil {
		return nil, domain.ResponseMetadata{}, errNilRequest
	}

	payload, err := JSONPayload(req)
	if err != nil {
		return nil, domain.ResponseMetadata{}, err
	}

	return c.executeImage(ctx, cred, imageGeneratePath, payload)
}

// EditImage edits an image with a prompt and optional mask.
func (c *Client) EditImage(
	ctx context.Context,
	cred domain.Credential,
	req *domain.ImageEditRequest,
) (*domain.ImageResult, domain.ResponseMetadata, error) {
	if req == nil {
		return nil, domain.ResponseMetadata{}, errNilRequest
	}

	form := NewMultipartForm()
	form.WriteFile("image", req.Image)
	if req.Mask != nil {
		form.WriteFile("mask", *req.Mask)
	}
	form.WriteField("prompt", req.Prompt)
	form.WriteField("model", req.Model)
	if req.N > 0 {
		form.WriteField("n", strconv.Itoa(req.N))
	}
	form.WriteField("size", req.Size)
	if req.VeniceParameters != nil {
		form.WriteJSONField("venice_parameters", req.VeniceParameters)
	}

	payload, err := MultipartPayload(form)
	if err != nil {
		return nil, domain.ResponseMetadata{}, err
	}

	return c.executeImage(ctx, cred, imageEditPath, payload)
}

// UpscaleImage upscales and optionally enhances an image.
func (c *Client) UpscaleImage(
	ctx context.Context,
	cred domain.Credential,
	req *domain.ImageUpscaleRequest,
) (*domain.ImageResult, domain.ResponseMetadata, error) {
	if req == nil {
		return nil, domain.ResponseMetadata{}, errNilRequest
	}

	form := NewMultipartForm()
	form.WriteFile("image", req.Image)
	form.WriteField("model", req.Model)
	if req.Scale > 0 {
		form.WriteField("scale", strconv.FormatFloat(req.Scale, 'f', -1, 64))
	}
	if req.Enhance != nil {
		form.WriteField("enhance", strconv.FormatBool(*req.Enhance))
	}
	form.WriteField("enhancePrompt", req.EnhancePrompt)
	if req.Replication != nil {
		form.WriteField("replication", strconv.FormatFloat(*req.Replication, 'f', -1, 64))
	}
	if req.VeniceParameters != nil {
		form.WriteJSONField("venice_parameters", req.VeniceParameters)
	}

	payload, err := MultipartPayload(form)
	if err != nil {
		return nil, domain.ResponseMetadata{}, err
	}

	return c.executeImage(ctx, cred, imageUpscalePath, payload)
}

// ImageStyles lists the style presets accepted by image generation.
func (c *Client) ImageStyles(ctx context.Context, cred domain.Credential) ([]string, domain.ResponseMetadata, error) {
	raw, meta, err := c.Execute(ctx, cred, http.MethodGet, imageStylesPath, nil)
	if err != nil {
		return nil, meta, err
	}

	styles := []string{}
	if err := decode(unwrap(raw, "styles", "data"), &styles); err != nil {
		return nil, meta, fmt.Errorf("failed to decode image styles: %w", err)
	}

	return styles, meta, nil
}

// executeImage handles both JSON and binary image responses.
func (c *Client) executeImage(
	ctx context.Context,
	cred domain.Credential,
	path string,
	payload *Payload,
) (*domain.ImageResult, domain.ResponseMetadata, error) {
	content, meta, err := c.ExecuteRaw(ctx, cred, http.MethodPost, path, payload)
	if err != nil {
		return nil, meta, err
	}

	if !isJSON(content.ContentType) {
		return &domain.ImageResult{Binary: content}, meta, nil
	}

	result, err := decodeImageResult(content.Data)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return result, meta, nil
}

func decodeImageResult(raw []byte) (*domain.ImageResult, error) {
	var resp imageResponse
	if err := decode(raw, &resp); err != nil {
		return nil, err
	}

	result := &domain.ImageResult{ID: resp.ID, Images: resp.Data}
	for _, item := range resp.Images {
		var b64 string
		if err := json.Unmarshal(item, &b64); err == nil {
			result.Images = append(result.Images, domain.GeneratedImage{B64JSON: b64})
			continue
		}

		var image domain.GeneratedImage
		if err := json.Unmarshal(item, &image); err != nil {
			return nil, err
		}
		result.Images = append(result.Images, image)
	}

	return result, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == contentTypeJSON
}
