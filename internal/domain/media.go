package domain

import "encoding/json"

// ImageGenerateRequest is the JSON body of /image/generate.
type ImageGenerateRequest struct {
	Model          string  `json:"model"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Steps          int     `json:"steps,omitempty"`
	CfgScale       float64 `json:"cfg_scale,omitempty"`
	Seed           *int64  `json:"seed,omitempty"`
	StylePreset    string  `json:"style_preset,omitempty"`
	ReturnBinary   bool    `json:"return_binary,omitempty"`
	N              int     `json:"n,omitempty"`
}

// ImageFile is an uploaded image part of a multipart request.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageEditRequest is sent as multipart form data.
type ImageEditRequest struct {
	Image            ImageFile
	Mask             *ImageFile
	Prompt           string
	Model            string
	N                int
	Size             string
	VeniceParameters *VeniceParameters
}

// ImageUpscaleRequest is sent as multipart form data.
type ImageUpscaleRequest struct {
	Image            ImageFile
	Model            string
	Scale            float64
	Enhance          *bool
	EnhancePrompt    string
	Replication      *float64
	VeniceParameters *VeniceParameters
}

// GeneratedImage is one image returned as a URL or base64 payload.
type GeneratedImage struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ImageResult holds either decoded JSON images or a raw binary image.
type ImageResult struct {
	ID     string           `json:"id,omitempty"`
	Images []GeneratedImage `json:"images,omitempty"`
	Binary *BinaryContent   `json:"binary,omitempty"`
}

// EmbeddingRequest requests vectors for one or more inputs.
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// UnmarshalJSON accepts input as a single string or an array of strings.
func (r *EmbeddingRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Model string          `json:"model"`
		Input json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Model = raw.Model
	r.Input = nil
	if len(raw.Input) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw.Input, &single); err == nil {
		r.Input = []string{single}
		return nil
	}

	return json.Unmarshal(raw.Input, &r.Input)
}

// Embedding is one vector of an EmbeddingResponse.
type Embedding struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingResponse carries vectors and prompt-only usage.
type EmbeddingResponse struct {
	Model string      `json:"model"`
	Data  []Embedding `json:"data"`
	Usage *Usage      `json:"usage,omitempty"`
}

// SpeechRequest is the JSON body of /audio/speech.
type SpeechRequest struct {
	Model          string   `json:"model"`
	Input          string   `json:"input"`
	Voice          string   `json:"voice"`
	ResponseFormat string   `json:"response_format,omitempty"` // mp3, opus, aac, flac, wav, pcm
	Speed          *float64 `json:"speed,omitempty"`
}
