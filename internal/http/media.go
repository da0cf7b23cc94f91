package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/davidbz/venicedesk/internal/domain"
)

const multipartMemory = 32 << 20

// HandleGenerateImage creates images from a JSON prompt.
func (h *Handler) HandleGenerateImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.ImageGenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, meta, err := h.workspace.GenerateImage(ctx, h.credential(r), &req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeImage(w, r, result, meta)
}

// HandleEditImage edits an image. The UI may send multipart form data or JSON
// with base64 images.
func (h *Handler) HandleEditImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := parseEditRequest(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, meta, err := h.workspace.EditImage(ctx, h.credential(r), req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeImage(w, r, result, meta)
}

// HandleUpscaleImage upscales an image. Same input forms as HandleEditImage.
func (h *Handler) HandleUpscaleImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := parseUpscaleRequest(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, meta, err := h.workspace.UpscaleImage(ctx, h.credential(r), req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeImage(w, r, result, meta)
}

// HandleImageStyles lists the style presets.
func (h *Handler) HandleImageStyles(w http.ResponseWriter, r *http.Request) {
	styles, meta, err := h.models.ImageStyles(r.Context(), h.credential(r))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: styles, Metadata: meta})
}

// HandleEmbeddings computes embeddings.
func (h *Handler) HandleEmbeddings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.EmbeddingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	resp, meta, err := h.workspace.CreateEmbeddings(ctx, h.credential(r), &req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, envelope{Data: resp, Metadata: meta})
}

// HandleSpeech synthesizes speech and returns the audio bytes.
func (h *Handler) HandleSpeech(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.SpeechRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	audio, _, err := h.workspace.CreateSpeech(ctx, h.credential(r), &req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeBinary(ctx, w, audio)
}

func writeImage(w http.ResponseWriter, r *http.Request, result *domain.ImageResult, meta domain.ResponseMetadata) {
	if result.Binary != nil {
		writeBinary(r.Context(), w, result.Binary)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, envelope{Data: result, Metadata: meta})
}

type editJSON struct {
	Image            string                   `json:"image"`
	Mask             string                   `json:"mask,omitempty"`
	Prompt           string                   `json:"prompt"`
	Model            string                   `json:"model,omitempty"`
	N                int                      `json:"n,omitempty"`
	Size             string                   `json:"size,omitempty"`
	VeniceParameters *domain.VeniceParameters `json:"venice_parameters,omitempty"`
}

type upscaleJSON struct {
	Image            string                   `json:"image"`
	Model            string                   `json:"model,omitempty"`
	Scale            float64                  `json:"scale,omitempty"`
	Enhance          *bool                    `json:"enhance,omitempty"`
	EnhancePrompt    string                   `json:"enhancePrompt,omitempty"`
	Replication      *float64                 `json:"replication,omitempty"`
	VeniceParameters *domain.VeniceParameters `json:"venice_parameters,omitempty"`
}

func parseEditRequest(w http.ResponseWriter, r *http.Request) (*domain.ImageEditRequest, error) {
	if isMultipart(r) {
		form, err := parseForm(r)
		if err != nil {
			return nil, err
		}

		image, err := form.file("image")
		if err != nil {
			return nil, err
		}
		req := &domain.ImageEditRequest{
			Image:  *image,
			Prompt: form.value("prompt"),
			Model:  form.value("model"),
			Size:   form.value("size"),
		}
		if req.Mask, err = form.optionalFile("mask"); err != nil {
			return nil, err
		}
		if req.N, err = form.intValue("n"); err != nil {
			return nil, err
		}
		if req.VeniceParameters, err = form.veniceParameters(); err != nil {
			return nil, err
		}
		return req, nil
	}

	var body editJSON
	if err := decodeJSON(w, r, &body); err != nil {
		return nil, err
	}

	image, err := decodeImage("image", body.Image)
	if err != nil {
		return nil, err
	}
	req := &domain.ImageEditRequest{
		Image:            *image,
		Prompt:           body.Prompt,
		Model:            body.Model,
		N:                body.N,
		Size:             body.Size,
		VeniceParameters: body.VeniceParameters,
	}
	if body.Mask != "" {
		if req.Mask, err = decodeImage("mask", body.Mask); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func parseUpscaleRequest(w http.ResponseWriter, r *http.Request) (*domain.ImageUpscaleRequest, error) {
	if isMultipart(r) {
		form, err := parseForm(r)
		if err != nil {
			return nil, err
		}

		image, err := form.file("image")
		if err != nil {
			return nil, err
		}
		req := &domain.ImageUpscaleRequest{
			Image:         *image,
			Model:         form.value("model"),
			EnhancePrompt: form.value("enhancePrompt"),
		}
		if req.Scale, err = form.floatValue("scale"); err != nil {
			return nil, err
		}
		if req.Enhance, err = form.optionalBool("enhance"); err != nil {
			return nil, err
		}
		if req.Replication, err = form.optionalFloat("replication"); err != nil {
			return nil, err
		}
		if req.VeniceParameters, err = form.veniceParameters(); err != nil {
			return nil, err
		}
		return req, nil
	}

	var body upscaleJSON
	if err := decodeJSON(w, r, &body); err != nil {
		return nil, err
	}

	image, err := decodeImage("image", body.Image)
	if err != nil {
		return nil, err
	}
	return &domain.ImageUpscaleRequest{
		Image:            *image,
		Model:            body.Model,
		Scale:            body.Scale,
		Enhance:          body.Enhance,
		EnhancePrompt:    body.EnhancePrompt,
		Replication:      body.Replication,
		VeniceParameters: body.VeniceParameters,
	}, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(field, encoded string) (*domain.ImageFile, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidRequest, field)
	}

	contentType := ""
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: %s is not a base64 data URL", domain.ErrInvalidRequest, field)
		}
		contentType = strings.TrimSuffix(header, ";base64")
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64: %w", domain.ErrInvalidRequest, field, err)
	}

	return &domain.ImageFile{Filename: field, ContentType: contentType, Data: data}, nil
}

type formReader struct {
	form *multipart.Form
}

func parseForm(r *http.Request) (*formReader, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart body: %w", domain.ErrInvalidRequest, err)
	}
	return &formReader{form: r.MultipartForm}, nil
}

func (f *formReader) value(name string) string {
	if values := f.form.Value[name]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func (f *formReader) file(name string) (*domain.ImageFile, error) {
	file, err := f.optionalFile(name)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidRequest, name)
	}
	return file, nil
}

func (f *formReader) optionalFile(name string) (*domain.ImageFile, error) {
	headers := f.form.File[name]
	if len(headers) == 0 {
		return nil, nil //nolint:nilnil // absent optional part
	}

	fh := headers[0]
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return &domain.ImageFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (f *formReader) intValue(name string) (int, error) {
	raw := f.value(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, name)
	}
	return n, nil
}

func (f *formReader) floatValue(name string) (float64, error) {
	v, err := f.optionalFloat(name)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

func (f *formReader) optionalFloat(name string) (*float64, error) {
	raw := f.value(name)
	if raw == "" {
		return nil, nil //nolint:nilnil // absent optional field
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidRequest, name)
	}
	return &v, nil
}

func (f *formReader) optionalBool(name string) (*bool, error) {
	raw := f.value(name)
	if raw == "" {
		return nil, nil //nolint:nilnil // absent optional field
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a boolean", domain.ErrInvalidRequest, name)
	}
	return &v, nil
}

func (f *formReader) veniceParameters() (*domain.VeniceParameters, error) {
	raw := f.value("venice_parameters")
	if raw == "" {
		return nil, nil //nolint:nilnil // absent optional field
	}
	var params domain.VeniceParameters
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("%w: venice_parameters is not valid JSON", domain.ErrInvalidRequest)
	}
	return &params, nil
}
