package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/observability"
)

const sseDone = "data: [DONE]\n\n"

// HandleChatCompletion processes chat requests. stream:true responses are
// relayed to the UI as server-sent events.
func (h *Handler) HandleChatCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.ChatCompletionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	ctx = observability.WithModel(ctx, req.Model)

	logger := observability.FromContext(ctx)
	logger.Info("chat request received",
		observability.Int("messages", len(req.Messages)),
		observability.Bool("stream", req.Stream),
	)

	if req.Stream {
		h.handleStream(ctx, w, h.credential(r), &req)
		return
	}

	response, meta, err := h.workspace.Complete(ctx, h.credential(r), &req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if response.Usage != nil {
		logger.Info("chat completion succeeded", observability.Int("tokens", response.Usage.TotalTokens))
	}

	writeJSON(ctx, w, http.StatusOK, envelope{Data: response, Metadata: meta})
}

func (h *Handler) handleStream(
	ctx context.Context,
	w http.ResponseWriter,
	cred domain.Credential,
	req *domain.ChatCompletionRequest,
) {
	logger := observability.FromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	stream, err := h.workspace.StreamChat(ctx, cred, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	chunks := 0
	for chunk, streamErr := range domain.Chunks(stream) {
		if streamErr != nil {
			_, message := classify(streamErr)
			logger.Error("stream interrupted", observability.Error(streamErr), observability.Int("chunks", chunks))
			data, _ := json.Marshal(errorResponse{Error: message})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
			flusher.Flush()
			return
		}

		if ctx.Err() != nil {
			logger.Info("client went away, abandoning stream", observability.Int("chunks", chunks))
			return
		}

		data, marshalErr := json.Marshal(chunk)
		if marshalErr != nil {
			logger.Error("failed to encode chunk", observability.Error(marshalErr))
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
		chunks++
	}

	fmt.Fprint(w, sseDone)
	flusher.Flush()

	logger.Info("stream completed", observability.Int("chunks", chunks))
}
