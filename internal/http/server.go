package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davidbz/venicedesk/internal/config"
	"github.com/davidbz/venicedesk/internal/http/middleware"
	"github.com/davidbz/venicedesk/internal/observability"
)

// Server represents the HTTP server.
type Server struct {
	config      config.ServerConfig
	handler     *Handler
	middlewares middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	middlewares middleware.Middleware,
) *Server {
	s := &Server{
		config:      *cfg,
		handler:     handler,
		middlewares: middlewares,
	}

	// WriteTimeout of 0 leaves chat streams unbounded.
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: time.Duration(cfg.ReadTimeout) * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
	}

	return s
}

// Routes returns the mux with the middleware chain applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	h := s.handler

	mux.HandleFunc("POST /v1/chat/completions", h.HandleChatCompletion)

	mux.HandleFunc("POST /v1/image/generate", h.HandleGenerateImage)
	mux.HandleFunc("POST /v1/image/edit", h.HandleEditImage)
	mux.HandleFunc("POST /v1/image/upscale", h.HandleUpscaleImage)
	mux.HandleFunc("GET /v1/image/styles", h.HandleImageStyles)
	mux.HandleFunc("POST /v1/embeddings", h.HandleEmbeddings)
	mux.HandleFunc("POST /v1/audio/speech", h.HandleSpeech)

	mux.HandleFunc("GET /v1/characters", h.HandleListCharacters)
	mux.HandleFunc("POST /v1/characters", h.HandleCreateCharacter)
	mux.HandleFunc("GET /v1/characters/{slug}", h.HandleGetCharacter)
	mux.HandleFunc("PATCH /v1/characters/{slug}", h.HandleUpdateCharacter)
	mux.HandleFunc("DELETE /v1/characters/{slug}", h.HandleDeleteCharacter)

	mux.HandleFunc("GET /v1/models", h.HandleListModels)
	mux.HandleFunc("GET /v1/models/traits", h.HandleModelTraits)
	mux.HandleFunc("GET /v1/models/compatibility", h.HandleCompatibilityMapping)
	mux.HandleFunc("GET /v1/models/{id}", h.HandleGetModel)

	mux.HandleFunc("GET /v1/account/rate-limits", h.HandleRateLimits)
	mux.HandleFunc("GET /v1/account/billing", h.HandleBillingUsage)

	mux.HandleFunc("GET /v1/stats", h.HandleStats)
	mux.HandleFunc("DELETE /v1/stats", h.HandleResetStats)
	mux.HandleFunc("GET /v1/deprecations", h.HandleDeprecations)
	mux.HandleFunc("DELETE /v1/deprecations/{model}", h.HandleDismissDeprecation)
	mux.HandleFunc("GET /v1/credential", h.HandleCredentialStatus)
	mux.HandleFunc("PUT /v1/credential", h.HandleSetCredential)
	mux.HandleFunc("DELETE /v1/credential", h.HandleClearCredential)

	mux.HandleFunc("GET /health", h.HandleHealth)

	if s.middlewares == nil {
		return mux
	}
	return s.middlewares(mux)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
