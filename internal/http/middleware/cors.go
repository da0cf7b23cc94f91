package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/davidbz/venicedesk/internal/config"
)

// CORS creates a middleware that lets the browser UI call the workspace API
// from another origin. Streaming responses pass through unchanged.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		// Return no-op middleware if config is nil.
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}
