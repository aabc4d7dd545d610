package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"invoicely-backend/internal/config"
)

// NewCORS builds the browser cross-origin layer from the configured origins.
// Credentials stay on so the dashboard frontend can send the auth header.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	})

	return c.Handler
}
