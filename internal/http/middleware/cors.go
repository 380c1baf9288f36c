package middleware

import (
	"net/http"

	"github.com/bettersystems/crm-api/internal/config"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func allowAnyOrigin(_ *http.Request, origin string) bool {
	return origin != ""
}

func denyAllOrigins(_ *http.Request, _ string) bool {
	return false
}

// CORS builds the cross-origin policy. An empty origin list allows every
// origin in development and none elsewhere; "*" allows every origin.
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	exposed := append([]string{RequestIDHeader}, cfg.ExposedHeaders...)
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   exposed,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	development := environment == "" || environment == "development" || environment == "local"

	switch {
	case containsWildcard(cfg.AllowedOrigins):
		if !development {
			logger.Warn("CORS configured with wildcard origin in non-development environment",
				zap.String("environment", environment))
		}
		options.AllowOriginFunc = allowAnyOrigin
	case len(cfg.AllowedOrigins) > 0:
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS configured with explicit origins", zap.Strings("origins", cfg.AllowedOrigins))
	case development:
		options.AllowOriginFunc = allowAnyOrigin
		logger.Info("CORS configured to allow all origins in development mode")
	default:
		// an empty AllowedOrigins list means "*" to go-chi/cors
		options.AllowOriginFunc = denyAllOrigins
		logger.Warn("CORS configured with no allowed origins; cross-origin requests will be denied",
			zap.String("environment", environment))
	}

	return cors.Handler(options)
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
