package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bettersystems/crm-api/internal/config"
	"github.com/bettersystems/crm-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func corsRequest(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	req.Header.Set("Origin", origin)
	return req
}

func TestCORS(t *testing.T) {
	base := config.CORSConfig{
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}

	t.Run("explicit origins", func(t *testing.T) {
		cfg := base
		cfg.AllowedOrigins = []string{"https://app.bettersystems.ai"}
		h := middleware.CORS(&cfg, "production", zap.NewNop())(okHandler)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, corsRequest("https://app.bettersystems.ai"))
		assert.Equal(t, "https://app.bettersystems.ai", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rr.Header().Get("Access-Control-Expose-Headers"), http.CanonicalHeaderKey(middleware.RequestIDHeader))

		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, corsRequest("https://evil.example"))
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no origins in production denies", func(t *testing.T) {
		cfg := base
		h := middleware.CORS(&cfg, "production", zap.NewNop())(okHandler)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, corsRequest("https://app.bettersystems.ai"))
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no origins in development allows", func(t *testing.T) {
		cfg := base
		h := middleware.CORS(&cfg, "development", zap.NewNop())(okHandler)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, corsRequest("http://localhost:3000"))
		assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard allows any origin", func(t *testing.T) {
		cfg := base
		cfg.AllowedOrigins = []string{"*"}
		h := middleware.CORS(&cfg, "staging", zap.NewNop())(okHandler)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, corsRequest("https://partner.example"))
		assert.Equal(t, "https://partner.example", rr.Header().Get("Access-Control-Allow-Origin"))
	})
}
