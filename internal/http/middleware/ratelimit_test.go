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

func request(path, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = ip + ":12345"
	return req
}

func TestRateLimiter(t *testing.T) {
	cfg := &config.RateLimitConfig{
		Enabled:               true,
		RequestsPerMinute:     3,
		PublicSubmitPerMinute: 1,
		WhitelistIPs:          []string{"10.0.0.9", "100.64.0.0/10", "not-an-ip"},
		WhitelistPaths:        []string{"/health", "/swagger/*"},
	}

	t.Run("limits per IP", func(t *testing.T) {
		h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitByIP(okHandler)

		for i := 0; i < 3; i++ {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, request("/api/clients", "192.168.1.1"))
			assert.Equal(t, http.StatusOK, rr.Code)
		}

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, request("/api/clients", "192.168.1.1"))
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "60", rr.Header().Get("Retry-After"))
		assert.Contains(t, rr.Body.String(), "rate_limited")

		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, request("/api/clients", "192.168.1.2"))
		assert.Equal(t, http.StatusOK, rr.Code, "other clients keep their own budget")
	})

	t.Run("honours X-Forwarded-For", func(t *testing.T) {
		h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitByIP(okHandler)

		for i := 0; i < 3; i++ {
			req := request("/api/clients", "172.16.0.1")
			req.Header.Set("X-Forwarded-For", "203.0.113.5, 172.16.0.1")
			h.ServeHTTP(httptest.NewRecorder(), req)
		}
		req := request("/api/clients", "172.16.0.2")
		req.Header.Set("X-Forwarded-For", "203.0.113.5")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	})

	t.Run("whitelisted IPs and paths are exempt", func(t *testing.T) {
		h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitByIP(okHandler)

		for i := 0; i < 5; i++ {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, request("/api/clients", "10.0.0.9"))
			assert.Equal(t, http.StatusOK, rr.Code)

			rr = httptest.NewRecorder()
			h.ServeHTTP(rr, request("/api/clients", "100.70.3.4"))
			assert.Equal(t, http.StatusOK, rr.Code, "inside whitelisted range")

			rr = httptest.NewRecorder()
			h.ServeHTTP(rr, request("/swagger/index.html", "192.168.5.5"))
			assert.Equal(t, http.StatusOK, rr.Code)
		}
	})

	t.Run("public submissions have their own bucket", func(t *testing.T) {
		h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitPublicSubmit(okHandler)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, request("/api/contact", "192.168.9.9"))
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, request("/api/contact", "192.168.9.9"))
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)

		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, request("/api/reviews", "192.168.9.9"))
		assert.Equal(t, http.StatusOK, rr.Code, "buckets are per endpoint")
	})

	t.Run("disabled limiter passes everything", func(t *testing.T) {
		off := *cfg
		off.Enabled = false
		h := middleware.NewRateLimiter(&off, zap.NewNop()).LimitByIP(okHandler)

		for i := 0; i < 10; i++ {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, request("/api/clients", "192.168.1.1"))
			assert.Equal(t, http.StatusOK, rr.Code)
		}
	})
}
