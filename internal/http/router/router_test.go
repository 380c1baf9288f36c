package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/config"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/http/handler"
	"github.com/bettersystems/crm-api/internal/http/middleware"
	"github.com/bettersystems/crm-api/internal/http/router"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/bettersystems/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const adminAPIKey = "test-admin-key"

func setupRouter(t *testing.T) (http.Handler, *auth.TokenIssuer) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	cfg := &config.Config{
		App:       config.AppConfig{Name: "crm-api", Environment: "development"},
		Auth:      config.AuthConfig{JWTSecret: "router-test-secret", Issuer: "crm-api", TokenTTL: 60, AdminAPIKey: adminAPIKey},
		Security:  config.SecurityConfig{ContentTypeNosniff: true},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}

	issuer := auth.NewTokenIssuer(&cfg.Auth)
	policy, err := auth.NewPolicy()
	require.NoError(t, err)

	activity := service.NewActivityService(repository.NewActivityRepository(db), logger)
	clientService := service.NewClientService(
		repository.NewClientRepository(db),
		repository.NewProjectRepository(db),
		repository.NewDealRepository(db),
		repository.NewEmailLogRepository(db),
		activity, logger)

	rt := router.NewRouter(cfg, logger, db,
		auth.NewMiddleware(issuer, policy, cfg.Auth.AdminAPIKey, logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		router.Handlers{
			Clients: handler.NewClientHandler(clientService, logger),
		})
	return rt.Setup(), issuer
}

func bearer(t *testing.T, issuer *auth.TokenIssuer, role domain.UserRole) string {
	t.Helper()
	token, _, err := issuer.Issue(&domain.User{BaseModel: domain.BaseModel{ID: 3}, Username: "kim", Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouter_Health(t *testing.T) {
	h, _ := setupRouter(t)

	for _, path := range []string{"/health", "/health/db", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

			require.Equal(t, http.StatusOK, rr.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, "healthy", body["status"])
			assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
			assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRouter_Authorization(t *testing.T) {
	h, issuer := setupRouter(t)

	tests := []struct {
		name          string
		method        string
		path          string
		authorization string
		apiKey        string
		wantStatus    int
	}{
		{"no credentials", http.MethodGet, "/api/clients", "", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/clients", "Bearer nope", "", http.StatusUnauthorized},
		{"wrong api key", http.MethodGet, "/api/clients", "", "wrong", http.StatusUnauthorized},
		{"admin api key", http.MethodGet, "/api/clients", "", adminAPIKey, http.StatusOK},
		{"staff may read", http.MethodGet, "/api/clients", bearer(t, issuer, domain.UserRoleStaff), "", http.StatusOK},
		{"staff may not delete clients", http.MethodDelete, "/api/clients/1", bearer(t, issuer, domain.UserRoleStaff), "", http.StatusForbidden},
		{"staff may not bill", http.MethodPost, "/api/tickets/mark-billed", bearer(t, issuer, domain.UserRoleStaff), "", http.StatusForbidden},
		{"admin reaches the handler", http.MethodDelete, "/api/clients/999", bearer(t, issuer, domain.UserRoleAdmin), "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			if tt.apiKey != "" {
				req.Header.Set("x-api-key", tt.apiKey)
			}
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
