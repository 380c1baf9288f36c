package config

import (
	"context"
	"strings"
	"testing"

	"github.com/bettersystems/crm-api/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type vaultStub map[string]string

func (v vaultStub) GetSecret(_ context.Context, name string) (string, error) {
	if value, ok := v[name]; ok {
		return value, nil
	}
	return "", secrets.ErrSecretNotFound
}

func (v vaultStub) ListNames(_ context.Context, prefix string) ([]string, error) {
	var names []string
	for name := range v {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func TestMergeTicketAPIKeys(t *testing.T) {
	merged := mergeTicketAPIKeys(
		map[string]string{"Portal": "from-file", "shop": "shop-key"},
		[]string{
			"TICKET_API_KEY_CRM_LIGHTING=lighting-key",
			"TICKET_API_KEY_SHOP=env-shop-key",
			"TICKET_API_KEY_EMPTY=",
			"PATH=/usr/bin",
		},
	)

	assert.Equal(t, map[string]string{
		"portal":       "from-file",
		"shop":         "env-shop-key",
		"crm-lighting": "lighting-key",
	}, merged)
}

func TestApplySecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_API_KEY", "env-admin-key")

	cfg := &Config{}
	cfg.ExternalTickets.APIKeys = map[string]string{"portal": "placeholder"}
	store := vaultStub{
		"jwt-secret":                  "vault-jwt",
		"admin-api-key":               "vault-admin-key",
		"ticket-api-key-portal":       "vault-portal",
		"ticket-api-key-crm-lighting": "vault-lighting",
	}

	applySecrets(context.Background(), cfg, secrets.NewProviderWithStore(secrets.SourceVault, store, zap.NewNop()))

	assert.Equal(t, "vault-jwt", cfg.Auth.JWTSecret)
	assert.Equal(t, "env-admin-key", cfg.Auth.AdminAPIKey)
	assert.Equal(t, "vault-portal", cfg.ExternalTickets.APIKeys["portal"])
	assert.Equal(t, "vault-lighting", cfg.ExternalTickets.APIKeys["crm-lighting"])
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Database.Driver = "sqlite"
		cfg.Database.SQLitePath = "./crm.db"
		cfg.Auth.JWTSecret = "short-secret"
		return cfg
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.App.Environment = "production"
	assert.ErrorContains(t, cfg.Validate(), "at least 32 characters")

	cfg = valid()
	cfg.Database.Driver = "mysql"
	cfg.Auth.JWTSecret = ""
	err := cfg.Validate()
	assert.ErrorContains(t, err, "unsupported database driver")
	assert.ErrorContains(t, err, "auth.jwtSecret is required")

	cfg = valid()
	cfg.ExternalTickets.APIKeys = map[string]string{"portal": ""}
	assert.ErrorContains(t, cfg.Validate(), "externalTickets.apiKeys.portal is empty")
}
