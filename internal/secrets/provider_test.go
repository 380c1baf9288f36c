package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapStore map[string]string

func (m mapStore) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", ErrSecretNotFound
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "staging"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceEnvironment, "production"))
}

func TestProvider_GetSecretOrEnv_PrefersEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	p := NewProviderWithStore(SourceVault, mapStore{"jwt-secret": "from-vault"}, zap.NewNop())

	v, err := p.GetSecretOrEnv(context.Background(), "jwt-secret", "JWT_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}

func TestProvider_GetSecretOrEnv_FallsBackToStore(t *testing.T) {
	p := NewProviderWithStore(SourceVault, mapStore{"admin-api-key": "k"}, zap.NewNop())

	v, err := p.GetSecretOrEnv(context.Background(), "admin-api-key", "CRM_TEST_UNSET_VAR")
	require.NoError(t, err)
	assert.Equal(t, "k", v)

	_, err = p.GetSecret(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestNewProvider_EnvironmentSource(t *testing.T) {
	t.Setenv("CRM_TEST_SECRET", "value")
	p, err := NewProvider(&ProviderConfig{Source: SourceAuto, Environment: "development"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, SourceEnvironment, p.Source())

	v, err := p.GetSecret(context.Background(), "CRM_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "value", v)
}

func TestNewProvider_VaultRequiresName(t *testing.T) {
	_, err := NewProvider(&ProviderConfig{Source: SourceVault}, zap.NewNop())
	assert.Error(t, err)
}

type listingStore struct {
	mapStore
}

func (s listingStore) ListNames(_ context.Context, prefix string) ([]string, error) {
	var names []string
	for name := range s.mapStore {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			names = append(names, name)
		}
	}
	return names, nil
}

func TestProvider_ListNames(t *testing.T) {
	plain := NewProviderWithStore(SourceEnvironment, mapStore{"ticket-api-key-portal": "k"}, zap.NewNop())
	names, err := plain.ListNames(context.Background(), "ticket-api-key-")
	require.NoError(t, err)
	assert.Empty(t, names)

	listing := NewProviderWithStore(SourceVault, listingStore{mapStore{
		"ticket-api-key-portal": "k",
		"jwt-secret":            "s",
	}}, zap.NewNop())
	names, err = listing.ListNames(context.Background(), "ticket-api-key-")
	require.NoError(t, err)
	assert.Equal(t, []string{"ticket-api-key-portal"}, names)
}
