package secrets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

const defaultCacheTTL = 5 * time.Minute

// VaultConfig holds configuration for the vault client
type VaultConfig struct {
	VaultName    string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// VaultClient reads CRM secrets from Azure Key Vault. Values are cached per
// name until CacheTTL passes when caching is enabled.
type VaultClient struct {
	client *azsecrets.Client
	logger *zap.Logger
	ttl    time.Duration // zero disables caching

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value   string
	expires time.Time
}

// NewVaultClient connects to https://<VaultName>.vault.azure.net using the
// default Azure credential chain.
func NewVaultClient(cfg *VaultConfig, logger *zap.Logger) (*VaultClient, error) {
	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := "https://" + cfg.VaultName + ".vault.azure.net/"
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	var ttl time.Duration
	if cfg.CacheEnabled {
		ttl = cfg.CacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
	}

	logger.Info("key vault connected", zap.String("vault_url", vaultURL), zap.Duration("cache_ttl", ttl))
	return &VaultClient{client: client, logger: logger, ttl: ttl, cache: make(map[string]cacheEntry)}, nil
}

// GetSecret returns the current version of a secret
func (v *VaultClient) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := v.lookup(name); ok {
		return value, nil
	}

	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("%w: %q has no value", ErrSecretNotFound, name)
	}

	v.store(name, *resp.Value)
	return *resp.Value, nil
}

// ListNames returns the enabled secret names starting with prefix, sorted
func (v *VaultClient) ListNames(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	pager := v.client.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list secrets: %w", err)
		}
		for _, props := range page.Value {
			if props.ID == nil {
				continue
			}
			if props.Attributes != nil && props.Attributes.Enabled != nil && !*props.Attributes.Enabled {
				continue
			}
			if name := props.ID.Name(); strings.HasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (v *VaultClient) lookup(name string) (string, bool) {
	if v.ttl == 0 {
		return "", false
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.cache[name]
	if !ok || time.Now().After(entry.expires) {
		delete(v.cache, name)
		return "", false
	}
	return entry.value, true
}

func (v *VaultClient) store(name, value string) {
	if v.ttl == 0 {
		return
	}
	v.mu.Lock()
	v.cache[name] = cacheEntry{value: value, expires: time.Now().Add(v.ttl)}
	v.mu.Unlock()
}
