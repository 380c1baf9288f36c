package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/secrets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App             AppConfig
	Database        DatabaseConfig
	Auth            AuthConfig
	ExternalTickets ExternalTicketsConfig
	Email           EmailConfig
	Gmail           GmailConfig
	Airtable        AirtableConfig
	Storage         StorageConfig
	Secrets         SecretsConfig
	Redis           RedisConfig
	Logging         LoggingConfig
	Server          ServerConfig
	CORS            CORSConfig
	Security        SecurityConfig
	RateLimit       RateLimitConfig
	Jobs            JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
	// PublicURL is used for links in outbound emails
	PublicURL string
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite"
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

type AuthConfig struct {
	// JWTSecret signs admin session tokens (HS256)
	JWTSecret string
	Issuer    string
	// TokenTTL is the session lifetime in minutes
	TokenTTL int
	// AdminAPIKey authenticates system callers on admin routes
	AdminAPIKey string
}

// ExternalTicketsConfig holds the static API key of every partner application
// allowed to submit tickets, keyed by application source.
type ExternalTicketsConfig struct {
	APIKeys map[string]string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
	FromName     string
	// AdminRecipients receive contact form notifications
	AdminRecipients []string
}

type GmailConfig struct {
	ClientID     string
	ClientSecret string
	// TokenFile holds the OAuth token JSON with a refresh token
	TokenFile string
	// InternalDomains decide message direction and business relevance
	InternalDomains []string
	MaxResults      int64
}

type AirtableConfig struct {
	APIKey  string
	BaseID  string
	Table   string
	BaseURL string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	// CloudAccountURL is used with the default Azure credential when no
	// connection string is configured
	CloudAccountURL string
	CloudContainer  string
	MaxUploadSizeMB int64
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	// "auto" uses environment in development, vault in staging/production
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

// RedisConfig enables the distributed lock backend; empty Addr keeps locks in-process
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	// FrameOptions sets the X-Frame-Options header (DENY, SAMEORIGIN, or empty to disable)
	FrameOptions       string
	ContentTypeNosniff bool
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the default per-IP limit
	RequestsPerMinute int
	// PublicSubmitPerMinute limits unauthenticated form endpoints (reviews, contact, external tickets)
	PublicSubmitPerMinute int
	WhitelistIPs          []string
	WhitelistPaths        []string
}

type JobsConfig struct {
	EmailSync EmailSyncJobConfig
}

type EmailSyncJobConfig struct {
	Enabled  bool
	Schedule string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// TokenTTLDuration returns the session lifetime as duration
func (a *AuthConfig) TokenTTLDuration() time.Duration {
	return time.Duration(a.TokenTTL) * time.Minute
}

// SMTPConfigured reports whether outbound email can be sent
func (e *EmailConfig) SMTPConfigured() bool {
	return e.SMTPHost != "" && e.FromAddress != ""
}

// Configured reports whether Gmail sync credentials are present
func (g *GmailConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.TokenFile != ""
}

// Configured reports whether the Airtable sync target is present
func (a *AirtableConfig) Configured() bool {
	return a.APIKey != "" && a.BaseID != "" && a.Table != ""
}

// Validate fails fast on configuration the service cannot run without
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("database.host and database.name are required for postgres"))
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("database.sqlitePath is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver: %q", c.Database.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwtSecret is required"))
	} else if len(c.Auth.JWTSecret) < 32 && c.App.Environment == "production" {
		errs = append(errs, errors.New("auth.jwtSecret must be at least 32 characters in production"))
	}
	for source, key := range c.ExternalTickets.APIKeys {
		if key == "" {
			errs = append(errs, fmt.Errorf("externalTickets.apiKeys.%s is empty", source))
		}
	}
	return errors.Join(errs...)
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}
	if cfg.Auth.AdminAPIKey == "" {
		cfg.Auth.AdminAPIKey = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	cfg.ExternalTickets.APIKeys = mergeTicketAPIKeys(cfg.ExternalTickets.APIKeys, os.Environ())

	return &cfg, nil
}

// ticketKeyEnvPrefix names per-source keys in the environment,
// e.g. TICKET_API_KEY_CRM_LIGHTING for source "crm-lighting".
const ticketKeyEnvPrefix = "TICKET_API_KEY_"

// mergeTicketAPIKeys overlays TICKET_API_KEY_* environment variables on the configured keys
func mergeTicketAPIKeys(keys map[string]string, environ []string) map[string]string {
	merged := make(map[string]string, len(keys))
	for source, key := range keys {
		merged[strings.ToLower(source)] = key
	}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, ticketKeyEnvPrefix) || value == "" {
			continue
		}
		source := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, ticketKeyEnvPrefix), "_", "-"))
		merged[source] = value
	}
	return merged
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// Key Vault is used when USE_AZURE_KEY_VAULT=true and the environment is staging or production;
// otherwise secrets come from the environment.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider (USE_AZURE_KEY_VAULT=true requires valid vault): %w", err)
	}

	applySecrets(ctx, cfg, provider)

	logger.Info("Secrets loaded from vault successfully",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)
	return cfg, nil
}

const ticketKeySecretPrefix = "ticket-api-key-"

// secretBinding maps a Key Vault secret to its environment override and config field
type secretBinding struct {
	secretName string
	envName    string
	target     *string
}

func applySecrets(ctx context.Context, cfg *Config, provider *secrets.Provider) {
	bindings := []secretBinding{
		{"POSTGRES-MAIN-HOST", "DATABASE_HOST", &cfg.Database.Host},
		{"POSTGRES-MAIN-USER", "DATABASE_USER", &cfg.Database.User},
		{"POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", &cfg.Database.Password},
		{"jwt-secret", "JWT_SECRET", &cfg.Auth.JWTSecret},
		{"admin-api-key", "ADMIN_API_KEY", &cfg.Auth.AdminAPIKey},
		{"smtp-password", "EMAIL_SMTPPASSWORD", &cfg.Email.SMTPPassword},
		{"gmail-client-secret", "GMAIL_CLIENTSECRET", &cfg.Gmail.ClientSecret},
		{"airtable-api-key", "AIRTABLE_APIKEY", &cfg.Airtable.APIKey},
		{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", &cfg.Storage.CloudConnectionString},
		{"redis-password", "REDIS_PASSWORD", &cfg.Redis.Password},
	}
	for _, b := range bindings {
		if value, err := provider.GetSecretOrEnv(ctx, b.secretName, b.envName); err == nil && value != "" {
			*b.target = value
		}
	}

	// One vault secret per partner application, e.g. "ticket-api-key-crm-lighting".
	// Sources present only in the vault are picked up as well.
	sources := make(map[string]struct{}, len(cfg.ExternalTickets.APIKeys))
	for source := range cfg.ExternalTickets.APIKeys {
		sources[source] = struct{}{}
	}
	if names, err := provider.ListNames(ctx, ticketKeySecretPrefix); err == nil {
		for _, name := range names {
			sources[strings.ToLower(strings.TrimPrefix(name, ticketKeySecretPrefix))] = struct{}{}
		}
	}
	if cfg.ExternalTickets.APIKeys == nil {
		cfg.ExternalTickets.APIKeys = make(map[string]string)
	}
	for source := range sources {
		if value, err := provider.GetSecret(ctx, ticketKeySecretPrefix+source); err == nil && value != "" {
			cfg.ExternalTickets.APIKeys[source] = value
		}
	}
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "CRM API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.publicURL", "http://localhost:5173")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "crm")
	v.SetDefault("database.user", "crm_user")
	v.SetDefault("database.password", "crm_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.sqlitePath", "./data/crm.db")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Auth defaults
	v.SetDefault("auth.issuer", "crm-api")
	v.SetDefault("auth.tokenTTL", 60*24)

	// Email defaults
	v.SetDefault("email.smtpPort", 465)
	v.SetDefault("email.fromName", "Better Systems AI")

	// Gmail defaults
	v.SetDefault("gmail.maxResults", 50)
	v.SetDefault("gmail.internalDomains", []string{"@bettersystems.ai"})

	// Airtable defaults
	v.SetDefault("airtable.baseURL", "https://api.airtable.com/v0")
	v.SetDefault("airtable.table", "Leads")

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./uploads")
	v.SetDefault("storage.cloudContainer", "documents")
	v.SetDefault("storage.maxUploadSizeMB", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Application-Source", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults - secure by default
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.publicSubmitPerMinute", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})

	// Jobs defaults
	v.SetDefault("jobs.emailSync.enabled", false)
	v.SetDefault("jobs.emailSync.schedule", "0 */30 * * * *")
}
