package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=60s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT,default=55s"`

	// request guards
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,separator=|"`
	RateLimitRPS   int32    `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst int32    `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestSize int64    `env:"MAX_REQUEST_SIZE,default=10485760"`

	// API_KEY is deliberately not part of this struct: it is read from the environment on each request.
	APIKeyEnvVar string `env:"API_KEY_ENV_VAR,default=API_KEY"`

	// blockchain providers
	// RPC_URLS overrides the default RPC endpoint of a network, e.g. "sepolia=https://...|amoy=https://..."
	RPCURLs              string        `env:"RPC_URLS"`
	AmoyFallbackRPCURL   string        `env:"AMOY_FALLBACK_RPC_URL,default=https://rpc-amoy.polygon.technology"`
	// 0 leaves provider checks to the request context deadline
	ProviderProbeTimeout time.Duration `env:"PROVIDER_PROBE_TIMEOUT,default=0s"`

	// DNS-over-HTTPS resolvers used for the DNS identity proofs, tried in order
	DNSResolverURLs []string      `env:"DNS_RESOLVER_URLS,separator=|,default=https://dns.google/resolve|https://cloudflare-dns.com/dns-query"`
	DNSTimeout      time.Duration `env:"DNS_TIMEOUT,default=5s"`

	// document storage
	StorageBackend        string        `env:"STORAGE_BACKEND,default=memory"`
	StorageTTL            time.Duration `env:"STORAGE_TTL,default=720h"`
	StorageConnectTimeout time.Duration `env:"STORAGE_CONNECT_TIMEOUT,default=10s"`
	RedisAddr             string        `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword         string        `env:"REDIS_PASSWORD"`
	RedisDB               int           `env:"REDIS_DB,default=0"`
	RedisKeyPrefix        string        `env:"REDIS_KEY_PREFIX,default=docverifier:document:"`
	BadgerDir             string        `env:"BADGER_DIR,default=./data/badger"`

	// postgres storage (STORAGE_BACKEND=postgres)
	DatabaseURL       string        `env:"DATABASE_URL"`
	DBMaxConnections  int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections  int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`

	// optional - when set, verification responses include a signed receipt
	ReceiptSigningKeyPath string `env:"RECEIPT_SIGNING_KEY_PATH"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

var validStorageBackends = map[string]bool{
	"memory":   true,
	"redis":    true,
	"badger":   true,
	"postgres": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RPCURLOverrides parses RPC_URLS into a map of network name to RPC URL.
func (c *ServerEnvironment) RPCURLOverrides() (map[string]string, error) {
	overrides := make(map[string]string)
	if strings.TrimSpace(c.RPCURLs) == "" {
		return overrides, nil
	}

	for _, entry := range strings.Split(c.RPCURLs, "|") {
		name, rawURL, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || name == "" || rawURL == "" {
			return nil, fmt.Errorf("invalid RPC_URLS entry %q (expected name=url)", entry)
		}
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return nil, fmt.Errorf("invalid RPC URL for network %s: %w", name, err)
		}
		overrides[name] = rawURL
	}
	return overrides, nil
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if !validStorageBackends[cfg.StorageBackend] {
		return fmt.Errorf("invalid STORAGE_BACKEND: %s (expected memory, redis, badger or postgres)", cfg.StorageBackend)
	}
	if cfg.MaxRequestSize < 1 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be at least 1")
	}
	if cfg.ProviderProbeTimeout < 0 {
		return fmt.Errorf("PROVIDER_PROBE_TIMEOUT must be 0 or greater")
	}
	if cfg.StorageConnectTimeout <= 0 {
		return fmt.Errorf("STORAGE_CONNECT_TIMEOUT must be greater than 0")
	}
	if cfg.StorageBackend == "postgres" {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is postgres")
		}
		if cfg.DBMaxConnections < 1 {
			return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
		}
		if cfg.DBMinConnections < 0 {
			return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
		}
		if cfg.DBMinConnections > cfg.DBMaxConnections {
			return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
				cfg.DBMinConnections, cfg.DBMaxConnections)
		}
	}
	if cfg.StorageTTL <= 0 {
		return fmt.Errorf("STORAGE_TTL must be greater than 0")
	}
	if cfg.APIKeyEnvVar == "" {
		return fmt.Errorf("API_KEY_ENV_VAR must not be empty")
	}
	if _, err := url.ParseRequestURI(cfg.AmoyFallbackRPCURL); err != nil {
		return fmt.Errorf("invalid AMOY_FALLBACK_RPC_URL: %w", err)
	}
	if len(cfg.DNSResolverURLs) == 0 {
		return fmt.Errorf("DNS_RESOLVER_URLS must contain at least one resolver")
	}
	if _, err := cfg.RPCURLOverrides(); err != nil {
		return err
	}

	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("ALLOWED_ORIGINS must list explicit origins, '*' is not supported")
		}
	}

	return nil
}
