package config

import (
	"testing"
	"time"
)

func validConfig() *ServerEnvironment {
	return &ServerEnvironment{
		Environment:           "dev",
		Port:                  8080,
		MaxRequestSize:        1024,
		ProviderProbeTimeout:  5 * time.Second,
		StorageBackend:        "memory",
		StorageTTL:            time.Hour,
		StorageConnectTimeout: 10 * time.Second,
		APIKeyEnvVar:          "API_KEY",
		AmoyFallbackRPCURL:    "https://rpc-amoy.polygon.technology",
		DNSResolverURLs:       []string{"https://dns.google/resolve"},
		DBMaxConnections:      4,
	}
}

func TestNewServerConfig_Defaults(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://tradetrust.io|https://dev.tradetrust.io")

	cfg, err := NewServerConfig()
	if err != nil {
		t.Fatalf("NewServerConfig() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.AmoyFallbackRPCURL != "https://rpc-amoy.polygon.technology" {
		t.Errorf("AmoyFallbackRPCURL = %s", cfg.AmoyFallbackRPCURL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://dev.tradetrust.io" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if len(cfg.DNSResolverURLs) != 2 {
		t.Errorf("DNSResolverURLs = %v, want the two default resolvers", cfg.DNSResolverURLs)
	}
	if cfg.StorageBackend != "memory" {
		t.Errorf("StorageBackend = %s, want memory", cfg.StorageBackend)
	}
	if cfg.ProviderProbeTimeout != 0 {
		t.Errorf("ProviderProbeTimeout = %v, want 0 so provider checks follow the request context", cfg.ProviderProbeTimeout)
	}
	if cfg.StorageConnectTimeout != 10*time.Second {
		t.Errorf("StorageConnectTimeout = %v, want 10s", cfg.StorageConnectTimeout)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*ServerEnvironment)
		wantErr bool
	}{
		{"valid", func(c *ServerEnvironment) {}, false},
		{"bad port", func(c *ServerEnvironment) { c.Port = 0 }, true},
		{"bad environment", func(c *ServerEnvironment) { c.Environment = "qa" }, true},
		{"bad storage backend", func(c *ServerEnvironment) { c.StorageBackend = "s3" }, true},
		{"wildcard origin", func(c *ServerEnvironment) { c.AllowedOrigins = []string{"*"} }, true},
		{"bad rpc override", func(c *ServerEnvironment) { c.RPCURLs = "sepolia" }, true},
		{"bad fallback url", func(c *ServerEnvironment) { c.AmoyFallbackRPCURL = "not a url" }, true},
		{"zero provider timeout", func(c *ServerEnvironment) { c.ProviderProbeTimeout = 0 }, false},
		{"negative provider timeout", func(c *ServerEnvironment) { c.ProviderProbeTimeout = -time.Second }, true},
		{"zero storage connect timeout", func(c *ServerEnvironment) { c.StorageConnectTimeout = 0 }, true},
		{"postgres backend", func(c *ServerEnvironment) {
			c.StorageBackend = "postgres"
			c.DatabaseURL = "postgres://docverifier@localhost:5432/docverifier"
		}, false},
		{"postgres without database url", func(c *ServerEnvironment) { c.StorageBackend = "postgres" }, true},
		{"postgres min conns above max", func(c *ServerEnvironment) {
			c.StorageBackend = "postgres"
			c.DatabaseURL = "postgres://docverifier@localhost:5432/docverifier"
			c.DBMinConnections = 5
		}, true},
		{"no dns resolvers", func(c *ServerEnvironment) { c.DNSResolverURLs = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := validateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRPCURLOverrides(t *testing.T) {
	cfg := validConfig()
	cfg.RPCURLs = "sepolia=https://sepolia.example.com | amoy=https://amoy.example.com"

	overrides, err := cfg.RPCURLOverrides()
	if err != nil {
		t.Fatalf("RPCURLOverrides() error = %v", err)
	}
	if overrides["sepolia"] != "https://sepolia.example.com" {
		t.Errorf("sepolia override = %q", overrides["sepolia"])
	}
	if overrides["amoy"] != "https://amoy.example.com" {
		t.Errorf("amoy override = %q", overrides["amoy"])
	}
}
