package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/doc-verifier/internal/config"
	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
	"github.com/information-sharing-networks/doc-verifier/internal/docverify"
	"github.com/information-sharing-networks/doc-verifier/internal/logger"
	"github.com/information-sharing-networks/doc-verifier/internal/metrics"
	"github.com/information-sharing-networks/doc-verifier/internal/network"
	"github.com/information-sharing-networks/doc-verifier/internal/server"
	"github.com/information-sharing-networks/doc-verifier/internal/storage"
	"github.com/information-sharing-networks/doc-verifier/internal/verify"
	"github.com/information-sharing-networks/doc-verifier/internal/version"
)

//	@title			verifier-server
//	@description	verifier-server verifies wrapped OpenAttestation (TradeTrust) documents against the blockchain
//	@description	network they were issued on and stores them encrypted.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description
//	@description	Individual endpoints document their specific business logic errors.
//	@description
//	@description	## Request Limits
//	@description	The document endpoints are protected by:
//	@description	- **Rate limiting**: Configurable requests per second per client address (see env vars) - default 100 rps (set to 0 to disable)
//	@description	- **Request size limits**: Configurable (see env vars) - default 10MB
//	@description
//	@description	Check the X-Max-Request-Size response header for the configured limit.
//	@description
//	@description	## Authentication
//	@description
//	@description	The document endpoints require the `x-api-key` header. Browser clients must also be served from
//	@description	one of the origins listed in ALLOWED_ORIGINS.
//	@description
//	@license.name	MIT

//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@accept		json
//	@produce	json

//	@tag.name			Documents
//	@tag.description	Verify and store documents

//	@tag.name			Common
//	@tag.description	Server API endpoints (jwks, health, readiness, version, etc.)

func main() {
	cmd := &cobra.Command{
		Use:          "verifier-server",
		Short:        "Document verification server",
		Long:         `verifier-server verifies wrapped OpenAttestation documents and stores them encrypted`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("ALLOWED_ORIGINS", strings.Join(cfg.AllowedOrigins, "|")),
		slog.String("STORAGE_BACKEND", cfg.StorageBackend),
		slog.Duration("STORAGE_TTL", cfg.StorageTTL),
		slog.Duration("STORAGE_CONNECT_TIMEOUT", cfg.StorageConnectTimeout),
		slog.String("AMOY_FALLBACK_RPC_URL", cfg.AmoyFallbackRPCURL),
		slog.Duration("PROVIDER_PROBE_TIMEOUT", cfg.ProviderProbeTimeout),
		slog.String("DNS_RESOLVER_URLS", strings.Join(cfg.DNSResolverURLs, "|")),
		slog.String("API_KEY_ENV_VAR", cfg.APIKeyEnvVar),
		slog.Bool("API_KEY_SET", os.Getenv(cfg.APIKeyEnvVar) != ""),
	)

	if os.Getenv(cfg.APIKeyEnvVar) == "" {
		appLogger.Warn("API key is not set: every document request will be rejected",
			slog.String("env_var", cfg.APIKeyEnvVar))
	}

	overrides, err := cfg.RPCURLOverrides()
	if err != nil {
		return fmt.Errorf("invalid RPC_URLS: %w", err)
	}

	networks, err := network.NewTable(network.Config{
		RPCOverrides:    overrides,
		AmoyFallbackURL: cfg.AmoyFallbackRPCURL,
		ProbeTimeout:    cfg.ProviderProbeTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to build network table: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	resolver := verify.NewDoHResolver(cfg.DNSResolverURLs, cfg.DNSTimeout)
	service := docverify.NewService(networks, resolver, appMetrics, appLogger)

	var receipts *crypto.ReceiptSigner
	if cfg.ReceiptSigningKeyPath != "" {
		privateKey, err := crypto.LoadReceiptSigningKey(cfg.ReceiptSigningKeyPath)
		if err != nil {
			return fmt.Errorf("failed to load receipt signing key: %w", err)
		}
		if receipts, err = crypto.NewReceiptSigner(privateKey); err != nil {
			return fmt.Errorf("failed to create receipt signer: %w", err)
		}
		appLogger.Info("receipt signing enabled", slog.String("kid", receipts.KeyID()))
	}

	storeCtx, storeCancel := context.WithTimeout(context.Background(), cfg.StorageConnectTimeout)
	defer storeCancel()

	store, err := storage.New(storeCtx, storage.Config{
		Backend:        cfg.StorageBackend,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		RedisKeyPrefix: cfg.RedisKeyPrefix,
		BadgerDir:      cfg.BadgerDir,
		Postgres: storage.PostgresConfig{
			DatabaseURL:     cfg.DatabaseURL,
			MaxConns:        cfg.DBMaxConnections,
			MinConns:        cfg.DBMinConnections,
			MaxConnLifetime: cfg.DBMaxConnLifetime,
			MaxConnIdleTime: cfg.DBMaxConnIdleTime,
			ConnectTimeout:  cfg.DBConnectTimeout,
		},
	}, appLogger)
	if err != nil {
		return fmt.Errorf("unable to open document storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Warn("failed to close document store", slog.String("error", err.Error()))
			return
		}
		appLogger.Info("document store closed")
	}()

	appLogger.Info("Starting server",
		slog.String("version", version.Get().Version),
		slog.String("networks", strings.Join(networks.Names(), ",")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := server.NewServer(cfg, appLogger, server.Dependencies{
		Service:  service,
		Store:    store,
		Metrics:  appMetrics,
		Gatherer: registry,
		Receipts: receipts,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
