//go:build integration

package integration

// Test environment setup and server lifecycle management.
//
// The integration tests start the verifier server in-process on a free port, with the badger storage
// backend in a temporary directory and a receipt signing key written by the same code as `docverify keygen`.
// The blockchain and DNS are replaced by the fakes in internal/verify/verifytest so the tests run offline:
// the sepolia entry of the network table is backed by testEnv.chain.
//
// By default the server logs are not included in the test output, you can enable them with:
//
//	ENABLE_SERVER_LOGS=true go test -tags=integration -v ./test/integration
//

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/information-sharing-networks/doc-verifier/internal/config"
	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
	"github.com/information-sharing-networks/doc-verifier/internal/docverify"
	"github.com/information-sharing-networks/doc-verifier/internal/logger"
	"github.com/information-sharing-networks/doc-verifier/internal/metrics"
	"github.com/information-sharing-networks/doc-verifier/internal/network"
	"github.com/information-sharing-networks/doc-verifier/internal/server"
	"github.com/information-sharing-networks/doc-verifier/internal/storage"
	"github.com/information-sharing-networks/doc-verifier/internal/verify/verifytest"
)

const (
	testAPIKey        = "integration-test-key"
	testAllowedOrigin = "https://tradetrust.example.com"
	storeAddress      = "0x8bA63EAB43342AAc3AdBB4B827b68Cf4aAE5Caca"
	issuerDomain      = "example.com"
)

// testEnv provides access to the running server and its fakes
type testEnv struct {
	baseURL  string
	cfg      *config.ServerEnvironment
	chain    *verifytest.Chain
	shutdown func()
}

// startInProcessServer starts the verifier server in-process for testing
func startInProcessServer(t *testing.T) *testEnv {
	t.Helper()

	testEnv := &testEnv{chain: verifytest.NewChain(11155111)}

	t.Log("Starting in-process server...")

	var (
		port    = findFreePort(t)
		dataDir = t.TempDir()
	)

	keysDir := filepath.Join(dataDir, "keys")
	if err := os.MkdirAll(keysDir, 0o755); err != nil {
		t.Fatalf("failed to create keys dir: %v", err)
	}
	privateKey, err := crypto.GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("failed to generate receipt key: %v", err)
	}
	if err := crypto.SaveEd25519PrivateKeyToJWKFile(privateKey, "integration-receipt-key", keysDir, "receipt.private.jwk"); err != nil {
		t.Fatalf("failed to save receipt key: %v", err)
	}

	enableServerLogs := os.Getenv("ENABLE_SERVER_LOGS") == "true"
	logLevel := logger.ParseLogLevel("none")
	if enableServerLogs {
		logLevel = logger.ParseLogLevel("debug")
	}

	// t.Setenv restores the original values when the test completes
	testEnvVars := map[string]string{
		"HOST":                     "localhost",
		"PORT":                     fmt.Sprintf("%d", port),
		"ENVIRONMENT":              "test",
		"LOG_LEVEL":                logLevel.String(),
		"RATE_LIMIT_RPS":           "0",
		"ALLOWED_ORIGINS":          testAllowedOrigin,
		"STORAGE_BACKEND":          "badger",
		"BADGER_DIR":               filepath.Join(dataDir, "badger"),
		"STORAGE_TTL":              "1h",
		"RECEIPT_SIGNING_KEY_PATH": filepath.Join(keysDir, "receipt.private.jwk"),
		"API_KEY":                  testAPIKey,
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	cfg, err := config.NewServerConfig()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	testEnv.cfg = cfg

	appLogger := logger.InitLogger(logLevel, cfg.Environment)

	chain := testEnv.chain
	networks, err := network.NewTableFromDescriptors(network.Descriptor{
		Name:    "sepolia",
		ChainID: 11155111,
		Providers: []network.ProviderFactory{func(ctx context.Context) (network.Provider, error) {
			return chain, nil
		}},
	})
	if err != nil {
		t.Fatalf("Failed to build network table: %v", err)
	}
	resolver := &verifytest.Resolver{Records: map[string][]string{
		issuerDomain: {"openatts net=ethereum netId=11155111 addr=" + storeAddress},
	}}

	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry)

	ctx := context.Background()
	store, err := storage.New(ctx, storage.Config{Backend: cfg.StorageBackend, BadgerDir: cfg.BadgerDir}, appLogger)
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}

	signingKey, err := crypto.LoadReceiptSigningKey(cfg.ReceiptSigningKeyPath)
	if err != nil {
		t.Fatalf("Failed to load receipt signing key: %v", err)
	}
	receipts, err := crypto.NewReceiptSigner(signingKey)
	if err != nil {
		t.Fatalf("Failed to create receipt signer: %v", err)
	}

	serverInstance, err := server.NewServer(cfg, appLogger, server.Dependencies{
		Service:  docverify.NewService(networks, resolver, appMetrics, appLogger),
		Store:    store,
		Metrics:  appMetrics,
		Gatherer: registry,
		Receipts: receipts,
	})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	serverCtx, serverCancel := context.WithCancel(ctx)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := serverInstance.Start(serverCtx); err != nil {
			serverDone <- err
		}
	}()

	testEnv.shutdown = func() {
		t.Log("Stopping server...")

		serverCancel()

		select {
		case err := <-serverDone:
			if err != nil {
				t.Logf("Server shutdown with error: %v", err)
			} else {
				t.Log("Server shut down gracefully")
			}
		case <-time.After(5 * time.Second):
			t.Log("Server shutdown timeout")
		}

		serverInstance.StorageShutdown()
	}

	testEnv.baseURL = fmt.Sprintf("http://localhost:%d", port)
	t.Logf("Starting in-process server at %s", testEnv.baseURL)

	if !waitForServer(t, testEnv.baseURL+"/health/live", 30*time.Second) {
		t.Fatal("Server failed to start within timeout")
	}

	t.Log("Server started")
	return testEnv
}

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) bool {
	t.Helper()

	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
