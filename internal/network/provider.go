// Package network describes the blockchain networks documents can be verified against
// and creates the JSON-RPC providers used for contract reads.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/information-sharing-networks/doc-verifier/internal/metrics"
)

// Provider is the subset of an ethereum client needed for verification (satisfied by *ethclient.Client).
type Provider interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ProviderFactory creates a provider.
type ProviderFactory func(ctx context.Context) (Provider, error)

// JSONRPC returns a factory for a JSON-RPC endpoint.
func JSONRPC(url string) ProviderFactory {
	return func(ctx context.Context) (Provider, error) {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
		}
		return client, nil
	}
}

// Close releases the provider connection, if it holds one.
func Close(p Provider) {
	if closer, ok := p.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Descriptor is an entry in the network table.
type Descriptor struct {
	Name    string
	ChainID int64

	// Providers are tried in order when Probe is set, otherwise only the first is used.
	Providers []ProviderFactory

	// Probe enables a liveness check (a chain id round trip) on every provider except the last.
	Probe bool

	// ProbeTimeout bounds each reachability check. Zero leaves it to the deadline of the caller's context.
	ProbeTimeout time.Duration
}

// Connect returns the provider to use for this network.
//
// Without a probe the first provider is returned. With a probe, each provider but the last is
// created and asked for its chain id; the first that answers is returned. Probe failures are logged
// and counted but never returned: the last provider is used as is.
func (d Descriptor) Connect(ctx context.Context, logger *slog.Logger, m *metrics.Metrics) (Provider, error) {
	if len(d.Providers) == 0 {
		return nil, fmt.Errorf("network %s has no providers", d.Name)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if d.Probe {
		for i, factory := range d.Providers[:len(d.Providers)-1] {
			provider, err := d.probe(ctx, factory)
			if err == nil {
				return provider, nil
			}
			logger.Warn("provider failed liveness probe, trying next provider",
				slog.String("network", d.Name),
				slog.Int("provider", i),
				slog.String("error", err.Error()),
			)
			m.ObserveProviderFallback(d.Name)
		}
	}

	last := d.Providers[0]
	if d.Probe {
		last = d.Providers[len(d.Providers)-1]
	}
	return last(ctx)
}

func (d Descriptor) probe(ctx context.Context, factory ProviderFactory) (Provider, error) {
	probeCtx := ctx
	if d.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, d.ProbeTimeout)
		defer cancel()
	}

	provider, err := factory(probeCtx)
	if err != nil {
		return nil, err
	}
	if _, err := provider.ChainID(probeCtx); err != nil {
		Close(provider)
		return nil, err
	}
	return provider, nil
}
