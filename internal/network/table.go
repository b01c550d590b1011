package network

import (
	"fmt"
	"sort"
	"time"
)

// DefaultAmoyFallbackURL is the provider used for amoy when the primary endpoint fails its probe.
const DefaultAmoyFallbackURL = "https://rpc-amoy.polygon.technology"

type defaultNetwork struct {
	name    string
	chainID int64
	rpcURL  string
}

var defaultNetworks = []defaultNetwork{
	{"mainnet", 1, "https://ethereum-rpc.publicnode.com"},
	{"sepolia", 11155111, "https://ethereum-sepolia-rpc.publicnode.com"},
	{"matic", 137, "https://polygon-rpc.com"},
	{"amoy", 80002, "https://polygon-amoy-bor-rpc.publicnode.com"},
	{"xdc", 50, "https://erpc.xinfin.network"},
	{"xdcapothem", 51, "https://erpc.apothem.network"},
	{"stability", 101010, "https://rpc.stabilityprotocol.com/zgt/tradeTrust"},
	{"stabilitytestnet", 20180427, "https://free.testnet.stabilityprotocol.com"},
	{"astron", 1338, "https://astronlayer2.bitfactory.cn/rpc/"},
	{"astrontestnet", 21002, "https://dev-astronlayer2.bitfactory.cn/query/"},
	{"local", 1337, "http://localhost:8545"},
}

// Config customises the default table.
type Config struct {
	// RPCOverrides replaces the RPC URL of named networks.
	RPCOverrides map[string]string

	// AmoyFallbackURL defaults to DefaultAmoyFallbackURL.
	AmoyFallbackURL string

	ProbeTimeout time.Duration
}

// Table is the set of supported networks. It is built once and not modified afterwards.
type Table struct {
	byName    map[string]Descriptor
	byChainID map[int64]string
}

// NewTable builds the default table.
func NewTable(cfg Config) (*Table, error) {
	known := make(map[string]bool, len(defaultNetworks))
	for _, n := range defaultNetworks {
		known[n.name] = true
	}
	for name := range cfg.RPCOverrides {
		if !known[name] {
			return nil, fmt.Errorf("RPC URL override for unknown network %q", name)
		}
	}

	fallback := cfg.AmoyFallbackURL
	if fallback == "" {
		fallback = DefaultAmoyFallbackURL
	}

	descriptors := make([]Descriptor, 0, len(defaultNetworks))
	for _, n := range defaultNetworks {
		url := n.rpcURL
		if override, ok := cfg.RPCOverrides[n.name]; ok {
			url = override
		}

		d := Descriptor{
			Name:      n.name,
			ChainID:   n.chainID,
			Providers: []ProviderFactory{JSONRPC(url)},
		}
		if n.name == "amoy" {
			d.Providers = append(d.Providers, JSONRPC(fallback))
			d.Probe = true
			d.ProbeTimeout = cfg.ProbeTimeout
		}
		descriptors = append(descriptors, d)
	}

	return NewTableFromDescriptors(descriptors...)
}

// NewTableFromDescriptors builds a table from explicit descriptors. Names and chain ids must be unique.
func NewTableFromDescriptors(descriptors ...Descriptor) (*Table, error) {
	t := &Table{
		byName:    make(map[string]Descriptor, len(descriptors)),
		byChainID: make(map[int64]string, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("network name is required")
		}
		if _, exists := t.byName[d.Name]; exists {
			return nil, fmt.Errorf("duplicate network %q", d.Name)
		}
		if other, exists := t.byChainID[d.ChainID]; exists {
			return nil, fmt.Errorf("networks %q and %q share chain id %d", other, d.Name, d.ChainID)
		}
		if len(d.Providers) == 0 {
			return nil, fmt.Errorf("network %q has no providers", d.Name)
		}
		t.byName[d.Name] = d
		t.byChainID[d.ChainID] = d.Name
	}
	return t, nil
}

// Lookup finds a network by exact name.
func (t *Table) Lookup(name string) (Descriptor, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// LookupByChainID finds a network by chain id.
func (t *Table) LookupByChainID(chainID int64) (Descriptor, bool) {
	name, ok := t.byChainID[chainID]
	if !ok {
		return Descriptor{}, false
	}
	return t.byName[name], true
}

// Names returns the supported network names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
