package verify

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/information-sharing-networks/doc-verifier/internal/network"
)

// DidRegistryAddress is the ERC-1056 registry used to resolve did:ethr owners.
var DidRegistryAddress = common.HexToAddress("0xdCa7EF03e98e0DC2B855bE647C39ABe984fcF21B")

const documentStoreABIJSON = `[
	{"type":"function","name":"isIssued","stateMutability":"view","inputs":[{"name":"document","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isRevoked","stateMutability":"view","inputs":[{"name":"document","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]}
]`

const tokenRegistryABIJSON = `[
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}
]`

const didRegistryABIJSON = `[
	{"type":"function","name":"identityOwner","stateMutability":"view","inputs":[{"name":"identity","type":"address"}],"outputs":[{"name":"","type":"address"}]}
]`

var (
	documentStoreABI = mustParseABI(documentStoreABIJSON)
	tokenRegistryABI = mustParseABI(tokenRegistryABIJSON)
	didRegistryABI   = mustParseABI(didRegistryABIJSON)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid contract ABI: %v", err))
	}
	return parsed
}

// errNoContract is returned when the call target has no code.
var errNoContract = errors.New("no contract at address")

func call(ctx context.Context, provider network.Provider, contract abi.ABI, address common.Address, method string, args ...any) ([]any, error) {
	if provider == nil {
		return nil, errors.New("no provider available")
	}

	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s call: %w", method, err)
	}

	output, err := provider.CallContract(ctx, ethereum.CallMsg{To: &address, Data: input}, nil)
	if err != nil {
		return nil, err
	}
	if len(output) == 0 {
		return nil, errNoContract
	}

	values, err := contract.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected %s result length %d", method, len(values))
	}
	return values, nil
}

func isIssued(ctx context.Context, provider network.Provider, store common.Address, hash [32]byte) (bool, error) {
	values, err := call(ctx, provider, documentStoreABI, store, "isIssued", hash)
	if err != nil {
		return false, err
	}
	issued, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isIssued result type %T", values[0])
	}
	return issued, nil
}

func isRevoked(ctx context.Context, provider network.Provider, store common.Address, hash [32]byte) (bool, error) {
	values, err := call(ctx, provider, documentStoreABI, store, "isRevoked", hash)
	if err != nil {
		return false, err
	}
	revoked, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isRevoked result type %T", values[0])
	}
	return revoked, nil
}

func ownerOf(ctx context.Context, provider network.Provider, registry common.Address, tokenID *big.Int) (common.Address, error) {
	values, err := call(ctx, provider, tokenRegistryABI, registry, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected ownerOf result type %T", values[0])
	}
	return owner, nil
}

// identityOwner returns the current owner of a did:ethr identity. When the registry is not deployed
// on the provider's chain the identity owns itself.
func identityOwner(ctx context.Context, provider network.Provider, identity common.Address) (common.Address, error) {
	values, err := call(ctx, provider, didRegistryABI, DidRegistryAddress, "identityOwner", identity)
	if errors.Is(err, errNoContract) {
		return identity, nil
	}
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected identityOwner result type %T", values[0])
	}
	return owner, nil
}

// isRevert reports whether err is a contract revert rather than a transport failure.
func isRevert(err error) bool {
	if err == nil {
		return false
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid contract address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) ([32]byte, error) {
	var out [32]byte
	b := common.FromHex(s)
	if len(b) != 32 {
		return out, fmt.Errorf("invalid hash %q", s)
	}
	copy(out[:], b)
	return out, nil
}
