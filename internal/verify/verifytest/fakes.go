// Package verifytest provides in-memory stand-ins for the blockchain provider and DNS resolver.
package verifytest

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	selectorIsIssued      = crypto.Keccak256([]byte("isIssued(bytes32)"))[:4]
	selectorIsRevoked     = crypto.Keccak256([]byte("isRevoked(bytes32)"))[:4]
	selectorOwnerOf       = crypto.Keccak256([]byte("ownerOf(uint256)"))[:4]
	selectorIdentityOwner = crypto.Keccak256([]byte("identityOwner(address)"))[:4]
)

// RevertError mimics the error returned by a node when a call reverts.
type RevertError struct{}

func (RevertError) Error() string  { return "execution reverted" }
func (RevertError) ErrorData() any { return "0x" }

// Chain is a fake network.Provider backed by maps. Hash keys are lowercase hex without 0x.
type Chain struct {
	mu sync.Mutex

	ID int64

	Issued  map[string]bool
	Revoked map[string]bool
	Minted  map[string]bool

	// DidOwners maps an identity to its current owner. When RegistryDeployed is false
	// identityOwner calls return no data.
	DidOwners        map[common.Address]common.Address
	RegistryDeployed bool

	// Err is returned by every call when set.
	Err error

	Calls int
}

// NewChain returns an empty chain with the given chain id.
func NewChain(chainID int64) *Chain {
	return &Chain{
		ID:        chainID,
		Issued:    make(map[string]bool),
		Revoked:   make(map[string]bool),
		Minted:    make(map[string]bool),
		DidOwners: make(map[common.Address]common.Address),
	}
}

func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return big.NewInt(c.ID), nil
}

func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++

	if c.Err != nil {
		return nil, c.Err
	}
	if len(msg.Data) < 36 {
		return nil, errors.New("invalid call data")
	}
	selector, arg := msg.Data[:4], msg.Data[4:36]
	key := common.Bytes2Hex(arg)

	switch {
	case bytes.Equal(selector, selectorIsIssued):
		return word(c.Issued[key]), nil
	case bytes.Equal(selector, selectorIsRevoked):
		return word(c.Revoked[key]), nil
	case bytes.Equal(selector, selectorOwnerOf):
		if !c.Minted[key] {
			return nil, RevertError{}
		}
		return common.LeftPadBytes(common.HexToAddress("0x1000000000000000000000000000000000000001").Bytes(), 32), nil
	case bytes.Equal(selector, selectorIdentityOwner):
		if !c.RegistryDeployed {
			return nil, nil
		}
		identity := common.BytesToAddress(arg)
		owner, ok := c.DidOwners[identity]
		if !ok {
			owner = identity
		}
		return common.LeftPadBytes(owner.Bytes(), 32), nil
	default:
		return nil, RevertError{}
	}
}

func word(b bool) []byte {
	out := make([]byte, 32)
	if b {
		out[31] = 1
	}
	return out
}

// HashKey normalises a hash for use as a Chain map key.
func HashKey(h string) string {
	return strings.ToLower(strings.TrimPrefix(h, "0x"))
}

// Resolver is a fake TXT resolver.
type Resolver struct {
	Records map[string][]string
	Err     error
}

func (r *Resolver) LookupTXT(ctx context.Context, domain string) ([]string, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Records[domain], nil
}
