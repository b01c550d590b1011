package verify

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/information-sharing-networks/doc-verifier/internal/network"
	"github.com/information-sharing-networks/doc-verifier/internal/oa"
)

type issuanceDetail struct {
	Issued  bool   `json:"issued"`
	Address string `json:"address"`
}

type revocationDetail struct {
	Revoked bool   `json:"revoked"`
	Address string `json:"address"`
	Hash    string `json:"hash,omitempty"`
}

type documentStoreData struct {
	IssuedOnAll  bool `json:"issuedOnAll"`
	RevokedOnAny bool `json:"revokedOnAny"`
	Details      struct {
		Issuance   []issuanceDetail   `json:"issuance"`
		Revocation []revocationDetail `json:"revocation"`
	} `json:"details"`
}

// DocumentStoreStatus checks that the merkle root is issued on the issuers' document stores
// and that no hash on the proof path has been revoked.
func DocumentStoreStatus() Verifier {
	return &verifier{
		name:         "OpenAttestationEthereumDocumentStoreStatus",
		fragmentType: DocumentStatus,
		skipMessage:  `Document issuers doesn't have "documentStore" or "certificateStore" property or DOCUMENT_STORE method`,
		test: func(doc *oa.WrappedDocument) bool {
			if oa.DetectVariant(doc) == oa.VariantV3 {
				return v3Method(doc) == oa.MethodDocumentStore
			}
			return anyIssuer(doc, func(i issuerView) bool { return i.DocumentStore != "" })
		},
		verify: verifyDocumentStore,
	}
}

func verifyDocumentStore(ctx context.Context, doc *oa.WrappedDocument, opts Options) (Status, any, *Reason) {
	issuers, err := documentIssuers(doc)
	if err != nil {
		return errored(CodeUnrecognizedDocument, err)
	}
	for _, issuer := range issuers {
		if issuer.DocumentStore == "" {
			return errored(CodeInvalidIssuers, fmt.Errorf("all issuers must use a document store"))
		}
	}

	merkleRoot, hashes, err := merkleHashes(doc)
	if err != nil {
		return errored(CodeUnrecognizedDocument, err)
	}
	root, err := parseHash(merkleRoot)
	if err != nil {
		return errored(CodeUnrecognizedDocument, err)
	}

	data := documentStoreData{IssuedOnAll: true}
	for _, issuer := range issuers {
		store, err := parseAddress(issuer.DocumentStore)
		if err != nil {
			return errored(CodeContractAddressInvalid, err)
		}

		issued, err := isIssued(ctx, opts.Provider, store, root)
		if err != nil {
			return contractError(err, issuer.DocumentStore)
		}
		data.Details.Issuance = append(data.Details.Issuance, issuanceDetail{Issued: issued, Address: issuer.DocumentStore})
		if !issued {
			data.IssuedOnAll = false
		}

		revocation, err := checkRevoked(ctx, opts.Provider, store, hashes)
		if err != nil {
			return contractError(err, issuer.DocumentStore)
		}
		data.Details.Revocation = append(data.Details.Revocation, revocation)
		if revocation.Revoked {
			data.RevokedOnAny = true
		}
	}

	switch {
	case !data.IssuedOnAll:
		return StatusInvalid, data, newReason(CodeDocumentNotIssued, fmt.Sprintf("Document %s has not been issued under contract", merkleRoot))
	case data.RevokedOnAny:
		return StatusInvalid, data, newReason(CodeDocumentRevoked, "Document has been revoked")
	default:
		return StatusValid, data, nil
	}
}

// checkRevoked calls isRevoked for every hash on the proof path and stops at the first revoked one.
func checkRevoked(ctx context.Context, provider network.Provider, store common.Address, hashes []string) (revocationDetail, error) {
	detail := revocationDetail{Address: store.Hex()}
	for _, h := range hashes {
		hash, err := parseHash(h)
		if err != nil {
			return detail, err
		}
		revoked, err := isRevoked(ctx, provider, store, hash)
		if err != nil {
			return detail, err
		}
		if revoked {
			detail.Revoked = true
			detail.Hash = h
			return detail, nil
		}
	}
	return detail, nil
}

func contractError(err error, address string) (Status, any, *Reason) {
	if errors.Is(err, errNoContract) || isRevert(err) {
		return StatusError, nil, newReason(CodeContractAddressInvalid, fmt.Sprintf("Invalid contract address %s: %v", address, err))
	}
	return StatusError, nil, newReason(CodeServerError, fmt.Sprintf("Unable to connect to the network: %v", err))
}

type tokenRegistryData struct {
	MintedOnAll bool `json:"mintedOnAll"`
	Details     struct {
		Minted  bool   `json:"minted"`
		Address string `json:"address"`
	} `json:"details"`
}

// TokenRegistryStatus checks that the document has been minted as a token on the issuer's registry.
func TokenRegistryStatus() Verifier {
	return &verifier{
		name:         "OpenAttestationEthereumTokenRegistryStatus",
		fragmentType: DocumentStatus,
		skipMessage:  `Document issuers doesn't have "tokenRegistry" property or TOKEN_REGISTRY method`,
		test: func(doc *oa.WrappedDocument) bool {
			if oa.DetectVariant(doc) == oa.VariantV3 {
				return v3Method(doc) == oa.MethodTokenRegistry
			}
			return anyIssuer(doc, func(i issuerView) bool { return i.TokenRegistry != "" })
		},
		verify: verifyTokenRegistry,
	}
}

func verifyTokenRegistry(ctx context.Context, doc *oa.WrappedDocument, opts Options) (Status, any, *Reason) {
	issuers, err := documentIssuers(doc)
	if err != nil {
		return errored(CodeUnrecognizedDocument, err)
	}
	if len(issuers) != 1 || issuers[0].TokenRegistry == "" {
		return errored(CodeInvalidIssuers, fmt.Errorf("only one issuer with a token registry is allowed for transferable documents"))
	}

	registry, err := parseAddress(issuers[0].TokenRegistry)
	if err != nil {
		return errored(CodeContractAddressInvalid, err)
	}

	merkleRoot, _, err := merkleHashes(doc)
	if err != nil {
		return errored(CodeUnrecognizedDocument, err)
	}
	root, err := parseHash(merkleRoot)
	if err != nil {
		return errored(CodeUnrecognizedDocument, err)
	}

	data := tokenRegistryData{}
	data.Details.Address = issuers[0].TokenRegistry

	_, err = ownerOf(ctx, opts.Provider, registry, new(big.Int).SetBytes(root[:]))
	switch {
	case err == nil:
		data.MintedOnAll = true
		data.Details.Minted = true
		return StatusValid, data, nil
	case isRevert(err):
		return StatusInvalid, data, newReason(CodeDocumentNotMinted, fmt.Sprintf("Document %s has not been minted", merkleRoot))
	default:
		return contractError(err, issuers[0].TokenRegistry)
	}
}
