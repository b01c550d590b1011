package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/information-sharing-networks/doc-verifier/internal/network"
	"github.com/information-sharing-networks/doc-verifier/internal/oa"
)

// controllerFragment is the only verification method published by did:ethr documents.
const controllerFragment = "controller"

// parseEthrDID returns the identity address of a did:ethr identifier (did:ethr:0x.. or did:ethr:<network>:0x..).
func parseEthrDID(did string) (common.Address, error) {
	parts := strings.Split(did, ":")
	if len(parts) < 3 || parts[0] != "did" {
		return common.Address{}, fmt.Errorf("invalid DID %q", did)
	}
	if parts[1] != "ethr" {
		return common.Address{}, fmt.Errorf("unsupported DID method %q", parts[1])
	}
	address := parts[len(parts)-1]
	if len(parts) > 4 || !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid did:ethr identifier %q", did)
	}
	return common.HexToAddress(address), nil
}

// splitVerificationMethod splits did#fragment and checks the fragment refers to the controller key.
func splitVerificationMethod(key string) (string, error) {
	did, fragment, ok := strings.Cut(key, "#")
	if !ok || did == "" {
		return "", fmt.Errorf("verification method %q has no key fragment", key)
	}
	if fragment != controllerFragment {
		return "", fmt.Errorf("key %q not found in DID document", key)
	}
	return did, nil
}

// recoverSigner returns the address that signed merkleRoot (as an ethereum personal message).
func recoverSigner(merkleRoot, signature string) (common.Address, error) {
	root, err := parseHash(merkleRoot)
	if err != nil {
		return common.Address{}, err
	}

	sig := common.FromHex(signature)
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	publicKey, err := crypto.SigToPub(accounts.TextHash(root[:]), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*publicKey), nil
}

type didSignatureResult struct {
	Issuer   string `json:"issuer"`
	Key      string `json:"key,omitempty"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

// verifyDidSignature checks that signature over merkleRoot was made by the current owner of the DID in key.
func verifyDidSignature(ctx context.Context, provider network.Provider, key, merkleRoot, signature string) (didSignatureResult, error) {
	result := didSignatureResult{Key: key}

	did, err := splitVerificationMethod(key)
	if err != nil {
		result.Reason = err.Error()
		return result, nil
	}
	result.Issuer = did

	identity, err := parseEthrDID(did)
	if err != nil {
		result.Reason = err.Error()
		return result, nil
	}

	signer, err := recoverSigner(merkleRoot, signature)
	if err != nil {
		result.Reason = err.Error()
		return result, nil
	}

	owner, err := identityOwner(ctx, provider, identity)
	if err != nil {
		return result, fmt.Errorf("failed to resolve DID owner for %s: %w", did, err)
	}

	result.Verified = signer == owner
	if !result.Verified {
		result.Reason = fmt.Sprintf("signature was made by %s, DID is controlled by %s", signer.Hex(), owner.Hex())
	}
	return result, nil
}

// documentSignatures returns, for each issuer with a DID key, the DID signature result.
func documentSignatures(ctx context.Context, doc *oa.WrappedDocument, provider network.Provider, issuers []issuerView) ([]didSignatureResult, error) {
	merkleRoot, _, err := merkleHashes(doc)
	if err != nil {
		return nil, err
	}

	signatures := make(map[string]string)
	switch oa.DetectVariant(doc) {
	case oa.VariantV2:
		proofs, err := oa.GetV2Proofs(doc)
		if err != nil {
			return nil, err
		}
		for _, p := range proofs {
			signatures[p.VerificationMethod] = p.Signature
		}
	case oa.VariantV3:
		proof, err := oa.GetV3Proof(doc)
		if err != nil {
			return nil, err
		}
		if proof.Key != "" {
			signatures[proof.Key] = proof.Signature
		}
	}

	results := make([]didSignatureResult, 0, len(issuers))
	for _, issuer := range issuers {
		key := issuer.IdentityProof.Key
		if key == "" {
			return nil, fmt.Errorf("issuer %s has no DID key", issuer.ID)
		}
		signature, ok := signatures[key]
		if !ok {
			results = append(results, didSignatureResult{Issuer: issuer.ID, Key: key, Reason: fmt.Sprintf("proof not found for %s", key)})
			continue
		}
		result, err := verifyDidSignature(ctx, provider, key, merkleRoot, signature)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func isDidIssuer(i issuerView) bool {
	return i.IdentityProof.Type == oa.IdentityProofDID || i.IdentityProof.Type == oa.IdentityProofDNSDID
}

func isSigned(doc *oa.WrappedDocument) bool {
	switch oa.DetectVariant(doc) {
	case oa.VariantV2:
		proofs, err := oa.GetV2Proofs(doc)
		return err == nil && len(proofs) > 0
	case oa.VariantV3:
		if v3Method(doc) != oa.MethodDID {
			return false
		}
		proof, err := oa.GetV3Proof(doc)
		return err == nil && proof.Key != "" && proof.Signature != ""
	default:
		return false
	}
}

type didSignedData struct {
	Details struct {
		Issuance   []didSignatureResult `json:"issuance"`
		Revocation []revocationDetail   `json:"revocation"`
	} `json:"details"`
}

// DidSignedDocumentStatus checks the DID signatures of a signed document and its revocation status.
func DidSignedDocumentStatus() Verifier {
	return &verifier{
		name:         "OpenAttestationDidSignedDocumentStatus",
		fragmentType: DocumentStatus,
		skipMessage:  "Document was not signed by DID directly",
		test:         isSigned,
		verify:       verifyDidSigned,
	}
}

func verifyDidSigned(ctx context.Context, doc *oa.WrappedDocument, opts Options) (Status, any, *Reason) {
	issuers, err := documentIssuers(doc)
	if err != nil {
		return errored(CodeUnrecognizedDocument, err)
	}
	for _, issuer := range issuers {
		if !isDidIssuer(issuer) {
			return errored(CodeInvalidIssuers, fmt.Errorf("all issuers must use a DID or DNS-DID identity proof"))
		}
		switch issuer.Revocation.Type {
		case "", oa.RevocationNone, oa.RevocationStore:
		default:
			return errored(CodeUnsupportedRevocation, fmt.Errorf("revocation type %q is not supported", issuer.Revocation.Type))
		}
	}

	results, err := documentSignatures(ctx, doc, opts.Provider, issuers)
	if err != nil {
		return errored(CodeServerError, err)
	}

	data := didSignedData{}
	data.Details.Issuance = results

	for _, r := range results {
		if !r.Verified {
			return StatusInvalid, data, newReason(CodeWrongSignature, "merkle root is not signed correctly by "+r.Key)
		}
	}

	_, hashes, err := merkleHashes(doc)
	if err != nil {
		return errored(CodeUnrecognizedDocument, err)
	}
	for _, issuer := range issuers {
		if issuer.Revocation.Type != oa.RevocationStore {
			continue
		}
		store, err := parseAddress(issuer.Revocation.Location)
		if err != nil {
			return errored(CodeContractAddressInvalid, err)
		}
		revocation, err := checkRevoked(ctx, opts.Provider, store, hashes)
		if err != nil {
			return contractError(err, issuer.Revocation.Location)
		}
		data.Details.Revocation = append(data.Details.Revocation, revocation)
		if revocation.Revoked {
			return StatusInvalid, data, newReason(CodeDocumentRevoked, "Document has been revoked")
		}
	}

	return StatusValid, data, nil
}

type didIdentityData struct {
	DID      string `json:"did"`
	Verified bool   `json:"verified"`
}

// DidIdentityProof checks that every issuer using a DID identity proof signed the document.
func DidIdentityProof() Verifier {
	return &verifier{
		name:         "OpenAttestationDidIdentityProof",
		fragmentType: IssuerIdentity,
		skipMessage:  "Document is not using DID as top level identifier or has not been wrapped",
		test: func(doc *oa.WrappedDocument) bool {
			return isSigned(doc) && anyIssuer(doc, func(i issuerView) bool { return i.IdentityProof.Type == oa.IdentityProofDID })
		},
		verify: func(ctx context.Context, doc *oa.WrappedDocument, opts Options) (Status, any, *Reason) {
			issuers, err := documentIssuers(doc)
			if err != nil {
				return errored(CodeUnrecognizedDocument, err)
			}
			for _, issuer := range issuers {
				if issuer.IdentityProof.Type != oa.IdentityProofDID {
					return errored(CodeInvalidIssuers, fmt.Errorf("all issuers must use a DID identity proof"))
				}
			}

			results, err := documentSignatures(ctx, doc, opts.Provider, issuers)
			if err != nil {
				return errored(CodeServerError, err)
			}

			data := make([]didIdentityData, 0, len(results))
			verified := true
			for _, r := range results {
				data = append(data, didIdentityData{DID: r.Issuer, Verified: r.Verified})
				verified = verified && r.Verified
			}
			if !verified {
				return StatusInvalid, data, newReason(CodeWrongSignature, "merkle root is not signed correctly by the DID")
			}
			return StatusValid, data, nil
		},
	}
}
