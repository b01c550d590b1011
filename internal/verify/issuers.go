package verify

import (
	"fmt"

	"github.com/information-sharing-networks/doc-verifier/internal/oa"
)

// issuerView is the variant independent information a verifier needs about one issuer.
type issuerView struct {
	// did or name used in fragment data
	ID string

	DocumentStore string
	TokenRegistry string
	IdentityProof oa.IdentityProof
	Revocation    oa.Revocation
}

// documentIssuers returns the issuers of a v2 document, or the single issuer of a v3 document.
func documentIssuers(doc *oa.WrappedDocument) ([]issuerView, error) {
	switch oa.DetectVariant(doc) {
	case oa.VariantV2:
		issuers, err := oa.GetIssuers(doc)
		if err != nil {
			return nil, err
		}
		views := make([]issuerView, 0, len(issuers))
		for _, issuer := range issuers {
			view := issuerView{
				ID:            issuer.ID,
				DocumentStore: issuer.StoreAddress(),
				TokenRegistry: issuer.TokenRegistry,
			}
			if issuer.IdentityProof != nil {
				view.IdentityProof = *issuer.IdentityProof
			}
			if issuer.Revocation != nil {
				view.Revocation = *issuer.Revocation
			}
			views = append(views, view)
		}
		return views, nil

	case oa.VariantV3:
		metadata, err := oa.GetV3Metadata(doc)
		if err != nil {
			return nil, err
		}
		view := issuerView{IdentityProof: metadata.IdentityProof}
		switch metadata.Proof.Method {
		case oa.MethodDocumentStore:
			view.DocumentStore = metadata.Proof.Value
		case oa.MethodTokenRegistry:
			view.TokenRegistry = metadata.Proof.Value
		case oa.MethodDID:
			view.ID = metadata.Proof.Value
			proof, err := oa.GetV3Proof(doc)
			if err != nil {
				return nil, err
			}
			view.IdentityProof.Key = proof.Key
		}
		if metadata.Proof.Revocation != nil {
			view.Revocation = *metadata.Proof.Revocation
		}
		return []issuerView{view}, nil

	default:
		return nil, fmt.Errorf("unrecognised document schema")
	}
}

// anyIssuer reports whether any issuer satisfies match. It is false for unparseable documents.
func anyIssuer(doc *oa.WrappedDocument, match func(issuerView) bool) bool {
	issuers, err := documentIssuers(doc)
	if err != nil {
		return false
	}
	for _, issuer := range issuers {
		if match(issuer) {
			return true
		}
	}
	return false
}

func v3Method(doc *oa.WrappedDocument) string {
	if oa.DetectVariant(doc) != oa.VariantV3 {
		return ""
	}
	metadata, err := oa.GetV3Metadata(doc)
	if err != nil {
		return ""
	}
	return metadata.Proof.Method
}

// merkleHashes returns the declared merkle root of doc and the hashes on its proof path
// (target hash first, computed root last).
func merkleHashes(doc *oa.WrappedDocument) (merkleRoot string, hashes []string, err error) {
	proof, err := oa.GetMerkleProof(doc)
	if err != nil {
		return "", nil, err
	}
	hashes, err = oa.IntermediateHashes(proof.TargetHash, proof.Proofs)
	if err != nil {
		return "", nil, err
	}
	return proof.MerkleRoot, hashes, nil
}
