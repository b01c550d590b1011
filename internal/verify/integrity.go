package verify

import (
	"context"

	"github.com/information-sharing-networks/doc-verifier/internal/oa"
)

// OpenAttestationHash checks that the document data matches its target hash and merkle root.
func OpenAttestationHash() Verifier {
	return &verifier{
		name:         "OpenAttestationHash",
		fragmentType: DocumentIntegrity,
		skipMessage:  "Document does not have merkle root, target hash or data.",
		test: func(doc *oa.WrappedDocument) bool {
			return oa.DetectVariant(doc) != oa.VariantUnknown
		},
		verify: func(ctx context.Context, doc *oa.WrappedDocument, opts Options) (Status, any, *Reason) {
			valid, err := oa.VerifySignature(doc)
			if err != nil {
				return StatusInvalid, false, newReason(CodeDocumentTampered, "Document has been tampered with: "+err.Error())
			}
			if !valid {
				return StatusInvalid, false, newReason(CodeDocumentTampered, "Document has been tampered with")
			}
			return StatusValid, true, nil
		},
	}
}
