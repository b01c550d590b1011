// Package verify runs verification checks against wrapped documents.
//
// Each check (a Verifier) produces a Fragment describing one aspect of the document:
// its integrity, its issuance status on chain, or the identity of its issuer.
// Builder combines verifiers into a Pipeline and IsValid decides whether a set of fragments
// amounts to a valid document.
package verify

// FragmentType is the aspect of the document a fragment covers.
type FragmentType string

const (
	DocumentIntegrity FragmentType = "DOCUMENT_INTEGRITY"
	DocumentStatus    FragmentType = "DOCUMENT_STATUS"
	IssuerIdentity    FragmentType = "ISSUER_IDENTITY"
)

// Status is the outcome of a verifier.
type Status string

const (
	StatusValid   Status = "VALID"
	StatusInvalid Status = "INVALID"
	StatusError   Status = "ERROR"
	StatusSkipped Status = "SKIPPED"
)

type ReasonCode int

const (
	CodeUnexpectedError ReasonCode = iota
	CodeDocumentTampered
	CodeDocumentNotIssued
	CodeDocumentRevoked
	CodeDocumentNotMinted
	CodeContractAddressInvalid
	CodeInvalidIssuers
	CodeUnrecognizedDocument
	CodeServerError
	CodeWrongSignature
	CodeUnsigned
	CodeMatchingRecordNotFound
	CodeInvalidIdentity
	CodeUnsupportedRevocation
	CodeSkipped
)

var codeStrings = map[ReasonCode]string{
	CodeUnexpectedError:        "UNEXPECTED_ERROR",
	CodeDocumentTampered:       "DOCUMENT_TAMPERED",
	CodeDocumentNotIssued:      "DOCUMENT_NOT_ISSUED",
	CodeDocumentRevoked:        "DOCUMENT_REVOKED",
	CodeDocumentNotMinted:      "DOCUMENT_NOT_MINTED",
	CodeContractAddressInvalid: "CONTRACT_ADDRESS_INVALID",
	CodeInvalidIssuers:         "INVALID_ISSUERS",
	CodeUnrecognizedDocument:   "UNRECOGNIZED_DOCUMENT",
	CodeServerError:            "SERVER_ERROR",
	CodeWrongSignature:         "WRONG_SIGNATURE",
	CodeUnsigned:               "UNSIGNED",
	CodeMatchingRecordNotFound: "MATCHING_RECORD_NOT_FOUND",
	CodeInvalidIdentity:        "INVALID_IDENTITY",
	CodeUnsupportedRevocation:  "UNSUPPORTED_REVOCATION",
	CodeSkipped:                "SKIPPED",
}

func (c ReasonCode) String() string {
	if s, ok := codeStrings[c]; ok {
		return s
	}
	return codeStrings[CodeUnexpectedError]
}

// Reason explains a fragment that is not VALID.
type Reason struct {
	Code       ReasonCode `json:"code"`
	CodeString string     `json:"codeString"`
	Message    string     `json:"message"`
}

func newReason(code ReasonCode, message string) *Reason {
	return &Reason{Code: code, CodeString: code.String(), Message: message}
}

// Fragment is the result of a single verifier.
type Fragment struct {
	Name   string       `json:"name"`
	Type   FragmentType `json:"type"`
	Status Status       `json:"status"`
	Data   any          `json:"data,omitempty"`
	Reason *Reason      `json:"reason,omitempty"`
}

// Fragments is the ordered output of a pipeline.
type Fragments []Fragment

var allTypes = []FragmentType{DocumentStatus, DocumentIntegrity, IssuerIdentity}

// IsValid reports whether, for every given type (all three when none are given), at least one
// fragment is VALID and every fragment is VALID or SKIPPED. An empty fragment list is never valid.
func IsValid(fragments Fragments, types ...FragmentType) bool {
	if len(fragments) == 0 {
		return false
	}
	if len(types) == 0 {
		types = allTypes
	}

	for _, fragmentType := range types {
		hasValid := false
		for _, f := range fragments {
			if f.Type != fragmentType {
				continue
			}
			switch f.Status {
			case StatusValid:
				hasValid = true
			case StatusSkipped:
			default:
				return false
			}
		}
		if !hasValid {
			return false
		}
	}
	return true
}

// ByName returns the fragment produced by the named verifier.
func (f Fragments) ByName(name string) (Fragment, bool) {
	for _, fragment := range f {
		if fragment.Name == name {
			return fragment, true
		}
	}
	return Fragment{}, false
}
