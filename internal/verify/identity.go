package verify

import (
	"context"
	"fmt"

	"github.com/information-sharing-networks/doc-verifier/internal/oa"
)

type dnsIdentityData struct {
	Location string `json:"location"`
	Value    string `json:"value"`
	Status   Status `json:"status"`
}

func lookupTXT(ctx context.Context, opts Options, domain string) ([]string, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("no DNS resolver available")
	}
	if domain == "" {
		return nil, fmt.Errorf("identity proof has no location")
	}
	return opts.Resolver.LookupTXT(ctx, domain)
}

// DnsTxtIdentityProof checks that each issuer's domain publishes a TXT record naming its contract on this chain.
func DnsTxtIdentityProof() Verifier {
	return &verifier{
		name:         "OpenAttestationDnsTxtIdentityProof",
		fragmentType: IssuerIdentity,
		skipMessage:  `Document issuers doesn't have "documentStore" / "tokenRegistry" property or doesn't use DNS-TXT type`,
		test: func(doc *oa.WrappedDocument) bool {
			return anyIssuer(doc, func(i issuerView) bool {
				return i.IdentityProof.Type == oa.IdentityProofDNSTXT && (i.DocumentStore != "" || i.TokenRegistry != "")
			})
		},
		verify: verifyDNSTXT,
	}
}

func verifyDNSTXT(ctx context.Context, doc *oa.WrappedDocument, opts Options) (Status, any, *Reason) {
	issuers, err := documentIssuers(doc)
	if err != nil {
		return errored(CodeUnrecognizedDocument, err)
	}
	for _, issuer := range issuers {
		if issuer.IdentityProof.Type != oa.IdentityProofDNSTXT {
			return errored(CodeInvalidIssuers, fmt.Errorf("all issuers must use a DNS-TXT identity proof"))
		}
	}

	if opts.Provider == nil {
		return errored(CodeServerError, fmt.Errorf("no provider available"))
	}
	chainID, err := opts.Provider.ChainID(ctx)
	if err != nil {
		return errored(CodeServerError, fmt.Errorf("failed to read chain id: %w", err))
	}

	data := make([]dnsIdentityData, 0, len(issuers))
	allFound := true
	for _, issuer := range issuers {
		address := issuer.DocumentStore
		if address == "" {
			address = issuer.TokenRegistry
		}
		domain := issuer.IdentityProof.Domain()

		records, err := lookupTXT(ctx, opts, domain)
		if err != nil {
			return errored(CodeServerError, err)
		}

		entry := dnsIdentityData{Location: domain, Value: address, Status: StatusInvalid}
		for _, record := range records {
			if matchesDNSTXT(record, chainID.String(), address) {
				entry.Status = StatusValid
				break
			}
		}
		if entry.Status != StatusValid {
			allFound = false
		}
		data = append(data, entry)
	}

	if !allFound {
		return StatusInvalid, data, newReason(CodeMatchingRecordNotFound, "Certificate issuer identity is invalid")
	}
	return StatusValid, data, nil
}

// DnsDidIdentityProof checks that each issuer's domain publishes a dns-did record for the DID key that signed the document.
func DnsDidIdentityProof() Verifier {
	return &verifier{
		name:         "OpenAttestationDnsDidIdentityProof",
		fragmentType: IssuerIdentity,
		skipMessage:  "Document was not issued using DNS-DID",
		test: func(doc *oa.WrappedDocument) bool {
			return isSigned(doc) && anyIssuer(doc, func(i issuerView) bool { return i.IdentityProof.Type == oa.IdentityProofDNSDID })
		},
		verify: verifyDNSDID,
	}
}

func verifyDNSDID(ctx context.Context, doc *oa.WrappedDocument, opts Options) (Status, any, *Reason) {
	issuers, err := documentIssuers(doc)
	if err != nil {
		return errored(CodeUnrecognizedDocument, err)
	}
	for _, issuer := range issuers {
		if issuer.IdentityProof.Type != oa.IdentityProofDNSDID {
			return errored(CodeInvalidIssuers, fmt.Errorf("all issuers must use a DNS-DID identity proof"))
		}
	}

	signatures, err := documentSignatures(ctx, doc, opts.Provider, issuers)
	if err != nil {
		return errored(CodeServerError, err)
	}

	data := make([]dnsIdentityData, 0, len(issuers))
	valid := true
	for i, issuer := range issuers {
		domain := issuer.IdentityProof.Domain()
		key := issuer.IdentityProof.Key

		entry := dnsIdentityData{Location: domain, Value: key, Status: StatusInvalid}
		if signatures[i].Verified {
			records, err := lookupTXT(ctx, opts, domain)
			if err != nil {
				return errored(CodeServerError, err)
			}
			for _, record := range records {
				if matchesDNSDID(record, key) {
					entry.Status = StatusValid
					break
				}
			}
		}
		if entry.Status != StatusValid {
			valid = false
		}
		data = append(data, entry)
	}

	if !valid {
		return StatusInvalid, data, newReason(CodeInvalidIdentity, "Could not find identity at location")
	}
	return StatusValid, data, nil
}
