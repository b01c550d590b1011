package verify

// OpenAttestationVerifiers returns the standard verifier set, in order.
func OpenAttestationVerifiers() []Verifier {
	return []Verifier{
		OpenAttestationHash(),
		TokenRegistryStatus(),
		DocumentStoreStatus(),
		DidSignedDocumentStatus(),
		DnsTxtIdentityProof(),
		DnsDidIdentityProof(),
	}
}
