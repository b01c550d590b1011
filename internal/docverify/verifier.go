package docverify

import (
	"context"
	"log/slog"

	"github.com/information-sharing-networks/doc-verifier/internal/network"
	"github.com/information-sharing-networks/doc-verifier/internal/oa"
	"github.com/information-sharing-networks/doc-verifier/internal/verify"
)

// ValidateDocument runs the verification pipeline for doc against the named network and
// returns the fragments when the document is valid.
func (s *Service) ValidateDocument(ctx context.Context, doc *oa.WrappedDocument, networkName string) (verify.Fragments, error) {
	descriptor, ok := s.networks.Lookup(networkName)
	if !ok {
		s.metrics.ObserveVerification("unsupported", "unsupported")
		return nil, NewNetworkUnsupportedError("network " + networkName + " is not supported")
	}

	provider, err := descriptor.Connect(ctx, s.logger, s.metrics)
	if err != nil {
		s.metrics.ObserveVerification(descriptor.Name, "error")
		return nil, WrapInternalError(err, "failed to connect to network "+descriptor.Name)
	}
	defer network.Close(provider)

	verifiers := append(verify.OpenAttestationVerifiers(), verify.DidIdentityProof())
	pipeline := verify.Builder(verifiers, verify.Options{
		Provider: provider,
		Resolver: s.resolver,
		Logger:   s.logger,
	})

	fragments := pipeline(ctx, doc)
	if !verify.IsValid(fragments) {
		s.metrics.ObserveVerification(descriptor.Name, "invalid")
		s.logger.Debug("document failed verification",
			slog.String("network", descriptor.Name),
			slog.Any("fragments", fragments),
		)
		return nil, NewDocumentGenericError("document failed verification on "+descriptor.Name, fragments)
	}

	s.metrics.ObserveVerification(descriptor.Name, "valid")
	return fragments, nil
}

// Verify resolves the network of doc and validates it there.
func (s *Service) Verify(ctx context.Context, doc *oa.WrappedDocument) (string, verify.Fragments, error) {
	networkName, err := s.ValidateNetwork(doc)
	if err != nil {
		return "", nil, err
	}
	fragments, err := s.ValidateDocument(ctx, doc, networkName)
	if err != nil {
		return networkName, nil, err
	}
	return networkName, fragments, nil
}
