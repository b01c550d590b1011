package docverify

import (
	"log/slog"

	"github.com/information-sharing-networks/doc-verifier/internal/metrics"
	"github.com/information-sharing-networks/doc-verifier/internal/network"
	"github.com/information-sharing-networks/doc-verifier/internal/verify"
)

// Service verifies documents against the networks in its table.
type Service struct {
	networks *network.Table
	resolver verify.TXTResolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService creates a service. m may be nil (no metrics are recorded).
func NewService(networks *network.Table, resolver verify.TXTResolver, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		networks: networks,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
	}
}

// Networks returns the network table used by the service.
func (s *Service) Networks() *network.Table {
	return s.networks
}
