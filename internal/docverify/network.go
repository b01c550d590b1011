package docverify

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/information-sharing-networks/doc-verifier/internal/oa"
)

// ValidateNetwork returns the name of the network a wrapped document was issued on.
//
// v2 documents declare the network in their (salted) data payload, v3 documents at the top level.
// A network declared as {chain, chainId} is mapped to the table entry for that chain id; an unknown
// chain id is returned as is so that ValidateDocument rejects it as unsupported.
func (s *Service) ValidateNetwork(doc *oa.WrappedDocument) (string, error) {
	var declared any

	switch oa.DetectVariant(doc) {
	case oa.VariantV2:
		data, err := oa.GetData(doc)
		if err != nil {
			return "", WrapDocumentSchemaInvalidError(err, "failed to read document data")
		}
		declared = data["network"]
	case oa.VariantV3:
		declared, _ = doc.Field("network")
	default:
		return "", NewDocumentSchemaInvalidError("document is neither a wrapped v2 nor a wrapped v3 document")
	}

	name := s.networkName(declared)
	if name == "" {
		return "", NewDocumentNetworkNotFoundError("document does not declare a network")
	}
	return name, nil
}

func (s *Service) networkName(declared any) string {
	switch v := declared.(type) {
	case string:
		return v
	case map[string]any:
		chainID := scalarString(v["chainId"])
		if chainID == "" {
			return ""
		}
		if id, err := strconv.ParseInt(chainID, 10, 64); err == nil && s.networks != nil {
			if d, ok := s.networks.LookupByChainID(id); ok {
				return d.Name
			}
		}
		return chainID
	default:
		return scalarString(v)
	}
}

func scalarString(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		if value {
			return "true"
		}
	}
	return ""
}
