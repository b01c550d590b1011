package oa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// GetData returns the unsalted data payload of a v2 document.
//
// Salted leaves have the form "<uuid v4>:<type>:<value>" and are converted back to their typed
// value. Leaves that do not start with a v4 uuid are returned unchanged.
func GetData(doc *WrappedDocument) (map[string]any, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	data, ok := asObject(doc.fields["data"])
	if !ok {
		return nil, fmt.Errorf("document has no data object")
	}

	unsalted, err := unsaltValue(data)
	if err != nil {
		return nil, err
	}
	return unsalted.(map[string]any), nil
}

func unsaltValue(v any) (any, error) {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, child := range value {
			unsalted, err := unsaltValue(child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = unsalted
		}
		return out, nil
	case []any:
		out := make([]any, len(value))
		for i, child := range value {
			unsalted, err := unsaltValue(child)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = unsalted
		}
		return out, nil
	case string:
		return unsaltString(value)
	default:
		return v, nil
	}
}

func unsaltString(s string) (any, error) {
	salt, rest, ok := strings.Cut(s, ":")
	if !ok || !isUUIDv4(salt) {
		return s, nil
	}

	valueType, value, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, fmt.Errorf("salted value %q has no type", s)
	}

	switch valueType {
	case "string":
		return value, nil
	case "number":
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("salted number %q is invalid: %w", value, err)
		}
		return n, nil
	case "boolean":
		return value == "true", nil
	case "null", "undefined":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported salted type %q", valueType)
	}
}

func isUUIDv4(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	return err == nil && id.Version() == 4
}
