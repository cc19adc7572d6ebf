package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getsops/sops/v3/decrypt"
	"sigs.k8s.io/yaml"
)

// sopsMetadataKey is the top-level key SOPS adds to encrypted documents.
const sopsMetadataKey = "sops"

// MergeValues recursively merges overlay into base and returns a new map.
// Nested maps are merged; any other overlay value (lists included) replaces
// the base value.
func MergeValues(base, overlay map[string]any) map[string]any {
	result := copyMap(base)

	for key, overlayValue := range overlay {
		baseMap, baseIsMap := result[key].(map[string]any)
		overlayMap, overlayIsMap := overlayValue.(map[string]any)
		if baseIsMap && overlayIsMap {
			result[key] = MergeValues(baseMap, overlayMap)
			continue
		}
		result[key] = deepCopy(overlayValue)
	}

	return result
}

// ParseSetValue parses a "--set" style assignment such as
// "image.tag=1.27" into a nested map. The value is parsed as YAML, so
// "replicas=3" yields a number and "debug=true" a boolean.
func ParseSetValue(assignment string) (map[string]any, error) {
	path, raw, ok := strings.Cut(assignment, "=")
	if !ok || path == "" {
		return nil, fmt.Errorf("invalid value %q: expected key=value", assignment)
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
		value = raw
	}

	keys := strings.Split(path, ".")
	result := map[string]any{}
	current := result
	for i, key := range keys {
		if key == "" {
			return nil, fmt.Errorf("invalid value %q: empty key segment", assignment)
		}
		if i == len(keys)-1 {
			current[key] = value
			break
		}
		next := map[string]any{}
		current[key] = next
		current = next
	}
	return result, nil
}

// ParseValues parses YAML values and applies the given assignments on top.
func ParseValues(data []byte, assignments []string) (map[string]any, error) {
	values := map[string]any{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("parse values: %w", err)
		}
		if values == nil {
			values = map[string]any{}
		}
	}
	for _, a := range assignments {
		overlay, err := ParseSetValue(a)
		if err != nil {
			return nil, err
		}
		values = MergeValues(values, overlay)
	}
	return values, nil
}

// LoadValuesFile reads a YAML or JSON values file. Files encrypted with
// SOPS are decrypted first, using the keys SOPS finds in the environment.
func LoadValuesFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}

	data, err = DecryptValues(data, valuesFormat(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	values, err := ParseValues(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// DecryptValues returns data decrypted when it carries SOPS metadata and
// unchanged otherwise. format is "yaml" or "json".
func DecryptValues(data []byte, format string) ([]byte, error) {
	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse values: %w", err)
	}
	if _, encrypted := probe[sopsMetadataKey]; !encrypted {
		return data, nil
	}

	cleartext, err := decrypt.Data(data, format)
	if err != nil {
		return nil, fmt.Errorf("sops decrypt: %w", err)
	}
	return cleartext, nil
}

func valuesFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}

// copyMap creates a shallow copy of a map.
func copyMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

// deepCopy creates a deep copy of any value.
func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = deepCopy(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = deepCopy(val)
		}
		return result
	default:
		return value
	}
}
