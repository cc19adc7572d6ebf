package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
)

// decodeBufferSize is the read-ahead used to sniff YAML vs JSON.
const decodeBufferSize = 4096

// ErrNoDocuments indicates the input held no manifest.
var ErrNoDocuments = errors.New("no manifest documents found")

// Decode reads the first non-empty YAML or JSON document from r.
func Decode(r io.Reader) (*Manifest, error) {
	all, err := DecodeAll(r)
	if err != nil {
		return nil, err
	}
	return all[0], nil
}

// DecodeAll reads every non-empty YAML or JSON document from r.
func DecodeAll(r io.Reader) ([]*Manifest, error) {
	decoder := utilyaml.NewYAMLOrJSONDecoder(r, decodeBufferSize)

	var manifests []*Manifest
	for {
		var raw json.RawMessage
		err := decoder.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			continue
		}

		m := &Manifest{}
		if err := m.UnmarshalJSON(trimmed); err != nil {
			return nil, fmt.Errorf("decode manifest %d: %w", len(manifests)+1, err)
		}
		manifests = append(manifests, m)
	}

	if len(manifests) == 0 {
		return nil, ErrNoDocuments
	}
	return manifests, nil
}

// Parse decodes the first document in data.
func Parse(data []byte) (*Manifest, error) {
	return Decode(bytes.NewReader(data))
}
