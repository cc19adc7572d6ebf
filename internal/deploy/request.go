package deploy

import (
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/cameronsjo/berth/internal/account"
	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
	"github.com/cameronsjo/berth/internal/naming"
)

// Request is one deployment.
type Request struct {
	Source  ManifestSource
	Account *account.Account

	// NamespaceOverride replaces the manifest's namespace when set.
	NamespaceOverride string

	// Versioned overrides the kind's default versioning when non-nil.
	Versioned *bool

	// Artifacts are candidates for placeholder replacement, in priority order.
	Artifacts []artifact.Artifact

	Moniker       naming.Moniker
	Relationships manifest.Relationships
}

// Description is the wire form of a Request, as accepted by the HTTP
// server and the CLI's --request flag.
type Description struct {
	Source            string                 `json:"source,omitempty"`
	Manifest          json.RawMessage        `json:"manifest,omitempty"`
	ManifestArtifact  *artifact.Artifact     `json:"manifestArtifact,omitempty"`
	Account           string                 `json:"account,omitempty"`
	NamespaceOverride string                 `json:"namespaceOverride,omitempty"`
	Versioned         *bool                  `json:"versioned,omitempty"`
	RequiredArtifacts []artifact.Artifact    `json:"requiredArtifacts,omitempty"`
	Moniker           naming.Moniker         `json:"moniker,omitempty"`
	Relationships     manifest.Relationships `json:"relationships,omitempty"`
	Values            map[string]any         `json:"values,omitempty"`
}

// ParseDescription decodes a description from YAML or JSON.
func ParseDescription(data []byte) (*Description, error) {
	var d Description
	if err := yaml.UnmarshalStrict(data, &d); err != nil {
		return nil, fmt.Errorf("parse deploy description: %w", err)
	}
	return &d, nil
}

// Request converts the description into a Request, resolving the account
// by name.
func (d *Description) Request(accounts *account.Set) (Request, error) {
	source, err := ParseSource(d.Source)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		NamespaceOverride: d.NamespaceOverride,
		Versioned:         d.Versioned,
		Artifacts:         append([]artifact.Artifact{}, d.RequiredArtifacts...),
		Moniker:           d.Moniker,
		Relationships:     d.Relationships.Normalize(),
	}

	switch source {
	case SourceText:
		if len(d.Manifest) == 0 || string(d.Manifest) == "null" {
			return Request{}, fmt.Errorf("%w: source %q requires manifest", ErrMissingManifest, source)
		}
		m, err := manifest.Parse(d.Manifest)
		if err != nil {
			return Request{}, err
		}
		req.Source = InlineSource{Manifest: m}
	case SourceArtifact:
		if d.ManifestArtifact == nil {
			return Request{}, fmt.Errorf("%w: source %q requires manifestArtifact", ErrMissingManifest, source)
		}
		req.Source = ArtifactSource{Artifact: *d.ManifestArtifact}
	}

	req.Account, err = accounts.Get(d.Account)
	if err != nil {
		return Request{}, err
	}
	return req, nil
}
