// Package artifact models the artifacts a manifest deployment creates or binds.
//
// An artifact is either the deployed manifest itself (type kubernetes/<kind>)
// or something the manifest refers to, such as a container image or a
// versioned config map. Artifacts are plain values and are never mutated
// once built.
package artifact

import (
	"fmt"
	"strings"
)

// Well-known artifact types.
const (
	TypeDockerImage    = "docker/image"
	TypeConfigMap      = "kubernetes/configMap"
	TypeSecret         = "kubernetes/secret"
	TypeEmbeddedBase64 = "embedded/base64"
	TypeHTTPFile       = "http/file"
	TypeLocalFile      = "local/file"
	TypeGitRepo        = "git/repo"
)

// Metadata keys.
const (
	// MetadataDigest holds the content digest of a manifest artifact.
	MetadataDigest = "digest"
	// MetadataAccount holds the account a manifest artifact was deployed with.
	MetadataAccount = "account"
	// MetadataSubPath holds the file path inside a git/repo artifact.
	MetadataSubPath = "subPath"
)

// kubernetesTypePrefix prefixes the type of every manifest artifact.
const kubernetesTypePrefix = "kubernetes/"

// Artifact is an addressable build output or deployment identity.
type Artifact struct {
	// Type identifies the artifact family (e.g., "docker/image").
	Type string `json:"type" yaml:"type"`

	// Name is the unversioned name, used to match placeholders.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Version is the artifact version, empty for unversioned artifacts.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Location scopes the artifact, e.g. the namespace of a manifest.
	Location string `json:"location,omitempty" yaml:"location,omitempty"`

	// Reference is the resolved address substituted into manifests.
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`

	// Metadata carries type-specific details.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// String renders the artifact for logs and error messages.
func (a Artifact) String() string {
	ref := a.Reference
	if ref == "" {
		ref = a.Name
	}
	return fmt.Sprintf("%s %q", a.Type, ref)
}

// Meta returns a metadata value, or "" when absent.
func (a Artifact) Meta(key string) string {
	if a.Metadata == nil {
		return ""
	}
	return a.Metadata[key]
}

// WithMeta returns a copy of the artifact with the metadata key set.
func (a Artifact) WithMeta(key, value string) Artifact {
	meta := make(map[string]string, len(a.Metadata)+1)
	for k, v := range a.Metadata {
		meta[k] = v
	}
	meta[key] = value
	a.Metadata = meta
	return a
}

// KubernetesType returns the artifact type for a resource kind,
// e.g. "ConfigMap" becomes "kubernetes/configMap".
func KubernetesType(kind string) string {
	if kind == "" {
		return kubernetesTypePrefix
	}
	return kubernetesTypePrefix + strings.ToLower(kind[:1]) + kind[1:]
}

// IsKubernetesType reports whether typ names a manifest artifact.
func IsKubernetesType(typ string) bool {
	return strings.HasPrefix(typ, kubernetesTypePrefix) && len(typ) > len(kubernetesTypePrefix)
}
