// Package resource defines what berth knows about each Kubernetes kind: how
// a manifest of that kind becomes an artifact, and which handler rewrites
// and submits it.
package resource

import (
	"context"

	"github.com/cameronsjo/berth/internal/account"
	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
)

// Converter turns a manifest into the artifact that represents it.
type Converter interface {
	// ToArtifact returns the canonical artifact for m. The provider is
	// consulted for prior versions of the same artifact.
	ToArtifact(ctx context.Context, provider artifact.Provider, m *manifest.Manifest) (artifact.Artifact, error)

	// DeployedName returns the name the resource is submitted under.
	DeployedName(a artifact.Artifact) string
}

// Handler rewrites and submits manifests of one kind.
type Handler interface {
	// ReplaceArtifacts rewrites artifact placeholders in a copy of m.
	ReplaceArtifacts(m *manifest.Manifest, candidates []artifact.Artifact) (ReplaceResult, error)

	// Deploy submits m to the cluster of acct.
	Deploy(ctx context.Context, acct *account.Account, m *manifest.Manifest) (*OperationResult, error)
}

// Properties bundles the per-kind policy.
type Properties struct {
	Kind                 string
	Versioned            bool
	VersionedConverter   Converter
	UnversionedConverter Converter
	Handler              Handler
}

// Converter returns the converter for the given versioning decision.
func (p Properties) Converter(versioned bool) Converter {
	if versioned {
		return p.VersionedConverter
	}
	return p.UnversionedConverter
}

// ReplaceResult is the outcome of artifact replacement.
type ReplaceResult struct {
	Manifest       *manifest.Manifest
	BoundArtifacts []artifact.Artifact
}

// OperationResult is what a deployment hands back to its caller.
type OperationResult struct {
	ManifestNamesByNamespace map[string][]string  `json:"manifestNamesByNamespace"`
	Manifests                []*manifest.Manifest `json:"manifests"`
	CreatedArtifacts         []artifact.Artifact  `json:"createdArtifacts"`
	BoundArtifacts           []artifact.Artifact  `json:"boundArtifacts"`
}

// NewOperationResult returns a result with every collection initialized.
func NewOperationResult() *OperationResult {
	return &OperationResult{
		ManifestNamesByNamespace: map[string][]string{},
		Manifests:                []*manifest.Manifest{},
		CreatedArtifacts:         []artifact.Artifact{},
		BoundArtifacts:           []artifact.Artifact{},
	}
}

// AddManifest records a submitted manifest under its namespace.
func (r *OperationResult) AddManifest(m *manifest.Manifest) {
	if r.ManifestNamesByNamespace == nil {
		r.ManifestNamesByNamespace = map[string][]string{}
	}
	ns := m.GetNamespace()
	r.ManifestNamesByNamespace[ns] = append(r.ManifestNamesByNamespace[ns], m.FullResourceName())
	r.Manifests = append(r.Manifests, m)
}

// Normalize fills nil collections so callers never see nil.
func (r *OperationResult) Normalize() *OperationResult {
	if r == nil {
		return NewOperationResult()
	}
	if r.ManifestNamesByNamespace == nil {
		r.ManifestNamesByNamespace = map[string][]string{}
	}
	if r.Manifests == nil {
		r.Manifests = []*manifest.Manifest{}
	}
	if r.CreatedArtifacts == nil {
		r.CreatedArtifacts = []artifact.Artifact{}
	}
	if r.BoundArtifacts == nil {
		r.BoundArtifacts = []artifact.Artifact{}
	}
	return r
}
