package resource

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
)

// UnversionedConverter represents a manifest as an artifact named after the
// manifest itself. Redeploying replaces the resource in place.
type UnversionedConverter struct{}

var _ Converter = UnversionedConverter{}

// ToArtifact implements Converter.
func (UnversionedConverter) ToArtifact(_ context.Context, _ artifact.Provider, m *manifest.Manifest) (artifact.Artifact, error) {
	d, err := manifest.ContentDigest(m)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.Artifact{
		Type:      artifact.KubernetesType(m.GetKind()),
		Name:      m.GetName(),
		Location:  m.GetNamespace(),
		Reference: m.GetName(),
	}.WithMeta(artifact.MetadataDigest, d.String()), nil
}

// DeployedName implements Converter.
func (UnversionedConverter) DeployedName(a artifact.Artifact) string {
	return a.Name
}

// VersionedConverter gives every distinct manifest content its own version
// (v000, v001, ...) and deploys it as a new resource named <name>-<version>.
// Content that was deployed before keeps its earlier version.
type VersionedConverter struct{}

var _ Converter = VersionedConverter{}

var versionPattern = regexp.MustCompile(`^v(\d+)$`)

// ToArtifact implements Converter.
func (VersionedConverter) ToArtifact(ctx context.Context, provider artifact.Provider, m *manifest.Manifest) (artifact.Artifact, error) {
	d, err := manifest.ContentDigest(m)
	if err != nil {
		return artifact.Artifact{}, err
	}

	a := artifact.Artifact{
		Type:     artifact.KubernetesType(m.GetKind()),
		Name:     m.GetName(),
		Location: m.GetNamespace(),
	}.WithMeta(artifact.MetadataDigest, d.String())

	var prior []artifact.Artifact
	if provider != nil {
		prior, err = provider.GetArtifacts(ctx, a.Type, a.Name, a.Location)
		if err != nil {
			return artifact.Artifact{}, fmt.Errorf("list versions of %s: %w", m.FullResourceName(), err)
		}
	}

	a.Version = nextVersion(prior, d.String())
	a.Reference = VersionedConverter{}.DeployedName(a)
	return a, nil
}

// DeployedName implements Converter.
func (VersionedConverter) DeployedName(a artifact.Artifact) string {
	if a.Version == "" {
		return a.Name
	}
	return a.Name + "-" + a.Version
}

// nextVersion returns the version of a prior artifact with the same digest,
// or one past the highest prior version.
func nextVersion(prior []artifact.Artifact, digest string) string {
	highest := -1
	for _, p := range prior {
		if p.Meta(artifact.MetadataDigest) == digest && p.Version != "" {
			return p.Version
		}
		match := versionPattern.FindStringSubmatch(p.Version)
		if match == nil {
			continue
		}
		if n, err := strconv.Atoi(match[1]); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("v%03d", highest+1)
}
