package manifest

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/cameronsjo/berth/internal/artifact"
)

// Prefixes of the annotation keys berth writes.
const (
	ArtifactAnnotationPrefix      = "artifact.berth.dev/"
	RelationshipsAnnotationPrefix = "relationships.berth.dev/"
	MonikerAnnotationPrefix       = "moniker.berth.dev/"
)

// LabelManagedBy is set to ManagedBy on every deployed resource.
const (
	LabelManagedBy = "app.kubernetes.io/managed-by"
	ManagedBy      = "berth"
)

// Artifact annotations record which artifact a deployed resource represents.
const (
	AnnotationArtifactType     = ArtifactAnnotationPrefix + "type"
	AnnotationArtifactName     = ArtifactAnnotationPrefix + "name"
	AnnotationArtifactLocation = ArtifactAnnotationPrefix + "location"
	AnnotationArtifactVersion  = ArtifactAnnotationPrefix + "version"
	AnnotationArtifactDigest   = ArtifactAnnotationPrefix + "digest"
)

// Relationship annotations record the owning application and attached
// infrastructure.
const (
	AnnotationApplication    = RelationshipsAnnotationPrefix + "application"
	AnnotationLoadBalancers  = RelationshipsAnnotationPrefix + "loadBalancers"
	AnnotationSecurityGroups = RelationshipsAnnotationPrefix + "securityGroups"
)

// Relationships describes the infrastructure a manifest belongs to.
type Relationships struct {
	Application    string   `json:"application,omitempty" yaml:"application,omitempty"`
	LoadBalancers  []string `json:"loadBalancers,omitempty" yaml:"loadBalancers,omitempty"`
	SecurityGroups []string `json:"securityGroups,omitempty" yaml:"securityGroups,omitempty"`
}

// Normalize returns a copy with sorted, de-duplicated lists.
func (r Relationships) Normalize() Relationships {
	return Relationships{
		Application:    r.Application,
		LoadBalancers:  sortedUnique(r.LoadBalancers),
		SecurityGroups: sortedUnique(r.SecurityGroups),
	}
}

// IsZero reports whether no relationship is set.
func (r Relationships) IsZero() bool {
	return r.Application == "" && len(r.LoadBalancers) == 0 && len(r.SecurityGroups) == 0
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// AnnotateArtifact stamps the artifact identity onto the manifest,
// replacing any artifact annotations already present. Empty fields are not
// written.
func AnnotateArtifact(m *Manifest, a artifact.Artifact) {
	RemoveAnnotations(m, ArtifactAnnotationPrefix)
	set := func(key, value string) {
		if value != "" {
			m.SetAnnotation(key, value)
		}
	}
	set(AnnotationArtifactType, a.Type)
	set(AnnotationArtifactName, a.Name)
	set(AnnotationArtifactLocation, a.Location)
	set(AnnotationArtifactVersion, a.Version)
	set(AnnotationArtifactDigest, a.Meta(artifact.MetadataDigest))
}

// RemoveAnnotations deletes every annotation whose key starts with one of
// the prefixes. An annotations map left empty is removed.
func RemoveAnnotations(m *Manifest, prefixes ...string) {
	annotations := m.GetAnnotations()
	if len(annotations) == 0 {
		return
	}
	for key := range annotations {
		if hasAnyPrefix(key, prefixes) {
			delete(annotations, key)
		}
	}
	if len(annotations) == 0 {
		annotations = nil
	}
	m.SetAnnotations(annotations)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// ArtifactFromAnnotations rebuilds the artifact identity stamped by
// AnnotateArtifact. It returns false when the type or name is missing.
func ArtifactFromAnnotations(annotations map[string]string) (artifact.Artifact, bool) {
	a := artifact.Artifact{
		Type:     annotations[AnnotationArtifactType],
		Name:     annotations[AnnotationArtifactName],
		Location: annotations[AnnotationArtifactLocation],
		Version:  annotations[AnnotationArtifactVersion],
	}
	if a.Type == "" || a.Name == "" {
		return artifact.Artifact{}, false
	}
	if d := annotations[AnnotationArtifactDigest]; d != "" {
		a = a.WithMeta(artifact.MetadataDigest, d)
	}
	return a, true
}

// AnnotateRelationships stamps the relationships onto the manifest. Lists
// are stored as JSON arrays.
func AnnotateRelationships(m *Manifest, r Relationships) error {
	r = r.Normalize()
	if r.Application != "" {
		m.SetAnnotation(AnnotationApplication, r.Application)
	}
	for key, list := range map[string][]string{
		AnnotationLoadBalancers:  r.LoadBalancers,
		AnnotationSecurityGroups: r.SecurityGroups,
	} {
		if len(list) == 0 {
			continue
		}
		data, err := json.Marshal(list)
		if err != nil {
			return err
		}
		m.SetAnnotation(key, string(data))
	}
	return nil
}
