// Package naming attaches a moniker (application, cluster, detail, stack,
// sequence) to manifests so deployed resources can be grouped.
package naming

import (
	"fmt"
	"strconv"

	"github.com/cameronsjo/berth/internal/manifest"
)

// Moniker annotations.
const (
	AnnotationApplication = manifest.MonikerAnnotationPrefix + "application"
	AnnotationCluster     = manifest.MonikerAnnotationPrefix + "cluster"
	AnnotationDetail      = manifest.MonikerAnnotationPrefix + "detail"
	AnnotationStack       = manifest.MonikerAnnotationPrefix + "stack"
	AnnotationSequence    = manifest.MonikerAnnotationPrefix + "sequence"
)

// Standard labels applied alongside the moniker.
const (
	LabelName      = "app.kubernetes.io/name"
	LabelManagedBy = manifest.LabelManagedBy
	ManagedBy      = manifest.ManagedBy
)

// Moniker is the logical name of a deployed resource.
type Moniker struct {
	App      string `json:"app,omitempty" yaml:"app,omitempty"`
	Cluster  string `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Stack    string `json:"stack,omitempty" yaml:"stack,omitempty"`
	Sequence *int   `json:"sequence,omitempty" yaml:"sequence,omitempty"`
}

// Namer applies a moniker to a manifest.
type Namer interface {
	ApplyMoniker(m *manifest.Manifest, moniker Moniker)
}

// AnnotationNamer records monikers as annotations and labels.
type AnnotationNamer struct{}

var _ Namer = AnnotationNamer{}

// ApplyMoniker writes the moniker onto m. An empty cluster defaults to the
// manifest's full resource name.
func (AnnotationNamer) ApplyMoniker(m *manifest.Manifest, moniker Moniker) {
	if moniker.Cluster == "" {
		moniker.Cluster = m.FullResourceName()
	}

	set := func(key, value string) {
		if value != "" {
			m.SetAnnotation(key, value)
		}
	}
	set(AnnotationApplication, moniker.App)
	set(AnnotationCluster, moniker.Cluster)
	set(AnnotationDetail, moniker.Detail)
	set(AnnotationStack, moniker.Stack)
	if moniker.Sequence != nil {
		m.SetAnnotation(AnnotationSequence, strconv.Itoa(*moniker.Sequence))
	}

	if moniker.App != "" {
		m.SetLabel(LabelName, moniker.App)
	}
	m.SetLabel(LabelManagedBy, ManagedBy)
}

// ReadMoniker reads the moniker stored on m. A malformed sequence is an error.
func ReadMoniker(m *manifest.Manifest) (Moniker, error) {
	moniker := Moniker{
		App:     m.Annotation(AnnotationApplication),
		Cluster: m.Annotation(AnnotationCluster),
		Detail:  m.Annotation(AnnotationDetail),
		Stack:   m.Annotation(AnnotationStack),
	}
	if raw := m.Annotation(AnnotationSequence); raw != "" {
		seq, err := strconv.Atoi(raw)
		if err != nil {
			return Moniker{}, fmt.Errorf("parse %s on %s: %w", AnnotationSequence, m.FullResourceName(), err)
		}
		moniker.Sequence = &seq
	}
	return moniker, nil
}
