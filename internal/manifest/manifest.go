package manifest

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Manifest is a mutable Kubernetes resource document.
//
// It embeds unstructured.Unstructured, so the usual accessors (GetKind,
// GetNamespace, SetName, GetAnnotations, ...) and JSON encoding are
// available directly.
type Manifest struct {
	unstructured.Unstructured
}

// New wraps the given content as a Manifest. Values must be JSON compatible
// (string, int64, float64, bool, []any, map[string]any).
func New(content map[string]any) *Manifest {
	if content == nil {
		content = make(map[string]any)
	}
	return &Manifest{Unstructured: unstructured.Unstructured{Object: content}}
}

// FromUnstructured wraps an unstructured object without copying it.
func FromUnstructured(obj *unstructured.Unstructured) *Manifest {
	return &Manifest{Unstructured: *obj}
}

// DeepCopy returns an independent copy of the manifest.
func (m *Manifest) DeepCopy() *Manifest {
	if m == nil {
		return nil
	}
	return &Manifest{Unstructured: *m.Unstructured.DeepCopy()}
}

// Kind returns the resource kind.
func (m *Manifest) Kind() string {
	return m.GetKind()
}

// FullResourceName returns "<kind> <name>", the form used in status messages.
func (m *Manifest) FullResourceName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", strings.ToLower(m.GetKind()), m.GetName()))
}

// String renders the manifest identity for logs.
func (m *Manifest) String() string {
	if ns := m.GetNamespace(); ns != "" {
		return fmt.Sprintf("%s/%s", ns, m.FullResourceName())
	}
	return m.FullResourceName()
}

// Annotation returns the annotation value for key, or "".
func (m *Manifest) Annotation(key string) string {
	return m.GetAnnotations()[key]
}

// SetAnnotation sets a single annotation, keeping the others.
func (m *Manifest) SetAnnotation(key, value string) {
	annotations := m.GetAnnotations()
	if annotations == nil {
		annotations = make(map[string]string)
	}
	annotations[key] = value
	m.SetAnnotations(annotations)
}

// SetLabel sets a single label, keeping the others.
func (m *Manifest) SetLabel(key, value string) {
	labels := m.GetLabels()
	if labels == nil {
		labels = make(map[string]string)
	}
	labels[key] = value
	m.SetLabels(labels)
}
