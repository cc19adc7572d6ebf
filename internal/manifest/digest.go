package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"
)

// serverFields are metadata fields set by the API server. They are removed
// before hashing so a live object and its source manifest hash the same.
var serverFields = []string{
	"resourceVersion",
	"uid",
	"creationTimestamp",
	"generation",
	"managedFields",
	"selfLink",
}

// ContentDigest returns the sha256 digest of the manifest content. Status,
// server-populated metadata and the annotations and managed-by label berth
// writes itself are ignored. Map keys are encoded in sorted order so equal
// content always yields the same digest.
func ContentDigest(m *Manifest) (digest.Digest, error) {
	c := m.DeepCopy()
	delete(c.Object, "status")
	RemoveAnnotations(c, ArtifactAnnotationPrefix, RelationshipsAnnotationPrefix, MonikerAnnotationPrefix)
	if labels := c.GetLabels(); labels[LabelManagedBy] == ManagedBy {
		delete(labels, LabelManagedBy)
		if len(labels) == 0 {
			labels = nil
		}
		c.SetLabels(labels)
	}
	if meta, ok := c.Object["metadata"].(map[string]any); ok {
		for _, field := range serverFields {
			delete(meta, field)
		}
	}

	data, err := json.Marshal(c.Object)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", m.FullResourceName(), err)
	}
	return digest.FromBytes(data), nil
}
