package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deployment(name, namespace string) *Manifest {
	meta := map[string]any{"name": name}
	if namespace != "" {
		meta["namespace"] = namespace
	}
	return New(map[string]any{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   meta,
	})
}

func TestManifest_FullResourceName(t *testing.T) {
	assert.Equal(t, "deployment web", deployment("web", "").FullResourceName())
	assert.Equal(t, "prod/deployment web", deployment("web", "prod").String())
}

func TestManifest_DeepCopy(t *testing.T) {
	m := deployment("web", "prod")
	c := m.DeepCopy()
	c.SetName("api")
	c.SetAnnotation("a", "b")

	assert.Equal(t, "web", m.GetName())
	assert.Empty(t, m.GetAnnotations())
	assert.Equal(t, "b", c.Annotation("a"))
}

func TestManifest_SetAnnotationKeepsExisting(t *testing.T) {
	m := deployment("web", "")
	m.SetAnnotation("one", "1")
	m.SetAnnotation("two", "2")
	m.SetLabel("tier", "frontend")

	assert.Equal(t, map[string]string{"one": "1", "two": "2"}, m.GetAnnotations())
	assert.Equal(t, map[string]string{"tier": "frontend"}, m.GetLabels())
}

func TestManifest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		content map[string]any
		wantErr error
	}{
		{
			name:    "valid",
			content: map[string]any{"apiVersion": "v1", "kind": "ConfigMap", "metadata": map[string]any{"name": "cfg"}},
		},
		{
			name:    "missing apiVersion",
			content: map[string]any{"kind": "ConfigMap", "metadata": map[string]any{"name": "cfg"}},
			wantErr: ErrMissingAPIVersion,
		},
		{
			name:    "missing kind",
			content: map[string]any{"apiVersion": "v1", "metadata": map[string]any{"name": "cfg"}},
			wantErr: ErrMissingKind,
		},
		{
			name:    "missing name",
			content: map[string]any{"apiVersion": "v1", "kind": "ConfigMap", "metadata": map[string]any{}},
			wantErr: ErrMissingName,
		},
		{
			name:    "empty manifest",
			content: map[string]any{},
			wantErr: ErrMissingName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.content).Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
