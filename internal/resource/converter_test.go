package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
)

func configMap(data string) *manifest.Manifest {
	return manifest.New(map[string]any{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata":   map[string]any{"name": "settings", "namespace": "prod"},
		"data":       map[string]any{"value": data},
	})
}

func TestUnversionedConverter(t *testing.T) {
	c := UnversionedConverter{}
	m := configMap("a")

	a, err := c.ToArtifact(context.Background(), nil, m)
	require.NoError(t, err)

	assert.Equal(t, "kubernetes/configMap", a.Type)
	assert.Equal(t, "settings", a.Name)
	assert.Equal(t, "prod", a.Location)
	assert.Empty(t, a.Version)
	assert.Equal(t, "settings", a.Reference)
	assert.Equal(t, "settings", c.DeployedName(a))
	assert.NotEmpty(t, a.Meta(artifact.MetadataDigest))

	again, err := c.ToArtifact(context.Background(), nil, m)
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestVersionedConverter(t *testing.T) {
	ctx := context.Background()
	c := VersionedConverter{}

	first, err := c.ToArtifact(ctx, artifact.NewMemoryProvider(), configMap("a"))
	require.NoError(t, err)
	assert.Equal(t, "v000", first.Version)
	assert.Equal(t, "settings-v000", first.Reference)
	assert.Equal(t, "settings-v000", c.DeployedName(first))

	provider := artifact.NewMemoryProvider(first)

	t.Run("same content reuses version", func(t *testing.T) {
		a, err := c.ToArtifact(ctx, provider, configMap("a"))
		require.NoError(t, err)
		assert.Equal(t, "v000", a.Version)
	})

	t.Run("new content bumps version", func(t *testing.T) {
		a, err := c.ToArtifact(ctx, provider, configMap("b"))
		require.NoError(t, err)
		assert.Equal(t, "v001", a.Version)
	})

	t.Run("idempotent identity", func(t *testing.T) {
		a, err := c.ToArtifact(ctx, provider, configMap("c"))
		require.NoError(t, err)
		b, err := c.ToArtifact(ctx, provider, configMap("c"))
		require.NoError(t, err)
		assert.Equal(t, a.Type, b.Type)
		assert.Equal(t, a.Name, b.Name)
		assert.Equal(t, a.Version, b.Version)
	})
}

type failingProvider struct{}

func (failingProvider) GetArtifacts(context.Context, string, string, string) ([]artifact.Artifact, error) {
	return nil, errors.New("cluster unreachable")
}

func TestVersionedConverter_ProviderError(t *testing.T) {
	_, err := VersionedConverter{}.ToArtifact(context.Background(), failingProvider{}, configMap("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster unreachable")
}

func TestNextVersion(t *testing.T) {
	tests := []struct {
		name   string
		prior  []artifact.Artifact
		digest string
		want   string
	}{
		{name: "no prior", want: "v000"},
		{
			name:  "gap in versions",
			prior: []artifact.Artifact{{Version: "v000"}, {Version: "v007"}, {Version: "v002"}},
			want:  "v008",
		},
		{
			name:  "ignores malformed versions",
			prior: []artifact.Artifact{{Version: "latest"}, {Version: "v001"}},
			want:  "v002",
		},
		{
			name: "matching digest",
			prior: []artifact.Artifact{
				{Version: "v004"},
				artifact.Artifact{Version: "v001"}.WithMeta(artifact.MetadataDigest, "sha256:x"),
			},
			digest: "sha256:x",
			want:   "v001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextVersion(tt.prior, tt.digest))
		})
	}
}
