package kube

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/cameronsjo/berth/internal/account"
	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
	"github.com/cameronsjo/berth/internal/resource"
)

func newFakeClient(objects ...runtime.Object) *dynamicfake.FakeDynamicClient {
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), ListKinds(), objects...)
}

func kindNamed(t *testing.T, name string) Kind {
	t.Helper()
	for _, k := range DefaultKinds() {
		if k.Name == name {
			return k
		}
	}
	t.Fatalf("kind %s not in default table", name)
	return Kind{}
}

func configMap(name, namespace, value string) *manifest.Manifest {
	return manifest.New(map[string]any{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata":   map[string]any{"name": name, "namespace": namespace},
		"data":       map[string]any{"value": value},
	})
}

func getConfigMap(t *testing.T, client *dynamicfake.FakeDynamicClient, namespace, name string) *unstructured.Unstructured {
	t.Helper()
	obj, err := client.Resource(kindNamed(t, "ConfigMap").Resource).Namespace(namespace).Get(context.Background(), name, metav1.GetOptions{})
	require.NoError(t, err)
	return obj
}

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)
	assert.Len(t, registry.Kinds(), len(DefaultKinds()))

	p, err := registry.Get("configMap")
	require.NoError(t, err)
	assert.True(t, p.Versioned)

	p, err = registry.Get("Deployment")
	require.NoError(t, err)
	assert.False(t, p.Versioned)

	_, err = registry.Get("Widget")
	assert.ErrorIs(t, err, resource.ErrUnknownKind)

	_, err = NewRegistry(kindNamed(t, "Pod"), kindNamed(t, "Pod"))
	assert.Error(t, err)
}

func TestHandler_ReplaceArtifacts(t *testing.T) {
	h := NewHandler(kindNamed(t, "Pod"), nil)
	m := manifest.New(map[string]any{
		"apiVersion": "v1",
		"kind":       "Pod",
		"metadata":   map[string]any{"name": "web", "namespace": "prod"},
		"spec": map[string]any{
			"containers": []any{map[string]any{"name": "web", "image": "nginx"}},
		},
	})
	candidates := []artifact.Artifact{{Type: artifact.TypeDockerImage, Name: "nginx", Reference: "nginx:1.27"}}

	result, err := h.ReplaceArtifacts(m, candidates)
	require.NoError(t, err)

	assert.Equal(t, candidates, result.BoundArtifacts)
	image, _, _ := unstructured.NestedSlice(result.Manifest.Object, "spec", "containers")
	assert.Equal(t, "nginx:1.27", image[0].(map[string]any)["image"])

	original, _, _ := unstructured.NestedSlice(m.Object, "spec", "containers")
	assert.Equal(t, "nginx", original[0].(map[string]any)["image"], "input must not change")
}

func TestHandler_DeployUnversioned(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	acct := account.New("test", account.WithClient(client))
	h := NewHandler(kindNamed(t, "ConfigMap"), nil)

	result, err := h.Deploy(ctx, acct, configMap("settings", "prod", "a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"configmap settings"}, result.ManifestNamesByNamespace["prod"])
	require.Len(t, result.Manifests, 1)

	// Second deploy updates in place.
	_, err = h.Deploy(ctx, acct, configMap("settings", "prod", "b"))
	require.NoError(t, err)

	live := getConfigMap(t, client, "prod", "settings")
	value, _, _ := unstructured.NestedString(live.Object, "data", "value")
	assert.Equal(t, "b", value)
}

func TestHandler_DeployVersioned(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	acct := account.New("test", account.WithClient(client))
	h := NewHandler(kindNamed(t, "ConfigMap"), nil)

	m := configMap("settings-v000", "prod", "a")
	m.SetAnnotation(manifest.AnnotationArtifactVersion, "v000")
	m.SetAnnotation(manifest.AnnotationArtifactDigest, "sha256:a")

	_, err := h.Deploy(ctx, acct, m)
	require.NoError(t, err)

	// Redeploying the same version is tolerated.
	result, err := h.Deploy(ctx, acct, m.DeepCopy())
	require.NoError(t, err)
	assert.Equal(t, "settings-v000", result.Manifests[0].GetName())
}

func TestHandler_DeployVersionConflict(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	acct := account.New("test", account.WithClient(client))
	h := NewHandler(kindNamed(t, "ConfigMap"), nil)

	m := configMap("settings-v000", "prod", "a")
	m.SetAnnotation(manifest.AnnotationArtifactVersion, "v000")
	m.SetAnnotation(manifest.AnnotationArtifactDigest, "sha256:a")
	_, err := h.Deploy(ctx, acct, m)
	require.NoError(t, err)

	tests := []struct {
		name   string
		digest string
	}{
		{name: "different digest", digest: "sha256:b"},
		{name: "no digest", digest: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := configMap("settings-v000", "prod", "b")
			changed.SetAnnotation(manifest.AnnotationArtifactVersion, "v000")
			if tt.digest != "" {
				changed.SetAnnotation(manifest.AnnotationArtifactDigest, tt.digest)
			}

			_, err := h.Deploy(ctx, acct, changed)
			require.ErrorIs(t, err, ErrVersionConflict)

			live := getConfigMap(t, client, "prod", "settings-v000")
			value, _, _ := unstructured.NestedString(live.Object, "data", "value")
			assert.Equal(t, "a", value)
		})
	}
}

func TestHandler_DeployClusterScoped(t *testing.T) {
	client := newFakeClient()
	acct := account.New("test", account.WithClient(client))
	h := NewHandler(kindNamed(t, "Namespace"), nil)

	m := manifest.New(map[string]any{
		"apiVersion": "v1",
		"kind":       "Namespace",
		"metadata":   map[string]any{"name": "team-a", "namespace": "default"},
	})

	result, err := h.Deploy(context.Background(), acct, m)
	require.NoError(t, err)
	assert.Contains(t, result.ManifestNamesByNamespace, "")

	_, err = client.Resource(kindNamed(t, "Namespace").Resource).Get(context.Background(), "team-a", metav1.GetOptions{})
	require.NoError(t, err)
}

func TestHandler_DeployError(t *testing.T) {
	client := newFakeClient()
	client.PrependReactor("create", "configmaps", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("admission denied")
	})
	acct := account.New("test", account.WithClient(client))
	h := NewHandler(kindNamed(t, "ConfigMap"), nil)

	_, err := h.Deploy(context.Background(), acct, configMap("settings", "prod", "a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admission denied")
	assert.Contains(t, err.Error(), "configmap settings")
}

func annotatedConfigMap(name, namespace, artifactName, version, digest string) *unstructured.Unstructured {
	m := configMap(name, namespace, version)
	a := artifact.Artifact{
		Type:     artifact.TypeConfigMap,
		Name:     artifactName,
		Location: namespace,
		Version:  version,
	}.WithMeta(artifact.MetadataDigest, digest)
	manifest.AnnotateArtifact(m, a)
	return &m.Unstructured
}

func TestClusterProvider_GetArtifacts(t *testing.T) {
	client := newFakeClient(
		annotatedConfigMap("settings-v000", "prod", "settings", "v000", "sha256:a"),
		annotatedConfigMap("settings-v001", "prod", "settings", "v001", "sha256:b"),
		annotatedConfigMap("settings-v000", "dev", "settings", "v000", "sha256:a"),
		annotatedConfigMap("other-v000", "prod", "other", "v000", "sha256:c"),
		&configMap("plain", "prod", "x").Unstructured,
	)
	p := NewClusterProvider(client)

	found, err := p.GetArtifacts(context.Background(), artifact.TypeConfigMap, "settings", "prod")
	require.NoError(t, err)
	require.Len(t, found, 2)

	versions := []string{found[0].Version, found[1].Version}
	assert.ElementsMatch(t, []string{"v000", "v001"}, versions)
	for _, a := range found {
		assert.Equal(t, "settings-"+a.Version, a.Reference)
	}

	none, err := p.GetArtifacts(context.Background(), "docker/image", "nginx", "prod")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClusterProvider_FeedsVersionedConverter(t *testing.T) {
	m := configMap("settings", "prod", "a")
	first, err := resource.VersionedConverter{}.ToArtifact(context.Background(), nil, m)
	require.NoError(t, err)

	client := newFakeClient(annotatedConfigMap("settings-v000", "prod", "settings", "v000", first.Meta(artifact.MetadataDigest)))
	acct := account.New("test", account.WithClient(client))

	provider, err := ProviderFor(acct)
	require.NoError(t, err)

	again, err := resource.VersionedConverter{}.ToArtifact(context.Background(), provider, m)
	require.NoError(t, err)
	assert.Equal(t, "v000", again.Version)

	next, err := resource.VersionedConverter{}.ToArtifact(context.Background(), provider, configMap("settings", "prod", "b"))
	require.NoError(t, err)
	assert.Equal(t, "v001", next.Version)
}
