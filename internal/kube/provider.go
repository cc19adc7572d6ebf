package kube

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/dynamic"

	"github.com/cameronsjo/berth/internal/account"
	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
)

// ClusterProvider finds previously deployed artifacts by listing objects in
// the cluster and reading their artifact annotations.
type ClusterProvider struct {
	client dynamic.Interface
	kinds  map[string]Kind
}

// Compile-time interface verification.
var _ artifact.Provider = (*ClusterProvider)(nil)

// NewClusterProvider creates a provider over client for the given kinds,
// defaulting to DefaultKinds.
func NewClusterProvider(client dynamic.Interface, kinds ...Kind) *ClusterProvider {
	if len(kinds) == 0 {
		kinds = DefaultKinds()
	}
	byType := make(map[string]Kind, len(kinds))
	for _, k := range kinds {
		byType[artifact.KubernetesType(k.Name)] = k
	}
	return &ClusterProvider{client: client, kinds: byType}
}

// ProviderFor returns a ClusterProvider for the account's cluster.
func ProviderFor(acct *account.Account) (artifact.Provider, error) {
	client, err := acct.Client()
	if err != nil {
		return nil, err
	}
	return NewClusterProvider(client), nil
}

// GetArtifacts implements artifact.Provider. Types that do not map to a
// known kind have no prior artifacts.
func (p *ClusterProvider) GetArtifacts(ctx context.Context, typ, name, location string) ([]artifact.Artifact, error) {
	kind, ok := p.kinds[typ]
	if !ok {
		return nil, nil
	}

	ri := dynamic.ResourceInterface(p.client.Resource(kind.Resource))
	if kind.Namespaced {
		ri = p.client.Resource(kind.Resource).Namespace(location)
	}

	list, err := ri.List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list %s in %q: %w", kind.Resource.Resource, location, err)
	}

	var found []artifact.Artifact
	for i := range list.Items {
		obj := &list.Items[i]
		a, ok := manifest.ArtifactFromAnnotations(obj.GetAnnotations())
		if !ok || a.Type != typ || a.Name != name || a.Location != location {
			continue
		}
		a.Reference = obj.GetName()
		found = append(found, a)
	}
	return found, nil
}
