package deploy

import (
	"context"
	"errors"

	"github.com/cameronsjo/berth/internal/account"
	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
	"github.com/cameronsjo/berth/internal/resource"
)

var errMockDeploy = errors.New("mock: deploy failed")

// MockHandler is a resource.Handler for testing.
type MockHandler struct {
	ReplaceArtifactsFunc func(m *manifest.Manifest, candidates []artifact.Artifact) (resource.ReplaceResult, error)
	DeployFunc           func(ctx context.Context, acct *account.Account, m *manifest.Manifest) (*resource.OperationResult, error)

	ReplaceArtifactsCalls int
	DeployCalls           int
	Replaced              *manifest.Manifest
	Deployed              *manifest.Manifest
}

var _ resource.Handler = (*MockHandler)(nil)

// ReplaceArtifacts implements resource.Handler. By default it replaces with
// the default rules in place.
func (h *MockHandler) ReplaceArtifacts(m *manifest.Manifest, candidates []artifact.Artifact) (resource.ReplaceResult, error) {
	h.ReplaceArtifactsCalls++
	h.Replaced = m
	if h.ReplaceArtifactsFunc != nil {
		return h.ReplaceArtifactsFunc(m, candidates)
	}
	bound := artifact.NewReplacer().Replace(m.Object, m.GetNamespace(), candidates)
	return resource.ReplaceResult{Manifest: m, BoundArtifacts: bound}, nil
}

// Deploy implements resource.Handler.
func (h *MockHandler) Deploy(ctx context.Context, acct *account.Account, m *manifest.Manifest) (*resource.OperationResult, error) {
	h.DeployCalls++
	h.Deployed = m
	if h.DeployFunc != nil {
		return h.DeployFunc(ctx, acct, m)
	}
	result := resource.NewOperationResult()
	result.AddManifest(m)
	return result, nil
}

// MockRegistry is a PropertyRegistry for testing.
type MockRegistry struct {
	Properties map[string]resource.Properties
	GetCalls   int
}

// Get implements PropertyRegistry.
func (r *MockRegistry) Get(kind string) (resource.Properties, error) {
	r.GetCalls++
	p, ok := r.Properties[kind]
	if !ok {
		return resource.Properties{}, &resource.UnknownKindError{Kind: kind}
	}
	return p, nil
}

func newMockRegistry(kind string, versioned bool, h resource.Handler) *MockRegistry {
	return &MockRegistry{Properties: map[string]resource.Properties{
		kind: {
			Kind:                 kind,
			Versioned:            versioned,
			VersionedConverter:   resource.VersionedConverter{},
			UnversionedConverter: resource.UnversionedConverter{},
			Handler:              h,
		},
	}}
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(ctx context.Context, a artifact.Artifact) (*manifest.Manifest, error)

// FetchManifest implements Downloader.
func (f DownloaderFunc) FetchManifest(ctx context.Context, a artifact.Artifact) (*manifest.Manifest, error) {
	return f(ctx, a)
}
