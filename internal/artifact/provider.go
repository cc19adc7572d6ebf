package artifact

import (
	"context"
	"sync"
)

// Provider looks up artifacts that were previously deployed.
// Converters use it to pick the next version of a versioned resource.
type Provider interface {
	// GetArtifacts returns the known artifacts matching type, name and location.
	GetArtifacts(ctx context.Context, typ, name, location string) ([]Artifact, error)
}

// Compile-time interface verification.
var _ Provider = (*MemoryProvider)(nil)

// MemoryProvider is an in-process Provider, safe for concurrent use.
type MemoryProvider struct {
	mu        sync.RWMutex
	artifacts []Artifact
}

// NewMemoryProvider creates a MemoryProvider seeded with the given artifacts.
func NewMemoryProvider(artifacts ...Artifact) *MemoryProvider {
	p := &MemoryProvider{}
	p.artifacts = append(p.artifacts, artifacts...)
	return p
}

// Add records an artifact.
func (p *MemoryProvider) Add(a Artifact) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.artifacts = append(p.artifacts, a)
}

// GetArtifacts implements Provider.
func (p *MemoryProvider) GetArtifacts(_ context.Context, typ, name, location string) ([]Artifact, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var matches []Artifact
	for _, a := range p.artifacts {
		if a.Type == typ && a.Name == name && a.Location == location {
			matches = append(matches, a)
		}
	}
	return matches, nil
}
