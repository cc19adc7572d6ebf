package docker

import (
	"context"
	"errors"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/registry"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Common test errors.
var (
	errMockPing    = errors.New("mock: ping failed")
	errMockInspect = errors.New("mock: distribution inspect failed")
)

// testDigest is a well-formed sha256 digest.
const testDigest = "sha256:0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// MockDistributionAPI is a mock implementation of DistributionAPI for testing.
type MockDistributionAPI struct {
	// Function overrides for each method
	PingFunc                func(ctx context.Context) (types.Ping, error)
	DistributionInspectFunc func(ctx context.Context, imageRef, encodedRegistryAuth string) (registry.DistributionInspect, error)
	CloseFunc               func() error

	// Call tracking
	PingCalls                int
	DistributionInspectCalls int
	CloseCalls               int
	InspectedRefs            []string
}

// NewMockDistributionAPI creates a new mock that resolves every image to testDigest.
func NewMockDistributionAPI() *MockDistributionAPI {
	return &MockDistributionAPI{}
}

// Ping implements DistributionAPI.
func (m *MockDistributionAPI) Ping(ctx context.Context) (types.Ping, error) {
	m.PingCalls++
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return types.Ping{APIVersion: "1.45"}, nil
}

// DistributionInspect implements DistributionAPI.
func (m *MockDistributionAPI) DistributionInspect(ctx context.Context, imageRef, encodedRegistryAuth string) (registry.DistributionInspect, error) {
	m.DistributionInspectCalls++
	m.InspectedRefs = append(m.InspectedRefs, imageRef)
	if m.DistributionInspectFunc != nil {
		return m.DistributionInspectFunc(ctx, imageRef, encodedRegistryAuth)
	}
	return registry.DistributionInspect{
		Descriptor: ocispec.Descriptor{
			MediaType: ocispec.MediaTypeImageIndex,
			Digest:    testDigest,
			Size:      1024,
		},
	}, nil
}

// Close implements DistributionAPI.
func (m *MockDistributionAPI) Close() error {
	m.CloseCalls++
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
