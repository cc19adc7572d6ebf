package docker

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
)

// DistributionAPI defines the Docker client operations used to resolve images.
// This interface enables mocking for unit tests without requiring a running Docker daemon.
type DistributionAPI interface {
	// Ping tests the connection to the Docker daemon.
	Ping(ctx context.Context) (types.Ping, error)

	// DistributionInspect returns the registry descriptor for an image reference.
	DistributionInspect(ctx context.Context, imageRef, encodedRegistryAuth string) (registry.DistributionInspect, error)

	// Close closes the client connection.
	Close() error
}

// Verify that the Docker SDK client implements our interface.
var _ DistributionAPI = (*client.Client)(nil)
