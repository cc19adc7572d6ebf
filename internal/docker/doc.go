// Package docker resolves image references against their registries through
// the Docker daemon.
//
// ImageResolver pins docker/image artifacts to the digest the registry
// currently serves for their tag, so a deployment binds an immutable image:
//
//	resolver := docker.NewImageResolver(client)
//	pinned, err := resolver.Pin(ctx, candidates)
//
// # Interface Abstraction
//
// The DistributionAPI interface abstracts the Docker SDK, enabling mock
// injection for testing.
package docker
