package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Client wraps the Docker SDK client.
type Client struct {
	api  DistributionAPI
	auth string
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithRegistryAuth authenticates registry lookups.
func WithRegistryAuth(username, password, server string) ClientOption {
	return func(c *Client) error {
		encoded, err := registry.EncodeAuthConfig(registry.AuthConfig{
			Username:      username,
			Password:      password,
			ServerAddress: server,
		})
		if err != nil {
			return fmt.Errorf("encode registry auth: %w", err)
		}
		c.auth = encoded
		return nil
	}
}

// NewClient creates a new Docker client connection from the environment.
func NewClient(opts ...ClientOption) (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return NewClientWithAPI(cli, opts...)
}

// NewClientWithAPI creates a Client with a custom API implementation.
// This is primarily used for testing with mock implementations.
func NewClientWithAPI(api DistributionAPI, opts ...ClientOption) (*Client, error) {
	c := &Client{api: api}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Ping tests the connection to the Docker daemon.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker: %w", err)
	}
	return nil
}

// Descriptor returns the registry descriptor of imageRef.
func (c *Client) Descriptor(ctx context.Context, imageRef string) (ocispec.Descriptor, error) {
	inspect, err := c.api.DistributionInspect(ctx, imageRef, c.auth)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("inspect %s: %w", imageRef, err)
	}
	return inspect.Descriptor, nil
}

// ResolveDigest returns the manifest digest the registry serves for imageRef.
func (c *Client) ResolveDigest(ctx context.Context, imageRef string) (digest.Digest, error) {
	desc, err := c.Descriptor(ctx, imageRef)
	if err != nil {
		return "", err
	}
	if err := desc.Digest.Validate(); err != nil {
		return "", fmt.Errorf("inspect %s: invalid digest %q: %w", imageRef, desc.Digest, err)
	}
	return desc.Digest, nil
}

// Close closes the Docker client connection.
func (c *Client) Close() error {
	return c.api.Close()
}
