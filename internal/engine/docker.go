package engine

import (
	"io"

	"github.com/cameronsjo/berth/internal/config"
	"github.com/cameronsjo/berth/internal/docker"
)

// DockerPinner connects to the Docker daemon from the environment and
// returns an image pinner. The closer releases the Docker client.
func DockerPinner(cfg config.Docker) (*docker.ImageResolver, io.Closer, error) {
	var opts []docker.ClientOption
	if cfg.Username != "" {
		opts = append(opts, docker.WithRegistryAuth(cfg.Username, cfg.Password, cfg.Registry))
	}

	client, err := docker.NewClient(opts...)
	if err != nil {
		return nil, nil, err
	}
	return docker.NewImageResolver(client), client, nil
}
