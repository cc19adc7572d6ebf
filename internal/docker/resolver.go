package docker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/cameronsjo/berth/internal/artifact"
)

// DigestResolver resolves an image reference to its manifest digest.
type DigestResolver interface {
	ResolveDigest(ctx context.Context, imageRef string) (digest.Digest, error)
}

// Compile-time interface verification.
var _ DigestResolver = (*Client)(nil)

// ImageResolver pins image artifacts to digests.
type ImageResolver struct {
	resolver DigestResolver
}

// NewImageResolver creates an ImageResolver.
func NewImageResolver(resolver DigestResolver) *ImageResolver {
	return &ImageResolver{resolver: resolver}
}

// Pin returns a copy of candidates in which every docker/image artifact
// references its image by digest ("name:tag@sha256:..."). The digest is also
// recorded in the artifact metadata. References that already carry a digest
// and artifacts of other types are returned unchanged.
func (r *ImageResolver) Pin(ctx context.Context, candidates []artifact.Artifact) ([]artifact.Artifact, error) {
	pinned := make([]artifact.Artifact, 0, len(candidates))
	for _, c := range candidates {
		if c.Type != artifact.TypeDockerImage || c.Reference == "" {
			pinned = append(pinned, c)
			continue
		}

		p, err := r.pin(ctx, c)
		if err != nil {
			return nil, err
		}
		pinned = append(pinned, p)
	}
	return pinned, nil
}

func (r *ImageResolver) pin(ctx context.Context, c artifact.Artifact) (artifact.Artifact, error) {
	named, err := reference.ParseNormalizedNamed(c.Reference)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("parse image %q: %w", c.Reference, err)
	}
	if digested, ok := named.(reference.Digested); ok {
		return c.WithMeta(artifact.MetadataDigest, digested.Digest().String()), nil
	}

	named = reference.TagNameOnly(named)
	d, err := r.resolver.ResolveDigest(ctx, named.String())
	if err != nil {
		return artifact.Artifact{}, err
	}

	withDigest, err := reference.WithDigest(named, d)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("pin %s: %w", named, err)
	}

	slogcontext.FromCtx(ctx).DebugContext(ctx, "Pinned image",
		slog.String("image", c.Reference), slog.String("digest", d.String()))

	c.Reference = reference.FamiliarString(withDigest)
	return c.WithMeta(artifact.MetadataDigest, d.String()), nil
}
