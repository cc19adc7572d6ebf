package deploy

import (
	"context"
	"fmt"

	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
)

// Wire values for the manifest source.
const (
	SourceText     = "text"
	SourceArtifact = "artifact"
)

// ManifestSource says where the manifest of a request comes from. It is
// implemented only by InlineSource and ArtifactSource.
type ManifestSource interface {
	isManifestSource()
}

// InlineSource carries the manifest in the request itself.
type InlineSource struct {
	Manifest *manifest.Manifest
}

func (InlineSource) isManifestSource() {}

// ArtifactSource names an artifact the manifest is downloaded from.
type ArtifactSource struct {
	Artifact artifact.Artifact
}

func (ArtifactSource) isManifestSource() {}

// ParseSource validates a wire source value. The empty string means text.
func ParseSource(value string) (string, error) {
	switch value {
	case "", SourceText:
		return SourceText, nil
	case SourceArtifact:
		return SourceArtifact, nil
	default:
		return "", &UnsupportedSourceError{Source: value}
	}
}

// resolveSource returns the manifest for src. Inline manifests are returned
// as is, without copying.
func (o *Operation) resolveSource(ctx context.Context, src ManifestSource) (*manifest.Manifest, error) {
	switch s := src.(type) {
	case InlineSource:
		if s.Manifest == nil {
			return nil, ErrMissingManifest
		}
		return s.Manifest, nil
	case ArtifactSource:
		if o.downloader == nil {
			return nil, &ArtifactFetchError{Reference: reference(s.Artifact), Err: ErrNoDownloader}
		}
		m, err := o.downloader.FetchManifest(ctx, s.Artifact)
		if err != nil {
			return nil, &ArtifactFetchError{Reference: reference(s.Artifact), Err: err}
		}
		return m, nil
	case nil:
		return nil, ErrMissingManifest
	default:
		return nil, &UnsupportedSourceError{Source: fmt.Sprintf("%T", src)}
	}
}

// reference names an artifact in errors. Embedded artifacts are named by
// their name rather than their encoded content.
func reference(a artifact.Artifact) string {
	if a.Type == artifact.TypeEmbeddedBase64 && a.Name != "" {
		return a.Name
	}
	return a.Reference
}
