package deploy

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is.
var (
	// ErrUnsupportedSource indicates an unrecognized manifest source.
	ErrUnsupportedSource = errors.New("unsupported manifest source")

	// ErrArtifactFetch indicates a manifest artifact could not be fetched or parsed.
	ErrArtifactFetch = errors.New("failed to fetch manifest artifact")

	// ErrSubmission indicates the cluster rejected the manifest.
	ErrSubmission = errors.New("failed to submit manifest")

	// ErrInvalidManifest indicates the manifest lacks apiVersion, kind or name.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrMissingManifest indicates the request carries no manifest for its source.
	ErrMissingManifest = errors.New("missing manifest")

	// ErrMissingAccount indicates the request names no account.
	ErrMissingAccount = errors.New("missing account")

	// ErrNoDownloader indicates an artifact source was used without a downloader.
	ErrNoDownloader = errors.New("no downloader configured")
)

// UnsupportedSourceError names the source value that was not recognized.
type UnsupportedSourceError struct {
	Source string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported manifest source %q", e.Source)
}

// Is matches ErrUnsupportedSource.
func (e *UnsupportedSourceError) Is(target error) bool {
	return target == ErrUnsupportedSource
}

// ArtifactFetchError names the manifest reference that could not be fetched.
type ArtifactFetchError struct {
	Reference string
	Err       error
}

func (e *ArtifactFetchError) Error() string {
	return fmt.Sprintf("failed to fetch artifact %q: %v", e.Reference, e.Err)
}

// Unwrap returns the underlying error.
func (e *ArtifactFetchError) Unwrap() error {
	return e.Err
}

// Is matches ErrArtifactFetch.
func (e *ArtifactFetchError) Is(target error) bool {
	return target == ErrArtifactFetch
}

// SubmissionError names the resource the cluster rejected.
type SubmissionError struct {
	Kind string
	Name string
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to submit %s %s: %v", e.Kind, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Is matches ErrSubmission.
func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmission
}

// InvalidManifestError reports a resolved manifest that cannot be deployed.
type InvalidManifestError struct {
	Err error
}

func (e *InvalidManifestError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying validation error.
func (e *InvalidManifestError) Unwrap() error {
	return e.Err
}

// Is matches ErrInvalidManifest.
func (e *InvalidManifestError) Is(target error) bool {
	return target == ErrInvalidManifest
}
