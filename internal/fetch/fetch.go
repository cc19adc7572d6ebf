// Package fetch downloads manifests that are passed by reference.
package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/hashicorp/go-retryablehttp"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
)

// TemplateSuffix marks manifest references that are rendered before decoding.
const TemplateSuffix = ".tmpl"

// Default download settings.
const (
	DefaultRetries = 3
	DefaultTimeout = 30 * time.Second
)

// Download errors.
var (
	// ErrUnsupportedArtifactType indicates the artifact type cannot be downloaded.
	ErrUnsupportedArtifactType = errors.New("unsupported artifact type")

	// ErrLocalFilesDisabled indicates local/file artifacts are not accepted.
	ErrLocalFilesDisabled = errors.New("local file artifacts are disabled")

	// ErrOutsideBaseDir indicates a local/file reference escapes the base directory.
	ErrOutsideBaseDir = errors.New("path is outside the base directory")
)

// Downloader fetches manifest artifacts from embedded data, HTTP, git
// repositories or the local filesystem.
type Downloader struct {
	retries    int
	timeout    time.Duration
	baseDir    string
	noLocal    bool
	values     map[string]any
	httpClient *http.Client
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithRetries sets how many times a failed HTTP download is retried.
func WithRetries(n int) Option {
	return func(d *Downloader) {
		d.retries = n
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		d.timeout = timeout
	}
}

// WithBaseDir confines local/file references to dir. References must be
// relative and may not leave dir.
func WithBaseDir(dir string) Option {
	return func(d *Downloader) {
		d.baseDir = dir
	}
}

// WithoutLocalFiles rejects local/file artifacts.
func WithoutLocalFiles() Option {
	return func(d *Downloader) {
		d.noLocal = true
	}
}

// WithValues sets the values available to .tmpl manifests.
func WithValues(values map[string]any) Option {
	return func(d *Downloader) {
		d.values = values
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		d.httpClient = client
	}
}

// NewDownloader creates a Downloader.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		retries: DefaultRetries,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithRequestValues returns a copy of d whose template values are d's values
// overlaid with values.
func (d *Downloader) WithRequestValues(values map[string]any) *Downloader {
	if len(values) == 0 {
		return d
	}
	c := *d
	c.values = MergeValues(d.values, values)
	return &c
}

// FetchManifest downloads the artifact and decodes the first manifest in it.
func (d *Downloader) FetchManifest(ctx context.Context, a artifact.Artifact) (*manifest.Manifest, error) {
	data, err := d.Fetch(ctx, a)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(a.Reference, TemplateSuffix) || strings.HasSuffix(a.Name, TemplateSuffix) {
		data, err = Render(a.Name, data, d.values)
		if err != nil {
			return nil, err
		}
	}

	return manifest.Parse(data)
}

// Fetch returns the raw artifact content.
func (d *Downloader) Fetch(ctx context.Context, a artifact.Artifact) ([]byte, error) {
	slogcontext.FromCtx(ctx).DebugContext(ctx, "Fetching artifact",
		slog.String("type", a.Type), slog.String("reference", a.Reference))

	switch a.Type {
	case artifact.TypeEmbeddedBase64:
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(a.Reference))
		if err != nil {
			return nil, fmt.Errorf("decode embedded artifact %s: %w", a.Name, err)
		}
		return data, nil
	case artifact.TypeHTTPFile:
		return d.fetchHTTP(ctx, a.Reference)
	case artifact.TypeLocalFile:
		return d.readFile(a.Reference)
	case artifact.TypeGitRepo:
		return d.fetchGit(ctx, a)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedArtifactType, a.Type)
	}
}

func (d *Downloader) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = d.retries
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = slogcontext.FromCtx(ctx)
	if d.httpClient != nil {
		hc := *d.httpClient
		client.HTTPClient = &hc
	}
	client.HTTPClient.Timeout = d.timeout

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}

func (d *Downloader) readFile(path string) ([]byte, error) {
	if d.noLocal {
		return nil, ErrLocalFilesDisabled
	}
	path = strings.TrimPrefix(path, "file://")
	if d.baseDir == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	}

	if !filepath.IsLocal(path) {
		return nil, fmt.Errorf("read %s: %w", path, ErrOutsideBaseDir)
	}
	// Symlinks are resolved as if baseDir were the filesystem root.
	full, err := securejoin.SecureJoin(d.baseDir, path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Render executes data as a text/template with the sprig function map.
// Missing keys are an error.
func Render(name string, data []byte, values map[string]any) ([]byte, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{"Values": values}); err != nil {
		return nil, fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
