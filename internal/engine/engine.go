// Package engine wires configuration into deployments. The CLI and the
// HTTP server both deploy through an Engine.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/cameronsjo/berth/internal/account"
	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/config"
	"github.com/cameronsjo/berth/internal/deploy"
	"github.com/cameronsjo/berth/internal/docker"
	"github.com/cameronsjo/berth/internal/fetch"
	"github.com/cameronsjo/berth/internal/kube"
	"github.com/cameronsjo/berth/internal/resource"
)

// ImagePinner rewrites image candidates to digest references.
type ImagePinner interface {
	Pin(ctx context.Context, candidates []artifact.Artifact) ([]artifact.Artifact, error)
}

// Compile-time interface verification.
var _ ImagePinner = (*docker.ImageResolver)(nil)

// Engine deploys descriptions against the configured accounts.
type Engine struct {
	registry    *resource.Registry
	accounts    *account.Set
	downloader  *fetch.Downloader
	fetchOpts   []fetch.Option
	pinner      ImagePinner
	providerFor deploy.ProviderFactory
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the kind registry.
func WithRegistry(r *resource.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithAccounts sets the accounts.
func WithAccounts(s *account.Set) Option {
	return func(e *Engine) {
		e.accounts = s
	}
}

// WithDownloader sets the manifest downloader.
func WithDownloader(d *fetch.Downloader) Option {
	return func(e *Engine) {
		e.downloader = d
	}
}

// WithFetchOptions adds options to the downloader built from configuration.
// It has no effect when WithDownloader is used.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(e *Engine) {
		e.fetchOpts = append(e.fetchOpts, opts...)
	}
}

// WithImagePinner pins image candidates before every deployment.
func WithImagePinner(p ImagePinner) Option {
	return func(e *Engine) {
		e.pinner = p
	}
}

// WithProviderFactory sets how prior artifacts are found.
func WithProviderFactory(f deploy.ProviderFactory) Option {
	return func(e *Engine) {
		e.providerFor = f
	}
}

// New creates an Engine from cfg. Options override what cfg provides.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	e := &Engine{
		accounts:    cfg.AccountSet(),
		providerFor: kube.ProviderFor,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.downloader == nil {
		fetchOpts := append([]fetch.Option{
			fetch.WithTimeout(cfg.Fetch.Timeout),
			fetch.WithRetries(cfg.Fetch.Retries),
			fetch.WithBaseDir(cfg.Fetch.BaseDir),
			fetch.WithValues(cfg.Fetch.Values),
		}, e.fetchOpts...)
		e.downloader = fetch.NewDownloader(fetchOpts...)
	}

	if e.registry == nil {
		registry, err := kube.NewRegistry()
		if err != nil {
			return nil, err
		}
		e.registry = registry
	}
	return e, nil
}

// Kinds returns the deployable kinds.
func (e *Engine) Kinds() []resource.Properties {
	return e.registry.Kinds()
}

// Accounts returns the configured accounts.
func (e *Engine) Accounts() *account.Set {
	return e.accounts
}

// Deploy runs one description.
func (e *Engine) Deploy(ctx context.Context, desc *deploy.Description) (*resource.OperationResult, error) {
	req, err := desc.Request(e.accounts)
	if err != nil {
		return nil, err
	}

	if e.pinner != nil && len(req.Artifacts) > 0 {
		pinned, err := e.pinner.Pin(ctx, req.Artifacts)
		if err != nil {
			return nil, fmt.Errorf("pin image digests: %w", err)
		}
		req.Artifacts = pinned
	}

	ctx = slogcontext.With(ctx, slog.String("source", desc.Source))
	op := deploy.NewOperation(e.registry,
		deploy.WithDownloader(e.downloader.WithRequestValues(desc.Values)),
		deploy.WithProviderFactory(e.providerFor),
	)
	return op.Run(ctx, req)
}
