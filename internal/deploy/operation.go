// Package deploy runs manifest deployments: it resolves the manifest,
// decides how it is versioned, stamps ownership metadata onto it, binds the
// requested artifacts and submits it to the cluster.
package deploy

import (
	"context"
	"fmt"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/cameronsjo/berth/internal/account"
	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
	"github.com/cameronsjo/berth/internal/naming"
	"github.com/cameronsjo/berth/internal/resource"
	"github.com/cameronsjo/berth/internal/task"
)

// Phase is the status phase reported by deployments.
const Phase = "DEPLOY_MANIFEST"

// Downloader fetches manifests passed by reference.
type Downloader interface {
	FetchManifest(ctx context.Context, a artifact.Artifact) (*manifest.Manifest, error)
}

// PropertyRegistry looks up the properties of a kind.
type PropertyRegistry interface {
	Get(kind string) (resource.Properties, error)
}

// Compile-time interface verification.
var _ PropertyRegistry = (*resource.Registry)(nil)

// ProviderFactory returns the artifact provider for an account.
type ProviderFactory func(*account.Account) (artifact.Provider, error)

// Operation deploys manifests. It holds no per-deployment state and may be
// shared by concurrent deployments.
type Operation struct {
	registry    PropertyRegistry
	downloader  Downloader
	namer       naming.Namer
	providerFor ProviderFactory
}

// Option configures an Operation.
type Option func(*Operation)

// WithDownloader sets the downloader for artifact sources.
func WithDownloader(d Downloader) Option {
	return func(o *Operation) {
		o.downloader = d
	}
}

// WithNamer sets the moniker namer.
func WithNamer(n naming.Namer) Option {
	return func(o *Operation) {
		o.namer = n
	}
}

// WithProviderFactory sets how prior artifacts are found for an account.
func WithProviderFactory(f ProviderFactory) Option {
	return func(o *Operation) {
		o.providerFor = f
	}
}

// NewOperation creates an Operation. Without a provider factory, versioned
// kinds see no prior artifacts.
func NewOperation(registry PropertyRegistry, opts ...Option) *Operation {
	o := &Operation{
		registry: registry,
		namer:    naming.AnnotationNamer{},
		providerFor: func(*account.Account) (artifact.Provider, error) {
			return artifact.NewMemoryProvider(), nil
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ResolveVersioned returns the override when set, else the kind's default.
func ResolveVersioned(override *bool, props resource.Properties) bool {
	if override != nil {
		return *override
	}
	return props.Versioned
}

// ResolveNamespace sets the manifest namespace: the override wins, then the
// manifest's own namespace, then the account default.
func ResolveNamespace(m *manifest.Manifest, override string, acct *account.Account) {
	switch {
	case override != "":
		m.SetNamespace(override)
	case m.GetNamespace() == "":
		m.SetNamespace(acct.DefaultNamespace())
	}
}

// Run deploys one manifest. It returns either a complete result or an error.
func (o *Operation) Run(ctx context.Context, req Request) (*resource.OperationResult, error) {
	if req.Account == nil {
		return nil, ErrMissingAccount
	}

	status := task.FromContext(ctx)
	status.UpdateStatus(Phase, "Beginning deployment of manifest...")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := o.resolveSource(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, &InvalidManifestError{Err: err}
	}

	ctx = slogcontext.With(ctx, slog.String("kind", m.GetKind()), slog.String("account", req.Account.Name))
	log := slogcontext.FromCtx(ctx)

	status.UpdateStatus(Phase, fmt.Sprintf("Finding deployer for %s...", m.GetKind()))
	props, err := o.registry.Get(m.GetKind())
	if err != nil {
		return nil, err
	}

	versioned := ResolveVersioned(req.Versioned, props)
	converter := props.Converter(versioned)

	ResolveNamespace(m, req.NamespaceOverride, req.Account)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	provider, err := o.providerFor(req.Account)
	if err != nil {
		return nil, fmt.Errorf("artifact provider for account %s: %w", req.Account.Name, err)
	}
	created, err := converter.ToArtifact(ctx, provider, m)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", m.FullResourceName(), err)
	}
	log.DebugContext(ctx, "Converted manifest",
		slog.Bool("versioned", versioned), slog.String("artifact", created.String()), slog.String("version", created.Version))

	status.UpdateStatus(Phase, "Annotating manifest with artifact, relationships & moniker...")
	manifest.AnnotateArtifact(m, created)
	if err := manifest.AnnotateRelationships(m, req.Relationships); err != nil {
		return nil, fmt.Errorf("annotate relationships: %w", err)
	}
	o.namer.ApplyMoniker(m, req.Moniker)

	status.UpdateStatus(Phase, "Setting a resource name...")
	m.SetName(converter.DeployedName(created))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	status.UpdateStatus(Phase, "Swapping out artifacts from context...")
	candidates := req.Artifacts
	if candidates == nil {
		candidates = []artifact.Artifact{}
	}
	replaced, err := props.Handler.ReplaceArtifacts(m, candidates)
	if err != nil {
		return nil, fmt.Errorf("replace artifacts in %s: %w", m.FullResourceName(), err)
	}
	submit := replaced.Manifest
	if submit == nil {
		submit = m
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	status.UpdateStatus(Phase, "Submitting manifest to kubernetes master...")
	result, err := props.Handler.Deploy(ctx, req.Account, submit)
	if err != nil {
		return nil, &SubmissionError{Kind: m.GetKind(), Name: m.GetName(), Err: err}
	}

	result = result.Normalize()
	result.CreatedArtifacts = append(result.CreatedArtifacts, created)
	result.BoundArtifacts = append(result.BoundArtifacts, replaced.BoundArtifacts...)

	log.InfoContext(ctx, "Deployed manifest",
		slog.String("resource", submit.String()),
		slog.Int("bound", len(replaced.BoundArtifacts)))
	status.UpdateStatus(Phase, "Deploy manifest task completed successfully.")
	return result, nil
}
