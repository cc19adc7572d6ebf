package kube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"

	"github.com/cameronsjo/berth/internal/account"
	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/manifest"
	"github.com/cameronsjo/berth/internal/resource"
)

// ErrVersionConflict indicates a versioned resource already exists with
// different content.
var ErrVersionConflict = errors.New("versioned resource exists with different content")

// Handler rewrites and submits manifests of a single kind.
type Handler struct {
	kind     Kind
	replacer *artifact.Replacer
}

// Compile-time interface verification.
var _ resource.Handler = (*Handler)(nil)

// NewHandler creates a handler for kind. A nil replacer uses the default rules.
func NewHandler(kind Kind, replacer *artifact.Replacer) *Handler {
	if replacer == nil {
		replacer = artifact.NewReplacer()
	}
	return &Handler{kind: kind, replacer: replacer}
}

// Kind returns the kind this handler deploys.
func (h *Handler) Kind() Kind {
	return h.kind
}

// ReplaceArtifacts implements resource.Handler. The input manifest is not
// modified.
func (h *Handler) ReplaceArtifacts(m *manifest.Manifest, candidates []artifact.Artifact) (resource.ReplaceResult, error) {
	out := m.DeepCopy()
	bound := h.replacer.Replace(out.Object, out.GetNamespace(), candidates)
	return resource.ReplaceResult{Manifest: out, BoundArtifacts: bound}, nil
}

// Deploy implements resource.Handler.
//
// Versioned manifests are always created. An existing object with the same
// versioned name is accepted only when its content digest matches. Other
// manifests are created or updated in place.
func (h *Handler) Deploy(ctx context.Context, acct *account.Account, m *manifest.Manifest) (*resource.OperationResult, error) {
	client, err := acct.Client()
	if err != nil {
		return nil, err
	}

	if !h.kind.Namespaced && m.GetNamespace() != "" {
		m = m.DeepCopy()
		m.SetNamespace("")
	}

	ri := h.resourceClient(client, m)
	obj := &m.Unstructured
	name := m.GetName()
	log := slogcontext.FromCtx(ctx).With(slog.String("resource", m.FullResourceName()))

	var createOpts metav1.CreateOptions
	var updateOpts metav1.UpdateOptions
	if acct.DryRun() {
		createOpts.DryRun = []string{metav1.DryRunAll}
		updateOpts.DryRun = []string{metav1.DryRunAll}
	}

	var applied *unstructured.Unstructured
	if m.Annotation(manifest.AnnotationArtifactVersion) != "" {
		applied, err = ri.Create(ctx, obj, createOpts)
		if apierrors.IsAlreadyExists(err) {
			applied, err = ri.Get(ctx, name, metav1.GetOptions{})
			if err == nil {
				want := m.Annotation(manifest.AnnotationArtifactDigest)
				got := applied.GetAnnotations()[manifest.AnnotationArtifactDigest]
				if want == "" || got != want {
					return nil, fmt.Errorf("apply %s: %w (live digest %q, want %q)", m.FullResourceName(), ErrVersionConflict, got, want)
				}
				log.InfoContext(ctx, "Versioned resource already exists", slog.String("digest", got))
			}
		}
	} else {
		var live *unstructured.Unstructured
		live, err = ri.Get(ctx, name, metav1.GetOptions{})
		switch {
		case apierrors.IsNotFound(err):
			log.InfoContext(ctx, "Creating resource")
			applied, err = ri.Create(ctx, obj, createOpts)
		case err == nil:
			log.InfoContext(ctx, "Updating resource", slog.String("resourceVersion", live.GetResourceVersion()))
			update := obj.DeepCopy()
			update.SetResourceVersion(live.GetResourceVersion())
			applied, err = ri.Update(ctx, update, updateOpts)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", m.FullResourceName(), err)
	}

	result := resource.NewOperationResult()
	deployed := m
	if applied != nil {
		deployed = manifest.FromUnstructured(applied)
	}
	result.AddManifest(deployed)
	return result, nil
}

func (h *Handler) resourceClient(client dynamic.Interface, m *manifest.Manifest) dynamic.ResourceInterface {
	nri := client.Resource(h.kind.Resource)
	if !h.kind.Namespaced {
		return nri
	}
	return nri.Namespace(m.GetNamespace())
}
