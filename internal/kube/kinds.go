// Package kube submits manifests to a Kubernetes cluster through the
// client-go dynamic client.
package kube

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/resource"
)

// Kind describes a Kubernetes kind berth can deploy.
type Kind struct {
	Name       string
	Resource   schema.GroupVersionResource
	Namespaced bool
	Versioned  bool
}

// GroupVersionKind returns the kind's GVK.
func (k Kind) GroupVersionKind() schema.GroupVersionKind {
	return k.Resource.GroupVersion().WithKind(k.Name)
}

func gvr(group, version, res string) schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: group, Version: version, Resource: res}
}

// DefaultKinds returns the built-in kind table. ReplicaSets, Pods,
// ConfigMaps and Secrets are versioned by default.
func DefaultKinds() []Kind {
	return []Kind{
		{Name: "Deployment", Resource: gvr("apps", "v1", "deployments"), Namespaced: true},
		{Name: "ReplicaSet", Resource: gvr("apps", "v1", "replicasets"), Namespaced: true, Versioned: true},
		{Name: "StatefulSet", Resource: gvr("apps", "v1", "statefulsets"), Namespaced: true},
		{Name: "DaemonSet", Resource: gvr("apps", "v1", "daemonsets"), Namespaced: true},
		{Name: "Pod", Resource: gvr("", "v1", "pods"), Namespaced: true, Versioned: true},
		{Name: "Job", Resource: gvr("batch", "v1", "jobs"), Namespaced: true},
		{Name: "CronJob", Resource: gvr("batch", "v1", "cronjobs"), Namespaced: true},
		{Name: "Service", Resource: gvr("", "v1", "services"), Namespaced: true},
		{Name: "Ingress", Resource: gvr("networking.k8s.io", "v1", "ingresses"), Namespaced: true},
		{Name: "ConfigMap", Resource: gvr("", "v1", "configmaps"), Namespaced: true, Versioned: true},
		{Name: "Secret", Resource: gvr("", "v1", "secrets"), Namespaced: true, Versioned: true},
		{Name: "PersistentVolumeClaim", Resource: gvr("", "v1", "persistentvolumeclaims"), Namespaced: true},
		{Name: "ServiceAccount", Resource: gvr("", "v1", "serviceaccounts"), Namespaced: true},
		{Name: "HorizontalPodAutoscaler", Resource: gvr("autoscaling", "v2", "horizontalpodautoscalers"), Namespaced: true},
		{Name: "Namespace", Resource: gvr("", "v1", "namespaces")},
	}
}

// NewRegistry builds a property registry for the given kinds, defaulting to
// DefaultKinds. Every kind shares one replacer.
func NewRegistry(kinds ...Kind) (*resource.Registry, error) {
	if len(kinds) == 0 {
		kinds = DefaultKinds()
	}

	replacer := artifact.NewReplacer()
	registry := resource.NewRegistry()
	for _, k := range kinds {
		err := registry.Register(resource.Properties{
			Kind:                 k.Name,
			Versioned:            k.Versioned,
			VersionedConverter:   resource.VersionedConverter{},
			UnversionedConverter: resource.UnversionedConverter{},
			Handler:              NewHandler(k, replacer),
		})
		if err != nil {
			return nil, fmt.Errorf("register kind %s: %w", k.Name, err)
		}
	}
	return registry, nil
}

// ListKinds maps resources to their list kinds, for fake dynamic clients.
func ListKinds(kinds ...Kind) map[schema.GroupVersionResource]string {
	if len(kinds) == 0 {
		kinds = DefaultKinds()
	}
	out := make(map[schema.GroupVersionResource]string, len(kinds))
	for _, k := range kinds {
		out[k.Resource] = k.Name + "List"
	}
	return out
}
