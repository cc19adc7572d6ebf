// Package manifest holds the Kubernetes resource documents berth deploys.
//
// A Manifest wraps an unstructured object. The package decodes manifests
// from YAML or JSON, computes content digests, and stamps the annotations
// that tie a deployed resource back to its artifact and its owner:
//
//	metadata:
//	  annotations:
//	    artifact.berth.dev/type: kubernetes/replicaSet
//	    artifact.berth.dev/name: web
//	    artifact.berth.dev/location: prod
//	    artifact.berth.dev/version: v003
//	    relationships.berth.dev/application: shop
//
// # Validation
//
// Validate checks the fields every manifest needs before it can be
// deployed: apiVersion and kind.
package manifest
