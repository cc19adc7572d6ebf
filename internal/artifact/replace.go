package artifact

import (
	"strings"

	"github.com/distribution/reference"
)

// Rule describes where artifacts of one type are referenced inside a pod spec.
//
// Path is a dotted field path relative to the pod spec. A segment ending in
// "[]" iterates over a list, e.g. "containers[].image".
type Rule struct {
	Type string
	Path string
}

// podSpecPaths lists where pod specs live in the workload kinds we know about:
// Pod, the controllers with a pod template, and CronJob.
var podSpecPaths = [][]string{
	{"spec"},
	{"spec", "template", "spec"},
	{"spec", "jobTemplate", "spec", "template", "spec"},
}

// DefaultRules returns the replacement rules for images, config maps and secrets.
func DefaultRules() []Rule {
	var rules []Rule
	for _, c := range []string{"containers[]", "initContainers[]", "ephemeralContainers[]"} {
		rules = append(rules,
			Rule{Type: TypeDockerImage, Path: c + ".image"},
			Rule{Type: TypeConfigMap, Path: c + ".envFrom[].configMapRef.name"},
			Rule{Type: TypeConfigMap, Path: c + ".env[].valueFrom.configMapKeyRef.name"},
			Rule{Type: TypeSecret, Path: c + ".envFrom[].secretRef.name"},
			Rule{Type: TypeSecret, Path: c + ".env[].valueFrom.secretKeyRef.name"},
		)
	}
	return append(rules,
		Rule{Type: TypeConfigMap, Path: "volumes[].configMap.name"},
		Rule{Type: TypeSecret, Path: "volumes[].secret.secretName"},
		Rule{Type: TypeSecret, Path: "imagePullSecrets[].name"},
	)
}

// Replacer substitutes artifact placeholders inside manifest content.
type Replacer struct {
	rules []Rule
}

// NewReplacer creates a Replacer. With no rules, DefaultRules are used.
func NewReplacer(rules ...Rule) *Replacer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Replacer{rules: rules}
}

// Replace rewrites every placeholder in obj that matches a candidate and
// returns the candidates that were bound, in the order they were first bound.
//
// obj is modified in place. namespace scopes config map and secret
// candidates that carry a location. When several candidates match the same
// placeholder, the first one in candidates wins.
func (r *Replacer) Replace(obj map[string]any, namespace string, candidates []Artifact) []Artifact {
	bound := []Artifact{}
	if len(candidates) == 0 {
		return bound
	}

	seen := make(map[int]bool, len(candidates))
	for _, path := range podSpecPaths {
		spec, ok := lookup(obj, path)
		if !ok {
			continue
		}
		for _, rule := range r.rules {
			walk(spec, strings.Split(rule.Path, "."), func(parent map[string]any, key string) {
				current, ok := parent[key].(string)
				if !ok || current == "" {
					return
				}
				for i, c := range candidates {
					if c.Type != rule.Type || c.Reference == "" || !matches(c, current, namespace) {
						continue
					}
					parent[key] = c.Reference
					if !seen[i] {
						seen[i] = true
						bound = append(bound, c)
					}
					return
				}
			})
		}
	}
	return bound
}

// matches reports whether the placeholder value refers to the candidate.
func matches(c Artifact, placeholder, namespace string) bool {
	switch c.Type {
	case TypeDockerImage:
		return imageMatches(c.Name, placeholder)
	default:
		if c.Location != "" && c.Location != namespace {
			return false
		}
		return c.Name == placeholder
	}
}

// imageMatches reports whether placeholder is a bare image name (no tag, no
// digest) naming the same repository as name. Unparseable values fall back
// to a literal comparison.
func imageMatches(name, placeholder string) bool {
	ref, err := reference.ParseNormalizedNamed(placeholder)
	if err != nil {
		return name == placeholder
	}
	if _, tagged := ref.(reference.Tagged); tagged {
		return false
	}
	if _, digested := ref.(reference.Digested); digested {
		return false
	}

	want, err := reference.ParseNormalizedNamed(name)
	if err != nil {
		return name == placeholder
	}
	return want.Name() == ref.Name()
}

// lookup returns the map at path inside obj.
func lookup(obj map[string]any, path []string) (map[string]any, bool) {
	current := obj
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// walk calls fn for every field addressed by segments below node.
func walk(node any, segments []string, fn func(parent map[string]any, key string)) {
	m, ok := node.(map[string]any)
	if !ok || len(segments) == 0 {
		return
	}

	seg := segments[0]
	if list, isList := strings.CutSuffix(seg, "[]"); isList {
		items, ok := m[list].([]any)
		if !ok {
			return
		}
		for _, item := range items {
			walk(item, segments[1:], fn)
		}
		return
	}

	if len(segments) == 1 {
		if _, ok := m[seg]; ok {
			fn(m, seg)
		}
		return
	}
	walk(m[seg], segments[1:], fn)
}
