package resource

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownKind indicates no properties are registered for a kind.
var ErrUnknownKind = errors.New("unknown kind")

// UnknownKindError names the kind that could not be found.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("no properties registered for kind %q", e.Kind)
}

// Is matches ErrUnknownKind.
func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}

// Registry maps kinds to their properties. It is safe for concurrent use.
// Kind lookup ignores case, so "configMap" and "ConfigMap" are the same kind.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Properties
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Properties)}
}

func key(kind string) string {
	return strings.ToLower(kind)
}

// Register adds properties for p.Kind. Registering a kind twice is an error.
func (r *Registry) Register(p Properties) error {
	if p.Kind == "" {
		return errors.New("register: kind is required")
	}
	if p.Handler == nil || p.VersionedConverter == nil || p.UnversionedConverter == nil {
		return fmt.Errorf("register %s: handler and both converters are required", p.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[key(p.Kind)]; exists {
		return fmt.Errorf("register %s: kind already registered", p.Kind)
	}
	r.kinds[key(p.Kind)] = p
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(p Properties) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Get returns the properties for kind.
func (r *Registry) Get(kind string) (Properties, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.kinds[key(kind)]
	if !ok {
		return Properties{}, &UnknownKindError{Kind: kind}
	}
	return p, nil
}

// Kinds returns the registered properties sorted by kind.
func (r *Registry) Kinds() []Properties {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Properties, 0, len(r.kinds))
	for _, p := range r.kinds {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
