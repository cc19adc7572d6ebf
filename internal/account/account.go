// Package account describes the cluster credentials a deployment runs with.
package account

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/tools/clientcmd"
)

// DefaultNamespace is used when neither the request, the manifest nor the
// account name a namespace.
const DefaultNamespace = "default"

// ErrUnknownAccount indicates a request named an account that is not configured.
var ErrUnknownAccount = errors.New("unknown account")

// Account is a named set of cluster credentials.
//
// The dynamic client is built lazily from the kubeconfig on first use and
// cached for the lifetime of the account.
type Account struct {
	Name             string
	defaultNamespace string
	kubeconfig       string
	context          string
	dryRun           bool

	once      sync.Once
	client    dynamic.Interface
	clientErr error
}

// Option configures an Account.
type Option func(*Account)

// WithDefaultNamespace sets the namespace used for manifests that name none.
func WithDefaultNamespace(ns string) Option {
	return func(a *Account) {
		a.defaultNamespace = ns
	}
}

// WithKubeconfig sets the kubeconfig path and context. Empty values fall back
// to the standard loading rules ($KUBECONFIG, ~/.kube/config, current context).
func WithKubeconfig(path, context string) Option {
	return func(a *Account) {
		a.kubeconfig = path
		a.context = context
	}
}

// WithDryRun makes every submission a server-side dry run.
func WithDryRun(dryRun bool) Option {
	return func(a *Account) {
		a.dryRun = dryRun
	}
}

// WithClient sets the dynamic client directly, bypassing kubeconfig loading.
func WithClient(client dynamic.Interface) Option {
	return func(a *Account) {
		a.once.Do(func() {})
		a.client = client
	}
}

// New creates an account.
func New(name string, opts ...Option) *Account {
	a := &Account{Name: name}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DefaultNamespace returns the account's default namespace, or "default".
func (a *Account) DefaultNamespace() string {
	if a.defaultNamespace == "" {
		return DefaultNamespace
	}
	return a.defaultNamespace
}

// DryRun reports whether submissions are server-side dry runs.
func (a *Account) DryRun() bool {
	return a.dryRun
}

// Client returns the dynamic client for the account's cluster.
func (a *Account) Client() (dynamic.Interface, error) {
	a.once.Do(func() {
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		if a.kubeconfig != "" {
			rules.ExplicitPath = a.kubeconfig
		}
		overrides := &clientcmd.ConfigOverrides{CurrentContext: a.context}

		restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
		if err != nil {
			a.clientErr = fmt.Errorf("load kubeconfig for account %s: %w", a.Name, err)
			return
		}

		a.client, a.clientErr = dynamic.NewForConfig(restConfig)
		if a.clientErr != nil {
			a.clientErr = fmt.Errorf("create client for account %s: %w", a.Name, a.clientErr)
		}
	})
	return a.client, a.clientErr
}

// Set holds the configured accounts by name.
type Set struct {
	accounts map[string]*Account
	fallback string
}

// NewSet creates a set. fallback names the account used when a request
// names none.
func NewSet(fallback string, accounts ...*Account) *Set {
	s := &Set{accounts: make(map[string]*Account, len(accounts)), fallback: fallback}
	for _, a := range accounts {
		s.accounts[a.Name] = a
	}
	return s
}

// Get returns the named account. An empty name selects the fallback account.
func (s *Set) Get(name string) (*Account, error) {
	if name == "" {
		name = s.fallback
	}
	a, ok := s.accounts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAccount, name)
	}
	return a, nil
}

// Names returns the account names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.accounts))
	for name := range s.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
