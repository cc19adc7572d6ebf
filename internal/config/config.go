// Package config handles berth configuration discovery and loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/berth/internal/account"
)

// FileName is the configuration file berth looks for.
const FileName = "berth.yaml"

// Environment variables.
const (
	EnvConfig       = "BERTH_CONFIG"
	EnvAccount      = "BERTH_ACCOUNT"
	EnvServerAddr   = "BERTH_SERVER_ADDR"
	EnvServerToken  = "BERTH_SERVER_TOKEN"
	EnvPinDigests   = "BERTH_PIN_DIGESTS"
	EnvFetchRetries = "BERTH_FETCH_RETRIES"
)

// ErrNotFound indicates no configuration file was found.
var ErrNotFound = errors.New("config file not found")

// Config holds the berth configuration.
type Config struct {
	// Path is the file the configuration was loaded from, if any.
	Path string `yaml:"-"`

	// DefaultAccount is used when a request names no account.
	DefaultAccount string `yaml:"defaultAccount,omitempty"`

	Accounts []Account `yaml:"accounts,omitempty"`
	Server   Server    `yaml:"server,omitempty"`
	Fetch    Fetch     `yaml:"fetch,omitempty"`
	Docker   Docker    `yaml:"docker,omitempty"`
}

// Account is a configured cluster account.
type Account struct {
	Name             string `yaml:"name"`
	Kubeconfig       string `yaml:"kubeconfig,omitempty"`
	Context          string `yaml:"context,omitempty"`
	DefaultNamespace string `yaml:"defaultNamespace,omitempty"`
	DryRun           bool   `yaml:"dryRun,omitempty"`
}

// Server holds HTTP server settings.
type Server struct {
	Addr  string `yaml:"addr,omitempty"`
	Token string `yaml:"token,omitempty"`
}

// Fetch holds manifest download settings.
type Fetch struct {
	Timeout time.Duration  `yaml:"timeout,omitempty"`
	Retries int            `yaml:"retries,omitempty"`
	BaseDir string         `yaml:"baseDir,omitempty"`
	Values  map[string]any `yaml:"values,omitempty"`
}

// Docker holds image resolution settings.
type Docker struct {
	PinDigests bool   `yaml:"pinDigests,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
	Registry   string `yaml:"registry,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults: a single "default"
// account using the current kubeconfig context.
func DefaultConfig() *Config {
	return &Config{
		DefaultAccount: "default",
		Accounts:       []Account{{Name: "default"}},
		Server:         Server{Addr: ":8080"},
		Fetch:          Fetch{Timeout: 30 * time.Second, Retries: 3},
	}
}

// FindConfig searches upward from the current directory for berth.yaml.
func FindConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w: no %s in this or any parent directory", ErrNotFound, FileName)
}

// Load reads the configuration. The file is taken from path, then
// $BERTH_CONFIG, then an upward search. When none is found the defaults are
// used. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		found, err := FindConfig()
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		path = found
	}

	cfg := DefaultConfig()
	if path != "" {
		var err error
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a configuration file. Unset fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Accounts = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Accounts) == 0 {
		cfg.Accounts = DefaultConfig().Accounts
	}
	if cfg.DefaultAccount == "" || (cfg.DefaultAccount == "default" && !cfg.hasAccount("default")) {
		cfg.DefaultAccount = cfg.Accounts[0].Name
	}

	cfg.Path = path
	return cfg, nil
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() {
	if account := os.Getenv(EnvAccount); account != "" {
		c.DefaultAccount = account
	}
	if addr := os.Getenv(EnvServerAddr); addr != "" {
		c.Server.Addr = addr
	}
	if token := os.Getenv(EnvServerToken); token != "" {
		c.Server.Token = token
	}
	if pin := os.Getenv(EnvPinDigests); pin != "" {
		if v, err := strconv.ParseBool(pin); err == nil {
			c.Docker.PinDigests = v
		}
	}
	if retries := os.Getenv(EnvFetchRetries); retries != "" {
		if v, err := strconv.Atoi(retries); err == nil {
			c.Fetch.Retries = v
		}
	}
}

// Validate checks account names and the default account.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		switch {
		case a.Name == "":
			errs = append(errs, fmt.Errorf("accounts[%d]: name is required", i))
		case seen[a.Name]:
			errs = append(errs, fmt.Errorf("accounts[%d]: duplicate account %q", i, a.Name))
		}
		seen[a.Name] = true
	}
	if c.DefaultAccount != "" && !seen[c.DefaultAccount] {
		errs = append(errs, fmt.Errorf("defaultAccount %q is not a configured account", c.DefaultAccount))
	}
	if c.Fetch.Retries < 0 {
		errs = append(errs, fmt.Errorf("fetch.retries must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) hasAccount(name string) bool {
	for _, a := range c.Accounts {
		if a.Name == name {
			return true
		}
	}
	return false
}

// AccountSet builds the configured accounts. Relative kubeconfig paths are
// resolved against the config file's directory.
func (c *Config) AccountSet() *account.Set {
	accounts := make([]*account.Account, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		kubeconfig := a.Kubeconfig
		if kubeconfig != "" && !filepath.IsAbs(kubeconfig) && c.Path != "" {
			kubeconfig = filepath.Join(filepath.Dir(c.Path), kubeconfig)
		}
		accounts = append(accounts, account.New(a.Name,
			account.WithKubeconfig(kubeconfig, a.Context),
			account.WithDefaultNamespace(a.DefaultNamespace),
			account.WithDryRun(a.DryRun),
		))
	}
	return account.NewSet(c.DefaultAccount, accounts...)
}
