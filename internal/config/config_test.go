package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalSymlinks resolves symlinks for path comparison (macOS /var -> /private/var).
func evalSymlinks(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

// chdir changes into dir for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	originalWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(originalWd) })
	require.NoError(t, os.Chdir(dir))
}

const sampleConfig = `defaultAccount: prod
accounts:
  - name: dev
    kubeconfig: kube/dev.yaml
    defaultNamespace: dev
    dryRun: true
  - name: prod
    context: prod-cluster
    defaultNamespace: shop
server:
  addr: ":9090"
  token: s3cret
fetch:
  timeout: 10s
  retries: 5
  values:
    registry: ghcr.io/acme
docker:
  pinDigests: true
`

func TestFindConfig_SearchesUpward(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, FileName), []byte(sampleConfig), 0644))

	subDir := filepath.Join(tmpDir, "sub", "deep")
	require.NoError(t, os.MkdirAll(subDir, 0755))
	chdir(t, subDir)

	path, err := FindConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, FileName), path)
}

func TestFindConfig_NotFound(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := FindConfig()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "prod", cfg.DefaultAccount)
	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "dev", cfg.Accounts[0].Name)
	assert.True(t, cfg.Accounts[0].DryRun)
	assert.Equal(t, "prod-cluster", cfg.Accounts[1].Context)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "s3cret", cfg.Server.Token)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 5, cfg.Fetch.Retries)
	assert.Equal(t, "ghcr.io/acme", cfg.Fetch.Values["registry"])
	assert.True(t, cfg.Docker.PinDigests)
}

func TestLoadFile_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("accounts:\n  - name: local\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.DefaultAccount)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 3, cfg.Fetch.Retries)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("accounts: [unclosed\n"), 0644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestLoad_WithoutFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvConfig, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, "default", cfg.DefaultAccount)
}

func TestLoad_EnvConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))
	t.Setenv(EnvConfig, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	t.Setenv(EnvAccount, "dev")
	t.Setenv(EnvServerAddr, ":7070")
	t.Setenv(EnvServerToken, "override")
	t.Setenv(EnvPinDigests, "false")
	t.Setenv(EnvFetchRetries, "1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.DefaultAccount)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "override", cfg.Server.Token)
	assert.False(t, cfg.Docker.PinDigests)
	assert.Equal(t, 1, cfg.Fetch.Retries)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid",
			cfg:  Config{DefaultAccount: "a", Accounts: []Account{{Name: "a"}, {Name: "b"}}},
		},
		{
			name:    "duplicate account",
			cfg:     Config{Accounts: []Account{{Name: "a"}, {Name: "a"}}},
			wantErr: `duplicate account "a"`,
		},
		{
			name:    "missing name",
			cfg:     Config{Accounts: []Account{{}}},
			wantErr: "name is required",
		},
		{
			name:    "unknown default",
			cfg:     Config{DefaultAccount: "prod", Accounts: []Account{{Name: "dev"}}},
			wantErr: `defaultAccount "prod"`,
		},
		{
			name:    "negative retries",
			cfg:     Config{Accounts: []Account{{Name: "dev"}}, Fetch: Fetch{Retries: -1}},
			wantErr: "fetch.retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAccountSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	set := cfg.AccountSet()
	assert.Equal(t, []string{"dev", "prod"}, set.Names())

	def, err := set.Get("")
	require.NoError(t, err)
	assert.Equal(t, "prod", def.Name)
	assert.Equal(t, "shop", def.DefaultNamespace())

	dev, err := set.Get("dev")
	require.NoError(t, err)
	assert.True(t, dev.DryRun())
	assert.Equal(t, "dev", dev.DefaultNamespace())
}
