package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"

	"github.com/cameronsjo/berth/internal/account"
	"github.com/cameronsjo/berth/internal/config"
	"github.com/cameronsjo/berth/internal/engine"
	"github.com/cameronsjo/berth/internal/kube"
	"github.com/cameronsjo/berth/internal/ui"
)

const testConfig = `defaultAccount: test
accounts:
  - name: test
    defaultNamespace: apps
`

var (
	configMapsGVR  = schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}
	deploymentsGVR  = schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
)

// testCluster is a fake cluster behind the "test" account.
type testCluster struct {
	client *dynamicfake.FakeDynamicClient
	opts   []engine.Option
}

// newTestCluster points the config at a temp file and returns engine
// options that deploy into a fake cluster.
func newTestCluster(t *testing.T) *testCluster {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0644))
	t.Setenv(config.EnvConfig, path)

	client := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), kube.ListKinds())
	accounts := account.NewSet("test", account.New("test", account.WithClient(client), account.WithDefaultNamespace("apps")))
	return &testCluster{client: client, opts: []engine.Option{engine.WithAccounts(accounts)}}
}

func (c *testCluster) get(t *testing.T, gvr schema.GroupVersionResource, namespace, name string) *unstructured.Unstructured {
	t.Helper()
	obj, err := c.client.Resource(gvr).Namespace(namespace).Get(context.Background(), name, metav1.GetOptions{})
	require.NoError(t, err)
	return obj
}

// executeCmd executes a fresh root command with the given args and returns
// the combined output.
func executeCmd(t *testing.T, opts []engine.Option, args ...string) (string, error) {
	t.Helper()
	return executeCmdWithInput(t, opts, nil, args...)
}

// executeCmdWithInput is executeCmd with stdin.
func executeCmdWithInput(t *testing.T, opts []engine.Option, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	prev := ui.SetOutput(buf)
	t.Cleanup(func() { ui.SetOutput(prev) })

	root := NewRootCmd(opts...)
	root.SetArgs(args)
	root.SetOut(buf)
	root.SetErr(buf)
	if stdin != nil {
		root.SetIn(stdin)
	}
	err := root.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
