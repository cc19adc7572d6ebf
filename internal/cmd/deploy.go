package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/distribution/reference"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/cameronsjo/berth/internal/artifact"
	"github.com/cameronsjo/berth/internal/config"
	"github.com/cameronsjo/berth/internal/deploy"
	"github.com/cameronsjo/berth/internal/engine"
	"github.com/cameronsjo/berth/internal/fetch"
	"github.com/cameronsjo/berth/internal/fileutil"
	"github.com/cameronsjo/berth/internal/manifest"
	"github.com/cameronsjo/berth/internal/resource"
	"github.com/cameronsjo/berth/internal/server"
	"github.com/cameronsjo/berth/internal/task"
	"github.com/cameronsjo/berth/internal/ui"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type deployOptions struct {
	file         string
	artifactType string
	artifactRef  string
	artifactVer  string
	artifactPath string
	requestFile  string

	account     string
	namespace   string
	versioned   bool
	unversioned bool
	images      []string

	app     string
	cluster string
	stack   string
	detail  string

	sets        []string
	valuesFiles []string
	pinDigests  bool

	output      string
	writeResult string
	server      string
	token       string
}

func newDeployCmd(a *app) *cobra.Command {
	o := &deployOptions{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a manifest",
		Long: `Deploy a Kubernetes manifest.

The manifest is taken from a file (-f), fetched from an artifact
(--artifact-ref) or described in full by a request file (--request).
Flags given alongside --request override the fields of the request.

Image candidates replace bare image names in pod specs:
  --image nginx=nginx:1.27      replaces "image: nginx"
  --image ghcr.io/acme/api:v2   name is taken from the reference

Examples:
  berth deploy -f deployment.yaml --image web=ghcr.io/acme/web:1.4
  berth deploy -f config.yaml --account prod --namespace shop
  berth deploy --artifact-ref https://example.com/app.yaml.tmpl --set replicas=3
  berth deploy --artifact-ref https://github.com/acme/deploy.git --artifact-path web.yaml
  berth deploy --request request.yaml --output json
  berth deploy -f - --server berth.internal:8080 < app.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, a, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.file, "file", "f", "", "Manifest file (- for stdin)")
	flags.StringVar(&o.artifactType, "artifact-type", "", "Manifest artifact type (default: http/file for URLs, local/file otherwise)")
	flags.StringVar(&o.artifactRef, "artifact-ref", "", "Manifest artifact reference")
	flags.StringVar(&o.artifactVer, "artifact-version", "", "Manifest artifact version (git/repo: branch)")
	flags.StringVar(&o.artifactPath, "artifact-path", "", "File inside a git/repo manifest artifact")
	flags.StringVar(&o.requestFile, "request", "", "Deploy description file, YAML or JSON (- for stdin)")
	flags.StringVarP(&o.account, "account", "a", "", "Account to deploy with (default: config defaultAccount)")
	flags.StringVarP(&o.namespace, "namespace", "n", "", "Override the manifest namespace")
	flags.BoolVar(&o.versioned, "versioned", false, "Force versioned deployment")
	flags.BoolVar(&o.unversioned, "unversioned", false, "Force unversioned deployment")
	flags.StringArrayVar(&o.images, "image", nil, "Image candidate as name=reference or reference (repeatable)")
	flags.StringVar(&o.app, "app", "", "Moniker application")
	flags.StringVar(&o.cluster, "cluster", "", "Moniker cluster")
	flags.StringVar(&o.stack, "stack", "", "Moniker stack")
	flags.StringVar(&o.detail, "detail", "", "Moniker detail")
	flags.StringArrayVar(&o.sets, "set", nil, "Template value as key.path=value (repeatable)")
	flags.StringArrayVar(&o.valuesFiles, "values", nil, "Template values file (repeatable)")
	flags.BoolVar(&o.pinDigests, "pin-digests", false, "Pin image candidates to registry digests")
	flags.StringVarP(&o.output, "output", "o", outputText, "Output format: text, json, yaml")
	flags.StringVar(&o.writeResult, "write-result", "", "Also write the result as JSON to this file")
	flags.StringVar(&o.server, "server", "", "Deploy through a berth server at this address")
	flags.StringVar(&o.token, "token", "", "Bearer token for --server (default: config server.token)")

	cmd.MarkFlagsMutuallyExclusive("file", "artifact-ref", "request")
	cmd.MarkFlagsMutuallyExclusive("versioned", "unversioned")
	return cmd
}

func runDeploy(cmd *cobra.Command, a *app, o *deployOptions) error {
	switch o.output {
	case outputText, outputJSON, outputYAML:
	default:
		return fmt.Errorf("invalid --output %q: must be text, json or yaml", o.output)
	}

	desc, err := o.description(cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var result *resource.OperationResult
	if o.server != "" {
		result, err = o.deployRemote(ctx, cfg, desc)
	} else {
		result, err = o.deployLocal(ctx, a, cfg, desc)
	}
	if err != nil {
		return err
	}

	if o.writeResult != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if err := fileutil.WriteFile(o.writeResult, data, 0644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	return printResult(cmd.OutOrStdout(), o.output, result)
}

func (o *deployOptions) deployLocal(ctx context.Context, a *app, cfg *config.Config, desc *deploy.Description) (*resource.OperationResult, error) {
	var opts []engine.Option
	if o.pinDigests || cfg.Docker.PinDigests {
		pinner, closer, err := engine.DockerPinner(cfg.Docker)
		if err != nil {
			return nil, fmt.Errorf("connect to docker: %w", err)
		}
		defer closer.Close()
		opts = append(opts, engine.WithImagePinner(pinner))
	}

	eng, err := a.newEngine(cfg, opts...)
	if err != nil {
		return nil, err
	}

	var reporter task.Reporter = task.NewLogger(ctx)
	if o.output == outputText {
		reporter = task.Multi{&task.Console{}, reporter}
	}
	return eng.Deploy(task.WithReporter(ctx, reporter), desc)
}

func (o *deployOptions) deployRemote(ctx context.Context, cfg *config.Config, desc *deploy.Description) (*resource.OperationResult, error) {
	if o.pinDigests {
		ui.Warning("--pin-digests is ignored with --server; the server's docker.pinDigests applies")
	}

	token := o.token
	if token == "" {
		token = cfg.Server.Token
	}

	resp, err := server.NewClient(o.server, token).Deploy(ctx, desc)
	if resp != nil && o.output == outputText {
		for i, entry := range resp.Status {
			ui.Step(i+1, "%s", entry.Status)
		}
	}
	if err != nil {
		return nil, err
	}
	return resp.Result.Normalize(), nil
}

// description builds the deploy description from the request file and flags.
func (o *deployOptions) description(stdin io.Reader) (*deploy.Description, error) {
	desc := &deploy.Description{}

	switch {
	case o.requestFile != "":
		data, err := fileutil.ReadInput(o.requestFile, stdin)
		if err != nil {
			return nil, fmt.Errorf("read request: %w", err)
		}
		if desc, err = deploy.ParseDescription(data); err != nil {
			return nil, err
		}
	case o.file != "":
		data, err := fileutil.ReadInput(o.file, stdin)
		if err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		m, err := manifest.Parse(data)
		if err != nil {
			return nil, err
		}
		raw, err := m.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode manifest: %w", err)
		}
		desc.Source = deploy.SourceText
		desc.Manifest = raw
	case o.artifactRef != "":
		desc.Source = deploy.SourceArtifact
		a := artifact.Artifact{
			Type:      o.manifestArtifactType(),
			Name:      artifactName(o.artifactRef),
			Version:   o.artifactVer,
			Reference: o.artifactRef,
		}
		if o.artifactPath != "" {
			a = a.WithMeta(artifact.MetadataSubPath, o.artifactPath)
			a.Name = artifactName(o.artifactPath)
		}
		desc.ManifestArtifact = &a
	default:
		return nil, errors.New("one of --file, --artifact-ref or --request is required")
	}

	if o.account != "" {
		desc.Account = o.account
	}
	if o.namespace != "" {
		desc.NamespaceOverride = o.namespace
	}
	if o.versioned || o.unversioned {
		versioned := o.versioned
		desc.Versioned = &versioned
	}

	for _, spec := range o.images {
		image, err := parseImage(spec)
		if err != nil {
			return nil, err
		}
		desc.RequiredArtifacts = append(desc.RequiredArtifacts, image)
	}

	setIfNotEmpty(&desc.Moniker.App, o.app)
	setIfNotEmpty(&desc.Moniker.Cluster, o.cluster)
	setIfNotEmpty(&desc.Moniker.Stack, o.stack)
	setIfNotEmpty(&desc.Moniker.Detail, o.detail)

	values, err := o.values()
	if err != nil {
		return nil, err
	}
	if len(values) > 0 {
		desc.Values = fetch.MergeValues(desc.Values, values)
	}
	return desc, nil
}

// values merges --values files in order, then --set assignments. SOPS
// encrypted values files are decrypted.
func (o *deployOptions) values() (map[string]any, error) {
	values := map[string]any{}
	for _, path := range o.valuesFiles {
		overlay, err := fetch.LoadValuesFile(path)
		if err != nil {
			return nil, err
		}
		values = fetch.MergeValues(values, overlay)
	}

	overlay, err := fetch.ParseValues(nil, o.sets)
	if err != nil {
		return nil, err
	}
	return fetch.MergeValues(values, overlay), nil
}

func (o *deployOptions) manifestArtifactType() string {
	if o.artifactType != "" {
		return o.artifactType
	}
	if strings.HasSuffix(o.artifactRef, ".git") || o.artifactPath != "" {
		return artifact.TypeGitRepo
	}
	if strings.HasPrefix(o.artifactRef, "http://") || strings.HasPrefix(o.artifactRef, "https://") {
		return artifact.TypeHTTPFile
	}
	return artifact.TypeLocalFile
}

// artifactName is the last path segment of a reference.
func artifactName(ref string) string {
	ref = strings.TrimSuffix(ref, "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// parseImage parses "name=reference" or a bare reference into an image
// candidate. A bare reference is named after its repository.
func parseImage(spec string) (artifact.Artifact, error) {
	name, ref, ok := strings.Cut(spec, "=")
	if !ok {
		ref = spec
	}
	if ref == "" {
		return artifact.Artifact{}, fmt.Errorf("invalid --image %q: empty reference", spec)
	}

	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("invalid --image %q: %w", spec, err)
	}
	if !ok {
		name = reference.FamiliarName(named)
	}
	if name == "" {
		return artifact.Artifact{}, fmt.Errorf("invalid --image %q: empty name", spec)
	}
	return artifact.Artifact{Type: artifact.TypeDockerImage, Name: name, Reference: ref}, nil
}

func setIfNotEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func printResult(w io.Writer, format string, result *resource.OperationResult) error {
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputYAML:
		data, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		_, err = w.Write(data)
		return err
	}

	namespaces := make([]string, 0, len(result.ManifestNamesByNamespace))
	for ns := range result.ManifestNamesByNamespace {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	for _, ns := range namespaces {
		for _, name := range result.ManifestNamesByNamespace[ns] {
			if ns == "" {
				ui.Anchor("%s", name)
			} else {
				ui.Anchor("%s in %s", name, ns)
			}
		}
	}
	for _, a := range result.CreatedArtifacts {
		ui.Success("Created %s", a)
	}
	for _, a := range result.BoundArtifacts {
		ui.Ship("Bound %s", a)
	}
	return nil
}
