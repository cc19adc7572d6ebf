// Package cmd provides the CLI commands for berth.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/cameronsjo/berth/internal/config"
	"github.com/cameronsjo/berth/internal/engine"
	"github.com/cameronsjo/berth/internal/ui"
)

// version is overridden at build time with -ldflags "-X".
var version = "0.1.0"

// app holds state shared by every command of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg        *config.Config
	engineOpts []engine.Option
}

// NewRootCmd builds the command tree. engineOpts are applied after the
// options derived from configuration.
func NewRootCmd(engineOpts ...engine.Option) *cobra.Command {
	a := &app{engineOpts: engineOpts}

	root := &cobra.Command{
		Use:   "berth",
		Short: "Deploy Kubernetes manifests with artifact tracking",
		Long: `berth - manifest deployment orchestrator

Takes a Kubernetes manifest and a set of artifacts, versions and annotates
the manifest, swaps artifact placeholders for real references and submits
the result to the cluster.

COMMANDS
  deploy                Deploy a manifest
    -f <file>           Manifest file (- for stdin)
    --artifact-ref      Fetch the manifest from an artifact
    --request <file>    Full deploy description (YAML or JSON)
  kinds                 List deployable kinds
  serve                 Run the HTTP deploy server
  update                Update berth to the latest release
  version               Print the version`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: $BERTH_CONFIG or berth.yaml in this or a parent directory)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "text", "Log format: text, json")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.SetVersionTemplate("berth version {{.Version}}\n")
	root.AddCommand(
		newDeployCmd(a),
		newKindsCmd(a),
		newServeCmd(a),
		newUpdateCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

// setup configures console output and logging before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	ui.Configure(cmd.OutOrStdout(), a.noColor)

	logger, err := newLogger(cmd.ErrOrStderr(), a.logLevel, a.logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	cmd.SetContext(slogcontext.NewCtx(cmd.Context(), logger))
	return nil
}

// loadConfig loads the configuration once per invocation.
func (a *app) loadConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// newEngine builds an engine from cfg with extra options.
func (a *app) newEngine(cfg *config.Config, extra ...engine.Option) (*engine.Engine, error) {
	opts := append(append([]engine.Option{}, extra...), a.engineOpts...)
	return engine.New(cfg, opts...)
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: must be text or json", format)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "berth version %s\n", version)
		},
	}
}
