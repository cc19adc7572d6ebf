package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/cameronsjo/berth/internal/engine"
	"github.com/cameronsjo/berth/internal/fetch"
	"github.com/cameronsjo/berth/internal/server"
	"github.com/cameronsjo/berth/internal/ui"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr       string
		token      string
		timeout    time.Duration
		pinDigests bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP deploy server",
		Long: `Run the HTTP deploy server in foreground.

Endpoints:
  GET  /healthz               Health check (always public)
  GET  /v1/kinds              Deployable kinds
  POST /v1/manifests/deploy   Deploy a description (JSON or YAML body)

Configuration via berth.yaml (server.addr, server.token) or environment:
  BERTH_SERVER_ADDR    Listen address (default: :8080)
  BERTH_SERVER_TOKEN   Bearer token required on every endpoint but /healthz

local/file artifacts are read only below fetch.baseDir and are rejected
when it is not set.

Stops gracefully on SIGTERM/SIGINT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			srvCfg := server.DefaultConfig()
			if cfg.Server.Addr != "" {
				srvCfg.Addr = cfg.Server.Addr
			}
			srvCfg.Token = cfg.Server.Token
			if cmd.Flags().Changed("addr") {
				srvCfg.Addr = addr
			}
			if cmd.Flags().Changed("token") {
				srvCfg.Token = token
			}
			if cmd.Flags().Changed("timeout") {
				srvCfg.Timeout = timeout
			}

			var opts []engine.Option
			if cfg.Fetch.BaseDir == "" {
				ui.Info("local/file artifacts disabled (set fetch.baseDir to enable)")
				opts = append(opts, engine.WithFetchOptions(fetch.WithoutLocalFiles()))
			}
			if pinDigests || cfg.Docker.PinDigests {
				pinner, closer, err := engine.DockerPinner(cfg.Docker)
				if err != nil {
					return fmt.Errorf("connect to docker: %w", err)
				}
				defer closer.Close()
				opts = append(opts, engine.WithImagePinner(pinner))
			}

			eng, err := a.newEngine(cfg, opts...)
			if err != nil {
				return err
			}
			ui.Info("Accounts: %v", eng.Accounts().Names())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(eng, srvCfg, slogcontext.FromCtx(ctx))
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: config server.addr)")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token (default: config server.token)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Timeout for a single deployment")
	cmd.Flags().BoolVar(&pinDigests, "pin-digests", false, "Pin image candidates to registry digests")
	return cmd
}
