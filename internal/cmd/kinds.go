package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/berth/internal/server"
)

func newKindsCmd(a *app) *cobra.Command {
	var (
		output     string
		serverAddr string
		token      string
	)

	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List deployable kinds",
		Long: `List the resource kinds berth can deploy and whether each is
versioned by default. Versioned kinds are deployed under a new name
(name-v000, name-v001, ...) whenever their content changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			var kinds []server.KindInfo
			if serverAddr != "" {
				if token == "" {
					token = cfg.Server.Token
				}
				kinds, err = server.NewClient(serverAddr, token).Kinds(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				eng, err := a.newEngine(cfg)
				if err != nil {
					return err
				}
				for _, p := range eng.Kinds() {
					kinds = append(kinds, server.KindInfo{Kind: p.Kind, Versioned: p.Versioned})
				}
			}

			switch output {
			case outputJSON:
				data, err := json.MarshalIndent(kinds, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			case outputText:
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "KIND\tVERSIONED")
				for _, k := range kinds {
					fmt.Fprintf(w, "%s\t%t\n", k.Kind, k.Versioned)
				}
				return w.Flush()
			default:
				return fmt.Errorf("invalid --output %q: must be text or json", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json")
	cmd.Flags().StringVar(&serverAddr, "server", "", "List the kinds of a berth server at this address")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token for --server (default: config server.token)")
	return cmd
}
