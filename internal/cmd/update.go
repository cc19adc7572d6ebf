package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cameronsjo/berth/internal/ui"
	"github.com/cameronsjo/berth/internal/update"
)

func newUpdateCmd() *cobra.Command {
	var checkOnly bool

	cmd := &cobra.Command{
		Use:     "update",
		Aliases: []string{"upgrade", "selfupdate"},
		Short:   "Update berth to the latest version",
		Long: `Update berth to the latest version from GitHub releases.

This command will:
1. Check for a newer version on GitHub
2. Download the appropriate binary for your platform
3. Replace the current binary with the new version

Examples:
  berth update           # Update to latest version
  berth update --check   # Check for updates without installing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.Info("Current version: %s (%s)", version, update.GetPlatformInfo())
			ui.Info("Checking for updates...")

			if checkOnly {
				release, available, err := update.CheckForUpdate(cmd.Context(), version)
				if err != nil {
					return err
				}
				if !available {
					ui.Success("You're running the latest version!")
					return nil
				}
				ui.Success("New version available: %s (released %s)", release.Version, release.PublishedAt)
				ui.Info("To update, run: berth update")
				printChangelog(release.Changelog)
				return nil
			}

			release, err := update.Update(cmd.Context(), version)
			if err != nil {
				return err
			}
			if release == nil {
				ui.Success("You're already running the latest version!")
				return nil
			}
			ui.Success("Successfully updated to version %s!", release.Version)
			printChangelog(release.Changelog)
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for updates, don't install")
	return cmd
}

func printChangelog(changelog string) {
	lines, omitted := update.ChangelogExcerpt(changelog, 10)
	if len(lines) == 0 {
		return
	}
	ui.Warning("What's new:")
	for _, line := range lines {
		ui.Info("  %s", line)
	}
	if omitted > 0 {
		ui.Info("  ... (%d more lines)", omitted)
	}
}
