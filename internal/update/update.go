// Package update provides self-update functionality for berth.
package update

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
)

const (
	// Repository owner and name for GitHub releases.
	repoOwner = "cameronsjo"
	repoName  = "berth"
)

// Release contains information about an available update.
type Release struct {
	Version     string
	ReleaseURL  string
	PublishedAt string
	Changelog   string
}

// latest finds the newest release. found is false when there are no
// releases at all.
func latest(ctx context.Context) (*selfupdate.Updater, *selfupdate.Release, bool, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, nil, false, fmt.Errorf("creating update source: %w", err)
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source: source,
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("creating updater: %w", err)
	}

	release, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, nil, false, fmt.Errorf("detecting latest version: %w", err)
	}
	return updater, release, found, nil
}

func toRelease(r *selfupdate.Release) *Release {
	return &Release{
		Version:     r.Version(),
		ReleaseURL:  r.URL,
		PublishedAt: r.PublishedAt.Format("2006-01-02"),
		Changelog:   r.ReleaseNotes,
	}
}

// CheckForUpdate checks if a newer version is available.
func CheckForUpdate(ctx context.Context, currentVersion string) (*Release, bool, error) {
	_, release, found, err := latest(ctx)
	if err != nil {
		return nil, false, err
	}
	if !found || release.LessOrEqual(currentVersion) {
		return nil, false, nil
	}
	return toRelease(release), true, nil
}

// Update downloads and installs the latest version. It returns nil when
// the current version is already the latest.
func Update(ctx context.Context, currentVersion string) (*Release, error) {
	updater, release, found, err := latest(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no releases found for %s/%s", repoOwner, repoName)
	}
	if release.LessOrEqual(currentVersion) {
		return nil, nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, fmt.Errorf("getting executable path: %w", err)
	}
	if err := updater.UpdateTo(ctx, release, exe); err != nil {
		return nil, fmt.Errorf("updating binary: %w", err)
	}
	return toRelease(release), nil
}

// GetPlatformInfo returns the current platform information.
func GetPlatformInfo() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}

// ChangelogExcerpt returns at most maxLines lines of a changelog and the
// number of lines left out.
func ChangelogExcerpt(changelog string, maxLines int) ([]string, int) {
	changelog = strings.TrimSpace(changelog)
	if changelog == "" {
		return nil, 0
	}
	lines := strings.Split(changelog, "\n")
	if len(lines) <= maxLines {
		return lines, 0
	}
	return lines[:maxLines], len(lines) - maxLines
}
