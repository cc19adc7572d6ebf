package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/cameronsjo/berth/internal/artifact"
)

// ErrMissingSubPath indicates a git/repo artifact that names no file.
var ErrMissingSubPath = errors.New("git artifact requires metadata subPath")

// fetchGit reads one file from a git repository. The reference is the
// repository URL, the version a branch (or a full "refs/..." name) and the
// subPath metadata the file inside the repository. An empty version reads
// the remote HEAD.
func (d *Downloader) fetchGit(ctx context.Context, a artifact.Artifact) ([]byte, error) {
	subPath := strings.TrimPrefix(a.Meta(artifact.MetadataSubPath), "/")
	if subPath == "" {
		return nil, fmt.Errorf("%s: %w", a.Reference, ErrMissingSubPath)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	opts := &git.CloneOptions{
		URL:          a.Reference,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if a.Version != "" {
		opts.ReferenceName = gitReferenceName(a.Version)
	}

	slogcontext.FromCtx(ctx).DebugContext(ctx, "Cloning repository",
		slog.String("url", a.Reference), slog.String("version", a.Version))

	// Bare in-memory clone; the file is read from the commit tree.
	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, opts)
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", a.Reference, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD of %s: %w", a.Reference, err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", head.Hash(), err)
	}
	file, err := commit.File(subPath)
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", subPath, head.Hash(), err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", subPath, err)
	}
	return []byte(contents), nil
}

// gitReferenceName expands a branch name to a full reference name.
func gitReferenceName(version string) plumbing.ReferenceName {
	if strings.HasPrefix(version, "refs/") {
		return plumbing.ReferenceName(version)
	}
	return plumbing.NewBranchReferenceName(version)
}
