package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination commits the export into a local clone and, when Push is
// set, pushes the branch to origin.
type GitDestination struct {
	Repo   string // path to an existing local clone
	File   string // path of the export within the repo
	Branch string
	Push   bool
}

// NewGitDestination returns a destination that commits file on branch in
// repo and pushes the result.
func NewGitDestination(repo, file, branch string) *GitDestination {
	if file == "" {
		file = DefaultFileName
	}
	if branch == "" {
		branch = "main"
	}
	return &GitDestination{Repo: repo, File: file, Branch: branch, Push: true}
}

// Write replaces the export file and commits it. An unchanged graph makes no
// commit.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if _, err := d.git(ctx, "checkout", d.Branch); err != nil {
		return err
	}
	if d.Push {
		// The remote may not have the branch yet.
		_, _ = d.git(ctx, "pull", "--ff-only", "origin", d.Branch)
	}

	dest := &FileDestination{Path: filepath.Join(d.Repo, d.File)}
	if err := dest.Write(ctx, data); err != nil {
		return err
	}

	if _, err := d.git(ctx, "add", d.File); err != nil {
		return err
	}
	if _, err := d.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return nil
	}
	if _, err := d.git(ctx, "commit", "-m", "convgraph: update graph export"); err != nil {
		return err
	}
	if d.Push {
		if _, err := d.git(ctx, "push", "origin", d.Branch); err != nil {
			return err
		}
	}
	return nil
}

func (d *GitDestination) git(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.Repo
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return out.String(), nil
}
