package export

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

// newClone creates a bare remote and a clone of it with one commit on main.
func newClone(t *testing.T) (remote, clone string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
	remote = t.TempDir()
	run(t, remote, "git", "init", "--bare")

	work := t.TempDir()
	run(t, work, "git", "clone", remote, "repo")
	clone = filepath.Join(work, "repo")
	run(t, clone, "git", "config", "user.email", "convd@example.com")
	run(t, clone, "git", "config", "user.name", "convd")
	run(t, clone, "git", "symbolic-ref", "HEAD", "refs/heads/main")
	if err := os.WriteFile(filepath.Join(clone, ".gitkeep"), nil, 0o644); err != nil {
		t.Fatalf("write .gitkeep: %v", err)
	}
	run(t, clone, "git", "add", ".")
	run(t, clone, "git", "commit", "-m", "init")
	run(t, clone, "git", "push", "-u", "origin", "main")
	return remote, clone
}

func TestGitDestination_CommitsAndPushes(t *testing.T) {
	remote, clone := newClone(t)
	dest := NewGitDestination(clone, "exports/graph.graphml", "main")

	doc := []byte("<graphml/>\n")
	if err := dest.Write(context.Background(), doc); err != nil {
		t.Fatalf("first write: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(clone, "exports", "graph.graphml"))
	if err != nil || string(got) != string(doc) {
		t.Fatalf("export = %q, %v", got, err)
	}

	// Same content makes no new commit.
	if err := dest.Write(context.Background(), doc); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if n := strings.TrimSpace(run(t, clone, "git", "rev-list", "--count", "HEAD")); n != "2" {
		t.Errorf("commit count = %s, want 2", n)
	}

	if err := dest.Write(context.Background(), []byte("<graphml><graph/></graphml>\n")); err != nil {
		t.Fatalf("third write: %v", err)
	}
	if n := strings.TrimSpace(run(t, remote, "git", "rev-list", "--count", "main")); n != "3" {
		t.Errorf("remote commit count = %s, want 3", n)
	}
}

func TestGitDestination_LocalOnly(t *testing.T) {
	_, clone := newClone(t)
	dest := &GitDestination{Repo: clone, File: DefaultFileName, Branch: "main"}

	if err := dest.Write(context.Background(), []byte("<graphml/>")); err != nil {
		t.Fatalf("write: %v", err)
	}
	status := run(t, clone, "git", "status", "--short", "--branch")
	if !strings.Contains(status, "ahead 1") {
		t.Errorf("status = %q, want local commit not pushed", status)
	}
}

func TestGitDestination_MissingBranch(t *testing.T) {
	_, clone := newClone(t)
	dest := NewGitDestination(clone, "", "no-such-branch")
	err := dest.Write(context.Background(), []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "git checkout") {
		t.Fatalf("err = %v, want checkout failure", err)
	}
}
