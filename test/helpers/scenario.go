// Package helpers provides repository fixtures shared by package tests.
package helpers

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/stretchr/testify/require"
)

// ScenarioFiles is the reference repository: five workspaces with nested non-members and an excluded package.
//
//	standalone/             standalone package
//	foo/                    workspace root "foo" with member foo_member1 (depends on standalone)
//	bar/                    standalone "bar" with nested, non-member "bar_nested"
//	baz/                    virtual workspace with member baz_member1
//	skipped/                standalone marked with the sentinel file
var ScenarioFiles = map[string]string{
	"README.md": "scenario\n",

	"standalone/release.hcl": `
package "standalone" {
  version = "0.4.0"
}

publish {
  source {
    registries = ["internal"]
  }
}
`,
	"standalone/src/lib.txt": "standalone v1\n",

	"foo/release.hcl": `
package "foo" {
  version = workspace.version
}

workspace {
  version = "1.3.44"
  members = ["foo_member1"]
}

publish {
  container {
    repository = "ghcr.io/acme"
  }
  binary {
    targets = ["x86_64-unknown-linux-gnu", "x86_64-pc-windows-msvc"]
  }
}
`,
	"foo/src/lib.txt": "foo v1\n",

	"foo/foo_member1/release.hcl": `
package "foo_member1" {
  version = workspace.version
}

dependency "standalone" {}

dependency "serde" {}

publish {
  source {
    registries = ["internal"]
  }
}
`,
	"foo/foo_member1/src/lib.txt": "foo_member1 v1\n",

	"bar/release.hcl": `
package "bar" {
  version = "0.2.0"
}

publish {
  language {
    scope = "acme"
  }
}
`,
	"bar/src/index.txt": "bar v1\n",

	"bar/bar_nested/release.hcl": `
package "bar_nested" {
  version = "0.1.0"
}

publish {
  language {
    scope = "acme"
  }
}
`,

	"baz/release.hcl": `
workspace {
  version = "3.0.0"
  members = ["baz_*"]

  publish {
    source {
      registries = ["internal"]
    }
  }
}
`,
	"baz/baz_member1/release.hcl": `
package "baz_member1" {
  version = workspace.version
}

publish {
  source {}
}
`,
	"baz/baz_member1/src/main.txt": "baz_member1 v1\n",

	"skipped/.skip_ci":    "",
	"skipped/release.hcl": "package \"skipped\" {\n  version = \"9.9.9\"\n}\n\npublish {\n  source {}\n}\n",
}

// ScenarioRevision2 touches foo and baz_member1.
var ScenarioRevision2 = map[string]string{
	"foo/src/lib.txt":              "foo v2\n",
	"baz/baz_member1/src/main.txt": "baz_member1 v2\n",
}

// WriteFiles writes files relative to dir, creating parent directories.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		fullPath := filepath.Join(dir, filepath.FromSlash(name))

		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

// ScenarioDir writes the scenario into a temporary directory without version control.
func ScenarioDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	WriteFiles(t, dir, ScenarioFiles)

	return dir
}

// Repo is a git repository fixture.
type Repo struct {
	repo *git.Repository
	Dir  string
}

// RequireGit skips the test when the git binary is unavailable.
func RequireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not found in PATH")
	}
}

// InitRepo creates a repository in a temporary directory.
func InitRepo(t *testing.T) *Repo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	return &Repo{Dir: dir, repo: repo}
}

// Commit writes files, stages everything and commits. It returns the commit hash.
func (r *Repo) Commit(t *testing.T, message string, files map[string]string) string {
	t.Helper()

	WriteFiles(t, r.Dir, files)

	worktree, err := r.repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, worktree.AddWithOptions(&git.AddOptions{All: true}))

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Release Bot",
			Email: "release-bot@example.com",
			When:  time.Date(2024, 7, 22, 12, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	return hash.String()
}

// ScenarioRepo creates the scenario repository with two revisions and returns it with both commit hashes.
func ScenarioRepo(t *testing.T) (repo *Repo, rev1, rev2 string) {
	t.Helper()

	repo = InitRepo(t)
	rev1 = repo.Commit(t, "revision 1", ScenarioFiles)
	rev2 = repo.Commit(t, "revision 2", ScenarioRevision2)

	return repo, rev1, rev2
}
