package git_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/relplan/relplan/internal/git"
	"github.com/relplan/relplan/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T, dir string) *git.GitRunner {
	t.Helper()

	helpers.RequireGit(t)

	runner, err := git.NewGitRunner()
	require.NoError(t, err)

	return runner.WithWorkDir(dir)
}

func TestGitRunner_Resolve(t *testing.T) {
	t.Parallel()

	helpers.RequireGit(t)

	repo, rev1, rev2 := helpers.ScenarioRepo(t)
	runner := newRunner(t, repo.Dir)

	t.Run("head", func(t *testing.T) {
		t.Parallel()

		hash, err := runner.Resolve(t.Context(), "HEAD")
		require.NoError(t, err)
		assert.Equal(t, rev2, hash)
	})

	t.Run("parent", func(t *testing.T) {
		t.Parallel()

		hash, err := runner.Resolve(t.Context(), "HEAD~1")
		require.NoError(t, err)
		assert.Equal(t, rev1, hash)
	})

	t.Run("unknown ref", func(t *testing.T) {
		t.Parallel()

		_, err := runner.Resolve(t.Context(), "refs/heads/does-not-exist")
		require.Error(t, err)

		var wrappedErr *git.WrappedError
		require.ErrorAs(t, err, &wrappedErr)
		assert.ErrorIs(t, err, git.ErrRevisionNotFound)
	})
}

func TestGitRunner_Diff(t *testing.T) {
	t.Parallel()

	helpers.RequireGit(t)

	repo, rev1, rev2 := helpers.ScenarioRepo(t)

	t.Run("repository root", func(t *testing.T) {
		t.Parallel()

		files, err := newRunner(t, repo.Dir).Diff(t.Context(), rev1, rev2)
		require.NoError(t, err)
		assert.Equal(t, []string{"baz/baz_member1/src/main.txt", "foo/src/lib.txt"}, files)
	})

	t.Run("subdirectory", func(t *testing.T) {
		t.Parallel()

		files, err := newRunner(t, filepath.Join(repo.Dir, "foo")).Diff(t.Context(), rev1, rev2)
		require.NoError(t, err)
		assert.Equal(t, []string{"src/lib.txt"}, files)
	})

	t.Run("no changes", func(t *testing.T) {
		t.Parallel()

		files, err := newRunner(t, repo.Dir).Diff(t.Context(), rev2, rev2)
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestGitRunner_WorktreeChanges(t *testing.T) {
	t.Parallel()

	helpers.RequireGit(t)

	repo, _, _ := helpers.ScenarioRepo(t)
	runner := newRunner(t, repo.Dir)

	files, err := runner.WorktreeChanges(t.Context())
	require.NoError(t, err)
	assert.Empty(t, files)

	helpers.WriteFiles(t, repo.Dir, map[string]string{
		"bar/src/index.txt":  "bar v2\n",
		"standalone/new.txt": "untracked\n",
	})
	require.NoError(t, os.Remove(filepath.Join(repo.Dir, "skipped", ".skip_ci")))

	files, err = runner.WorktreeChanges(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"bar/src/index.txt", "skipped/.skip_ci", "standalone/new.txt"}, files)
}

func TestGitRunner_Shallow(t *testing.T) {
	t.Parallel()

	helpers.RequireGit(t)

	repo, _, _ := helpers.ScenarioRepo(t)
	runner := newRunner(t, repo.Dir)

	shallow, err := runner.IsShallow(t.Context())
	require.NoError(t, err)
	assert.False(t, shallow)

	err = runner.Deepen(t.Context(), 10)
	require.ErrorIs(t, err, git.ErrNotShallow)
}

func TestGitRunner_RequiresWorkDir(t *testing.T) {
	t.Parallel()

	helpers.RequireGit(t)

	runner, err := git.NewGitRunner()
	require.NoError(t, err)

	_, err = runner.Diff(t.Context(), "HEAD~1", "HEAD")
	require.ErrorIs(t, err, git.ErrNoWorkDir)

	_, err = runner.Resolve(t.Context(), "HEAD")
	require.ErrorIs(t, err, git.ErrNoWorkDir)
}
