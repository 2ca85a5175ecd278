// Package git runs the git CLI to answer the revision questions change detection asks: resolving refs,
// listing files changed between two commits or in the working tree, and deepening shallow clones.
package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/relplan/relplan/internal/errors"
)

// DefaultRemote is the remote fetched from when deepening a shallow clone.
const DefaultRemote = "origin"

// GitRunner handles git command execution
type GitRunner struct {
	GitPath string
	WorkDir string
	Remote  string
}

// NewGitRunner creates a new GitRunner instance
func NewGitRunner() (*GitRunner, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, &WrappedError{
			Op:      "git",
			Context: "git not found",
			Err:     ErrCommandSpawn,
		}
	}

	return &GitRunner{
		GitPath: gitPath,
		Remote:  DefaultRemote,
	}, nil
}

// WithWorkDir returns a new GitRunner with the specified working directory
func (g *GitRunner) WithWorkDir(workDir string) *GitRunner {
	copy := *g
	copy.WorkDir = workDir

	return &copy
}

// RequiresWorkDir returns an error if no working directory is set
func (g *GitRunner) RequiresWorkDir() error {
	if g.WorkDir == "" {
		return &WrappedError{
			Op:      "git",
			Context: "no working directory set",
			Err:     ErrNoWorkDir,
		}
	}

	return nil
}

// Resolve returns the commit hash the given ref points to. Refs that do not name a commit fail with
// ErrRevisionNotFound.
func (g *GitRunner) Resolve(ctx context.Context, ref string) (string, error) {
	if err := g.RequiresWorkDir(); err != nil {
		return "", err
	}

	cmd := g.prepareCommand(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	cmd.Dir = g.WorkDir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &WrappedError{
				Op:      "git_rev_parse",
				Context: ref,
				Err:     ErrRevisionNotFound,
			}
		}

		return "", &WrappedError{
			Op:      "git_rev_parse",
			Context: stderr.String(),
			Err:     ErrCommandSpawn,
		}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// IsShallow reports whether the repository was cloned with limited history.
func (g *GitRunner) IsShallow(ctx context.Context) (bool, error) {
	out, err := g.output(ctx, "git_rev_parse", "rev-parse", "--is-shallow-repository")
	if err != nil {
		return false, err
	}

	return strings.TrimSpace(out) == "true", nil
}

// Deepen fetches depth more commits of history from the configured remote.
func (g *GitRunner) Deepen(ctx context.Context, depth int) error {
	shallow, err := g.IsShallow(ctx)
	if err != nil {
		return err
	}

	if !shallow {
		return &WrappedError{
			Op:  "git_fetch",
			Err: ErrNotShallow,
		}
	}

	_, err = g.output(ctx, "git_fetch", "fetch", "--quiet", "--deepen="+strconv.Itoa(depth), g.Remote)

	return err
}

// output runs a git subcommand in the working directory and returns its stdout.
func (g *GitRunner) output(ctx context.Context, op, name string, args ...string) (string, error) {
	if err := g.RequiresWorkDir(); err != nil {
		return "", err
	}

	cmd := g.prepareCommand(ctx, name, args...)
	cmd.Dir = g.WorkDir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &WrappedError{
			Op:      op,
			Context: strings.TrimSpace(stderr.String()),
			Err:     ErrCommandSpawn,
		}
	}

	return stdout.String(), nil
}

func (g *GitRunner) prepareCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, g.GitPath, append([]string{name}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	return cmd
}
