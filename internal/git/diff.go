package git

import (
	"context"
	"slices"
	"strings"
)

// Diff lists the files that differ between two commits, relative to the working directory. Renames are reported
// as a deletion of the old path plus an addition of the new one, so both owners see the change.
func (g *GitRunner) Diff(ctx context.Context, fromRef, toRef string) ([]string, error) {
	out, err := g.output(ctx, "git_diff", "diff", "--name-only", "-z", "--relative", "--no-renames", fromRef, toRef)
	if err != nil {
		return nil, err
	}

	return splitPaths(out), nil
}

// WorktreeChanges lists staged, unstaged and untracked files relative to the working directory.
func (g *GitRunner) WorktreeChanges(ctx context.Context) ([]string, error) {
	tracked, err := g.output(ctx, "git_diff", "diff", "--name-only", "-z", "--relative", "--no-renames", "HEAD")
	if err != nil {
		return nil, err
	}

	untracked, err := g.output(ctx, "git_ls_files", "ls-files", "-z", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}

	paths := append(splitPaths(tracked), splitPaths(untracked)...)
	slices.Sort(paths)

	return slices.Compact(paths), nil
}

func splitPaths(out string) []string {
	var paths []string

	for path := range strings.SplitSeq(out, "\x00") {
		if path = strings.TrimSpace(path); path != "" {
			paths = append(paths, path)
		}
	}

	return paths
}
