package workspace

import (
	"path"
	"strings"

	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
	"github.com/gobwas/glob"

	"github.com/relplan/relplan/internal/errors"
)

const gitDirName = ".git"

// ignorer decides which directories are pruned before descent.
type ignorer struct {
	gitignore gitignore.Matcher
	globs     []glob.Glob
}

func newIgnorer(dir string, patterns []string, useGitignore bool) (*ignorer, error) {
	ign := &ignorer{}

	for _, pattern := range patterns {
		compiled, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}

		ign.globs = append(ign.globs, compiled)
	}

	if useGitignore {
		patterns, err := gitignore.ReadPatterns(osfs.New(dir), nil)
		if err != nil {
			return nil, errors.Errorf("failed to read .gitignore files in %s: %w", dir, err)
		}

		ign.gitignore = gitignore.NewMatcher(patterns)
	}

	return ign, nil
}

// ignored reports whether the repo-relative slash path should be skipped.
func (ign *ignorer) ignored(rel string, isDir bool) bool {
	if rel == RootPath {
		return false
	}

	base := path.Base(rel)
	if isDir && base == gitDirName {
		return true
	}

	for _, g := range ign.globs {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}

	if ign.gitignore != nil && ign.gitignore.Match(strings.Split(rel, "/"), isDir) {
		return true
	}

	return false
}
