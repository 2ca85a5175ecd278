package workspace

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/pkg/log"
)

// DefaultSentinelFilename marks a directory, and everything beneath it, as excluded from release automation.
const DefaultSentinelFilename = ".skip_ci"

// Options configure a scan.
type Options struct {
	ManifestFilename string
	SentinelFilename string
	IgnorePatterns   []string
	UseGitignore     bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		ManifestFilename: manifest.DefaultFilename,
		SentinelFilename: DefaultSentinelFilename,
		UseGitignore:     true,
	}
}

type workspaceRoot struct {
	workspace *manifest.Workspace
	dir       string
	members   []string
}

type scanner struct {
	logger     log.Logger
	parser     *manifest.Parser
	files      map[string]*manifest.File
	sentinels  map[string]bool
	roots      map[string]*workspaceRoot
	memberOf   map[string]string
	opts       Options
	dir        string
	errs       []*ScanError
	manifestOK []string
}

// Scan walks dir depth-first and returns every package found, grouped into workspaces. Per-path failures are
// collected in Result.Errors; only an unreadable repository or a cancelled context fails the whole scan.
func Scan(ctx context.Context, l log.Logger, dir string, opts Options) (*Result, error) {
	if opts.ManifestFilename == "" {
		opts.ManifestFilename = manifest.DefaultFilename
	}

	if opts.SentinelFilename == "" {
		opts.SentinelFilename = DefaultSentinelFilename
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New(err)
	}

	ign, err := newIgnorer(absDir, opts.IgnorePatterns, opts.UseGitignore)
	if err != nil {
		return nil, err
	}

	s := &scanner{
		logger:    l.WithField(log.FieldKeyPhase, "scan"),
		parser:    manifest.NewParser(),
		files:     make(map[string]*manifest.File),
		sentinels: make(map[string]bool),
		roots:     make(map[string]*workspaceRoot),
		memberOf:  make(map[string]string),
		opts:      opts,
		dir:       absDir,
	}

	if err := s.walk(ctx, ign); err != nil {
		return nil, err
	}

	s.resolveWorkspaces()

	result := s.decodePackages()
	result.Dir = absDir

	for _, scanErr := range result.Errors {
		s.logger.WithField(log.FieldKeyPath, scanErr.Path).Warnf("Skipping: %v", scanErr.Err)
	}

	s.logger.Debugf("Discovered %d packages in %d workspaces", len(result.Packages), len(result.Workspaces))

	return result, nil
}

func (s *scanner) walk(ctx context.Context, ign *ignorer) error {
	err := filepath.WalkDir(s.dir, func(fullPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := s.rel(fullPath)
		if err != nil {
			return err
		}

		if ign.ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			return nil
		}

		dirRel := path.Dir(rel)

		switch d.Name() {
		case s.opts.SentinelFilename:
			s.sentinels[dirRel] = true
		case s.opts.ManifestFilename:
			s.parseManifest(fullPath, dirRel)
		}

		return nil
	})
	if err != nil {
		return errors.New(err)
	}

	return nil
}

func (s *scanner) parseManifest(fullPath, dirRel string) {
	file, err := s.parser.ParseFile(fullPath)
	if err != nil {
		s.addError(dirRel, err)
		return
	}

	s.logger.Tracef("Parsed manifest %s", fullPath)

	s.files[dirRel] = file
	s.manifestOK = append(s.manifestOK, dirRel)

	if !file.HasWorkspace {
		return
	}

	ws, err := file.DecodeWorkspace()
	if err != nil {
		delete(s.files, dirRel)
		s.manifestOK = slices.DeleteFunc(s.manifestOK, func(dir string) bool { return dir == dirRel })
		s.addError(dirRel, err)

		return
	}

	s.roots[dirRel] = &workspaceRoot{dir: dirRel, workspace: ws}
}

// resolveWorkspaces assigns members to the nearest enclosing workspace root.
func (s *scanner) resolveWorkspaces() {
	rootDirs := make([]string, 0, len(s.roots))
	for dir := range s.roots {
		rootDirs = append(rootDirs, dir)
	}

	// Deepest roots claim first, so a member always belongs to its nearest root.
	sort.Slice(rootDirs, func(i, j int) bool {
		di, dj := depth(rootDirs[i]), depth(rootDirs[j])
		if di != dj {
			return di > dj
		}

		return rootDirs[i] < rootDirs[j]
	})

	sort.Strings(s.manifestOK)

	for _, rootDir := range rootDirs {
		root := s.roots[rootDir]

		members, err := s.expandMembers(root)
		if err != nil {
			s.addError(rootDir, err)
			continue
		}

		for _, member := range members {
			if _, claimed := s.memberOf[member]; claimed {
				continue
			}

			if _, nested := s.roots[member]; nested {
				s.addError(rootDir, NestedWorkspaceError{Root: rootDir, Member: member})
				continue
			}

			s.memberOf[member] = rootDir
			root.members = append(root.members, member)
		}
	}
}

func (s *scanner) expandMembers(root *workspaceRoot) ([]string, error) {
	var candidates []string

	for _, dir := range s.manifestOK {
		if dir != root.dir && isWithin(dir, root.dir) {
			candidates = append(candidates, dir)
		}
	}

	excludes, err := compileGlobs(root.workspace.Exclude)
	if err != nil {
		return nil, err
	}

	var members []string

	for _, pattern := range root.workspace.Members {
		pattern = path.Clean(filepath.ToSlash(pattern))

		if !strings.ContainsAny(pattern, "*?[{") {
			member := joinRel(root.dir, pattern)
			if !slices.Contains(candidates, member) {
				s.addError(root.dir, MemberNotFoundError{Root: root.dir, Member: pattern})
				continue
			}

			members = append(members, member)

			continue
		}

		compiled, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Errorf("invalid member pattern %q: %w", pattern, err)
		}

		for _, candidate := range candidates {
			if compiled.Match(relTo(candidate, root.dir)) {
				members = append(members, candidate)
			}
		}
	}

	members = slices.DeleteFunc(members, func(member string) bool {
		rel := relTo(member, root.dir)

		for _, exclude := range excludes {
			if exclude.Match(rel) {
				return true
			}
		}

		return false
	})

	slices.Sort(members)

	return slices.Compact(members), nil
}

func (s *scanner) decodePackages() *Result {
	result := &Result{}
	seen := make(map[string]string)
	byDir := make(map[string]*Package)

	for _, dir := range s.manifestOK {
		file := s.files[dir]
		if !file.HasPackage {
			continue
		}

		var (
			vars     *manifest.WorkspaceVars
			defaults *manifest.Publish
			role     = RoleStandalone
			wsDir    = dir
		)

		if rootDir, ok := s.memberOf[dir]; ok {
			root := s.roots[rootDir]
			vars = &manifest.WorkspaceVars{Path: rootDir, Version: root.workspace.Version}
			defaults = root.workspace.Publish
			role = RoleMember
			wsDir = rootDir
		} else if root, ok := s.roots[dir]; ok {
			vars = &manifest.WorkspaceVars{Path: dir, Version: root.workspace.Version}
			defaults = root.workspace.Publish
			role = RoleRoot
		}

		decoded, err := file.DecodePackage(vars, defaults)
		if err != nil {
			s.addError(dir, err)
			continue
		}

		if first, dup := seen[decoded.Name]; dup {
			s.addError(dir, DuplicatePackageError{Name: decoded.Name, Path: dir, FirstPath: first})
			continue
		}

		seen[decoded.Name] = dir

		pkg := &Package{
			Name:         decoded.Name,
			Path:         dir,
			Version:      decoded.Version,
			Dependencies: decoded.Dependencies,
			Publish:      decoded.Publish,
			Role:         role,
			Workspace:    wsDir,
			Excluded:     s.excluded(dir),
		}

		s.logger.WithField(log.FieldKeyPackage, pkg.Name).Debugf("Found %s package at %s", pkg.Role, pkg.Path)

		byDir[dir] = pkg
		result.Packages = append(result.Packages, pkg)
	}

	workspaces := make(map[string]*Workspace)

	for _, pkg := range result.Packages {
		if pkg.Role == RoleStandalone {
			workspaces[pkg.Path] = &Workspace{Path: pkg.Path, Root: pkg}
		}
	}

	for dir, root := range s.roots {
		ws := &Workspace{Path: dir, Root: byDir[dir], Version: root.workspace.Version}

		for _, member := range root.members {
			if pkg, ok := byDir[member]; ok {
				ws.Members = append(ws.Members, pkg)
			}
		}

		workspaces[dir] = ws
	}

	for _, ws := range workspaces {
		result.Workspaces = append(result.Workspaces, ws)
	}

	sort.Slice(result.Workspaces, func(i, j int) bool {
		return result.Workspaces[i].Path < result.Workspaces[j].Path
	})

	sort.SliceStable(s.errs, func(i, j int) bool {
		return s.errs[i].Path < s.errs[j].Path
	})

	result.Errors = s.errs

	return result
}

// excluded reports whether dir or any of its ancestors carries the sentinel file.
func (s *scanner) excluded(dir string) bool {
	for {
		if s.sentinels[dir] {
			return true
		}

		if dir == RootPath {
			return false
		}

		dir = path.Dir(dir)
	}
}

func (s *scanner) addError(dir string, err error) {
	s.errs = append(s.errs, &ScanError{Path: dir, Err: err})
}

func (s *scanner) rel(fullPath string) (string, error) {
	rel, err := filepath.Rel(s.dir, fullPath)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(rel), nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))

	for _, pattern := range patterns {
		compiled, err := glob.Compile(path.Clean(filepath.ToSlash(pattern)), '/')
		if err != nil {
			return nil, errors.Errorf("invalid pattern %q: %w", pattern, err)
		}

		globs = append(globs, compiled)
	}

	return globs, nil
}

func depth(dir string) int {
	if dir == RootPath {
		return 0
	}

	return strings.Count(dir, "/") + 1
}

// isWithin reports whether dir is parent or a path beneath it.
func isWithin(dir, parent string) bool {
	if parent == RootPath || dir == parent {
		return true
	}

	return strings.HasPrefix(dir, parent+"/")
}

func joinRel(parent, child string) string {
	return path.Clean(path.Join(parent, child))
}

func relTo(dir, parent string) string {
	if parent == RootPath {
		return dir
	}

	return strings.TrimPrefix(dir, parent+"/")
}
