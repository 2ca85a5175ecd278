// Package change maps the files touched between two revisions to the packages that own them, then propagates
// the change to every package depending on an owner.
package change

import (
	"context"
	"path"
	"slices"

	"github.com/gobwas/glob"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/git"
	"github.com/relplan/relplan/internal/graph"
	"github.com/relplan/relplan/internal/workspace"
	"github.com/relplan/relplan/pkg/log"
)

// DefaultHeadRef is diffed against when no head ref is requested.
const DefaultHeadRef = "HEAD"

const (
	defaultDeepenDepth    = 50
	defaultDeepenAttempts = 3
)

// Mode states how a change set was determined.
type Mode string

const (
	// ModeDiff means the change set comes from diffing two revisions.
	ModeDiff Mode = "diff"
	// ModeAll means no base ref was supplied, or a global trigger file changed, and every package counts as changed.
	ModeAll Mode = "all"
	// ModeNone means change detection was not requested and no package counts as changed.
	ModeNone Mode = "none"
)

// VCS answers revision questions. Paths are slash separated and relative to the scanned directory.
type VCS interface {
	Resolve(ctx context.Context, ref string) (string, error)
	Diff(ctx context.Context, fromRef, toRef string) ([]string, error)
	WorktreeChanges(ctx context.Context) ([]string, error)
}

// Deepener is implemented by a VCS that can fetch more history when a ref is missing from a shallow clone.
type Deepener interface {
	IsShallow(ctx context.Context) (bool, error)
	Deepen(ctx context.Context, depth int) error
}

// Request selects the revisions to compare.
type Request struct {
	BaseRef         string
	HeadRef         string
	IncludeWorktree bool
	Skip            bool
}

// Options configure a Detector.
type Options struct {
	// GlobalPaths are globs over changed paths; a match marks every package changed.
	GlobalPaths []string
	// DeepenDepth is the number of commits fetched per deepening attempt.
	DeepenDepth int
	// DeepenAttempts bounds how often a shallow clone is deepened while resolving a ref. Zero disables deepening.
	DeepenAttempts int
}

// DefaultOptions returns the options used by Detect.
func DefaultOptions() Options {
	return Options{
		DeepenDepth:    defaultDeepenDepth,
		DeepenAttempts: defaultDeepenAttempts,
	}
}

// Detector computes change sets.
type Detector struct {
	vcs     VCS
	globals []glob.Glob
	opts    Options
}

// NewDetector compiles the global trigger patterns.
func NewDetector(vcs VCS, opts Options) (*Detector, error) {
	d := &Detector{vcs: vcs, opts: opts}

	for _, pattern := range opts.GlobalPaths {
		compiled, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.New(InvalidGlobalPathError{Pattern: pattern, Err: err})
		}

		d.globals = append(d.globals, compiled)
	}

	return d, nil
}

// Detect computes the change set with default options.
func Detect(ctx context.Context, l log.Logger, g *graph.Graph, vcs VCS, req Request) (*ChangeSet, error) {
	d, err := NewDetector(vcs, DefaultOptions())
	if err != nil {
		return nil, err
	}

	return d.Detect(ctx, l, g, req)
}

// Detect computes the change set between req.BaseRef and req.HeadRef over the packages of g.
func (d *Detector) Detect(ctx context.Context, l log.Logger, g *graph.Graph, req Request) (*ChangeSet, error) {
	if req.Skip {
		l.Debugf("Change detection skipped")

		return newChangeSet(ModeNone, g, nil), nil
	}

	if req.BaseRef == "" {
		l.Debugf("No base ref given, every package counts as changed")

		return newChangeSet(ModeAll, g, allNames(g)), nil
	}

	headRef := req.HeadRef
	if headRef == "" {
		headRef = DefaultHeadRef
	}

	base, err := d.resolve(ctx, l, req.BaseRef)
	if err != nil {
		return nil, err
	}

	head, err := d.resolve(ctx, l, headRef)
	if err != nil {
		return nil, err
	}

	files, err := d.vcs.Diff(ctx, base, head)
	if err != nil {
		return nil, errors.New(err)
	}

	if req.IncludeWorktree {
		worktree, err := d.vcs.WorktreeChanges(ctx)
		if err != nil {
			return nil, errors.New(err)
		}

		files = append(files, worktree...)
	}

	slices.Sort(files)
	files = slices.Compact(files)

	l.Debugf("Found %d changed files between %s and %s", len(files), req.BaseRef, headRef)

	var changeSet *ChangeSet

	if trigger := d.globalTrigger(files); trigger != "" {
		l.Debugf("Global trigger %s changed, every package counts as changed", trigger)

		changeSet = newChangeSet(ModeAll, g, allNames(g))
		changeSet.GlobalTrigger = trigger
	} else {
		changeSet = newChangeSet(ModeDiff, g, owners(g, files))
	}

	changeSet.BaseRef, changeSet.HeadRef = req.BaseRef, headRef
	changeSet.BaseCommit, changeSet.HeadCommit = base, head
	changeSet.Files = files

	return changeSet, nil
}

// resolve resolves ref, deepening a shallow clone between attempts.
func (d *Detector) resolve(ctx context.Context, l log.Logger, ref string) (string, error) {
	hash, err := d.vcs.Resolve(ctx, ref)
	if err == nil {
		return hash, nil
	}

	if !errors.Is(err, git.ErrRevisionNotFound) {
		return "", errors.New(err)
	}

	if deepener, ok := d.vcs.(Deepener); ok {
		for attempt := 1; attempt <= d.opts.DeepenAttempts; attempt++ {
			shallow, shallowErr := deepener.IsShallow(ctx)
			if shallowErr != nil || !shallow {
				break
			}

			l.Debugf("Ref %s not found in shallow clone, deepening by %d commits (attempt %d)", ref, d.opts.DeepenDepth, attempt)

			if deepenErr := deepener.Deepen(ctx, d.opts.DeepenDepth); deepenErr != nil {
				l.Debugf("Deepening failed: %v", deepenErr)
				break
			}

			if hash, err = d.vcs.Resolve(ctx, ref); err == nil {
				return hash, nil
			}
		}
	}

	return "", errors.New(RevisionNotFoundError{Ref: ref, Err: err})
}

func (d *Detector) globalTrigger(files []string) string {
	for _, file := range files {
		for _, pattern := range d.globals {
			if pattern.Match(file) {
				return file
			}
		}
	}

	return ""
}

// Owner returns the package whose path is the longest component-wise prefix of file, or nil.
func Owner(g *graph.Graph, file string) *workspace.Package {
	for dir := path.Dir(file); ; dir = path.Dir(dir) {
		if pkg := g.PackageByPath(dir); pkg != nil {
			return pkg
		}

		if dir == workspace.RootPath || dir == "/" {
			return nil
		}
	}
}

func owners(g *graph.Graph, files []string) []string {
	var names []string

	for _, file := range files {
		if pkg := Owner(g, file); pkg != nil {
			names = append(names, pkg.Name)
		}
	}

	return names
}

func allNames(g *graph.Graph) []string {
	names := make([]string, 0, len(g.Packages()))

	for _, pkg := range g.Packages() {
		names = append(names, pkg.Name)
	}

	return names
}
