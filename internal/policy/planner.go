// Package policy decides, for every package and every channel it declares, whether an artifact must be
// published and under which version.
//
// Decisions are independent per channel: a registry that cannot answer makes only its own decision unknown and
// never defaults to published or unpublished. Registry checks run concurrently on a bounded worker pool; the
// order of the resulting plan does not depend on their timing.
package policy

import (
	"context"
	"slices"
	"time"

	"github.com/gobwas/glob"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/relplan/relplan/internal/change"
	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/graph"
	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/internal/registry"
	"github.com/relplan/relplan/internal/telemetry"
	"github.com/relplan/relplan/internal/worker"
	"github.com/relplan/relplan/internal/workspace"
	"github.com/relplan/relplan/pkg/log"
)

const filterReason = "left out by the include and exclude filters"

// Planner computes publish plans.
type Planner struct {
	clients   *registry.Set
	telemeter *telemetry.Telemeter
	include   []glob.Glob
	exclude   []glob.Glob
	opts      Options
}

// NewPlanner validates opts and creates a planner querying clients. telemeter may be nil.
func NewPlanner(clients *registry.Set, telemeter *telemetry.Telemeter, opts Options) (*Planner, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}

	opts.Mode = mode

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = worker.DefaultMaxWorkers
	}

	include, err := compileFilters(opts.Include)
	if err != nil {
		return nil, err
	}

	exclude, err := compileFilters(opts.Exclude)
	if err != nil {
		return nil, err
	}

	return &Planner{
		clients:   clients,
		telemeter: telemeter,
		include:   include,
		exclude:   exclude,
		opts:      opts,
	}, nil
}

// check is one (package, channel) registry lookup.
type check struct {
	pkg       *workspace.Package
	channel   manifest.Channel
	version   string
	artifacts []Artifact
	changed   bool
}

func (c *check) key() string {
	return c.pkg.Name + "/" + string(c.channel)
}

// Plan decides every channel of every package in g. changeSet may be nil, in which case nothing counts as
// changed. The returned plan is complete even when checks fail; an error is returned only when the options are
// unusable or ctx is cancelled.
func (planner *Planner) Plan(ctx context.Context, l log.Logger, g *graph.Graph, changeSet *change.ChangeSet) (*Plan, error) {
	now := planner.opts.Now()
	epoch := planner.opts.epoch()
	plan := newPlan(now, epoch)

	var (
		checks []*check
		names  []string
	)

	for _, pkg := range g.Packages() {
		names = append(names, pkg.Name)
	}

	target := newRefTarget(planner.opts.Ref, names)

	for _, pkg := range g.Packages() {
		if pkg.Excluded {
			l.WithField(log.FieldKeyPackage, pkg.Name).Debugf("Package is excluded from automation")
			continue
		}

		mode, releaseChannel := modeFor(pkg.Name, &planner.opts, target)

		version, err := ResolveVersion(pkg, mode, epoch, now)
		if err != nil {
			return nil, err
		}

		pkgPlan := &PackagePlan{
			Decisions:      make(map[manifest.Channel]*Decision, len(pkg.Channels())),
			Name:           pkg.Name,
			Version:        version,
			Mode:           mode,
			ReleaseChannel: releaseChannel,
			Changed:        changeSet.IsAffected(pkg.Name),
		}

		switch {
		case !planner.selected(pkg.Name):
			pkgPlan.Filtered = true
			pkgPlan.FilterReason = filterReason
		case !target.covers(pkg.Name):
			pkgPlan.Filtered = true
			pkgPlan.FilterReason = target.reason()
		}

		plan.add(pkgPlan)

		if pkgPlan.Filtered {
			l.WithField(log.FieldKeyPackage, pkg.Name).Debugf("Package is not published: %s", pkgPlan.FilterReason)

			for _, channel := range pkg.Channels() {
				pkgPlan.Decisions[channel] = filteredDecision(channel, version, pkgPlan.Changed)
			}

			continue
		}

		for _, channel := range pkg.Channels() {
			artifacts, err := Artifacts(pkg, channel, version, releaseChannel, nil)
			if err != nil {
				pkgPlan.Decisions[channel] = unknownDecision(channel, version, nil, pkgPlan.Changed, err)
				continue
			}

			checks = append(checks, &check{
				pkg:       pkg,
				channel:   channel,
				version:   version,
				artifacts: artifacts,
				changed:   pkgPlan.Changed,
			})
		}
	}

	planner.backfeedRegistries(l, g, plan, checks)

	results, poolErr := planner.run(ctx, l, checks)

	for _, c := range checks {
		pkgPlan := plan.Package(c.pkg.Name)

		decision, ok := results.Load(c.key())
		if !ok {
			decision = unknownDecision(c.channel, c.version, c.artifacts, c.changed,
				errors.New(IncompleteCheckError{Package: c.pkg.Name, Channel: c.channel, Err: poolErr}))
		}

		pkgPlan.Decisions[c.channel] = decision
	}

	if err := ctx.Err(); err != nil {
		return plan, errors.New(err)
	}

	return plan, nil
}

// run executes every check on a bounded pool. A failing check never cancels its siblings.
func (planner *Planner) run(ctx context.Context, l log.Logger, checks []*check) (*xsync.MapOf[string, *Decision], error) {
	results := xsync.NewMapOf[string, *Decision]()
	pool := worker.NewWorkerPool(planner.opts.Concurrency, worker.WithTaskTimeout(planner.opts.CheckTimeout))

	pool.Start()

	for _, c := range checks {
		pool.Submit(ctx, func(ctx context.Context) error {
			logger := l.WithField(log.FieldKeyPackage, c.pkg.Name).WithField(log.FieldKeyChannel, c.channel)
			started := time.Now()

			decision := decide(ctx, logger, planner.clients, c.channel, c.version, c.artifacts, c.changed)

			planner.telemeter.ObserveCheck(string(c.channel), string(decision.Status), time.Since(started))
			logger.Debugf("Version %s: %s", c.version, decision.Status)

			results.Store(c.key(), decision)

			return nil
		})
	}

	err := pool.GracefulStop()
	if err != nil {
		l.Warnf("Some registry checks did not complete: %v", err)
	}

	return results, err
}

// backfeedRegistries makes every transitive dependency of a package publishing its source to registries R
// publish to R as well, so the package can be resolved there.
func (planner *Planner) backfeedRegistries(l log.Logger, g *graph.Graph, plan *Plan, checks []*check) {
	extra := make(map[string][]string)

	for _, pkg := range g.Packages() {
		pkgPlan := plan.Package(pkg.Name)
		if pkgPlan == nil || pkgPlan.Filtered || !pkg.Declares(manifest.ChannelSource) {
			continue
		}

		registries := SourceRegistries(pkg)

		for _, dep := range g.TransitiveDependencies(pkg.Name) {
			if dep.Declares(manifest.ChannelSource) {
				extra[dep.Name] = append(extra[dep.Name], registries...)
			}
		}
	}

	for _, c := range checks {
		if c.channel != manifest.ChannelSource || len(extra[c.pkg.Name]) == 0 {
			continue
		}

		registries := append(slices.Clone(SourceRegistries(c.pkg)), extra[c.pkg.Name]...)
		slices.Sort(registries)
		registries = slices.Compact(registries)

		if len(registries) == len(SourceRegistries(c.pkg)) {
			continue
		}

		l.WithField(log.FieldKeyPackage, c.pkg.Name).Debugf("Publishing source to %v for its dependents", registries)

		// Source artifacts never fail to derive.
		c.artifacts, _ = Artifacts(c.pkg, c.channel, c.version, "", registries)
	}
}

func (planner *Planner) selected(name string) bool {
	if len(planner.include) > 0 && !slices.ContainsFunc(planner.include, func(g glob.Glob) bool { return g.Match(name) }) {
		return false
	}

	return !slices.ContainsFunc(planner.exclude, func(g glob.Glob) bool { return g.Match(name) })
}

func compileFilters(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))

	for _, pattern := range patterns {
		compiled, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.New(InvalidFilterError{Pattern: pattern, Err: err})
		}

		globs = append(globs, compiled)
	}

	return globs, nil
}
