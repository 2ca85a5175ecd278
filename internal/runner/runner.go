// Package runner chains the phases of a run: scan, graph, change detection, planning and report assembly.
//
// Structural failures (an unreadable directory, a dependency cycle, a missing revision) abort the run. Per item
// failures ride in the report, and only turn into a non-zero exit status when the options ask for it.
package runner

import (
	"context"

	"github.com/google/uuid"

	"github.com/relplan/relplan/internal/change"
	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/git"
	"github.com/relplan/relplan/internal/graph"
	"github.com/relplan/relplan/internal/policy"
	"github.com/relplan/relplan/internal/registry"
	"github.com/relplan/relplan/internal/report"
	"github.com/relplan/relplan/internal/telemetry"
	"github.com/relplan/relplan/internal/workspace"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/pkg/options"
)

// Phase names, used as span names and metric labels.
const (
	PhaseScan   = "scan"
	PhaseGraph  = "graph"
	PhaseChange = "change"
	PhasePlan   = "plan"
)

// Result holds the outcome of every phase that ran.
type Result struct {
	RunID     string
	Scan      *workspace.Result
	Graph     *graph.Graph
	ChangeSet *change.ChangeSet
	Plan      *policy.Plan
}

// Report assembles the report of the result.
func (result *Result) Report() *report.WorkspaceReport {
	doc := report.Assemble(result.Scan, result.Graph, result.ChangeSet, result.Plan)
	doc.RunID = result.RunID

	return doc
}

// Runner runs the phases with one set of options.
type Runner struct {
	runID     string
	opts      *options.ReleaseOptions
	telemeter *telemetry.Telemeter
	vcs       change.VCS
	clients   *registry.Set
}

// Option customizes a Runner.
type Option func(*Runner)

// WithVCS replaces the git CLI used for change detection.
func WithVCS(vcs change.VCS) Option {
	return func(r *Runner) {
		r.vcs = vcs
	}
}

// WithClients replaces the registry clients built from the config.
func WithClients(clients *registry.Set) Option {
	return func(r *Runner) {
		r.clients = clients
	}
}

// WithTelemeter records spans and metrics for every phase.
func WithTelemeter(telemeter *telemetry.Telemeter) Option {
	return func(r *Runner) {
		r.telemeter = telemeter
	}
}

// New returns a Runner. opts must be finalized.
func New(opts *options.ReleaseOptions, runnerOpts ...Option) *Runner {
	r := &Runner{opts: opts, runID: uuid.NewString()}

	for _, opt := range runnerOpts {
		opt(r)
	}

	return r
}

// Graph scans the working directory and builds the dependency graph.
func (r *Runner) Graph(ctx context.Context, l log.Logger) (*Result, error) {
	result := &Result{RunID: r.runID}

	l = r.logger(l)

	err := r.telemeter.Collect(ctx, PhaseScan, map[string]any{"dir": r.opts.WorkingDir, "run_id": r.runID}, func(ctx context.Context) error {
		scan, err := workspace.Scan(ctx, l, r.opts.WorkingDir, r.opts.ScanOptions())
		if err != nil {
			return err
		}

		for _, scanErr := range scan.Errors {
			l.WithField(log.FieldKeyPath, scanErr.Path).Warnf("Skipping manifest: %v", scanErr.Err)
		}

		result.Scan = scan

		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.telemeter.Collect(ctx, PhaseGraph, map[string]any{"packages": len(result.Scan.Packages)}, func(context.Context) error {
		g, err := graph.Build(l, result.Scan.Packages, r.opts.GraphOptions())
		if err != nil {
			return err
		}

		result.Graph = g

		return nil
	})
	if err != nil {
		return result, err
	}

	return result, nil
}

// Changes runs Graph followed by change detection.
func (r *Runner) Changes(ctx context.Context, l log.Logger) (*Result, error) {
	l = r.logger(l)

	result, err := r.Graph(ctx, l)
	if err != nil {
		return result, err
	}

	req := r.opts.ChangeRequest()

	err = r.telemeter.Collect(ctx, PhaseChange, map[string]any{"base_ref": req.BaseRef, "head_ref": req.HeadRef}, func(ctx context.Context) error {
		vcs, err := r.versionControl(req)
		if err != nil {
			return err
		}

		detector, err := change.NewDetector(vcs, r.opts.ChangeOptions())
		if err != nil {
			return err
		}

		changeSet, err := detector.Detect(ctx, l, result.Graph, req)
		if err != nil {
			return err
		}

		result.ChangeSet = changeSet

		return nil
	})
	if err != nil {
		return result, err
	}

	l.Debugf("Change mode %s: %d packages directly changed, %d affected", result.ChangeSet.Mode, len(result.ChangeSet.Direct), len(result.ChangeSet.Affected))

	return result, nil
}

// Plan runs every phase.
func (r *Runner) Plan(ctx context.Context, l log.Logger) (*Result, error) {
	l = r.logger(l)

	result, err := r.Changes(ctx, l)
	if err != nil {
		return result, err
	}

	policyOpts, err := r.opts.PolicyOptions()
	if err != nil {
		return result, err
	}

	err = r.telemeter.Collect(ctx, PhasePlan, map[string]any{"mode": string(policyOpts.Mode)}, func(ctx context.Context) error {
		clients, err := r.registryClients(ctx, l)
		if err != nil {
			return err
		}

		planner, err := policy.NewPlanner(clients, r.telemeter, policyOpts)
		if err != nil {
			return err
		}

		plan, err := planner.Plan(ctx, l, result.Graph, result.ChangeSet)
		if plan != nil {
			result.Plan = plan
		}

		return err
	})
	if err != nil {
		return result, err
	}

	r.observe(result)

	return result, nil
}

func (r *Runner) logger(l log.Logger) log.Logger {
	return l.WithField(log.FieldKeyRunID, r.runID)
}

// versionControl returns the VCS to diff with, or nil when the request never consults one.
func (r *Runner) versionControl(req change.Request) (change.VCS, error) {
	if r.vcs != nil || req.Skip || req.BaseRef == "" {
		return r.vcs, nil
	}

	runner, err := git.NewGitRunner()
	if err != nil {
		return nil, errors.New(err)
	}

	return runner.WithWorkDir(r.opts.WorkingDir), nil
}

func (r *Runner) registryClients(ctx context.Context, l log.Logger) (*registry.Set, error) {
	if r.clients != nil {
		return r.clients, nil
	}

	return registry.NewSet(ctx, l, r.opts.Registry, r.opts.Env)
}

func (r *Runner) observe(result *Result) {
	if r.telemeter == nil {
		return
	}

	summary := result.Report().Summarize()

	r.telemeter.ObservePackages("publish", summary.Publish)
	r.telemeter.ObservePackages("published", summary.Published)
	r.telemeter.ObservePackages("unknown", summary.Unknown)
	r.telemeter.ObservePackages("filtered", summary.Filtered)
	r.telemeter.ObservePackages("excluded", summary.Excluded)
}

// Check turns per-item failures into an error when the options ask for it. Scan errors are checked first.
func (r *Runner) Check(result *Result) error {
	if r.opts.FailOnScanError && result.Scan != nil && len(result.Scan.Errors) > 0 {
		return errors.New(errors.ErrorWithExitCode{
			Err:      ScanErrorsError{Count: len(result.Scan.Errors)},
			ExitCode: errors.ExitCodeScanErrors,
		})
	}

	if r.opts.FailOnUnavailable && result.Plan != nil {
		if misconfigured := result.Plan.Unknown(errors.KindConfig); misconfigured > 0 {
			return errors.New(MisconfiguredDecisionsError{Count: misconfigured})
		}

		if unknown := result.Plan.Unknown(); unknown > 0 {
			return errors.New(errors.ErrorWithExitCode{
				Err:      UnavailableDecisionsError{Count: unknown},
				ExitCode: errors.ExitCodeRegistryUnavailable,
			})
		}
	}

	return nil
}
