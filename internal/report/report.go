// Package report merges the outcome of a run into a single document and renders it.
//
// Assemble is a pure function: it never touches the file system or the network. The document carries a
// schema_version; consumers are expected to ignore fields they do not know.
package report

import (
	"slices"
	"time"

	"github.com/relplan/relplan/internal/change"
	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/graph"
	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/internal/policy"
	"github.com/relplan/relplan/internal/workspace"
)

// SchemaVersion is bumped whenever a field changes meaning or is removed.
const SchemaVersion = "1"

// WorkspaceReport is the document produced by a run.
type WorkspaceReport struct {
	GeneratedAt   *time.Time       `json:"generated_at,omitempty" yaml:"generated_at,omitempty"`
	Change        *ChangeReport    `json:"change,omitempty" yaml:"change,omitempty"`
	RunID         string           `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	SchemaVersion string           `json:"schema_version" yaml:"schema_version" jsonschema:"enum=1"`
	Workspaces    []WorkspaceEntry `json:"workspaces" yaml:"workspaces"`
	Packages      []PackageEntry   `json:"packages" yaml:"packages"`
	Errors        []ErrorEntry     `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// ChangeReport describes how changes were detected.
type ChangeReport struct {
	Mode          string   `json:"mode" yaml:"mode" jsonschema:"enum=diff,enum=all,enum=none"`
	BaseRef       string   `json:"base_ref,omitempty" yaml:"base_ref,omitempty"`
	HeadRef       string   `json:"head_ref,omitempty" yaml:"head_ref,omitempty"`
	BaseCommit    string   `json:"base_commit,omitempty" yaml:"base_commit,omitempty"`
	HeadCommit    string   `json:"head_commit,omitempty" yaml:"head_commit,omitempty"`
	GlobalTrigger string   `json:"global_trigger,omitempty" yaml:"global_trigger,omitempty"`
	Files         []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// WorkspaceEntry describes one workspace.
type WorkspaceEntry struct {
	Path    string   `json:"path" yaml:"path"`
	Root    string   `json:"root,omitempty" yaml:"root,omitempty"`
	Version string   `json:"version,omitempty" yaml:"version,omitempty"`
	Members []string `json:"members" yaml:"members"`
	Virtual bool     `json:"virtual" yaml:"virtual"`
}

// PackageEntry describes one package and its decisions.
type PackageEntry struct {
	Decisions           map[manifest.Channel]DecisionEntry `json:"decisions,omitempty" yaml:"decisions,omitempty"`
	Name                string                             `json:"name" yaml:"name"`
	Path                string                             `json:"path" yaml:"path"`
	Workspace           string                             `json:"workspace" yaml:"workspace"`
	Role                string                             `json:"role" yaml:"role" jsonschema:"enum=standalone,enum=root,enum=member"`
	DeclaredVersion     string                             `json:"declared_version" yaml:"declared_version"`
	Version             string                             `json:"version,omitempty" yaml:"version,omitempty"`
	Mode                string                             `json:"mode,omitempty" yaml:"mode,omitempty" jsonschema:"enum=release,enum=nightly"`
	ReleaseChannel      string                             `json:"release_channel,omitempty" yaml:"release_channel,omitempty"`
	FilterReason        string                             `json:"filter_reason,omitempty" yaml:"filter_reason,omitempty"`
	Dependencies        []string                           `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Position            int                                `json:"position" yaml:"position"`
	Excluded            bool                               `json:"excluded" yaml:"excluded"`
	Filtered            bool                               `json:"filtered,omitempty" yaml:"filtered,omitempty"`
	Changed             bool                               `json:"changed" yaml:"changed"`
	DirectlyChanged     bool                               `json:"directly_changed" yaml:"directly_changed"`
	DependenciesChanged bool                               `json:"dependencies_changed" yaml:"dependencies_changed"`
	ShouldPublish       bool                               `json:"should_publish" yaml:"should_publish"`
}

// DecisionEntry is the decision of one channel. AlreadyPublished is null when the registry could not tell.
type DecisionEntry struct {
	AlreadyPublished *bool             `json:"already_published" yaml:"already_published" jsonschema:"oneof_type=boolean;null"`
	Error            *ErrorEntry       `json:"error,omitempty" yaml:"error,omitempty"`
	Status           string            `json:"status" yaml:"status" jsonschema:"enum=publish,enum=published,enum=unknown,enum=filtered"`
	Version          string            `json:"version" yaml:"version"`
	Artifacts        []policy.Artifact `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Missing          []policy.Artifact `json:"missing,omitempty" yaml:"missing,omitempty"`
	ShouldPublish    bool              `json:"should_publish" yaml:"should_publish"`
}

// ErrorEntry is an error with its stable kind.
type ErrorEntry struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty"`
}

// Assemble merges the results of a run. Any of g, changeSet and plan may be nil when the corresponding phase did
// not run. Packages keep the scanner's order.
func Assemble(scan *workspace.Result, g *graph.Graph, changeSet *change.ChangeSet, plan *policy.Plan) *WorkspaceReport {
	report := &WorkspaceReport{
		SchemaVersion: SchemaVersion,
		Workspaces:    make([]WorkspaceEntry, 0, len(scan.Workspaces)),
		Packages:      make([]PackageEntry, 0, len(scan.Packages)),
	}

	if plan != nil {
		generatedAt := plan.GeneratedAt.UTC()
		report.GeneratedAt = &generatedAt
	}

	if changeSet != nil {
		report.Change = &ChangeReport{
			Mode:          string(changeSet.Mode),
			BaseRef:       changeSet.BaseRef,
			HeadRef:       changeSet.HeadRef,
			BaseCommit:    changeSet.BaseCommit,
			HeadCommit:    changeSet.HeadCommit,
			GlobalTrigger: changeSet.GlobalTrigger,
			Files:         slices.Clone(changeSet.Files),
		}
	}

	for _, ws := range scan.Workspaces {
		entry := WorkspaceEntry{
			Path:    ws.Path,
			Version: ws.Version,
			Virtual: ws.Virtual(),
			Members: make([]string, 0, len(ws.Members)),
		}

		if ws.Root != nil {
			entry.Root = ws.Root.Name
		}

		for _, member := range ws.Members {
			entry.Members = append(entry.Members, member.Name)
		}

		report.Workspaces = append(report.Workspaces, entry)
	}

	for _, scanErr := range scan.Errors {
		report.Errors = append(report.Errors, ErrorEntry{
			Kind:    string(errors.KindOf(scanErr)),
			Message: scanErr.Error(),
			Path:    scanErr.Path,
		})
	}

	for _, pkg := range scan.Packages {
		entry := packageEntry(pkg, g, changeSet)

		if pkgPlan := plan.Package(pkg.Name); pkgPlan != nil {
			entry.Version = pkgPlan.Version
			entry.Mode = string(pkgPlan.Mode)
			entry.ReleaseChannel = string(pkgPlan.ReleaseChannel)
			entry.Filtered = pkgPlan.Filtered
			entry.FilterReason = pkgPlan.FilterReason
			entry.ShouldPublish = pkgPlan.ShouldPublish()
			entry.Decisions = make(map[manifest.Channel]DecisionEntry, len(pkgPlan.Decisions))

			for _, channel := range pkgPlan.Channels() {
				decision := pkgPlan.Decisions[channel]
				entry.Decisions[channel] = decisionEntry(decision)

				if decision.Err != nil {
					report.Errors = append(report.Errors, ErrorEntry{
						Kind:    string(decision.ErrorKind()),
						Message: decision.Err.Error(),
						Package: pkg.Name,
						Channel: string(channel),
					})
				}
			}
		}

		report.Packages = append(report.Packages, entry)
	}

	return report
}

func packageEntry(pkg *workspace.Package, g *graph.Graph, changeSet *change.ChangeSet) PackageEntry {
	entry := PackageEntry{
		Name:                pkg.Name,
		Path:                pkg.Path,
		Workspace:           pkg.Workspace,
		Role:                pkg.Role.String(),
		DeclaredVersion:     pkg.RawVersion(),
		Position:            -1,
		Excluded:            pkg.Excluded,
		Changed:             changeSet.IsAffected(pkg.Name),
		DirectlyChanged:     changeSet.IsDirect(pkg.Name),
		DependenciesChanged: changeSet.IsAffected(pkg.Name) && !changeSet.IsDirect(pkg.Name),
	}

	if g != nil {
		entry.Position = g.Position(pkg.Name)

		for _, dep := range g.Dependencies(pkg.Name) {
			entry.Dependencies = append(entry.Dependencies, dep.Name)
		}
	}

	return entry
}

func decisionEntry(decision *policy.Decision) DecisionEntry {
	entry := DecisionEntry{
		AlreadyPublished: decision.AlreadyPublished,
		Status:           string(decision.Status),
		Version:          decision.Version,
		Artifacts:        decision.Artifacts,
		Missing:          decision.Missing,
		ShouldPublish:    decision.ShouldPublish,
	}

	if decision.Err != nil {
		entry.Error = &ErrorEntry{
			Kind:    string(decision.ErrorKind()),
			Message: decision.Err.Error(),
		}
	}

	return entry
}

// Package returns the entry of the named package, or nil.
func (report *WorkspaceReport) Package(name string) *PackageEntry {
	for i := range report.Packages {
		if report.Packages[i].Name == name {
			return &report.Packages[i]
		}
	}

	return nil
}

// Names returns the package names in report order.
func (report *WorkspaceReport) Names() []string {
	names := make([]string, len(report.Packages))

	for i := range report.Packages {
		names[i] = report.Packages[i].Name
	}

	return names
}

// ErrorKinds returns the distinct error kinds in the report.
func (report *WorkspaceReport) ErrorKinds() []errors.Kind {
	var kinds []errors.Kind

	for _, entry := range report.Errors {
		if kind := errors.Kind(entry.Kind); !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}

	return kinds
}
