package change

import (
	"github.com/relplan/relplan/internal/graph"
)

// ChangeSet is the outcome of change detection. Package names are listed in scan order.
type ChangeSet struct {
	direct   map[string]bool
	affected map[string]bool

	Mode          Mode
	BaseRef       string
	HeadRef       string
	BaseCommit    string
	HeadCommit    string
	GlobalTrigger string

	Files []string
	// Direct lists the packages owning at least one changed file.
	Direct []string
	// Affected lists Direct plus every package depending on one of them, directly or transitively.
	Affected []string
	// DependenciesChanged lists the packages affected only through their dependencies.
	DependenciesChanged []string
}

func newChangeSet(mode Mode, g *graph.Graph, direct []string) *ChangeSet {
	changeSet := &ChangeSet{
		Mode:     mode,
		direct:   make(map[string]bool, len(direct)),
		affected: g.ReverseClosure(direct),
	}

	for _, name := range direct {
		changeSet.direct[name] = true
	}

	for _, pkg := range g.Packages() {
		switch {
		case changeSet.direct[pkg.Name]:
			changeSet.Direct = append(changeSet.Direct, pkg.Name)
			changeSet.Affected = append(changeSet.Affected, pkg.Name)
		case changeSet.affected[pkg.Name]:
			changeSet.Affected = append(changeSet.Affected, pkg.Name)
			changeSet.DependenciesChanged = append(changeSet.DependenciesChanged, pkg.Name)
		}
	}

	return changeSet
}

// IsDirect reports whether the package owns a changed file.
func (changeSet *ChangeSet) IsDirect(name string) bool {
	return changeSet != nil && changeSet.direct[name]
}

// IsAffected reports whether the package or one of its dependencies changed.
func (changeSet *ChangeSet) IsAffected(name string) bool {
	return changeSet != nil && changeSet.affected[name]
}
