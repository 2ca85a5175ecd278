package graph

import (
	"slices"
	"strings"

	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/internal/workspace"
)

// topologicalOrder runs Kahn's algorithm over non-dev edges. Among packages whose dependencies are all placed,
// the one with the lexicographically smallest path goes first, which makes the order reproducible.
func (g *Graph) topologicalOrder() []*workspace.Package {
	remaining := make(map[string]int, len(g.packages))

	var ready []*workspace.Package

	for _, pkg := range g.packages {
		for _, edge := range g.deps[pkg.Name] {
			if edge.Kind != manifest.DependencyDev {
				remaining[pkg.Name]++
			}
		}

		if remaining[pkg.Name] == 0 {
			ready = insertByPath(ready, pkg)
		}
	}

	order := make([]*workspace.Package, 0, len(g.packages))

	for len(ready) > 0 {
		pkg := ready[0]
		ready = ready[1:]

		order = append(order, pkg)

		for _, edge := range g.dependents[pkg.Name] {
			if edge.Kind == manifest.DependencyDev {
				continue
			}

			remaining[edge.From]--
			if remaining[edge.From] == 0 {
				ready = insertByPath(ready, g.byName[edge.From])
			}
		}
	}

	return order
}

func insertByPath(pkgs []*workspace.Package, pkg *workspace.Package) []*workspace.Package {
	idx, _ := slices.BinarySearchFunc(pkgs, pkg.Path, func(elem *workspace.Package, target string) int {
		return strings.Compare(elem.Path, target)
	})

	return slices.Insert(pkgs, idx, pkg)
}
