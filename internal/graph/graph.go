// Package graph builds the dependency graph between scanned packages.
//
// Edges point from a package to the packages it depends on. Dependencies are resolved by name against every
// scanned package regardless of workspace boundaries; names that match no package refer to something outside
// the repository and are dropped. The graph is read-only once built.
package graph

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/internal/workspace"
	"github.com/relplan/relplan/pkg/log"
)

// Options configure graph construction.
type Options struct {
	// IgnoreDevDependencies drops dev dependency edges entirely.
	IgnoreDevDependencies bool
}

// Edge is a dependency of From on To.
type Edge struct {
	From string
	To   string
	Kind manifest.DependencyKind
}

// Graph is a directed acyclic graph over packages.
type Graph struct {
	byName     map[string]*workspace.Package
	byPath     map[string]*workspace.Package
	deps       map[string][]Edge
	dependents map[string][]Edge
	position   map[string]int
	packages   []*workspace.Package
	order      []*workspace.Package
}

// Build constructs the graph. It fails with CyclicDependencyError if the non-dev edges contain a cycle.
func Build(l log.Logger, pkgs []*workspace.Package, opts Options) (*Graph, error) {
	g := &Graph{
		byName:     make(map[string]*workspace.Package, len(pkgs)),
		byPath:     make(map[string]*workspace.Package, len(pkgs)),
		deps:       make(map[string][]Edge, len(pkgs)),
		dependents: make(map[string][]Edge, len(pkgs)),
		packages:   slices.Clone(pkgs),
	}

	for _, pkg := range pkgs {
		g.byName[pkg.Name] = pkg
		g.byPath[pkg.Path] = pkg
	}

	for _, pkg := range pkgs {
		for _, dep := range pkg.Dependencies {
			if dep.Name == pkg.Name {
				continue
			}

			if opts.IgnoreDevDependencies && dep.Kind == manifest.DependencyDev {
				continue
			}

			target, ok := g.byName[dep.Name]
			if !ok {
				l.WithField(log.FieldKeyPackage, pkg.Name).Tracef("Dependency %s is not part of the repository", dep.Name)
				continue
			}

			g.addEdge(Edge{From: pkg.Name, To: target.Name, Kind: dep.Kind})
		}
	}

	for name := range g.deps {
		g.sortEdges(g.deps[name], func(edge Edge) string { return edge.To })
	}

	for name := range g.dependents {
		g.sortEdges(g.dependents[name], func(edge Edge) string { return edge.From })
	}

	if cycles := g.findCycles(); len(cycles) > 0 {
		return nil, errors.New(CyclicDependencyError{Cycles: cycles})
	}

	g.order = g.topologicalOrder()
	g.position = make(map[string]int, len(g.order))

	for i, pkg := range g.order {
		g.position[pkg.Name] = i
	}

	return g, nil
}

// addEdge records an edge; a repeated dependency keeps the strongest kind.
func (g *Graph) addEdge(edge Edge) {
	for i, existing := range g.deps[edge.From] {
		if existing.To != edge.To {
			continue
		}

		if existing.Kind == manifest.DependencyDev && edge.Kind != manifest.DependencyDev {
			g.deps[edge.From][i].Kind = edge.Kind

			for j, incoming := range g.dependents[edge.To] {
				if incoming.From == edge.From {
					g.dependents[edge.To][j].Kind = edge.Kind
				}
			}
		}

		return
	}

	g.deps[edge.From] = append(g.deps[edge.From], edge)
	g.dependents[edge.To] = append(g.dependents[edge.To], edge)
}

func (g *Graph) sortEdges(edges []Edge, endpoint func(Edge) string) {
	slices.SortFunc(edges, func(a, b Edge) int {
		return strings.Compare(g.byName[endpoint(a)].Path, g.byName[endpoint(b)].Path)
	})
}

// Packages returns every package in scan order.
func (g *Graph) Packages() []*workspace.Package {
	return g.packages
}

// Package returns the package with the given name, or nil.
func (g *Graph) Package(name string) *workspace.Package {
	return g.byName[name]
}

// PackageByPath returns the package at the repo-relative path, or nil.
func (g *Graph) PackageByPath(path string) *workspace.Package {
	return g.byPath[path]
}

// Order returns the packages in topological order, dependencies first.
func (g *Graph) Order() []*workspace.Package {
	return g.order
}

// Position returns the index of the package in the topological order, or -1.
func (g *Graph) Position(name string) int {
	if pos, ok := g.position[name]; ok {
		return pos
	}

	return -1
}

// Edges returns the outgoing edges of the package ordered by target path.
func (g *Graph) Edges(name string) []Edge {
	return g.deps[name]
}

// Dependencies returns the packages the named package depends on directly.
func (g *Graph) Dependencies(name string) []*workspace.Package {
	return g.endpoints(g.deps[name], func(edge Edge) string { return edge.To })
}

// Dependents returns the packages that depend directly on the named package.
func (g *Graph) Dependents(name string) []*workspace.Package {
	return g.endpoints(g.dependents[name], func(edge Edge) string { return edge.From })
}

// TransitiveDependencies returns every package reachable from the named package over non-dev edges,
// in topological order.
func (g *Graph) TransitiveDependencies(name string) []*workspace.Package {
	seen := map[string]bool{name: true}
	queue := []string{name}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range g.deps[current] {
			if edge.Kind == manifest.DependencyDev || seen[edge.To] {
				continue
			}

			seen[edge.To] = true
			queue = append(queue, edge.To)
		}
	}

	var pkgs []*workspace.Package

	for _, pkg := range g.order {
		if pkg.Name != name && seen[pkg.Name] {
			pkgs = append(pkgs, pkg)
		}
	}

	return pkgs
}

// ReverseClosure returns the seeds plus every package that depends on any of them, directly or transitively.
// It runs a single breadth-first search over reverse edges, so each package and edge is visited once.
func (g *Graph) ReverseClosure(seeds []string) map[string]bool {
	closure := make(map[string]bool, len(seeds))
	queue := make([]string, 0, len(seeds))

	for _, seed := range seeds {
		if _, ok := g.byName[seed]; ok && !closure[seed] {
			closure[seed] = true
			queue = append(queue, seed)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range g.dependents[current] {
			if closure[edge.From] {
				continue
			}

			closure[edge.From] = true
			queue = append(queue, edge.From)
		}
	}

	return closure
}

// WriteDot emits a GraphViz definition of the graph. Excluded packages are drawn in red and dev edges dashed.
func (g *Graph) WriteDot(w io.Writer) error {
	if _, err := io.WriteString(w, "digraph {\n"); err != nil {
		return errors.New(err)
	}

	for _, pkg := range g.order {
		style := ""
		if pkg.Excluded {
			style = " [color=red]"
		}

		if _, err := fmt.Fprintf(w, "\t%q%s;\n", pkg.Name, style); err != nil {
			return errors.New(err)
		}

		for _, edge := range g.deps[pkg.Name] {
			edgeStyle := ""
			if edge.Kind == manifest.DependencyDev {
				edgeStyle = " [style=dashed]"
			}

			if _, err := fmt.Fprintf(w, "\t%q -> %q%s;\n", edge.From, edge.To, edgeStyle); err != nil {
				return errors.New(err)
			}
		}
	}

	if _, err := io.WriteString(w, "}\n"); err != nil {
		return errors.New(err)
	}

	return nil
}

func (g *Graph) endpoints(edges []Edge, endpoint func(Edge) string) []*workspace.Package {
	pkgs := make([]*workspace.Package, 0, len(edges))

	for _, edge := range edges {
		pkgs = append(pkgs, g.byName[endpoint(edge)])
	}

	return pkgs
}
