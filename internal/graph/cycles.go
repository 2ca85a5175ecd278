package graph

import (
	"slices"
	"strings"

	"github.com/relplan/relplan/internal/manifest"
)

type tarjan struct {
	g       *Graph
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	cycles  [][]string
	next    int
}

// findCycles returns every strongly connected component with more than one member over non-dev edges.
// Members of each cycle are ordered by path, and cycles by their first member's path.
func (g *Graph) findCycles() [][]string {
	t := &tarjan{
		g:       g,
		index:   make(map[string]int, len(g.packages)),
		lowlink: make(map[string]int, len(g.packages)),
		onStack: make(map[string]bool, len(g.packages)),
	}

	for _, pkg := range g.packages {
		if _, visited := t.index[pkg.Name]; !visited {
			t.strongConnect(pkg.Name)
		}
	}

	path := func(name string) string { return g.byName[name].Path }

	for _, cycle := range t.cycles {
		slices.SortFunc(cycle, func(a, b string) int { return strings.Compare(path(a), path(b)) })
	}

	slices.SortFunc(t.cycles, func(a, b []string) int { return strings.Compare(path(a[0]), path(b[0])) })

	return t.cycles
}

func (t *tarjan) strongConnect(name string) {
	t.index[name] = t.next
	t.lowlink[name] = t.next
	t.next++

	t.stack = append(t.stack, name)
	t.onStack[name] = true

	for _, edge := range t.g.deps[name] {
		if edge.Kind == manifest.DependencyDev {
			continue
		}

		if _, visited := t.index[edge.To]; !visited {
			t.strongConnect(edge.To)
			t.lowlink[name] = min(t.lowlink[name], t.lowlink[edge.To])
		} else if t.onStack[edge.To] {
			t.lowlink[name] = min(t.lowlink[name], t.index[edge.To])
		}
	}

	if t.lowlink[name] != t.index[name] {
		return
	}

	var component []string

	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[top] = false

		component = append(component, top)

		if top == name {
			break
		}
	}

	if len(component) > 1 {
		t.cycles = append(t.cycles, component)
	}
}
