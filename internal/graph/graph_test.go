package graph_test

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/graph"
	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/internal/workspace"
	"github.com/relplan/relplan/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPackage(name, path string, deps ...string) *workspace.Package {
	pkg := &workspace.Package{
		Name:      name,
		Path:      path,
		Workspace: path,
		Version:   version.Must(version.NewSemver("1.0.0")),
		Publish:   &manifest.Publish{},
	}

	for _, dep := range deps {
		kind := manifest.DependencyNormal
		if dep[0] == '~' {
			dep, kind = dep[1:], manifest.DependencyDev
		}

		pkg.Dependencies = append(pkg.Dependencies, manifest.Dependency{Name: dep, Kind: kind})
	}

	return pkg
}

func names(pkgs []*workspace.Package) []string {
	out := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		out[i] = pkg.Name
	}

	return out
}

func TestBuildDropsExternalDependencies(t *testing.T) {
	t.Parallel()

	pkgs := []*workspace.Package{
		newPackage("app", "app", "lib", "serde", "app"),
		newPackage("lib", "lib"),
	}

	g, err := graph.Build(log.Discard(), pkgs, graph.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"lib"}, names(g.Dependencies("app")))
	assert.Equal(t, []string{"app"}, names(g.Dependents("lib")))
	assert.Empty(t, g.Dependencies("lib"))
	assert.Equal(t, []string{"lib", "app"}, names(g.Order()))
	assert.Equal(t, 0, g.Position("lib"))
	assert.Equal(t, 1, g.Position("app"))
	assert.Equal(t, -1, g.Position("serde"))
	assert.Equal(t, "lib", g.PackageByPath("lib").Name)
}

func TestBuildDependenciesCrossWorkspaces(t *testing.T) {
	t.Parallel()

	member := newPackage("foo_member1", "foo/foo_member1", "standalone")
	member.Workspace = "foo"

	pkgs := []*workspace.Package{
		newPackage("foo", "foo"),
		member,
		newPackage("standalone", "standalone"),
	}

	g, err := graph.Build(log.Discard(), pkgs, graph.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"standalone"}, names(g.Dependencies("foo_member1")))
	assert.Equal(t, []string{"foo", "standalone", "foo_member1"}, names(g.Order()))
}

func TestTopologicalOrderTieBreaksByPath(t *testing.T) {
	t.Parallel()

	pkgs := []*workspace.Package{
		newPackage("zeta", "a/zeta"),
		newPackage("alpha", "z/alpha"),
		newPackage("mid", "m/mid", "alpha", "zeta"),
		newPackage("top", "b/top", "mid"),
	}

	g, err := graph.Build(log.Discard(), pkgs, graph.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid", "top"}, names(g.Order()))

	for _, pkg := range g.Order() {
		for _, dep := range g.Dependencies(pkg.Name) {
			assert.Less(t, g.Position(dep.Name), g.Position(pkg.Name))
		}
	}
}

func TestBuildReportsEveryCycleMember(t *testing.T) {
	t.Parallel()

	pkgs := []*workspace.Package{
		newPackage("a", "a", "b"),
		newPackage("b", "b", "c"),
		newPackage("c", "c", "a"),
		newPackage("d", "d", "e"),
		newPackage("e", "e", "d"),
		newPackage("ok", "ok", "a"),
	}

	_, err := graph.Build(log.Discard(), pkgs, graph.Options{})
	require.Error(t, err)

	var cycleErr graph.CyclicDependencyError
	require.ErrorAs(t, err, &cycleErr)

	assert.Equal(t, [][]string{{"a", "b", "c"}, {"d", "e"}}, cycleErr.Cycles)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, cycleErr.Members())
	assert.Equal(t, errors.KindCyclicDependency, errors.KindOf(err))
	assert.Equal(t, errors.ExitCodeCyclicDependency, errors.ExitCode(err))
	assert.Contains(t, err.Error(), "[a, b, c]")
}

func TestDevDependencyCyclesAreTolerated(t *testing.T) {
	t.Parallel()

	pkgs := []*workspace.Package{
		newPackage("core", "core", "~testkit"),
		newPackage("testkit", "testkit", "core"),
	}

	g, err := graph.Build(log.Discard(), pkgs, graph.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "testkit"}, names(g.Order()))
	assert.Equal(t, []string{"testkit"}, names(g.Dependencies("core")))

	g, err = graph.Build(log.Discard(), pkgs, graph.Options{IgnoreDevDependencies: true})
	require.NoError(t, err)
	assert.Empty(t, g.Dependencies("core"))
}

func TestReverseClosure(t *testing.T) {
	t.Parallel()

	pkgs := []*workspace.Package{
		newPackage("base", "base"),
		newPackage("mid", "mid", "base"),
		newPackage("leaf", "leaf", "mid"),
		newPackage("other", "other"),
	}

	g, err := graph.Build(log.Discard(), pkgs, graph.Options{})
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"base": true, "mid": true, "leaf": true}, g.ReverseClosure([]string{"base"}))
	assert.Equal(t, map[string]bool{"leaf": true}, g.ReverseClosure([]string{"leaf", "unknown"}))
	assert.Empty(t, g.ReverseClosure(nil))

	assert.Equal(t, []string{"base", "mid"}, names(g.TransitiveDependencies("leaf")))
}

func TestWriteDot(t *testing.T) {
	t.Parallel()

	excluded := newPackage("b", "b")
	excluded.Excluded = true

	g, err := graph.Build(log.Discard(), []*workspace.Package{newPackage("a", "a", "b"), excluded}, graph.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, g.WriteDot(&buf))

	assert.Equal(t, "digraph {\n\t\"b\" [color=red];\n\t\"a\";\n\t\"a\" -> \"b\";\n}\n", buf.String())
}
