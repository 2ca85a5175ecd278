// Package workspace discovers publishable packages in a repository and classifies each one as a standalone
// package, a workspace root or a workspace member.
package workspace

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-version"

	"github.com/relplan/relplan/internal/manifest"
)

// RootPath is the repo-relative path of the repository root.
const RootPath = "."

// Role is the role a package plays within its workspace.
type Role int

const (
	// RoleStandalone is a package that forms a workspace of its own.
	RoleStandalone Role = iota
	// RoleRoot is the package declared by a workspace manifest.
	RoleRoot
	// RoleMember is a package listed as a member by an enclosing workspace root.
	RoleMember
)

var roleNames = map[Role]string{
	RoleStandalone: "standalone",
	RoleRoot:       "root",
	RoleMember:     "member",
}

func (role Role) String() string {
	if name, ok := roleNames[role]; ok {
		return name
	}

	return fmt.Sprintf("role(%d)", int(role))
}

// MarshalText implements encoding.TextMarshaler.
func (role Role) MarshalText() ([]byte, error) {
	return []byte(role.String()), nil
}

// Package is a publishable unit discovered by the scanner. Packages are immutable once scanned.
type Package struct {
	Version      *version.Version
	Publish      *manifest.Publish
	Name         string
	Path         string
	Workspace    string
	Dependencies []manifest.Dependency
	Role         Role
	Excluded     bool
}

// RawVersion returns the declared version verbatim.
func (pkg *Package) RawVersion() string {
	return pkg.Version.Original()
}

// Channels returns the declared channels in canonical order.
func (pkg *Package) Channels() []manifest.Channel {
	return pkg.Publish.Channels()
}

// Declares reports whether the package declares the channel.
func (pkg *Package) Declares(channel manifest.Channel) bool {
	return pkg.Publish.Declares(channel)
}

// Workspace groups a root with its members. Root is nil for a virtual workspace.
type Workspace struct {
	Root    *Package
	Path    string
	Version string
	Members []*Package
}

// Virtual reports whether the workspace has no root package.
func (ws *Workspace) Virtual() bool {
	return ws.Root == nil
}

// Packages returns the root (if any) followed by the members.
func (ws *Workspace) Packages() []*Package {
	pkgs := make([]*Package, 0, len(ws.Members)+1)

	if ws.Root != nil {
		pkgs = append(pkgs, ws.Root)
	}

	return append(pkgs, ws.Members...)
}

// Result is the outcome of a scan. Packages and workspaces are ordered by path.
type Result struct {
	Dir        string
	Packages   []*Package
	Workspaces []*Workspace
	Errors     []*ScanError
}

// Package returns the package with the given name, or nil.
func (result *Result) Package(name string) *Package {
	idx := slices.IndexFunc(result.Packages, func(pkg *Package) bool {
		return pkg.Name == name
	})

	if idx < 0 {
		return nil
	}

	return result.Packages[idx]
}

// Names returns the package names in scan order.
func (result *Result) Names() []string {
	names := make([]string, len(result.Packages))

	for i, pkg := range result.Packages {
		names[i] = pkg.Name
	}

	return names
}
