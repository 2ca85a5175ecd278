package manifest

import (
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/hashicorp/go-version"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/relplan/relplan/internal/errors"
)

const semverCoreParts = 3

// WorkspaceVars are exposed to package blocks as the `workspace` object.
type WorkspaceVars struct {
	Path    string
	Version string
}

// File is a syntactically valid manifest whose sections are decoded on demand.
type File struct {
	file *hcl.File

	Path         string
	HasPackage   bool
	HasWorkspace bool
}

type workspaceSection struct {
	Workspace *workspaceBlock `hcl:"workspace,block"`
	Remain    hcl.Body        `hcl:",remain"`
}

type workspaceBlock struct {
	Version *string  `hcl:"version,optional"`
	Publish *Publish `hcl:"publish,block"`
	Members []string `hcl:"members,optional"`
	Exclude []string `hcl:"exclude,optional"`
}

type packageSection struct {
	Package      *packageBlock     `hcl:"package,block"`
	Publish      *Publish          `hcl:"publish,block"`
	Remain       hcl.Body          `hcl:",remain"`
	Dependencies []dependencyBlock `hcl:"dependency,block"`
}

type packageBlock struct {
	Name    string `hcl:"name,label"`
	Version string `hcl:"version"`
}

type dependencyBlock struct {
	Kind *string `hcl:"kind,optional"`
	Name string  `hcl:"name,label"`
}

var sectionSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "package", LabelNames: []string{"name"}},
		{Type: "workspace"},
	},
}

// Parser parses manifest files. It is not safe for concurrent use.
type Parser struct {
	parser *hclparse.Parser
}

// NewParser returns a new Parser.
func NewParser() *Parser {
	return &Parser{parser: hclparse.NewParser()}
}

// ParseFile reads and parses the manifest at path.
func (parser *Parser) ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(ParseError{Path: path, Err: err})
	}

	return parser.ParseBytes(content, path)
}

// ParseBytes parses manifest content; path is used for diagnostics only.
func (parser *Parser) ParseBytes(content []byte, path string) (file *File, err error) {
	// hcl and cty conversions may panic on malformed input.
	defer errors.Recover(func(cause error) {
		file = nil
		err = errors.New(ParseError{Path: path, Err: cause})
	})

	hclFile, diags := parser.parser.ParseHCL(content, path)
	if diags.HasErrors() {
		return nil, errors.New(ParseError{Path: path, Err: diags})
	}

	sections, _, diags := hclFile.Body.PartialContent(sectionSchema)
	if diags.HasErrors() {
		return nil, errors.New(ParseError{Path: path, Err: diags})
	}

	file = &File{
		file: hclFile,
		Path: path,
	}

	for _, block := range sections.Blocks {
		switch block.Type {
		case "package":
			file.HasPackage = true
		case "workspace":
			file.HasWorkspace = true
		}
	}

	if !file.HasPackage && !file.HasWorkspace {
		return nil, errors.New(ParseError{Path: path, Err: ErrEmptyManifest})
	}

	return file, nil
}

// DecodeWorkspace decodes the workspace block. It returns nil if the manifest declares none.
func (file *File) DecodeWorkspace() (*Workspace, error) {
	if !file.HasWorkspace {
		return nil, nil
	}

	var section workspaceSection

	if diags := gohcl.DecodeBody(file.file.Body, nil, &section); diags.HasErrors() {
		return nil, errors.New(ParseError{Path: file.Path, Err: diags})
	}

	block := section.Workspace
	workspace := &Workspace{
		Members: block.Members,
		Exclude: block.Exclude,
		Publish: block.Publish,
	}

	if block.Version != nil {
		if _, err := ParseVersion(*block.Version); err != nil {
			return nil, errors.New(ParseError{Path: file.Path, Err: err})
		}

		workspace.Version = *block.Version
	}

	return workspace, nil
}

// DecodePackage decodes the package, dependency and publish blocks. vars, when not nil, is exposed as the
// `workspace` object. defaults are merged into the channels the package declares; package values win.
func (file *File) DecodePackage(vars *WorkspaceVars, defaults *Publish) (*Package, error) {
	if !file.HasPackage {
		return nil, errors.New(ParseError{Path: file.Path, Err: ErrNoPackageBlock})
	}

	var section packageSection

	if diags := gohcl.DecodeBody(file.file.Body, evalContext(vars), &section); diags.HasErrors() {
		return nil, errors.New(ParseError{Path: file.Path, Err: diags})
	}

	ver, err := ParseVersion(section.Package.Version)
	if err != nil {
		return nil, errors.New(ParseError{Path: file.Path, Err: err})
	}

	publish, err := mergePublish(section.Publish, defaults)
	if err != nil {
		return nil, errors.New(ParseError{Path: file.Path, Err: err})
	}

	pkg := &Package{
		Name:    section.Package.Name,
		Version: ver,
		Publish: publish,
	}

	if strings.TrimSpace(pkg.Name) == "" {
		return nil, errors.New(ParseError{Path: file.Path, Err: ErrEmptyPackageName})
	}

	for _, dep := range section.Dependencies {
		kind := DependencyNormal

		if dep.Kind != nil {
			kind = DependencyKind(*dep.Kind)
		}

		switch kind {
		case DependencyNormal, DependencyDev, DependencyBuild:
		default:
			return nil, errors.New(ParseError{Path: file.Path, Err: InvalidDependencyKindError{Dependency: dep.Name, Kind: string(kind)}})
		}

		pkg.Dependencies = append(pkg.Dependencies, Dependency{Name: dep.Name, Kind: kind})
	}

	return pkg, nil
}

// ParseVersion parses a semantic version with a mandatory major.minor.patch core.
func ParseVersion(raw string) (*version.Version, error) {
	core := raw
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}

	parts := strings.Split(core, ".")
	if len(parts) != semverCoreParts {
		return nil, InvalidVersionError{Version: raw}
	}

	for _, part := range parts {
		if part == "" || strings.Trim(part, "0123456789") != "" {
			return nil, InvalidVersionError{Version: raw}
		}
	}

	ver, err := version.NewSemver(raw)
	if err != nil {
		return nil, InvalidVersionError{Version: raw, Err: err}
	}

	return ver, nil
}

func evalContext(vars *WorkspaceVars) *hcl.EvalContext {
	if vars == nil {
		return &hcl.EvalContext{}
	}

	attrs := map[string]cty.Value{
		"path": cty.StringVal(vars.Path),
	}

	if vars.Version != "" {
		attrs["version"] = cty.StringVal(vars.Version)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"workspace": cty.ObjectVal(attrs),
		},
	}
}

func mergePublish(publish, defaults *Publish) (*Publish, error) {
	merged := publish.Clone()

	if defaults == nil {
		return merged, nil
	}

	defaults = defaults.Clone()

	pairs := []struct {
		dst, src any
		ok       bool
	}{
		{merged.Source, defaults.Source, merged.Source != nil && defaults.Source != nil},
		{merged.Container, defaults.Container, merged.Container != nil && defaults.Container != nil},
		{merged.Binary, defaults.Binary, merged.Binary != nil && defaults.Binary != nil},
		{merged.Language, defaults.Language, merged.Language != nil && defaults.Language != nil},
	}

	for _, pair := range pairs {
		if !pair.ok {
			continue
		}

		if err := mergo.Merge(pair.dst, pair.src); err != nil {
			return nil, err
		}
	}

	return merged, nil
}
