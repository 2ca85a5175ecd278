package policy

import (
	"strings"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/internal/registry"
	"github.com/relplan/relplan/internal/workspace"
)

// Artifact is one thing a channel publishes: a crate in one source registry, an image tag, a binary for one
// target or a language package.
type Artifact struct {
	// Registry names the source registry; empty for the other channels.
	Registry string `json:"registry,omitempty" yaml:"registry,omitempty"`
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version" yaml:"version"`
}

func (artifact Artifact) String() string {
	ref := artifact.Name + "@" + artifact.Version
	if artifact.Registry != "" {
		return artifact.Registry + ":" + ref
	}

	return ref
}

// SourceRegistries returns the source registries the package publishes to on its own, or the default registry
// when it names none.
func SourceRegistries(pkg *workspace.Package) []string {
	if !pkg.Declares(manifest.ChannelSource) || len(pkg.Publish.Source.Registries) == 0 {
		return []string{registry.DefaultSourceRegistry}
	}

	return pkg.Publish.Source.Registries
}

// Artifacts names every artifact of a channel. registries overrides the source registries of the package and is
// ignored by the other channels.
func Artifacts(pkg *workspace.Package, channel manifest.Channel, version string, releaseChannel ReleaseChannel, registries []string) ([]Artifact, error) {
	publish := pkg.Publish

	switch channel {
	case manifest.ChannelSource:
		if len(registries) == 0 {
			registries = SourceRegistries(pkg)
		}

		artifacts := make([]Artifact, 0, len(registries))

		for _, name := range registries {
			artifacts = append(artifacts, Artifact{Registry: name, Name: pkg.Name, Version: version})
		}

		return artifacts, nil
	case manifest.ChannelContainer:
		if publish.Container.Repository == "" {
			return nil, errors.New(ChannelConfigError{Package: pkg.Name, Channel: channel, Reason: "repository is required"})
		}

		image := publish.Container.Image
		if image == "" {
			image = pkg.Name
		}

		name := strings.TrimSuffix(publish.Container.Repository, "/") + "/" + image

		return []Artifact{{Name: name, Version: containerTag(version)}}, nil
	case manifest.ChannelBinary:
		if len(publish.Binary.Targets) == 0 {
			return nil, errors.New(ChannelConfigError{Package: pkg.Name, Channel: channel, Reason: "at least one target is required"})
		}

		artifacts := make([]Artifact, 0, len(publish.Binary.Targets))

		for _, target := range publish.Binary.Targets {
			artifacts = append(artifacts, Artifact{
				Name:    registry.BinaryName(pkg.Name, string(releaseChannel), target),
				Version: version,
			})
		}

		return artifacts, nil
	case manifest.ChannelLanguage:
		name := publish.Language.Name
		if name == "" {
			name = pkg.Name
		}

		if scope := strings.TrimPrefix(publish.Language.Scope, "@"); scope != "" {
			name = "@" + scope + "/" + name
		}

		return []Artifact{{Name: name, Version: version}}, nil
	}

	return nil, errors.New(manifest.UnknownChannelError{Name: string(channel)})
}

// containerTag turns a version into a valid image tag; build metadata separators are not allowed in tags.
func containerTag(version string) string {
	return strings.ReplaceAll(version, "+", "_")
}
