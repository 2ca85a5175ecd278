// Package manifest decodes package manifests (`release.hcl`).
//
// A manifest may declare a `package` block, a `workspace` block, or both. A manifest with only a workspace block
// describes a virtual workspace: it groups members but publishes nothing itself.
//
//	package "foo" {
//	  version = workspace.version
//	}
//
//	workspace {
//	  version = "1.3.44"
//	  members = ["foo_member1", "crates/*"]
//	}
//
//	dependency "standalone" {}
//
//	publish {
//	  source {
//	    registries = ["internal"]
//	  }
//	  container {
//	    repository = "ghcr.io/acme"
//	  }
//	}
package manifest

import (
	"slices"
	"strings"

	"github.com/hashicorp/go-version"
)

// DefaultFilename is the manifest file looked up in every directory.
const DefaultFilename = "release.hcl"

// Channel identifies a distribution channel.
type Channel string

const (
	// ChannelSource is a source-package registry.
	ChannelSource Channel = "source"
	// ChannelContainer is a container image registry.
	ChannelContainer Channel = "container"
	// ChannelBinary is a blob-storage binary store.
	ChannelBinary Channel = "binary"
	// ChannelLanguage is a language-specific package registry.
	ChannelLanguage Channel = "language"
)

// AllChannels lists every supported channel in canonical order.
var AllChannels = []Channel{ChannelSource, ChannelContainer, ChannelBinary, ChannelLanguage}

// ParseChannel validates a channel name.
func ParseChannel(str string) (Channel, error) {
	channel := Channel(strings.ToLower(str))
	if slices.Contains(AllChannels, channel) {
		return channel, nil
	}

	return "", UnknownChannelError{Name: str}
}

// DependencyKind classifies a dependency edge.
type DependencyKind string

const (
	DependencyNormal DependencyKind = "normal"
	DependencyDev    DependencyKind = "dev"
	DependencyBuild  DependencyKind = "build"
)

// Dependency is a declared dependency on another package by name.
type Dependency struct {
	Name string
	Kind DependencyKind
}

// Package is the decoded package section of a manifest.
type Package struct {
	Name         string
	Version      *version.Version
	Dependencies []Dependency
	Publish      *Publish
}

// RawVersion returns the version exactly as written in the manifest.
func (pkg *Package) RawVersion() string {
	return pkg.Version.Original()
}

// Workspace is the decoded workspace section of a manifest.
type Workspace struct {
	Version string
	Members []string
	Exclude []string
	Publish *Publish
}

// Publish groups the per-channel publish configuration.
type Publish struct {
	Source    *SourceChannel    `hcl:"source,block"`
	Container *ContainerChannel `hcl:"container,block"`
	Binary    *BinaryChannel    `hcl:"binary,block"`
	Language  *LanguageChannel  `hcl:"language,block"`
}

// SourceChannel publishes the package source to one or more source registries.
type SourceChannel struct {
	Registries []string `hcl:"registries,optional" json:"registries,omitempty" yaml:"registries,omitempty"`
}

// ContainerChannel publishes a container image.
type ContainerChannel struct {
	Repository string `hcl:"repository,optional" json:"repository,omitempty" yaml:"repository,omitempty"`
	Image      string `hcl:"image,optional" json:"image,omitempty" yaml:"image,omitempty"`
}

// BinaryChannel uploads prebuilt binaries for each target to the binary store.
type BinaryChannel struct {
	Targets []string `hcl:"targets,optional" json:"targets,omitempty" yaml:"targets,omitempty"`
	Name    string   `hcl:"name,optional" json:"name,omitempty" yaml:"name,omitempty"`
}

// LanguageChannel publishes to a language-specific package registry.
type LanguageChannel struct {
	Scope string `hcl:"scope,optional" json:"scope,omitempty" yaml:"scope,omitempty"`
	Name  string `hcl:"name,optional" json:"name,omitempty" yaml:"name,omitempty"`
}

// Channels returns the declared channels in canonical order.
func (publish *Publish) Channels() []Channel {
	if publish == nil {
		return nil
	}

	var channels []Channel

	if publish.Source != nil {
		channels = append(channels, ChannelSource)
	}

	if publish.Container != nil {
		channels = append(channels, ChannelContainer)
	}

	if publish.Binary != nil {
		channels = append(channels, ChannelBinary)
	}

	if publish.Language != nil {
		channels = append(channels, ChannelLanguage)
	}

	return channels
}

// Declares reports whether the channel is declared.
func (publish *Publish) Declares(channel Channel) bool {
	return slices.Contains(publish.Channels(), channel)
}

// Clone returns a deep copy.
func (publish *Publish) Clone() *Publish {
	if publish == nil {
		return &Publish{}
	}

	clone := &Publish{}

	if publish.Source != nil {
		clone.Source = &SourceChannel{Registries: slices.Clone(publish.Source.Registries)}
	}

	if publish.Container != nil {
		container := *publish.Container
		clone.Container = &container
	}

	if publish.Binary != nil {
		clone.Binary = &BinaryChannel{Targets: slices.Clone(publish.Binary.Targets), Name: publish.Binary.Name}
	}

	if publish.Language != nil {
		language := *publish.Language
		clone.Language = &language
	}

	return clone
}
