package manifest

import (
	"fmt"

	"github.com/relplan/relplan/internal/errors"
)

var (
	ErrEmptyManifest    = errors.New("manifest declares neither a package nor a workspace block")
	ErrNoPackageBlock   = errors.New("manifest does not declare a package block")
	ErrEmptyPackageName = errors.New("package name must not be empty")
)

// ParseError is returned when a manifest cannot be read, parsed or validated.
type ParseError struct {
	Err  error
	Path string
}

func (err ParseError) Error() string {
	return fmt.Sprintf("invalid manifest %s: %v", err.Path, err.Err)
}

func (err ParseError) Unwrap() error {
	return err.Err
}

func (ParseError) Kind() errors.Kind {
	return errors.KindManifestParse
}

// InvalidVersionError is returned for versions that are not major.minor.patch semantic versions.
type InvalidVersionError struct {
	Err     error
	Version string
}

func (err InvalidVersionError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("invalid version %q: %v", err.Version, err.Err)
	}

	return fmt.Sprintf("invalid version %q: expected major.minor.patch with optional pre-release and build metadata", err.Version)
}

// InvalidDependencyKindError is returned for unknown dependency kinds.
type InvalidDependencyKindError struct {
	Dependency string
	Kind       string
}

func (err InvalidDependencyKindError) Error() string {
	return fmt.Sprintf("dependency %q has invalid kind %q, supported kinds: %s, %s, %s",
		err.Dependency, err.Kind, DependencyNormal, DependencyDev, DependencyBuild)
}

// UnknownChannelError is returned for unsupported channel names.
type UnknownChannelError struct {
	Name string
}

func (err UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown channel %q, supported channels: %v", err.Name, AllChannels)
}

func (UnknownChannelError) Kind() errors.Kind {
	return errors.KindConfig
}
