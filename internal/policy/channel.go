package policy

import (
	"strings"

	"github.com/relplan/relplan/internal/errors"
)

// ReleaseChannel labels the audience of a build. It is part of binary store keys.
type ReleaseChannel string

const (
	ReleaseNightly ReleaseChannel = "nightly"
	ReleaseAlpha   ReleaseChannel = "alpha"
	ReleaseBeta    ReleaseChannel = "beta"
	ReleaseProd    ReleaseChannel = "prod"
	ReleaseRelease ReleaseChannel = "release"
)

// AllReleaseChannels lists every release channel.
var AllReleaseChannels = []ReleaseChannel{ReleaseNightly, ReleaseAlpha, ReleaseBeta, ReleaseProd, ReleaseRelease}

const tagRefPrefix = "refs/tags/"

// ParseReleaseChannel validates a release channel label. An empty label is returned unchanged.
func ParseReleaseChannel(str string) (ReleaseChannel, error) {
	if str == "" {
		return "", nil
	}

	channel := ReleaseChannel(strings.ToLower(str))

	for _, known := range AllReleaseChannels {
		if channel == known {
			return channel, nil
		}
	}

	return "", errors.New(InvalidReleaseChannelError{Channel: str})
}

// ReleaseChannelFromRef derives the release channel of pkg from the git ref being built. Tags named
// "<pkg>-alpha…", "<pkg>-beta…" and "<pkg>-prod…" select the matching channel, a tag "<pkg>-<version>" selects
// release, and anything else is a nightly build. Callers holding several package names should first pick the
// package the tag names with TaggedPackage, since "foo-beta-lib-1.0.0" reads as a beta of "foo" here.
func ReleaseChannelFromRef(pkg, ref string) ReleaseChannel {
	tag, ok := strings.CutPrefix(ref, tagRefPrefix)
	if !ok {
		return ReleaseNightly
	}

	rest, ok := strings.CutPrefix(tag, pkg+"-")
	if !ok {
		return ReleaseNightly
	}

	switch {
	case strings.HasPrefix(rest, string(ReleaseAlpha)):
		return ReleaseAlpha
	case strings.HasPrefix(rest, string(ReleaseBeta)):
		return ReleaseBeta
	case strings.HasPrefix(rest, string(ReleaseProd)):
		return ReleaseProd
	case startsWithVersion(rest):
		return ReleaseRelease
	default:
		return ReleaseNightly
	}
}

// TaggedPackage returns the package a tag ref names: the longest of names the tag starts with, followed by "-".
// isTag is false when ref is not a tag; pkg is empty when the tag names none of names.
func TaggedPackage(ref string, names []string) (pkg string, isTag bool) {
	tag, ok := strings.CutPrefix(ref, tagRefPrefix)
	if !ok {
		return "", false
	}

	for _, name := range names {
		if len(name) > len(pkg) && strings.HasPrefix(tag, name+"-") {
			pkg = name
		}
	}

	return pkg, true
}

func startsWithVersion(str string) bool {
	str = strings.TrimPrefix(str, "v")

	return str != "" && str[0] >= '0' && str[0] <= '9'
}

// Launchers and installers are released with the package they wrap.
var counterpartSuffixes = []string{"_launcher", "_installer"}

// refTarget is what the ref being built selects.
type refTarget struct {
	ref   string
	pkg   string
	isTag bool
}

func newRefTarget(ref string, names []string) refTarget {
	pkg, isTag := TaggedPackage(ref, names)

	return refTarget{ref: ref, pkg: pkg, isTag: isTag}
}

// covers reports whether the build may publish pkg: every package on a branch build, only the tagged package and
// its launcher and installer on a tag build.
func (target refTarget) covers(pkg string) bool {
	if !target.isTag {
		return true
	}

	if target.pkg == "" {
		return false
	}

	if pkg == target.pkg {
		return true
	}

	for _, suffix := range counterpartSuffixes {
		if base, ok := strings.CutSuffix(pkg, suffix); ok && base == target.pkg {
			return true
		}
	}

	return false
}

// reason explains why covers rejected a package.
func (target refTarget) reason() string {
	if target.pkg == "" {
		return "tag " + strings.TrimPrefix(target.ref, tagRefPrefix) + " names no package"
	}

	return "tag " + strings.TrimPrefix(target.ref, tagRefPrefix) + " releases " + target.pkg
}

// modeFor resolves the effective mode and release channel of one package.
func modeFor(pkg string, opts *Options, target refTarget) (Mode, ReleaseChannel) {
	channel := opts.ReleaseChannel
	if channel == "" {
		channel = ReleaseNightly

		if target.isTag && target.covers(pkg) {
			channel = ReleaseChannelFromRef(target.pkg, opts.Ref)
		}
	}

	switch opts.Mode {
	case ModeNightly:
		return ModeNightly, ReleaseNightly
	case ModeRelease:
		if channel == ReleaseNightly {
			channel = ReleaseRelease
		}

		return ModeRelease, channel
	case ModeAuto:
	}

	if channel == ReleaseNightly {
		return ModeNightly, channel
	}

	return ModeRelease, channel
}
