package policy

import (
	"context"
	"time"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/internal/registry"
	"github.com/relplan/relplan/internal/workspace"
	"github.com/relplan/relplan/pkg/log"
)

// Status summarizes a decision.
type Status string

const (
	// StatusPublish means the artifact is absent and must be published.
	StatusPublish Status = "publish"
	// StatusPublished means every artifact of the channel already exists.
	StatusPublished Status = "published"
	// StatusUnknown means the registry could not tell; the decision carries the error.
	StatusUnknown Status = "unknown"
	// StatusFiltered means the package was left out by an include or exclude filter, or by a tag naming another
	// package.
	StatusFiltered Status = "filtered"
)

// Decision is the publish decision of one package on one channel.
type Decision struct {
	// Err explains a StatusUnknown decision.
	Err error
	// AlreadyPublished is nil when the registry could not tell.
	AlreadyPublished *bool
	Channel          manifest.Channel
	Version          string
	Status           Status
	Artifacts        []Artifact
	// Missing lists the artifacts found absent.
	Missing       []Artifact
	ShouldPublish bool
	Changed       bool
}

// ErrorKind returns the stable kind of the decision's error, or an empty kind.
func (decision *Decision) ErrorKind() errors.Kind {
	return errors.KindOf(decision.Err)
}

func unknownDecision(channel manifest.Channel, version string, artifacts []Artifact, changed bool, err error) *Decision {
	return &Decision{
		Channel:   channel,
		Version:   version,
		Status:    StatusUnknown,
		Artifacts: artifacts,
		Changed:   changed,
		Err:       err,
	}
}

func filteredDecision(channel manifest.Channel, version string, changed bool) *Decision {
	return &Decision{
		Channel: channel,
		Version: version,
		Status:  StatusFiltered,
		Changed: changed,
	}
}

// decide queries the channel's registry for every artifact. The channel counts as published only when all of
// them exist. Any failure makes the whole decision unknown.
func decide(ctx context.Context, l log.Logger, clients *registry.Set, channel manifest.Channel, version string, artifacts []Artifact, changed bool) *Decision {
	decision := &Decision{
		Channel:   channel,
		Version:   version,
		Artifacts: artifacts,
		Changed:   changed,
	}

	for _, artifact := range artifacts {
		var (
			client registry.Client
			err    error
		)

		if channel == manifest.ChannelSource {
			client, err = clients.Source(artifact.Registry)
		} else {
			client, err = clients.Channel(channel)
		}

		if err != nil {
			return unknownDecision(channel, version, artifacts, changed, err)
		}

		exists, err := client.Exists(ctx, artifact.Name, artifact.Version)
		if err != nil {
			l.Debugf("Could not check %s: %v", artifact, err)

			return unknownDecision(channel, version, artifacts, changed, err)
		}

		if !exists {
			decision.Missing = append(decision.Missing, artifact)
		}
	}

	published := len(decision.Missing) == 0

	decision.AlreadyPublished = &published
	decision.ShouldPublish = !published

	if published {
		decision.Status = StatusPublished
	} else {
		decision.Status = StatusPublish
	}

	return decision
}

// Resolve computes the decision of every channel the package declares, one channel after the other. Excluded
// packages get no decisions, and a tag ref that does not name the package filters every channel. changed only
// annotates the decisions: an absent artifact is published whether or not the package changed, which covers
// version-bump-only commits and reruns after a partial failure.
func Resolve(ctx context.Context, l log.Logger, pkg *workspace.Package, changed bool, clients *registry.Set, opts Options) (map[manifest.Channel]*Decision, error) {
	if pkg.Excluded {
		return nil, nil
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	target := newRefTarget(opts.Ref, []string{pkg.Name})
	mode, releaseChannel := modeFor(pkg.Name, &opts, target)

	version, err := ResolveVersion(pkg, mode, opts.epoch(), now())
	if err != nil {
		return nil, err
	}

	decisions := make(map[manifest.Channel]*Decision, len(pkg.Channels()))

	if !target.covers(pkg.Name) {
		for _, channel := range pkg.Channels() {
			decisions[channel] = filteredDecision(channel, version, changed)
		}

		return decisions, nil
	}

	for _, channel := range pkg.Channels() {
		logger := l.WithField(log.FieldKeyPackage, pkg.Name).WithField(log.FieldKeyChannel, channel)

		artifacts, err := Artifacts(pkg, channel, version, releaseChannel, nil)
		if err != nil {
			decisions[channel] = unknownDecision(channel, version, nil, changed, err)
			continue
		}

		decisions[channel] = decide(ctx, logger, clients, channel, version, artifacts, changed)
	}

	return decisions, nil
}
