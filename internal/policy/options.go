package policy

import (
	"time"

	"github.com/relplan/relplan/internal/worker"
)

// DefaultCheckTimeout bounds a single registry check, retries included.
const DefaultCheckTimeout = 2 * time.Minute

// Options configure version resolution and planning.
type Options struct {
	// Epoch is day zero of nightly versions. The zero value means DefaultEpoch.
	Epoch time.Time
	// Now is the clock; nil means time.Now.
	Now  func() time.Time
	Mode Mode
	// Ref is the git ref being built, used by ModeAuto and to derive release channels.
	Ref string
	// ReleaseChannel overrides the release channel derived from Ref.
	ReleaseChannel ReleaseChannel
	// Include and Exclude are package name globs. An empty Include selects every package.
	Include      []string
	Exclude      []string
	Concurrency  int
	CheckTimeout time.Duration
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Epoch:        DefaultEpoch,
		Now:          time.Now,
		Mode:         ModeAuto,
		Concurrency:  worker.DefaultMaxWorkers,
		CheckTimeout: DefaultCheckTimeout,
	}
}

func (opts *Options) epoch() time.Time {
	if opts.Epoch.IsZero() {
		return DefaultEpoch
	}

	return opts.Epoch
}
