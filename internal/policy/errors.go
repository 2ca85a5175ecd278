package policy

import (
	"fmt"
	"time"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/manifest"
)

// InvalidModeError is returned for an unknown version mode.
type InvalidModeError struct {
	Mode string
}

func (err InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q, supported modes: %s, %s, %s", err.Mode, ModeAuto, ModeRelease, ModeNightly)
}

func (InvalidModeError) Kind() errors.Kind {
	return errors.KindConfig
}

// InvalidReleaseChannelError is returned for an unknown release channel label.
type InvalidReleaseChannelError struct {
	Channel string
}

func (err InvalidReleaseChannelError) Error() string {
	return fmt.Sprintf("invalid release channel %q, supported channels: %v", err.Channel, AllReleaseChannels)
}

func (InvalidReleaseChannelError) Kind() errors.Kind {
	return errors.KindConfig
}

// ClockBeforeEpochError is returned when a nightly version is requested before the nightly epoch.
type ClockBeforeEpochError struct {
	Now   time.Time
	Epoch time.Time
}

func (err ClockBeforeEpochError) Error() string {
	return fmt.Sprintf("current time %s is before the nightly epoch %s", err.Now.Format(time.RFC3339), err.Epoch.Format(time.RFC3339))
}

func (ClockBeforeEpochError) Kind() errors.Kind {
	return errors.KindConfig
}

// ChannelConfigError is returned when a declared channel lacks what is needed to name its artifact.
type ChannelConfigError struct {
	Package string
	Channel manifest.Channel
	Reason  string
}

func (err ChannelConfigError) Error() string {
	return fmt.Sprintf("package %s: %s channel: %s", err.Package, err.Channel, err.Reason)
}

func (ChannelConfigError) Kind() errors.Kind {
	return errors.KindConfig
}

// InvalidFilterError is returned for a malformed include or exclude pattern.
type InvalidFilterError struct {
	Err     error
	Pattern string
}

func (err InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid package filter %q: %v", err.Pattern, err.Err)
}

func (err InvalidFilterError) Unwrap() error {
	return err.Err
}

func (InvalidFilterError) Kind() errors.Kind {
	return errors.KindConfig
}

// IncompleteCheckError is set on decisions whose registry check never ran to completion.
type IncompleteCheckError struct {
	Err     error
	Package string
	Channel manifest.Channel
}

func (err IncompleteCheckError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("%s check of %s did not complete: %v", err.Channel, err.Package, err.Err)
	}

	return fmt.Sprintf("%s check of %s did not complete", err.Channel, err.Package)
}

func (err IncompleteCheckError) Unwrap() error {
	return err.Err
}

func (IncompleteCheckError) Kind() errors.Kind {
	return errors.KindRegistryUnavailable
}
