package registry

import (
	"fmt"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/manifest"
)

// UnavailableError is returned when a registry could not answer, after retries. It never means "absent".
type UnavailableError struct {
	Err      error
	Registry string
	Name     string
	Version  string
}

func (err UnavailableError) Error() string {
	return fmt.Sprintf("registry %s could not tell whether %s@%s exists: %v", err.Registry, err.Name, err.Version, err.Err)
}

func (err UnavailableError) Unwrap() error {
	return err.Err
}

func (UnavailableError) Kind() errors.Kind {
	return errors.KindRegistryUnavailable
}

// NotConfiguredError is returned when a package declares a channel, or a source registry, that has no client.
type NotConfiguredError struct {
	Channel  manifest.Channel
	Registry string
}

func (err NotConfiguredError) Error() string {
	if err.Registry != "" {
		return fmt.Sprintf("no %s registry named %q is configured", err.Channel, err.Registry)
	}

	return fmt.Sprintf("no %s registry is configured", err.Channel)
}

func (NotConfiguredError) Kind() errors.Kind {
	return errors.KindConfig
}

// StatusError is an unexpected HTTP response from a registry.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (err StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", err.Method, err.URL, err.StatusCode)
}

// InvalidConfigError is returned when a registry block cannot be turned into a client.
type InvalidConfigError struct {
	Registry string
	Reason   string
}

func (err InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid registry configuration %s: %s", err.Registry, err.Reason)
}

func (InvalidConfigError) Kind() errors.Kind {
	return errors.KindConfig
}
