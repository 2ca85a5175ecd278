package options

import (
	"fmt"

	"github.com/relplan/relplan/internal/errors"
)

// InvalidOptionError is returned when a setting cannot be used.
type InvalidOptionError struct {
	Err    error
	Option string
}

func (err InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid %s: %v", err.Option, err.Err)
}

func (err InvalidOptionError) Unwrap() error {
	return err.Err
}

func (InvalidOptionError) Kind() errors.Kind {
	return errors.KindConfig
}

// ConfigFileError is returned when the config file cannot be read or decoded.
type ConfigFileError struct {
	Err  error
	Path string
}

func (err ConfigFileError) Error() string {
	return fmt.Sprintf("could not load config file %s: %v", err.Path, err.Err)
}

func (err ConfigFileError) Unwrap() error {
	return err.Err
}

func (ConfigFileError) Kind() errors.Kind {
	return errors.KindConfig
}
