package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/pkg/options"
)

// UsageError is returned for malformed command lines.
type UsageError struct {
	Err error
}

func (err UsageError) Error() string {
	return fmt.Sprintf("incorrect usage: %v", err.Err)
}

func (err UsageError) Unwrap() error {
	return err.Err
}

func (UsageError) Kind() errors.Kind {
	return errors.KindConfig
}

// OnUsageError classifies flag parsing failures as usage errors.
func OnUsageError(_ *cli.Context, err error, _ bool) error {
	return errors.New(UsageError{Err: err})
}

// Prepare finalizes the options once flags are parsed and installs the logger in the command context.
func Prepare(ctx *cli.Context, opts *options.ReleaseOptions) error {
	if err := opts.Finalize(); err != nil {
		return err
	}

	if opts.Env["NO_COLOR"] != "" {
		opts.NoColor = true
	}

	l, err := NewLogger(opts)
	if err != nil {
		return err
	}

	ctx.Context = log.ContextWithLogger(ctx.Context, l)

	return nil
}

// NewLogger builds the logger configured by opts.
func NewLogger(opts *options.ReleaseOptions) (log.Logger, error) {
	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, errors.New(options.InvalidOptionError{Option: LogLevelFlagName, Err: err})
	}

	format, err := log.ParseFormat(opts.LogFormat)
	if err != nil {
		return nil, errors.New(options.InvalidOptionError{Option: LogFormatFlagName, Err: err})
	}

	return log.New(
		log.WithLevel(level),
		log.WithOutput(opts.ErrWriter),
		log.WithFormat(format, opts.NoColor),
	), nil
}
