package changed

import (
	"context"
	"fmt"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/runner"
	"github.com/relplan/relplan/pkg/log"
)

// Run detects changes and prints the affected package names in scan order.
func Run(ctx context.Context, l log.Logger, opts *Options, runnerOpts ...runner.Option) error {
	result, err := runner.New(opts.ReleaseOptions, runnerOpts...).Changes(ctx, l)
	if err != nil {
		return err
	}

	if opts.JSON {
		return result.Report().WriteJSON(opts.Writer)
	}

	names := result.ChangeSet.Affected
	if opts.Direct {
		names = result.ChangeSet.Direct
	}

	for _, name := range names {
		if _, err := fmt.Fprintln(opts.Writer, name); err != nil {
			return errors.New(err)
		}
	}

	return nil
}
