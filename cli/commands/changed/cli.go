// Package changed implements the `relplan changed` command, which lists the packages affected by a change.
package changed

import (
	"slices"

	"github.com/urfave/cli/v2"

	"github.com/relplan/relplan/cli/flags"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/pkg/options"
)

const (
	CommandName = "changed"

	DirectFlagName = "direct"
	JSONFlagName   = "json"
)

// Options are the flags of the changed command.
type Options struct {
	*options.ReleaseOptions

	// Direct lists only packages owning a changed file.
	Direct bool
	// JSON prints a report without decisions instead of names.
	JSON bool
}

func NewCommand(opts *options.ReleaseOptions) *cli.Command {
	cmdOpts := &Options{ReleaseOptions: opts}

	return &cli.Command{
		Name:  CommandName,
		Usage: "List the packages changed between two revisions, dependents included.",
		Flags: slices.Concat(flags.NewScanFlags(opts), flags.NewChangeFlags(opts), []cli.Flag{
			&cli.BoolFlag{
				Name:        DirectFlagName,
				Destination: &cmdOpts.Direct,
				Usage:       "Only list packages owning a changed file.",
			},
			&cli.BoolFlag{
				Name:        JSONFlagName,
				Destination: &cmdOpts.JSON,
				Usage:       "Print the change set as a JSON report.",
			},
		}),
		OnUsageError: flags.OnUsageError,
		Before: func(ctx *cli.Context) error {
			return flags.Prepare(ctx, opts)
		},
		Action: func(ctx *cli.Context) error {
			return Run(ctx.Context, log.LoggerFromContext(ctx.Context), cmdOpts)
		},
	}
}
