// Package plan implements the `relplan plan` command, which runs every phase and writes the release report.
package plan

import (
	"slices"

	"github.com/urfave/cli/v2"

	"github.com/relplan/relplan/cli/flags"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/pkg/options"
)

const CommandName = "plan"

func NewFlags(opts *options.ReleaseOptions) []cli.Flag {
	return slices.Concat(
		flags.NewScanFlags(opts),
		flags.NewChangeFlags(opts),
		flags.NewPolicyFlags(opts),
		flags.NewOutputFlags(opts),
	)
}

func NewCommand(opts *options.ReleaseOptions) *cli.Command {
	return &cli.Command{
		Name:         CommandName,
		Usage:        "Decide which packages must be published and write the release report.",
		Flags:        NewFlags(opts),
		OnUsageError: flags.OnUsageError,
		Before: func(ctx *cli.Context) error {
			return flags.Prepare(ctx, opts)
		},
		Action: func(ctx *cli.Context) error {
			return Run(ctx.Context, log.LoggerFromContext(ctx.Context), opts, ctx.App.Version)
		},
	}
}
