// Package graph implements the `relplan graph` command, which prints the dependency graph.
package graph

import (
	"slices"

	"github.com/urfave/cli/v2"

	"github.com/relplan/relplan/cli/flags"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/pkg/options"
)

const (
	CommandName = "graph"

	// FormatOrder prints one package per line in topological order.
	FormatOrder = "order"
	// FormatDot prints a GraphViz definition.
	FormatDot = "dot"
)

func NewCommand(opts *options.ReleaseOptions) *cli.Command {
	format := FormatOrder

	return &cli.Command{
		Name:  CommandName,
		Usage: "Print the packages in dependency order, as a DOT graph or as a report without decisions.",
		Flags: slices.Concat(flags.NewScanFlags(opts), []cli.Flag{
			&cli.StringFlag{
				Name:        flags.FormatFlagName,
				Destination: &format,
				Value:       FormatOrder,
				Usage:       "Output format: order, dot, json or yaml.",
			},
		}),
		OnUsageError: flags.OnUsageError,
		Before: func(ctx *cli.Context) error {
			return flags.Prepare(ctx, opts)
		},
		Action: func(ctx *cli.Context) error {
			return Run(ctx.Context, log.LoggerFromContext(ctx.Context), opts, format)
		},
	}
}
