// Package schema implements the `relplan schema` command, which prints the JSON schema of the report.
package schema

import (
	"github.com/urfave/cli/v2"

	"github.com/relplan/relplan/cli/flags"
	"github.com/relplan/relplan/internal/report"
	"github.com/relplan/relplan/pkg/options"
)

const CommandName = "schema"

func NewCommand(opts *options.ReleaseOptions) *cli.Command {
	return &cli.Command{
		Name:         CommandName,
		Usage:        "Print the JSON schema of the release report.",
		OnUsageError: flags.OnUsageError,
		Action: func(*cli.Context) error {
			return report.WriteSchema(opts.Writer)
		},
	}
}
