// Package cli assembles the relplan command line application.
package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/relplan/relplan/cli/commands/changed"
	"github.com/relplan/relplan/cli/commands/graph"
	"github.com/relplan/relplan/cli/commands/plan"
	"github.com/relplan/relplan/cli/commands/schema"
	"github.com/relplan/relplan/cli/flags"
	"github.com/relplan/relplan/pkg/options"
)

// Version is set at build time with -ldflags "-X github.com/relplan/relplan/cli.Version=...".
var Version = "dev"

// NewApp creates the relplan CLI App. Errors are returned from Run unhandled so the caller decides the exit code.
func NewApp(opts *options.ReleaseOptions) *cli.App {
	return &cli.App{
		Name:      "relplan",
		Usage:     "Decide which packages of a repository must be published, per channel.",
		UsageText: "relplan [global options] <command> [options]",
		Version:   Version,
		Writer:    opts.Writer,
		ErrWriter: opts.ErrWriter,
		Flags:     flags.NewGlobalFlags(opts),
		Commands: []*cli.Command{
			plan.NewCommand(opts),
			graph.NewCommand(opts),
			changed.NewCommand(opts),
			schema.NewCommand(opts),
		},
		OnUsageError:         flags.OnUsageError,
		ExitErrHandler:       func(*cli.Context, error) {},
		EnableBashCompletion: true,
	}
}
