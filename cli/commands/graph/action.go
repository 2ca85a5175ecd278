package graph

import (
	"context"
	"fmt"

	"github.com/relplan/relplan/cli/commands/common"
	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/report"
	"github.com/relplan/relplan/internal/runner"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/pkg/options"
)

// Run scans the working directory and prints its dependency graph.
func Run(ctx context.Context, l log.Logger, opts *options.ReleaseOptions, format string) error {
	result, err := runner.New(opts).Graph(ctx, l)
	if err != nil {
		return err
	}

	switch format {
	case FormatOrder:
		for _, pkg := range result.Graph.Order() {
			if _, err := fmt.Fprintf(opts.Writer, "%s\t%s\n", pkg.Name, pkg.Path); err != nil {
				return errors.New(err)
			}
		}

		return nil
	case FormatDot:
		return result.Graph.WriteDot(opts.Writer)
	}

	reportFormat, err := report.ParseFormat(format)
	if err != nil {
		return err
	}

	return common.WriteReport(l, opts, result.Report(), reportFormat)
}
