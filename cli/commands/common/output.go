// Package common holds helpers shared by the commands.
package common

import (
	"os"

	"github.com/relplan/relplan/internal/report"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/pkg/options"
)

// WriteReport renders doc to the output file, or to the command writer when none is set.
func WriteReport(l log.Logger, opts *options.ReleaseOptions, doc *report.WorkspaceReport, format report.Format) error {
	if opts.OutputPath != "" {
		if err := doc.WriteToFile(opts.OutputPath, format, report.NewColorizer(false)); err != nil {
			return err
		}

		l.Infof("Report written to %s", opts.OutputPath)

		return nil
	}

	return doc.Write(opts.Writer, format, Colorizer(opts))
}

// Colorizer colors output when it goes to a terminal and colors are not disabled.
func Colorizer(opts *options.ReleaseOptions) *report.Colorizer {
	shouldColor := false

	if file, ok := opts.Writer.(*os.File); ok && !opts.NoColor {
		shouldColor = report.ShouldColor(file)
	}

	return report.NewColorizer(shouldColor)
}
