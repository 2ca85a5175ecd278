package plan

import (
	"context"

	"github.com/relplan/relplan/cli/commands/common"
	"github.com/relplan/relplan/internal/runner"
	"github.com/relplan/relplan/internal/telemetry"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/pkg/options"
)

// Run runs every phase and writes the report. Structural failures abort before anything is written.
func Run(ctx context.Context, l log.Logger, opts *options.ReleaseOptions, appVersion string, runnerOpts ...runner.Option) error {
	format, err := opts.ReportFormat()
	if err != nil {
		return err
	}

	telemeter, err := telemetry.NewTelemeterWithOptions(ctx, telemetry.Options{
		Vars:       opts.Env,
		Writer:     opts.ErrWriter,
		AppName:    "relplan",
		AppVersion: appVersion,
	})
	if err != nil {
		return err
	}

	defer func() {
		if err := telemeter.Shutdown(context.WithoutCancel(ctx)); err != nil {
			l.Warnf("Traces were not exported: %v", err)
		}
	}()

	ctx = telemetry.ContextWithTelemeter(ctx, telemeter)

	r := runner.New(opts, append([]runner.Option{runner.WithTelemeter(telemeter)}, runnerOpts...)...)

	result, err := r.Plan(ctx, l)
	if err != nil {
		return err
	}

	doc := result.Report()

	if err := common.WriteReport(l, opts, doc, format); err != nil {
		return err
	}

	summary := doc.Summarize()
	l.Infof("%d of %d packages to publish, %d unknown", summary.Publish, summary.Packages, summary.Unknown)

	if opts.MetricsFile != "" {
		if err := telemeter.WriteTextfile(opts.MetricsFile); err != nil {
			return err
		}
	}

	return r.Check(result)
}
