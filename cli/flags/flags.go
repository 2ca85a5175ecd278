// Package flags declares the command line flags of relplan. Every flag can also be set through a RELPLAN_*
// environment variable. Flags carry no default values so that the config file can fill what they leave unset.
package flags

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/relplan/relplan/internal/report"
	"github.com/relplan/relplan/pkg/options"
)

const (
	WorkingDirFlagName  = "working-dir"
	ConfigFlagName      = "config"
	EnvFileFlagName     = "env-file"
	LogLevelFlagName    = "log-level"
	LogFormatFlagName   = "log-format"
	NoColorFlagName     = "no-color"
	MetricsFileFlagName = "metrics-file"

	IgnoreFlagName                = "ignore"
	NoGitignoreFlagName           = "no-gitignore"
	SentinelFlagName              = "sentinel"
	IgnoreDevDependenciesFlagName = "ignore-dev-dependencies"

	BaseRefFlagName             = "base-ref"
	HeadRefFlagName             = "head-ref"
	IncludeWorktreeFlagName     = "include-worktree"
	SkipChangeDetectionFlagName = "skip-change-detection"
	GlobalPathFlagName          = "global-path"

	ModeFlagName           = "mode"
	RefFlagName            = "ref"
	ReleaseChannelFlagName = "release-channel"
	EpochFlagName          = "epoch"
	IncludeFlagName        = "include"
	ExcludeFlagName        = "exclude"
	ConcurrencyFlagName    = "concurrency"
	CheckTimeoutFlagName   = "check-timeout"

	FormatFlagName            = "format"
	OutputFlagName            = "output"
	FailOnUnavailableFlagName = "fail-on-unavailable"
	FailOnScanErrorFlagName   = "fail-on-scan-error"
)

var prefix = Prefix{RelplanPrefix}

// NewGlobalFlags returns the flags shared by every command.
func NewGlobalFlags(opts *options.ReleaseOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        WorkingDirFlagName,
			EnvVars:     prefix.EnvVars(WorkingDirFlagName),
			Destination: &opts.WorkingDir,
			Usage:       "The repository directory to scan.",
			DefaultText: "current directory",
		},
		&cli.StringFlag{
			Name:        ConfigFlagName,
			EnvVars:     prefix.EnvVars(ConfigFlagName),
			Destination: &opts.ConfigPath,
			Usage:       "Path to the config file, relative to the working directory.",
			DefaultText: options.DefaultConfigName,
		},
		&cli.StringFlag{
			Name:        EnvFileFlagName,
			EnvVars:     prefix.EnvVars(EnvFileFlagName),
			Destination: &opts.EnvFile,
			Usage:       "Dotenv file whose variables are used where the environment leaves them unset.",
			DefaultText: options.DefaultEnvFileName,
		},
		&cli.StringFlag{
			Name:        LogLevelFlagName,
			EnvVars:     prefix.EnvVars(LogLevelFlagName),
			Destination: &opts.LogLevel,
			Usage:       "Log level: error, warn, info, debug or trace.",
			DefaultText: "info",
		},
		&cli.StringFlag{
			Name:        LogFormatFlagName,
			EnvVars:     prefix.EnvVars(LogFormatFlagName),
			Destination: &opts.LogFormat,
			Usage:       "Log format: text, json or bare.",
			DefaultText: "text",
		},
		&cli.BoolFlag{
			Name:        NoColorFlagName,
			EnvVars:     prefix.EnvVars(NoColorFlagName),
			Destination: &opts.NoColor,
			Usage:       "Disable colors in logs and summaries. Also set by a non-empty NO_COLOR.",
		},
		&cli.StringFlag{
			Name:        MetricsFileFlagName,
			EnvVars:     prefix.EnvVars(MetricsFileFlagName),
			Destination: &opts.MetricsFile,
			Usage:       "Write run metrics to this file in the Prometheus text format.",
		},
	}
}

// NewScanFlags returns the flags tuning the workspace scan and the dependency graph.
func NewScanFlags(opts *options.ReleaseOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    IgnoreFlagName,
			EnvVars: prefix.EnvVars(IgnoreFlagName),
			Usage:   "Glob of directories to skip while scanning. May be repeated.",
			Action: func(_ *cli.Context, vals []string) error {
				opts.IgnorePatterns = vals
				return nil
			},
		},
		&cli.BoolFlag{
			Name:        NoGitignoreFlagName,
			EnvVars:     prefix.EnvVars(NoGitignoreFlagName),
			Destination: &opts.NoGitignore,
			Usage:       "Scan directories matched by .gitignore files.",
		},
		&cli.StringFlag{
			Name:        SentinelFlagName,
			EnvVars:     prefix.EnvVars(SentinelFlagName),
			Destination: &opts.SentinelFilename,
			Usage:       "Name of the file that excludes its directory tree from publishing.",
			DefaultText: ".skip_ci",
		},
		&cli.BoolFlag{
			Name:        IgnoreDevDependenciesFlagName,
			EnvVars:     prefix.EnvVars(IgnoreDevDependenciesFlagName),
			Destination: &opts.IgnoreDevDependencies,
			Usage:       "Drop dev dependencies from the graph.",
		},
	}
}

// NewChangeFlags returns the flags selecting the revisions to compare.
func NewChangeFlags(opts *options.ReleaseOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        BaseRefFlagName,
			EnvVars:     prefix.EnvVars(BaseRefFlagName),
			Destination: &opts.BaseRef,
			Usage:       "Revision to compare against. Without it every package counts as changed.",
		},
		&cli.StringFlag{
			Name:        HeadRefFlagName,
			EnvVars:     prefix.EnvVars(HeadRefFlagName),
			Destination: &opts.HeadRef,
			Usage:       "Revision being built.",
			DefaultText: "HEAD",
		},
		&cli.BoolFlag{
			Name:        IncludeWorktreeFlagName,
			EnvVars:     prefix.EnvVars(IncludeWorktreeFlagName),
			Destination: &opts.IncludeWorktree,
			Usage:       "Also count staged, unstaged and untracked files as changed.",
		},
		&cli.BoolFlag{
			Name:        SkipChangeDetectionFlagName,
			EnvVars:     prefix.EnvVars(SkipChangeDetectionFlagName),
			Destination: &opts.SkipChangeDetection,
			Usage:       "Do not detect changes; no package counts as changed.",
		},
		&cli.StringSliceFlag{
			Name:    GlobalPathFlagName,
			EnvVars: prefix.EnvVars(GlobalPathFlagName),
			Usage:   "Glob of files whose change marks every package changed. May be repeated.",
			Action: func(_ *cli.Context, vals []string) error {
				opts.GlobalPaths = vals
				return nil
			},
		},
	}
}

// NewPolicyFlags returns the flags of the publish policy.
func NewPolicyFlags(opts *options.ReleaseOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        ModeFlagName,
			EnvVars:     prefix.EnvVars(ModeFlagName),
			Destination: &opts.Mode,
			Usage:       "Version mode: release, nightly or auto.",
			DefaultText: "auto",
		},
		&cli.StringFlag{
			Name:        RefFlagName,
			EnvVars:     append(prefix.EnvVars(RefFlagName), "GITHUB_REF"),
			Destination: &opts.Ref,
			Usage:       "Git ref being built, used to derive the mode and release channel in auto mode.",
		},
		&cli.StringFlag{
			Name:        ReleaseChannelFlagName,
			EnvVars:     prefix.EnvVars(ReleaseChannelFlagName),
			Destination: &opts.ReleaseChannel,
			Usage:       "Release channel overriding the one derived from the ref: nightly, alpha, beta, prod or release.",
		},
		&cli.StringFlag{
			Name:        EpochFlagName,
			EnvVars:     prefix.EnvVars(EpochFlagName),
			Destination: &opts.Epoch,
			Usage:       "Day zero of nightly versions, as YYYY-MM-DD.",
			DefaultText: "2024-01-01",
		},
		&cli.StringSliceFlag{
			Name:    IncludeFlagName,
			EnvVars: prefix.EnvVars(IncludeFlagName),
			Usage:   "Only decide packages whose name matches this glob. May be repeated.",
			Action: func(_ *cli.Context, vals []string) error {
				opts.Include = vals
				return nil
			},
		},
		&cli.StringSliceFlag{
			Name:    ExcludeFlagName,
			EnvVars: prefix.EnvVars(ExcludeFlagName),
			Usage:   "Leave out packages whose name matches this glob. May be repeated.",
			Action: func(_ *cli.Context, vals []string) error {
				opts.Exclude = vals
				return nil
			},
		},
		&cli.IntFlag{
			Name:        ConcurrencyFlagName,
			EnvVars:     prefix.EnvVars(ConcurrencyFlagName),
			Destination: &opts.Concurrency,
			Usage:       "Maximum number of concurrent registry checks.",
			DefaultText: "8",
		},
		&cli.DurationFlag{
			Name:        CheckTimeoutFlagName,
			EnvVars:     prefix.EnvVars(CheckTimeoutFlagName),
			Destination: &opts.CheckTimeout,
			Usage:       "Timeout of a single registry check, retries included.",
			DefaultText: "2m",
		},
	}
}

// NewOutputFlags returns the flags controlling the report.
func NewOutputFlags(opts *options.ReleaseOptions) []cli.Flag {
	formats := make([]string, len(report.Formats))
	for i, format := range report.Formats {
		formats[i] = string(format)
	}

	return []cli.Flag{
		&cli.StringFlag{
			Name:        FormatFlagName,
			EnvVars:     prefix.EnvVars(FormatFlagName),
			Destination: &opts.Format,
			Usage:       "Report format: " + strings.Join(formats, ", ") + ".",
			DefaultText: string(report.FormatJSON),
		},
		&cli.StringFlag{
			Name:        OutputFlagName,
			Aliases:     []string{"o"},
			EnvVars:     prefix.EnvVars(OutputFlagName),
			Destination: &opts.OutputPath,
			Usage:       "Write the report to this file instead of stdout.",
		},
		&cli.BoolFlag{
			Name:        FailOnUnavailableFlagName,
			EnvVars:     prefix.EnvVars(FailOnUnavailableFlagName),
			Destination: &opts.FailOnUnavailable,
			Usage:       "Exit with status 5 when a registry could not answer.",
		},
		&cli.BoolFlag{
			Name:        FailOnScanErrorFlagName,
			EnvVars:     prefix.EnvVars(FailOnScanErrorFlagName),
			Destination: &opts.FailOnScanError,
			Usage:       "Exit with status 6 when a manifest could not be scanned.",
		},
	}
}
