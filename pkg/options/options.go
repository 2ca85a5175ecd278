// Package options provides the set of options that configure a relplan run.
package options

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/mitchellh/go-homedir"

	"github.com/relplan/relplan/internal/change"
	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/graph"
	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/internal/policy"
	"github.com/relplan/relplan/internal/registry"
	"github.com/relplan/relplan/internal/report"
	"github.com/relplan/relplan/internal/worker"
	"github.com/relplan/relplan/internal/workspace"
	"github.com/relplan/relplan/pkg/env"
)

const (
	// DefaultConfigName is looked up in the working directory when no config file is given.
	DefaultConfigName = "relplan.hcl"
	// DefaultEnvFileName is loaded from the working directory when no env file is given.
	DefaultEnvFileName = ".env"

	epochLayout = time.DateOnly
)

// ReleaseOptions represents options that configure the behavior of a relplan run.
//
// Values are layered: command line flags (and their RELPLAN_* variables) win over the config file, which wins
// over the defaults. Boolean settings can only be switched on by a lower layer, never off.
type ReleaseOptions struct {
	Writer    io.Writer
	ErrWriter io.Writer

	// Env is the process environment underlaid with the dotenv file. Registry credentials are read from it.
	Env map[string]string
	// Registry describes the registries to query. It is only set by the config file.
	Registry *registry.Config

	WorkingDir string
	ConfigPath string
	EnvFile    string

	LogLevel  string
	LogFormat string

	// Scan settings.
	ManifestFilename      string
	SentinelFilename      string
	IgnorePatterns        []string
	NoGitignore           bool
	IgnoreDevDependencies bool

	// Change detection settings.
	BaseRef             string
	HeadRef             string
	GlobalPaths         []string
	IncludeWorktree     bool
	SkipChangeDetection bool

	// Policy settings.
	Mode           string
	Ref            string
	ReleaseChannel string
	Epoch          string
	Include        []string
	Exclude        []string
	Concurrency    int
	CheckTimeout   time.Duration

	// Output settings.
	Format      string
	OutputPath  string
	MetricsFile string
	NoColor     bool

	FailOnUnavailable bool
	FailOnScanError   bool
}

// NewReleaseOptions returns options writing to the standard streams with the process environment.
func NewReleaseOptions() *ReleaseOptions {
	return NewReleaseOptionsWithWriters(os.Stdout, os.Stderr)
}

// NewReleaseOptionsWithWriters returns options writing to the given streams. Tunables stay unset until Finalize.
func NewReleaseOptionsWithWriters(stdout, stderr io.Writer) *ReleaseOptions {
	workingDir, err := os.Getwd()
	if err != nil {
		workingDir = "."
	}

	return &ReleaseOptions{
		Writer:     stdout,
		ErrWriter:  stderr,
		Env:        env.Parse(os.Environ()),
		WorkingDir: workingDir,
	}
}

// defaultOptions holds every tunable's default value.
func defaultOptions() *ReleaseOptions {
	return &ReleaseOptions{
		LogLevel:         "info",
		LogFormat:        "text",
		ManifestFilename: manifest.DefaultFilename,
		SentinelFilename: workspace.DefaultSentinelFilename,
		HeadRef:          change.DefaultHeadRef,
		Mode:             string(policy.ModeAuto),
		Epoch:            policy.DefaultEpoch.Format(epochLayout),
		Concurrency:      worker.DefaultMaxWorkers,
		CheckTimeout:     policy.DefaultCheckTimeout,
		Format:           string(report.FormatJSON),
	}
}

// Finalize loads the dotenv and config files, then fills whatever is still unset from the defaults.
func (opts *ReleaseOptions) Finalize() error {
	if err := expandHome(&opts.WorkingDir, &opts.ConfigPath, &opts.EnvFile); err != nil {
		return err
	}

	absDir, err := filepath.Abs(opts.WorkingDir)
	if err != nil {
		return errors.New(err)
	}

	opts.WorkingDir = absDir

	if err := opts.loadEnvFile(); err != nil {
		return err
	}

	fileOpts, err := opts.loadConfigFile()
	if err != nil {
		return err
	}

	if fileOpts != nil {
		if err := mergo.Merge(opts, fileOpts); err != nil {
			return errors.New(err)
		}
	}

	if err := mergo.Merge(opts, defaultOptions()); err != nil {
		return errors.New(err)
	}

	if err := expandHome(&opts.OutputPath, &opts.MetricsFile); err != nil {
		return err
	}

	return opts.Validate()
}

// expandHome replaces a leading ~ in each path with the user's home directory.
func expandHome(paths ...*string) error {
	for _, path := range paths {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return errors.New(InvalidOptionError{Option: *path, Err: err})
		}

		*path = expanded
	}

	return nil
}

func (opts *ReleaseOptions) loadEnvFile() error {
	path := opts.EnvFile
	if path == "" {
		path = filepath.Join(opts.WorkingDir, DefaultEnvFileName)
	} else if _, err := os.Stat(path); err != nil {
		return errors.New(InvalidOptionError{Option: "env-file", Err: err})
	}

	vars, err := env.ReadFile(path)
	if err != nil {
		return errors.New(InvalidOptionError{Option: "env-file", Err: err})
	}

	opts.Env = env.Underlay(opts.Env, vars)

	return nil
}

// Validate checks the settings that are parsed lazily.
func (opts *ReleaseOptions) Validate() error {
	if _, err := opts.PolicyOptions(); err != nil {
		return err
	}

	if _, err := report.ParseFormat(opts.Format); err != nil {
		return err
	}

	if opts.Concurrency < 1 {
		return errors.New(InvalidOptionError{Option: "concurrency", Err: errors.Errorf("must be at least 1, got %d", opts.Concurrency)})
	}

	if opts.CheckTimeout <= 0 {
		return errors.New(InvalidOptionError{Option: "check-timeout", Err: errors.Errorf("must be positive, got %s", opts.CheckTimeout)})
	}

	return nil
}

// ScanOptions returns the workspace scanner settings.
func (opts *ReleaseOptions) ScanOptions() workspace.Options {
	return workspace.Options{
		ManifestFilename: opts.ManifestFilename,
		SentinelFilename: opts.SentinelFilename,
		IgnorePatterns:   opts.IgnorePatterns,
		UseGitignore:     !opts.NoGitignore,
	}
}

// GraphOptions returns the dependency graph settings.
func (opts *ReleaseOptions) GraphOptions() graph.Options {
	return graph.Options{IgnoreDevDependencies: opts.IgnoreDevDependencies}
}

// ChangeOptions returns the change detector settings.
func (opts *ReleaseOptions) ChangeOptions() change.Options {
	changeOpts := change.DefaultOptions()
	changeOpts.GlobalPaths = opts.GlobalPaths

	return changeOpts
}

// ChangeRequest returns the revisions to compare.
func (opts *ReleaseOptions) ChangeRequest() change.Request {
	return change.Request{
		BaseRef:         opts.BaseRef,
		HeadRef:         opts.HeadRef,
		IncludeWorktree: opts.IncludeWorktree,
		Skip:            opts.SkipChangeDetection,
	}
}

// PolicyOptions returns the planner settings.
func (opts *ReleaseOptions) PolicyOptions() (policy.Options, error) {
	policyOpts := policy.DefaultOptions()

	mode, err := policy.ParseMode(opts.Mode)
	if err != nil {
		return policyOpts, err
	}

	releaseChannel, err := policy.ParseReleaseChannel(opts.ReleaseChannel)
	if err != nil {
		return policyOpts, err
	}

	if opts.Epoch != "" {
		epoch, err := time.ParseInLocation(epochLayout, opts.Epoch, time.UTC)
		if err != nil {
			return policyOpts, errors.New(InvalidOptionError{Option: "epoch", Err: err})
		}

		policyOpts.Epoch = epoch
	}

	policyOpts.Mode = mode
	policyOpts.Ref = opts.Ref
	policyOpts.ReleaseChannel = releaseChannel
	policyOpts.Include = opts.Include
	policyOpts.Exclude = opts.Exclude

	if opts.Concurrency > 0 {
		policyOpts.Concurrency = opts.Concurrency
	}

	if opts.CheckTimeout > 0 {
		policyOpts.CheckTimeout = opts.CheckTimeout
	}

	return policyOpts, nil
}

// ReportFormat returns the output format.
func (opts *ReleaseOptions) ReportFormat() (report.Format, error) {
	return report.ParseFormat(opts.Format)
}
