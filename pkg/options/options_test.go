package options_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/policy"
	"github.com/relplan/relplan/internal/report"
	"github.com/relplan/relplan/pkg/options"
)

func newOptions(t *testing.T, files map[string]string) *options.ReleaseOptions {
	t.Helper()

	dir := t.TempDir()

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	opts := options.NewReleaseOptionsWithWriters(io.Discard, io.Discard)
	opts.WorkingDir = dir
	opts.Env = map[string]string{"HOME": "/home/ci"}

	return opts
}

func TestFinalizeAppliesDefaults(t *testing.T) {
	t.Parallel()

	opts := newOptions(t, nil)
	require.NoError(t, opts.Finalize())

	assert.Equal(t, "json", opts.Format)
	assert.Equal(t, "auto", opts.Mode)
	assert.Equal(t, "HEAD", opts.HeadRef)
	assert.Equal(t, "release.hcl", opts.ManifestFilename)
	assert.Equal(t, ".skip_ci", opts.SentinelFilename)
	assert.Equal(t, 8, opts.Concurrency)
	assert.Equal(t, policy.DefaultCheckTimeout, opts.CheckTimeout)
	assert.Nil(t, opts.Registry)
	assert.True(t, opts.ScanOptions().UseGitignore)

	policyOpts, err := opts.PolicyOptions()
	require.NoError(t, err)
	assert.Equal(t, policy.ModeAuto, policyOpts.Mode)
	assert.Equal(t, policy.DefaultEpoch, policyOpts.Epoch)

	format, err := opts.ReportFormat()
	require.NoError(t, err)
	assert.Equal(t, report.FormatJSON, format)
}

func TestFinalizeLayersFlagsOverConfigFile(t *testing.T) {
	t.Parallel()

	opts := newOptions(t, map[string]string{
		".env": "INTERNAL_URL=https://crates.example.com/api/v1/crates\nHOME=/ignored\n",
		"relplan.hcl": `
log_level = "debug"

scan {
  gitignore = false
  ignore    = ["vendor/**"]
}

change {
  base_ref     = "origin/main"
  global_paths = ["Cargo.lock"]
}

policy {
  mode          = "nightly"
  epoch         = "2024-07-01"
  concurrency   = 4
  check_timeout = "30s"
  exclude       = ["*-internal"]
}

output {
  format              = "yaml"
  fail_on_unavailable = true
}

registries {
  source "internal" {
    url       = env.INTERNAL_URL
    token_env = "INTERNAL_TOKEN"
  }

  binary {
    backend = "s3"
    bucket  = "artifacts"
  }
}
`,
	})

	opts.Mode = "release"
	opts.Concurrency = 16

	require.NoError(t, opts.Finalize())

	assert.Equal(t, "/home/ci", opts.Env["HOME"], "process environment wins over the env file")
	assert.Equal(t, "https://crates.example.com/api/v1/crates", opts.Env["INTERNAL_URL"])

	assert.Equal(t, "release", opts.Mode)
	assert.Equal(t, 16, opts.Concurrency)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, "yaml", opts.Format)
	assert.True(t, opts.FailOnUnavailable)
	assert.Equal(t, 30*time.Second, opts.CheckTimeout)
	assert.Equal(t, []string{"*-internal"}, opts.Exclude)
	assert.Equal(t, filepath.Join(opts.WorkingDir, "relplan.hcl"), opts.ConfigPath)

	assert.False(t, opts.ScanOptions().UseGitignore)
	assert.Equal(t, []string{"vendor/**"}, opts.ScanOptions().IgnorePatterns)
	assert.Equal(t, "origin/main", opts.ChangeRequest().BaseRef)
	assert.Equal(t, []string{"Cargo.lock"}, opts.ChangeOptions().GlobalPaths)

	require.NotNil(t, opts.Registry)
	require.Len(t, opts.Registry.Sources, 1)
	assert.Equal(t, "internal", opts.Registry.Sources[0].Name)
	assert.Equal(t, "https://crates.example.com/api/v1/crates", opts.Registry.Sources[0].URL)
	assert.Equal(t, "artifacts", opts.Registry.Binary.Bucket)

	policyOpts, err := opts.PolicyOptions()
	require.NoError(t, err)
	assert.Equal(t, policy.ModeRelease, policyOpts.Mode)
	assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), policyOpts.Epoch)
	assert.Equal(t, 16, policyOpts.Concurrency)
}

func TestFinalizeErrorsAreConfigErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		files map[string]string
		setup func(opts *options.ReleaseOptions)
		name  string
	}{
		{
			name:  "invalid mode",
			setup: func(opts *options.ReleaseOptions) { opts.Mode = "weekly" },
		},
		{
			name:  "invalid format",
			setup: func(opts *options.ReleaseOptions) { opts.Format = "xml" },
		},
		{
			name:  "invalid epoch",
			setup: func(opts *options.ReleaseOptions) { opts.Epoch = "01/01/2024" },
		},
		{
			name:  "invalid release channel",
			setup: func(opts *options.ReleaseOptions) { opts.ReleaseChannel = "gamma" },
		},
		{
			name:  "negative concurrency",
			setup: func(opts *options.ReleaseOptions) { opts.Concurrency = -1 },
		},
		{
			name:  "missing config file",
			setup: func(opts *options.ReleaseOptions) { opts.ConfigPath = "custom.hcl" },
		},
		{
			name:  "missing env file",
			setup: func(opts *options.ReleaseOptions) { opts.EnvFile = "/does/not/exist.env" },
		},
		{
			name:  "malformed config file",
			files: map[string]string{"relplan.hcl": "policy {\n  mode = \n}\n"},
		},
		{
			name:  "unknown config attribute",
			files: map[string]string{"relplan.hcl": "colour = \"blue\"\n"},
		},
		{
			name:  "invalid check timeout",
			files: map[string]string{"relplan.hcl": "policy {\n  check_timeout = \"soon\"\n}\n"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts := newOptions(t, tc.files)
			if tc.setup != nil {
				tc.setup(opts)
			}

			err := opts.Finalize()
			require.Error(t, err)
			assert.Equal(t, errors.KindConfig, errors.KindOf(err))
			assert.Equal(t, errors.ExitCodeConfig, errors.ExitCode(err))
		})
	}
}

func TestFinalizeExpandsHomeDirectory(t *testing.T) {
	t.Parallel()

	home, err := homedir.Dir()
	require.NoError(t, err)

	opts := newOptions(t, nil)
	opts.OutputPath = "~/reports/plan.json"
	opts.MetricsFile = "metrics.prom"
	require.NoError(t, opts.Finalize())

	assert.Equal(t, filepath.Join(home, "reports", "plan.json"), opts.OutputPath)
	assert.Equal(t, "metrics.prom", opts.MetricsFile)
}
