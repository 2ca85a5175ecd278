package options

import (
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/registry"
)

// configFile is the layout of relplan.hcl.
//
//	log_level = "debug"
//
//	scan {
//	  ignore = ["vendor/**"]
//	}
//
//	policy {
//	  mode    = "nightly"
//	  exclude = ["*-internal"]
//	}
//
//	registries {
//	  source "internal" {
//	    url       = "https://crates.example.com/api/v1/crates"
//	    token_env = "INTERNAL_REGISTRY_TOKEN"
//	  }
//	}
type configFile struct {
	Scan       *scanBlock       `hcl:"scan,block"`
	Change     *changeBlock     `hcl:"change,block"`
	Policy     *policyBlock     `hcl:"policy,block"`
	Output     *outputBlock     `hcl:"output,block"`
	Registries *registry.Config `hcl:"registries,block"`
	LogLevel   string           `hcl:"log_level,optional"`
	LogFormat  string           `hcl:"log_format,optional"`
}

type scanBlock struct {
	Gitignore             *bool    `hcl:"gitignore,optional"`
	ManifestFilename      string   `hcl:"manifest_filename,optional"`
	SentinelFilename      string   `hcl:"sentinel_filename,optional"`
	Ignore                []string `hcl:"ignore,optional"`
	IgnoreDevDependencies bool     `hcl:"ignore_dev_dependencies,optional"`
}

type changeBlock struct {
	BaseRef         string   `hcl:"base_ref,optional"`
	HeadRef         string   `hcl:"head_ref,optional"`
	GlobalPaths     []string `hcl:"global_paths,optional"`
	IncludeWorktree bool     `hcl:"include_worktree,optional"`
}

type policyBlock struct {
	Mode           string   `hcl:"mode,optional"`
	ReleaseChannel string   `hcl:"release_channel,optional"`
	Epoch          string   `hcl:"epoch,optional"`
	CheckTimeout   string   `hcl:"check_timeout,optional"`
	Include        []string `hcl:"include,optional"`
	Exclude        []string `hcl:"exclude,optional"`
	Concurrency    int      `hcl:"concurrency,optional"`
}

type outputBlock struct {
	Format            string `hcl:"format,optional"`
	Path              string `hcl:"path,optional"`
	MetricsFile       string `hcl:"metrics_file,optional"`
	FailOnUnavailable bool   `hcl:"fail_on_unavailable,optional"`
	FailOnScanError   bool   `hcl:"fail_on_scan_error,optional"`
}

// configPath returns the config file to load, or "" if there is none.
func (opts *ReleaseOptions) configPath() (string, error) {
	if opts.ConfigPath == "" {
		path := filepath.Join(opts.WorkingDir, DefaultConfigName)
		if _, err := os.Stat(path); err != nil {
			return "", nil //nolint:nilerr
		}

		return path, nil
	}

	path := opts.ConfigPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(opts.WorkingDir, path)
	}

	if _, err := os.Stat(path); err != nil {
		return "", errors.New(ConfigFileError{Path: path, Err: err})
	}

	return path, nil
}

// loadConfigFile decodes the config file into a set of options to merge beneath the current ones. It returns
// nil if there is no config file. Attribute expressions can read the environment through the `env` object.
func (opts *ReleaseOptions) loadConfigFile() (*ReleaseOptions, error) {
	path, err := opts.configPath()
	if err != nil || path == "" {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(ConfigFileError{Path: path, Err: err})
	}

	return decodeConfig(content, path, opts.Env)
}

func decodeConfig(content []byte, path string, environ map[string]string) (*ReleaseOptions, error) {
	file, diags := hclparse.NewParser().ParseHCL(content, path)
	if diags.HasErrors() {
		return nil, errors.New(ConfigFileError{Path: path, Err: diags})
	}

	cfg := &configFile{}

	if diags := gohcl.DecodeBody(file.Body, configEvalContext(environ), cfg); diags.HasErrors() {
		return nil, errors.New(ConfigFileError{Path: path, Err: diags})
	}

	fileOpts := &ReleaseOptions{
		ConfigPath: path,
		Registry:   cfg.Registries,
		LogLevel:   cfg.LogLevel,
		LogFormat:  cfg.LogFormat,
	}

	if scan := cfg.Scan; scan != nil {
		fileOpts.ManifestFilename = scan.ManifestFilename
		fileOpts.SentinelFilename = scan.SentinelFilename
		fileOpts.IgnorePatterns = scan.Ignore
		fileOpts.NoGitignore = scan.Gitignore != nil && !*scan.Gitignore
		fileOpts.IgnoreDevDependencies = scan.IgnoreDevDependencies
	}

	if change := cfg.Change; change != nil {
		fileOpts.BaseRef = change.BaseRef
		fileOpts.HeadRef = change.HeadRef
		fileOpts.GlobalPaths = change.GlobalPaths
		fileOpts.IncludeWorktree = change.IncludeWorktree
	}

	if policy := cfg.Policy; policy != nil {
		fileOpts.Mode = policy.Mode
		fileOpts.ReleaseChannel = policy.ReleaseChannel
		fileOpts.Epoch = policy.Epoch
		fileOpts.Include = policy.Include
		fileOpts.Exclude = policy.Exclude
		fileOpts.Concurrency = policy.Concurrency

		if policy.CheckTimeout != "" {
			timeout, err := time.ParseDuration(policy.CheckTimeout)
			if err != nil {
				return nil, errors.New(ConfigFileError{Path: path, Err: InvalidOptionError{Option: "check_timeout", Err: err}})
			}

			fileOpts.CheckTimeout = timeout
		}
	}

	if output := cfg.Output; output != nil {
		fileOpts.Format = output.Format
		fileOpts.OutputPath = output.Path
		fileOpts.MetricsFile = output.MetricsFile
		fileOpts.FailOnUnavailable = output.FailOnUnavailable
		fileOpts.FailOnScanError = output.FailOnScanError
	}

	return fileOpts, nil
}

func configEvalContext(environ map[string]string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(environ))

	for key, value := range environ {
		vars[key] = cty.StringVal(value)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}
