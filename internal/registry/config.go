package registry

import (
	"time"
)

// Blob store backends.
const (
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendAzure = "azure"
)

// DefaultSourceRegistry names the source registry used by packages that list no registries.
const DefaultSourceRegistry = "default"

const (
	defaultCacheSize     = 1024
	defaultRetries       = 2
	defaultRetryInterval = time.Second
	defaultLookupTimeout = 2 * time.Minute
)

// Config describes every registry the planner may query. Secrets are never stored here: each block names the
// environment variables to read them from.
type Config struct {
	Container *ContainerConfig `hcl:"container,block"`
	Language  *LanguageConfig  `hcl:"language,block"`
	Binary    *BinaryConfig    `hcl:"binary,block"`
	Cache     *CacheConfig     `hcl:"cache,block"`
	Sources   []SourceConfig   `hcl:"source,block"`
}

// SourceConfig is a crates-style source registry.
type SourceConfig struct {
	Name     string `hcl:"name,label"`
	URL      string `hcl:"url"`
	TokenEnv string `hcl:"token_env,optional"`
}

// ContainerConfig configures the OCI registry client.
type ContainerConfig struct {
	Credentials []ContainerCredentialConfig `hcl:"credentials,block"`
	PlainHTTP   bool                        `hcl:"plain_http,optional"`
}

// ContainerCredentialConfig holds the variables carrying credentials for one registry host.
type ContainerCredentialConfig struct {
	Host        string `hcl:"host,label"`
	UsernameEnv string `hcl:"username_env"`
	PasswordEnv string `hcl:"password_env"`
}

// LanguageConfig configures the npm-compatible registry client.
type LanguageConfig struct {
	Scopes   map[string]string `hcl:"scopes,optional"`
	URL      string            `hcl:"url,optional"`
	TokenEnv string            `hcl:"token_env,optional"`
}

// BinaryConfig configures the blob store holding binaries. RoleARN is assumed through STS on top of the S3
// credentials; AccessTokenEnv names the variable holding a GCS OAuth access token.
type BinaryConfig struct {
	Backend                   string `hcl:"backend"`
	Bucket                    string `hcl:"bucket"`
	Prefix                    string `hcl:"prefix,optional"`
	Region                    string `hcl:"region,optional"`
	Endpoint                  string `hcl:"endpoint,optional"`
	Account                   string `hcl:"account,optional"`
	CredentialsFile           string `hcl:"credentials_file,optional"`
	AccessKeyEnv              string `hcl:"access_key_env,optional"`
	SecretKeyEnv              string `hcl:"secret_key_env,optional"`
	RoleARN                   string `hcl:"role_arn,optional"`
	RoleSessionName           string `hcl:"role_session_name,optional"`
	AccessTokenEnv            string `hcl:"access_token_env,optional"`
	ImpersonateServiceAccount string `hcl:"impersonate_service_account,optional"`
	PathStyle                 bool   `hcl:"path_style,optional"`
}

func (cfg *BinaryConfig) accessKeyEnv() string {
	if cfg.AccessKeyEnv != "" {
		return cfg.AccessKeyEnv
	}

	if cfg.Backend == BackendAzure {
		return "AZURE_STORAGE_KEY"
	}

	return "AWS_ACCESS_KEY_ID"
}

func (cfg *BinaryConfig) accessTokenEnv() string {
	if cfg.AccessTokenEnv != "" {
		return cfg.AccessTokenEnv
	}

	return "GOOGLE_OAUTH_ACCESS_TOKEN"
}

func (cfg *BinaryConfig) secretKeyEnv() string {
	if cfg.SecretKeyEnv != "" {
		return cfg.SecretKeyEnv
	}

	return "AWS_SECRET_ACCESS_KEY"
}

// CacheConfig tunes the lookup cache and retries shared by all clients.
type CacheConfig struct {
	Size          int    `hcl:"size,optional"`
	Retries       *int   `hcl:"retries,optional"`
	RetryInterval string `hcl:"retry_interval,optional"`
	LookupTimeout string `hcl:"lookup_timeout,optional"`
}
