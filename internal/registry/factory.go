package registry

import (
	"context"
	"time"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/pkg/log"
)

// NewSet builds the clients described by cfg, each wrapped in Cached. env supplies credentials. The default
// source registry is always present unless cfg overrides it.
func NewSet(ctx context.Context, l log.Logger, cfg *Config, env map[string]string) (*Set, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	cacheOpts, err := cacheOptions(cfg.Cache)
	if err != nil {
		return nil, err
	}

	wrap := func(name string, client Client) Client {
		return NewCached(l, name, client, cacheOpts)
	}

	set := &Set{
		Sources: map[string]Client{
			DefaultSourceRegistry: wrap("source/"+DefaultSourceRegistry, NewSourceRegistry(DefaultSourceURL, "")),
		},
	}

	for _, source := range cfg.Sources {
		if source.URL == "" {
			return nil, errors.New(InvalidConfigError{Registry: "source " + source.Name, Reason: "url is required"})
		}

		set.Sources[source.Name] = wrap("source/"+source.Name, NewSourceRegistry(source.URL, env[source.TokenEnv]))
	}

	container := cfg.Container
	if container == nil {
		container = &ContainerConfig{}
	}

	credentials := make(map[string]Credential, len(container.Credentials))

	for _, credential := range container.Credentials {
		credentials[credential.Host] = Credential{
			Username: env[credential.UsernameEnv],
			Password: env[credential.PasswordEnv],
		}
	}

	set.Container = wrap("container", NewContainerRegistry(credentials, container.PlainHTTP))

	language := cfg.Language
	if language == nil {
		language = &LanguageConfig{}
	}

	languageURL := language.URL
	if languageURL == "" {
		languageURL = DefaultLanguageURL
	}

	set.Language = wrap("language", NewLanguageRegistry(languageURL, env[language.TokenEnv], language.Scopes))

	if cfg.Binary != nil {
		lister, err := newLister(ctx, l, cfg.Binary, env)
		if err != nil {
			return nil, err
		}

		set.Binary = wrap("binary/"+cfg.Binary.Backend, NewBlobStore(lister, cfg.Binary.Prefix))
	}

	return set, nil
}

func newLister(ctx context.Context, l log.Logger, cfg *BinaryConfig, env map[string]string) (ObjectLister, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(InvalidConfigError{Registry: "binary", Reason: "bucket is required"})
	}

	switch cfg.Backend {
	case BackendS3:
		client, err := NewS3Client(ctx, l, cfg, env)
		if err != nil {
			return nil, err
		}

		return NewS3Lister(client, cfg.Bucket), nil
	case BackendGCS:
		client, err := NewGCSClient(ctx, cfg, env)
		if err != nil {
			return nil, err
		}

		return NewGCSLister(client, cfg.Bucket), nil
	case BackendAzure:
		if cfg.Account == "" && cfg.Endpoint == "" {
			return nil, errors.New(InvalidConfigError{Registry: "binary", Reason: "account or endpoint is required for azure"})
		}

		client, err := NewAzureClient(l, cfg, env)
		if err != nil {
			return nil, err
		}

		return NewAzureLister(client, cfg.Bucket), nil
	default:
		return nil, errors.New(InvalidConfigError{Registry: "binary", Reason: "unknown backend " + cfg.Backend})
	}
}

func cacheOptions(cfg *CacheConfig) (CacheOptions, error) {
	opts := DefaultCacheOptions()

	if cfg == nil {
		return opts, nil
	}

	if cfg.Size > 0 {
		opts.Size = cfg.Size
	}

	if cfg.Retries != nil {
		opts.Retries = *cfg.Retries
	}

	if cfg.RetryInterval != "" {
		interval, err := time.ParseDuration(cfg.RetryInterval)
		if err != nil {
			return opts, errors.New(InvalidConfigError{Registry: "cache", Reason: err.Error()})
		}

		opts.RetryInterval = interval
	}

	if cfg.LookupTimeout != "" {
		timeout, err := time.ParseDuration(cfg.LookupTimeout)
		if err != nil {
			return opts, errors.New(InvalidConfigError{Registry: "cache", Reason: err.Error()})
		}

		opts.LookupTimeout = timeout
	}

	return opts, nil
}
