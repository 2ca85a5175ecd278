package registry

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/util"
)

// CacheOptions tune a Cached client.
type CacheOptions struct {
	Size          int
	Retries       int
	RetryInterval time.Duration
	// LookupTimeout bounds a shared lookup, which outlives the caller that started it.
	LookupTimeout time.Duration
}

// DefaultCacheOptions returns the options used when none are configured.
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		Size:          defaultCacheSize,
		Retries:       defaultRetries,
		RetryInterval: defaultRetryInterval,
		LookupTimeout: defaultLookupTimeout,
	}
}

// Cached wraps a Client with retries, a lookup cache and deduplication of concurrent identical lookups. Only
// definitive answers are cached; failures surface as UnavailableError.
type Cached struct {
	next   Client
	logger log.Logger
	cache  *lru.Cache[string, bool]
	group  singleflight.Group
	name   string
	opts   CacheOptions
}

// NewCached wraps next. name identifies the registry in logs and errors.
func NewCached(l log.Logger, name string, next Client, opts CacheOptions) *Cached {
	if opts.Size <= 0 {
		opts.Size = defaultCacheSize
	}

	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaultLookupTimeout
	}

	cache, err := lru.New[string, bool](opts.Size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}

	return &Cached{
		next:   next,
		logger: l.WithField(log.FieldKeyRegistry, name),
		cache:  cache,
		name:   name,
		opts:   opts,
	}
}

// Exists implements Client. Concurrent callers asking for the same key share one lookup. The lookup runs detached
// from the caller that started it, so a caller giving up never fails the others waiting on it.
func (cached *Cached) Exists(ctx context.Context, name, version string) (bool, error) {
	key := name + "@" + version

	if exists, ok := cached.cache.Get(key); ok {
		return exists, nil
	}

	results := cached.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cached.opts.LookupTimeout)
		defer cancel()

		return cached.lookup(lookupCtx, key, name, version)
	})

	select {
	case <-ctx.Done():
		return false, errors.New(UnavailableError{Registry: cached.name, Name: name, Version: version, Err: ctx.Err()})
	case result := <-results:
		if result.Err != nil {
			return false, errors.New(UnavailableError{Registry: cached.name, Name: name, Version: version, Err: result.Err})
		}

		if result.Shared {
			cached.logger.Tracef("Shared lookup of %s", key)
		}

		return result.Val.(bool), nil
	}
}

func (cached *Cached) lookup(ctx context.Context, key, name, version string) (bool, error) {
	var exists bool

	description := fmt.Sprintf("Checking whether %s exists in %s", key, cached.name)

	err := util.DoWithRetry(ctx, description, cached.opts.Retries, cached.opts.RetryInterval, cached.logger, log.TraceLevel, func(ctx context.Context) error {
		var err error

		exists, err = cached.next.Exists(ctx, name, version)

		return err
	})
	if err != nil {
		return false, err
	}

	cached.cache.Add(key, exists)

	return exists, nil
}
