// Package registry answers whether an artifact version already exists in a distribution channel.
//
// Every channel kind has its own client: a crates-style source registry, an OCI container registry, an npm-style
// language registry and a blob store holding binaries (S3, GCS or Azure Blob Storage). Credentials are read here
// and nowhere else. Clients are wrapped by Cached, which retries transient failures, deduplicates concurrent
// identical lookups and remembers answers for the rest of the run.
package registry

//go:generate mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks

import (
	"context"
	"slices"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/manifest"
)

// Client reports whether version of the named artifact exists in a registry.
type Client interface {
	Exists(ctx context.Context, name, version string) (bool, error)
}

// ClientFunc adapts a function to a Client.
type ClientFunc func(ctx context.Context, name, version string) (bool, error)

// Exists implements Client.
func (fn ClientFunc) Exists(ctx context.Context, name, version string) (bool, error) {
	return fn(ctx, name, version)
}

// Set holds the clients of every configured channel. Source registries are keyed by the registry name used in
// package manifests.
type Set struct {
	Sources   map[string]Client
	Container Client
	Language  Client
	Binary    Client
}

// Source returns the source registry client with the given name.
func (set *Set) Source(name string) (Client, error) {
	if set != nil {
		if client, ok := set.Sources[name]; ok {
			return client, nil
		}
	}

	return nil, errors.New(NotConfiguredError{Channel: manifest.ChannelSource, Registry: name})
}

// Channel returns the single client of a container, language or binary channel.
func (set *Set) Channel(channel manifest.Channel) (Client, error) {
	var client Client

	if set != nil {
		switch channel {
		case manifest.ChannelContainer:
			client = set.Container
		case manifest.ChannelLanguage:
			client = set.Language
		case manifest.ChannelBinary:
			client = set.Binary
		case manifest.ChannelSource:
		}
	}

	if client == nil {
		return nil, errors.New(NotConfiguredError{Channel: channel})
	}

	return client, nil
}

// SourceNames returns the configured source registry names in sorted order.
func (set *Set) SourceNames() []string {
	if set == nil {
		return nil
	}

	names := make([]string, 0, len(set.Sources))

	for name := range set.Sources {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
