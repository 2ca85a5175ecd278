package registry

import (
	"context"
	"net/http"
	"net/url"
)

// DefaultSourceURL is the crates-style API queried by the default source registry.
const DefaultSourceURL = "https://crates.io/api/v1/crates/"

// SourceRegistry queries a crates-style registry API: GET <base><name> answers either a single crate document
// with its versions, or a search result listing crates.
type SourceRegistry struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewSourceRegistry creates a client for the registry API rooted at baseURL. The token, if any, is sent as the
// Authorization header.
func NewSourceRegistry(baseURL, token string, opts ...HTTPOption) *SourceRegistry {
	return &SourceRegistry{
		client:  newHTTPClient(opts...),
		baseURL: withSlash(baseURL),
		token:   token,
	}
}

type crateVersion struct {
	Num  string `json:"num"`
	Vers string `json:"vers"`
}

func (v crateVersion) version() string {
	if v.Num != "" {
		return v.Num
	}

	return v.Vers
}

type crateDocument struct {
	Crate *struct {
		Name string `json:"name"`
	} `json:"crate"`
	Crates []struct {
		Name     string         `json:"name"`
		Versions []crateVersion `json:"versions"`
	} `json:"crates"`
	Versions []crateVersion `json:"versions"`
}

// Exists implements Client.
func (registry *SourceRegistry) Exists(ctx context.Context, name, version string) (bool, error) {
	header := http.Header{}
	if registry.token != "" {
		header.Set("Authorization", registry.token)
	}

	var doc crateDocument

	found, err := getJSON(ctx, registry.client, registry.baseURL+url.PathEscape(name), header, &doc)
	if err != nil || !found {
		return false, err
	}

	var versions []crateVersion

	switch {
	case doc.Crate != nil:
		versions = doc.Versions
	default:
		for _, crate := range doc.Crates {
			if crate.Name == name {
				versions = crate.Versions
			}
		}
	}

	for _, v := range versions {
		if v.version() == version {
			return true, nil
		}
	}

	return false, nil
}
