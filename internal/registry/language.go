package registry

import (
	"context"
	"net/http"
	"strings"
)

// DefaultLanguageURL is the npm-compatible registry queried when none is configured.
const DefaultLanguageURL = "https://registry.npmjs.org/"

// LanguageRegistry queries an npm-compatible registry's package documents. Scoped packages may be served by a
// registry of their own.
type LanguageRegistry struct {
	client  *http.Client
	scopes  map[string]string
	baseURL string
	token   string
}

// NewLanguageRegistry creates a client for the registry at baseURL. scopes maps a scope ("@acme") to the URL of
// the registry serving it.
func NewLanguageRegistry(baseURL, token string, scopes map[string]string, opts ...HTTPOption) *LanguageRegistry {
	normalized := make(map[string]string, len(scopes))

	for scope, scopeURL := range scopes {
		if !strings.HasPrefix(scope, "@") {
			scope = "@" + scope
		}

		normalized[scope] = withSlash(scopeURL)
	}

	return &LanguageRegistry{
		client:  newHTTPClient(opts...),
		scopes:  normalized,
		baseURL: withSlash(baseURL),
		token:   token,
	}
}

type packageDocument struct {
	Versions map[string]struct {
		Version string `json:"version"`
	} `json:"versions"`
}

// Exists implements Client. Scoped names ("@scope/name") are escaped the way the npm CLI does.
func (registry *LanguageRegistry) Exists(ctx context.Context, name, version string) (bool, error) {
	baseURL := registry.baseURL

	if scope, _, ok := strings.Cut(name, "/"); ok && strings.HasPrefix(scope, "@") {
		if scopeURL, ok := registry.scopes[scope]; ok {
			baseURL = scopeURL
		}
	}

	header := http.Header{}
	if registry.token != "" {
		header.Set("Authorization", "Bearer "+registry.token)
	}

	var doc packageDocument

	found, err := getJSON(ctx, registry.client, baseURL+strings.ReplaceAll(name, "/", "%2f"), header, &doc)
	if err != nil || !found {
		return false, err
	}

	if _, ok := doc.Versions[version]; ok {
		return true, nil
	}

	for _, v := range doc.Versions {
		if v.Version == version {
			return true, nil
		}
	}

	return false, nil
}

func withSlash(url string) string {
	if strings.HasSuffix(url, "/") {
		return url
	}

	return url + "/"
}
