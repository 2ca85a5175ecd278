package registry

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/util"
)

const (
	dockerHubHost     = "docker.io"
	dockerHubRegistry = "registry-1.docker.io"
)

var manifestMediaTypes = []string{
	"application/vnd.oci.image.index.v1+json",
	"application/vnd.oci.image.manifest.v1+json",
	"application/vnd.docker.distribution.manifest.list.v2+json",
	"application/vnd.docker.distribution.manifest.v2+json",
}

// Credential authenticates against one registry host.
type Credential struct {
	Username string
	Password string
}

// ContainerRegistry checks image tags through the OCI distribution API. Anonymous and basic credentials are
// exchanged for bearer tokens when the registry challenges for one.
type ContainerRegistry struct {
	client      *http.Client
	credentials map[string]Credential
	scheme      string
}

// NewContainerRegistry creates a client. credentials are keyed by registry host. With plainHTTP the registry is
// contacted without TLS, which only local test registries need.
func NewContainerRegistry(credentials map[string]Credential, plainHTTP bool, opts ...HTTPOption) *ContainerRegistry {
	scheme := "https"
	if plainHTTP {
		scheme = "http"
	}

	return &ContainerRegistry{
		client:      newHTTPClient(opts...),
		credentials: credentials,
		scheme:      scheme,
	}
}

// ParseReference splits an image name such as "ghcr.io/acme/app" into registry host and repository. Names without
// a host refer to Docker Hub.
func ParseReference(name string) (host, repository string) {
	first, rest, found := strings.Cut(name, "/")
	if found && (strings.ContainsAny(first, ".:") || first == "localhost") {
		host, repository = first, rest
	} else {
		host, repository = dockerHubHost, name
	}

	if host == dockerHubHost && !strings.Contains(repository, "/") {
		repository = "library/" + repository
	}

	return host, repository
}

// Exists implements Client. name is the full image name without tag; version is the tag.
func (registry *ContainerRegistry) Exists(ctx context.Context, name, version string) (bool, error) {
	host, repository := ParseReference(name)

	endpoint := host
	if host == dockerHubHost {
		endpoint = dockerHubRegistry
	}

	manifestURL := registry.scheme + "://" + endpoint + "/v2/" + repository + "/manifests/" + url.PathEscape(version)

	resp, err := registry.headManifest(ctx, manifestURL, "")
	if err != nil {
		return false, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		challenge := resp.Header.Get("WWW-Authenticate")
		drain(resp)

		token, err := registry.fetchToken(ctx, host, challenge)
		if err != nil {
			return false, err
		}

		if resp, err = registry.headManifest(ctx, manifestURL, token); err != nil {
			return false, err
		}
	}

	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, util.FatalError{Underlying: StatusError{Method: http.MethodHead, URL: manifestURL, StatusCode: resp.StatusCode}}
	}
}

func (registry *ContainerRegistry) headManifest(ctx context.Context, manifestURL, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, manifestURL, nil)
	if err != nil {
		return nil, util.FatalError{Underlying: err}
	}

	req.Header.Set("Accept", strings.Join(manifestMediaTypes, ", "))

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return doRequest(registry.client, req, http.StatusOK, http.StatusNotFound, http.StatusUnauthorized)
}

type tokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// fetchToken answers a "Bearer realm=...,service=...,scope=..." challenge.
func (registry *ContainerRegistry) fetchToken(ctx context.Context, host, challenge string) (string, error) {
	scheme, params, _ := strings.Cut(challenge, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", util.FatalError{Underlying: errors.Errorf("registry %s requires unsupported authentication %q", host, scheme)}
	}

	values := parseChallenge(params)

	realm := values["realm"]
	if realm == "" {
		return "", util.FatalError{Underlying: errors.Errorf("registry %s sent a bearer challenge without realm", host)}
	}

	query := url.Values{}

	for _, key := range []string{"service", "scope"} {
		if value := values[key]; value != "" {
			query.Set(key, value)
		}
	}

	tokenURL := realm
	if len(query) > 0 {
		tokenURL += "?" + query.Encode()
	}

	header := http.Header{}
	if credential, ok := registry.credentials[host]; ok {
		basic := base64.StdEncoding.EncodeToString([]byte(credential.Username + ":" + credential.Password))
		header.Set("Authorization", "Basic "+basic)
	}

	var token tokenResponse

	found, err := getJSON(ctx, registry.client, tokenURL, header, &token)
	if err != nil {
		return "", err
	}

	if !found || (token.Token == "" && token.AccessToken == "") {
		return "", util.FatalError{Underlying: errors.Errorf("registry %s issued no token", host)}
	}

	if token.Token != "" {
		return token.Token, nil
	}

	return token.AccessToken, nil
}

// parseChallenge parses comma separated key="value" pairs. Values may contain commas inside quotes.
func parseChallenge(params string) map[string]string {
	values := make(map[string]string)

	for params != "" {
		key, rest, ok := strings.Cut(strings.TrimLeft(params, " ,"), "=")
		if !ok {
			break
		}

		var value string

		if strings.HasPrefix(rest, `"`) {
			end := strings.Index(rest[1:], `"`)
			if end < 0 {
				value, params = rest[1:], ""
			} else {
				value, params = rest[1:end+1], rest[end+2:]
			}
		} else {
			value, params, _ = strings.Cut(rest, ",")
		}

		values[strings.ToLower(strings.TrimSpace(key))] = value
	}

	return values
}
