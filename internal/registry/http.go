package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/util"
)

const (
	userAgent = "relplan"

	// maxBodySize bounds registry responses; package documents of popular npm packages run to tens of MiB.
	maxBodySize = 64 << 20
)

// HTTPOption configures the HTTP client of a registry.
type HTTPOption func(*http.Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *http.Client) {
		*c = *client
	}
}

func newHTTPClient(opts ...HTTPOption) *http.Client {
	client := cleanhttp.DefaultPooledClient()

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// doRequest sends req and returns the response when its status is one of accepted. Server errors and rate limits
// are returned as retriable errors, every other status as a FatalError.
func doRequest(client *http.Client, req *http.Request, accepted ...int) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.New(err)
	}

	for _, status := range accepted {
		if resp.StatusCode == status {
			return resp, nil
		}
	}

	drain(resp)

	statusErr := StatusError{Method: req.Method, URL: req.URL.Redacted(), StatusCode: resp.StatusCode}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.New(statusErr)
	}

	return nil, util.FatalError{Underlying: statusErr}
}

// getJSON fetches url and decodes the body into out. It reports false, without error, on 404.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, util.FatalError{Underlying: err}
	}

	for key, values := range header {
		req.Header[key] = values
	}

	req.Header.Set("Accept", "application/json")

	resp, err := doRequest(client, req, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return false, util.FatalError{Underlying: errors.Errorf("decoding %s: %w", req.URL.Redacted(), err)}
	}

	return true, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()
}
