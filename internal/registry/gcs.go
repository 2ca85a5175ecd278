package registry

import (
	"context"
	"net/http"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/util"
)

// GCSLister lists object names of a Google Cloud Storage bucket.
type GCSLister struct {
	client *storage.Client
	bucket string
}

// NewGCSLister wraps an existing client.
func NewGCSLister(client *storage.Client, bucket string) *GCSLister {
	return &GCSLister{client: client, bucket: bucket}
}

// NewGCSClient builds a storage client. A credentials file from the configuration or from
// GOOGLE_APPLICATION_CREDENTIALS wins over an OAuth access token, which wins over application default credentials.
// A configured service account is impersonated with whichever credentials were found.
func NewGCSClient(ctx context.Context, cfg *BinaryConfig, env map[string]string) (*storage.Client, error) {
	var clientOpts []option.ClientOption

	credentialsFile := cfg.CredentialsFile
	if credentialsFile == "" {
		credentialsFile = env["GOOGLE_APPLICATION_CREDENTIALS"]
	}

	switch accessToken := env[cfg.accessTokenEnv()]; {
	case credentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	case accessToken != "":
		clientOpts = append(clientOpts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})))
	}

	if cfg.ImpersonateServiceAccount != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: cfg.ImpersonateServiceAccount,
			Scopes:          []string{storage.ScopeReadOnly},
		}, clientOpts...)
		if err != nil {
			return nil, errors.Errorf("Error creating impersonation token source: %w", err)
		}

		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}

	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Errorf("Error creating GCS client: %w", err)
	}

	return client, nil
}

// ListKeys implements ObjectLister.
func (lister *GCSLister) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	it := lister.client.Bucket(lister.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var keys []string

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return keys, nil
		}

		if err != nil {
			return nil, classifyGCSError(err)
		}

		keys = append(keys, attrs.Name)
	}
}

func classifyGCSError(err error) error {
	if errors.Is(err, storage.ErrBucketNotExist) {
		return util.FatalError{Underlying: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusUnauthorized) {
		return util.FatalError{Underlying: err}
	}

	return errors.New(err)
}
