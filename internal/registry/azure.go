package registry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/util"
)

// AzureLister lists blob names of an Azure Blob Storage container.
type AzureLister struct {
	client    *azblob.Client
	container string
}

// NewAzureLister wraps an existing client.
func NewAzureLister(client *azblob.Client, container string) *AzureLister {
	return &AzureLister{client: client, container: container}
}

// NewAzureClient builds a blob client for the configured storage account. A shared account key from env is used
// when present; otherwise the default Azure credential chain applies.
func NewAzureClient(l log.Logger, cfg *BinaryConfig, env map[string]string) (*azblob.Client, error) {
	serviceURL := cfg.Endpoint
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.Account)
	}

	if accessKey := env[cfg.accessKeyEnv()]; accessKey != "" {
		l.Debugf("Using shared key for storage account %s", cfg.Account)

		cred, err := azblob.NewSharedKeyCredential(cfg.Account, accessKey)
		if err != nil {
			return nil, errors.Errorf("invalid shared key for storage account %s: %w", cfg.Account, err)
		}

		client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, errors.New(err)
		}

		return client, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{})
	if err != nil {
		return nil, errors.Errorf("failed to obtain Azure credentials: %w", err)
	}

	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.New(err)
	}

	return client, nil
}

// ListKeys implements ObjectLister.
func (lister *AzureLister) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	pager := lister.client.NewListBlobsFlatPager(lister.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})

	var keys []string

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, classifyAzureError(err)
		}

		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				keys = append(keys, *item.Name)
			}
		}
	}

	return keys, nil
}

func classifyAzureError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound, http.StatusForbidden, http.StatusUnauthorized:
			return util.FatalError{Underlying: err}
		}
	}

	return errors.New(err)
}
