package registry

import (
	"context"
	"path"
	"slices"
	"strings"
)

// ObjectLister lists object keys in a bucket or container.
type ObjectLister interface {
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// binarySuffixes are the artifact suffixes a published binary key may carry after "<name>-v<version>".
var binarySuffixes = []string{"", ".exe", "-signed.exe", ".msi", "-signed.msi"}

// BlobStore finds binaries in object storage. Keys follow "<name>-v<version>" plus one of the known artifact
// suffixes. A pre-release such as "-rc.1" stored under the same prefix does not count as the release.
type BlobStore struct {
	lister ObjectLister
	prefix string
}

// NewBlobStore creates a client over lister. prefix is prepended to every key.
func NewBlobStore(lister ObjectLister, prefix string) *BlobStore {
	return &BlobStore{lister: lister, prefix: strings.Trim(prefix, "/")}
}

// BinaryName returns the key of a package's binary for one target, without the version.
func BinaryName(pkg, releaseChannel, target string) string {
	return pkg + "/" + releaseChannel + "/" + pkg + "-" + target
}

// Exists implements Client. name is a key produced by BinaryName.
func (store *BlobStore) Exists(ctx context.Context, name, version string) (bool, error) {
	key := name + "-v" + version
	if store.prefix != "" {
		key = path.Join(store.prefix, key)
	}

	keys, err := store.lister.ListKeys(ctx, key)
	if err != nil {
		return false, err
	}

	for _, candidate := range keys {
		rest, ok := strings.CutPrefix(candidate, key)
		if ok && slices.Contains(binarySuffixes, rest) {
			return true, nil
		}
	}

	return false, nil
}
